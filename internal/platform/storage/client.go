package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Download links are short-lived; buyers re-request a fresh URL from the
// API rather than holding a long-lived one.
const (
	defaultDownloadExpiry = 5 * time.Minute
	maxDownloadExpiry     = time.Hour
)

// Client mints V4 signed download URLs for one bucket.
type Client struct {
	signer Signer
	bucket string
	now    func() time.Time
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithClock overrides the expiry clock.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewClient binds a signer to a bucket.
func NewClient(signer Signer, bucket string, opts ...ClientOption) (*Client, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errors.New("storage: a signer with a service account email is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}

	client := &Client{signer: signer, bucket: bucket, now: time.Now}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// DownloadOptions shape the signed URL.
type DownloadOptions struct {
	// Method defaults to GET; only GET and HEAD are signable.
	Method string
	// ExpiresIn defaults to defaultDownloadExpiry and is capped at
	// maxDownloadExpiry.
	ExpiresIn time.Duration
	// Disposition sets the response Content-Disposition override.
	Disposition string
}

// SignedURLResult is the minted URL plus the terms it was signed under.
type SignedURLResult struct {
	URL       string
	Method    string
	ExpiresAt time.Time
}

// SignedDownloadURL mints a time-limited URL for object.
func (c *Client) SignedDownloadURL(ctx context.Context, object string, opts DownloadOptions) (SignedURLResult, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return SignedURLResult{}, errors.New("storage: object name is required")
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	switch method {
	case "":
		method = "GET"
	case "GET", "HEAD":
	default:
		return SignedURLResult{}, fmt.Errorf("storage: method %s cannot be signed for download", method)
	}

	expiry := opts.ExpiresIn
	if expiry <= 0 {
		expiry = defaultDownloadExpiry
	}
	if expiry > maxDownloadExpiry {
		return SignedURLResult{}, fmt.Errorf("storage: expiry %s exceeds the %s maximum", expiry, maxDownloadExpiry)
	}
	expiresAt := c.now().Add(expiry)

	urlOpts := storage.SignedURLOptions{
		GoogleAccessID: c.signer.Email(),
		Scheme:         storage.SigningSchemeV4,
		Method:         method,
		Expires:        expiresAt,
		SignBytes: func(payload []byte) ([]byte, error) {
			return c.signer.SignBytes(ctx, payload)
		},
	}
	if opts.Disposition != "" {
		urlOpts.QueryParameters = url.Values{
			"response-content-disposition": []string{opts.Disposition},
		}
	}

	signed, err := storage.SignedURL(c.bucket, object, &urlOpts)
	if err != nil {
		return SignedURLResult{}, fmt.Errorf("storage: sign download url: %w", err)
	}
	return SignedURLResult{URL: signed, Method: method, ExpiresAt: expiresAt}, nil
}
