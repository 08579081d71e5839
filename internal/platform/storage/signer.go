package storage

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Signer signs payloads for generating signed URLs.
type Signer interface {
	// Email returns the service account email used as the GoogleAccessID.
	Email() string
	// SignBytes signs the provided payload with the underlying private key.
	SignBytes(ctx context.Context, payload []byte) ([]byte, error)
}

// AccountSigner signs URL payloads with an RSA service account key.
type AccountSigner struct {
	email string
	key   *rsa.PrivateKey
}

// NewAccountSigner parses a service account JSON key and returns a signer
// bound to its client_email.
func NewAccountSigner(keyJSON string) (*AccountSigner, error) {
	keyJSON = strings.TrimSpace(keyJSON)
	if keyJSON == "" {
		return nil, errors.New("storage: signer key is empty")
	}

	var account struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(keyJSON), &account); err != nil {
		return nil, fmt.Errorf("storage: decode signer key: %w", err)
	}
	if strings.TrimSpace(account.ClientEmail) == "" {
		return nil, errors.New("storage: signer key has no client_email")
	}

	block, _ := pem.Decode([]byte(strings.TrimSpace(account.PrivateKey)))
	if block == nil {
		return nil, errors.New("storage: signer key has no PEM private key")
	}
	rsaKey, err := rsaKeyFromDER(block.Bytes)
	if err != nil {
		return nil, err
	}

	return &AccountSigner{email: strings.TrimSpace(account.ClientEmail), key: rsaKey}, nil
}

// Email returns the service account email.
func (s *AccountSigner) Email() string {
	if s == nil {
		return ""
	}
	return s.email
}

// SignBytes produces an RSA PKCS1v15 SHA256 signature over payload.
func (s *AccountSigner) SignBytes(ctx context.Context, payload []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("storage: signer has no key")
	}
	if len(payload) == 0 {
		return nil, errors.New("storage: nothing to sign")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := sha256.Sum256(payload)
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
}

// rsaKeyFromDER accepts both PKCS8 and PKCS1 encoded keys; GCP issues
// PKCS8 but older exported keys are PKCS1.
func rsaKeyFromDER(der []byte) (*rsa.PrivateKey, error) {
	if parsed, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("storage: signer key is not RSA")
		}
		return rsaKey, nil
	}
	rsaKey, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("storage: parse signer key: %w", err)
	}
	return rsaKey, nil
}
