package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeAccessClient struct {
	values map[string]string
	err    error
	calls  int
}

func (c *fakeAccessClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	value, ok := c.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "no such secret")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (c *fakeAccessClient) Close() error { return nil }

func TestResolveSecretFetchesAndCaches(t *testing.T) {
	client := &fakeAccessClient{values: map[string]string{
		"projects/assetdeck/secrets/stripe-key/versions/latest": "sk_test_abc",
	}}
	fetcher, err := NewFetcher(context.Background(), WithClient(client), WithDefaultProject("assetdeck"))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		value, err := fetcher.ResolveSecret(context.Background(), "secret://stripe-key")
		if err != nil {
			t.Fatalf("ResolveSecret returned error: %v", err)
		}
		if value != "sk_test_abc" {
			t.Fatalf("unexpected value %q", value)
		}
	}
	if client.calls != 1 {
		t.Fatalf("expected a single remote access, got %d", client.calls)
	}
}

func TestResolveSecretLongFormNamesProject(t *testing.T) {
	client := &fakeAccessClient{values: map[string]string{
		"projects/other-proj/secrets/jwt/versions/2": "token-secret",
	}}
	fetcher, err := NewFetcher(context.Background(), WithClient(client), WithDefaultProject("assetdeck"))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.ResolveSecret(context.Background(), "secret://projects/other-proj/secrets/jwt?version=2")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "token-secret" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveSecretRejectsMalformedRefs(t *testing.T) {
	fetcher, err := NewFetcher(context.Background(), WithClient(&fakeAccessClient{}))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	for _, ref := range []string{"", "stripe-key", "secret://", "secret://a/b"} {
		if _, err := fetcher.ResolveSecret(context.Background(), ref); err == nil {
			t.Fatalf("expected %q to be rejected", ref)
		}
	}
}

func TestResolveSecretFallsBackWhenUnavailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.local")
	contents := "# local secrets\nstripe-key=sk_local\nsecret://jwt=jwt_local\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &fakeAccessClient{err: status.Error(codes.Unavailable, "down")}
	fetcher, err := NewFetcher(context.Background(),
		WithClient(client),
		WithDefaultProject("assetdeck"),
		WithFallbackFile(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	value, err := fetcher.ResolveSecret(context.Background(), "secret://stripe-key")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "sk_local" {
		t.Fatalf("unexpected fallback value %q", value)
	}

	value, err = fetcher.ResolveSecret(context.Background(), "secret://jwt")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "jwt_local" {
		t.Fatalf("unexpected fallback value %q", value)
	}
}

func TestResolveSecretDoesNotFallBackOnNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.local")
	if err := os.WriteFile(path, []byte("stripe-key=sk_local\n"), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &fakeAccessClient{values: map[string]string{}}
	fetcher, err := NewFetcher(context.Background(),
		WithClient(client),
		WithDefaultProject("assetdeck"),
		WithFallbackFile(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	if _, err := fetcher.ResolveSecret(context.Background(), "secret://stripe-key"); err == nil {
		t.Fatal("expected not-found to surface instead of using the fallback")
	}
}
