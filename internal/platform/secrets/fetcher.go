package secrets

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const refScheme = "secret://"

// accessClient is the slice of the Secret Manager client the fetcher needs.
type accessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret:// references through Google Secret Manager.
// Resolved values are cached for the process lifetime. A plain key=value
// file can supply values locally when Secret Manager is unreachable.
type Fetcher struct {
	client     accessClient
	ownsClient bool
	logger     *zap.Logger

	env     string
	project string

	fallback map[string]string

	mu    sync.Mutex
	cache map[string]string
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithEnvironment records the deployment environment label.
func WithEnvironment(env string) Option {
	return func(f *Fetcher) { f.env = strings.ToLower(strings.TrimSpace(env)) }
}

// WithDefaultProject sets the project used for refs that do not name one.
func WithDefaultProject(projectID string) Option {
	return func(f *Fetcher) { f.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile points at a local key=value file consulted when the
// remote lookup is unavailable.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) { f.fallback = readFallbackFile(path) }
}

// WithClient injects a preconfigured client.
func WithClient(client accessClient) Option {
	return func(f *Fetcher) { f.client = client }
}

// NewFetcher builds a Fetcher. A missing Secret Manager client is not an
// error; resolution then relies on the fallback file alone, which is the
// normal local-development mode.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger: zap.NewNop(),
		env:    "local",
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			f.logger.Warn("secret manager unavailable, using fallback file only", zap.Error(err))
		} else {
			f.client = client
			f.ownsClient = true
		}
	}
	return f, nil
}

// Close releases the underlying client when the fetcher created it.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// ResolveSecret resolves a secret:// reference. Satisfies config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, version, project, err := splitRef(ref)
	if err != nil {
		return "", err
	}
	if project == "" {
		project = f.project
	}

	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version)

	f.mu.Lock()
	cached, hit := f.cache[resource]
	f.mu.Unlock()
	if hit {
		return cached, nil
	}

	value, err := f.access(ctx, project, resource)
	if err != nil {
		if !reachableError(err) {
			return "", fmt.Errorf("secrets: access %s: %w", resource, err)
		}
		local, ok := f.fallback[name]
		if !ok {
			return "", fmt.Errorf("secrets: %s unavailable and no fallback value for %q: %w", resource, name, err)
		}
		if f.env != "local" {
			f.logger.Warn("resolved secret from fallback file outside local environment", zap.String("secret", name), zap.String("env", f.env))
		} else {
			f.logger.Debug("resolved secret from fallback file", zap.String("secret", name))
		}
		value = local
	}

	f.mu.Lock()
	f.cache[resource] = value
	f.mu.Unlock()
	return value, nil
}

func (f *Fetcher) access(ctx context.Context, project, resource string) (string, error) {
	if f.client == nil {
		return "", status.Error(codes.Unavailable, "secret manager client not configured")
	}
	if project == "" {
		return "", status.Error(codes.Unavailable, "no project for secret reference")
	}
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", resource)
	}
	return string(resp.GetPayload().GetData()), nil
}

// splitRef parses secret://<name>[?version=N][?project=P] and the long form
// secret://projects/<project>/secrets/<name>.
func splitRef(ref string) (name, version, project string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(ref), refScheme)
	if !ok || rest == "" {
		return "", "", "", fmt.Errorf("secrets: malformed reference %q", ref)
	}

	rest, query, _ := strings.Cut(rest, "?")
	version = "latest"
	for _, pair := range strings.Split(query, "&") {
		k, v, _ := strings.Cut(pair, "=")
		switch k {
		case "version":
			if v != "" {
				version = v
			}
		case "project":
			project = v
		}
	}

	rest = strings.Trim(rest, "/")
	if parts := strings.Split(rest, "/"); len(parts) == 4 && parts[0] == "projects" && parts[2] == "secrets" {
		project = parts[1]
		name = parts[3]
	} else {
		name = rest
	}
	if name == "" || strings.Contains(name, "/") {
		return "", "", "", fmt.Errorf("secrets: malformed reference %q", ref)
	}
	return name, version, project, nil
}

// reachableError reports whether the failure is environmental rather than a
// bad reference, which permits the fallback file.
func reachableError(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.PermissionDenied, codes.Unauthenticated:
		return true
	}
	return false
}

func readFallbackFile(path string) map[string]string {
	values := make(map[string]string)
	path = strings.TrimSpace(path)
	if path == "" {
		return values
	}
	file, err := os.Open(path)
	if err != nil {
		return values
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(key), refScheme))
		if key != "" {
			values[key] = strings.TrimSpace(value)
		}
	}
	return values
}
