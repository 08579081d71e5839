package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	defaultTokenTTL     = 24 * time.Hour
	defaultSignedURLTTL = 15 * time.Minute
	defaultSweepAge     = 24 * time.Hour
	defaultSweepEvery   = time.Hour
	defaultEnvironment  = "local"

	secretScheme = "secret://"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	Stripe      StripeConfig
	Auth        AuthConfig
	Jobs        JobsConfig
	Sweep       SweepConfig
	Environment string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig names the bucket holding asset files and controls download links.
type StorageConfig struct {
	AssetsBucket string
	SignedURLTTL time.Duration
	SignerKey    string
}

// StripeConfig collects payment gateway credentials. WebhookSecret is
// mandatory: webhook processing fails closed without it.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// AuthConfig holds token signing parameters.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// JobsConfig configures the Pub/Sub order event topic.
type JobsConfig struct {
	ProjectID  string
	OrderTopic string
}

// SweepConfig controls the pending-order expiry sweep.
type SweepConfig struct {
	Interval   time.Duration
	PendingAge time.Duration
}

// SecretResolver resolves references to external secrets (secret:// URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type loadOptions struct {
	envFile  string
	lookup   func(string) (string, bool)
	resolver SecretResolver
}

// Option customises configuration loading.
type Option func(*loadOptions)

// WithEnvFile overrides the path of the optional dotenv file.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = strings.TrimSpace(path)
	}
}

// WithLookup overrides the environment lookup function (tests).
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		if lookup != nil {
			o.lookup = lookup
		}
	}
}

// WithSecretResolver enables resolution of secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loadOptions) {
		o.resolver = resolver
	}
}

// Load assembles the configuration from the environment, an optional .env
// file, and an optional secret resolver for secret:// values.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	o := loadOptions{envFile: defaultEnvFile, lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	fileVals, err := readEnvFile(o.envFile)
	if err != nil {
		return Config{}, err
	}

	get := func(key string) string {
		if value, ok := o.lookup(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileVals[key])
	}

	resolve := func(key string) (string, error) {
		value := get(key)
		if !strings.HasPrefix(value, secretScheme) {
			return value, nil
		}
		if o.resolver == nil {
			return "", fmt.Errorf("config: %s references a secret but no resolver is configured", key)
		}
		resolved, err := o.resolver.ResolveSecret(ctx, value)
		if err != nil {
			return "", fmt.Errorf("config: resolve %s: %w", key, err)
		}
		return strings.TrimSpace(resolved), nil
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         defaultString(get("API_PORT"), defaultPort),
			BaseURL:      strings.TrimRight(get("API_BASE_URL"), "/"),
			ReadTimeout:  durationOrDefault(get("API_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOrDefault(get("API_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOrDefault(get("API_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    get("API_FIRESTORE_PROJECT_ID"),
			EmulatorHost: get("API_FIRESTORE_EMULATOR_HOST"),
		},
		Storage: StorageConfig{
			AssetsBucket: get("API_ASSETS_BUCKET"),
			SignedURLTTL: durationOrDefault(get("API_SIGNED_URL_TTL"), defaultSignedURLTTL),
		},
		Auth: AuthConfig{
			TokenTTL: durationOrDefault(get("API_TOKEN_TTL"), defaultTokenTTL),
		},
		Jobs: JobsConfig{
			ProjectID:  defaultString(get("API_JOBS_PROJECT_ID"), get("API_FIRESTORE_PROJECT_ID")),
			OrderTopic: get("API_ORDER_EVENTS_TOPIC"),
		},
		Sweep: SweepConfig{
			Interval:   durationOrDefault(get("API_ORDER_SWEEP_INTERVAL"), defaultSweepEvery),
			PendingAge: durationOrDefault(get("API_ORDER_PENDING_MAX_AGE"), defaultSweepAge),
		},
		Environment: defaultString(strings.ToLower(get("API_ENVIRONMENT")), defaultEnvironment),
	}

	var missing []string

	if cfg.Stripe.APIKey, err = resolve("API_STRIPE_API_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.Stripe.WebhookSecret, err = resolve("API_STRIPE_WEBHOOK_SECRET"); err != nil {
		return Config{}, err
	}
	if cfg.Auth.JWTSecret, err = resolve("API_JWT_SECRET"); err != nil {
		return Config{}, err
	}
	if cfg.Storage.SignerKey, err = resolve("API_STORAGE_SIGNER_KEY"); err != nil {
		return Config{}, err
	}

	if cfg.Firestore.ProjectID == "" && cfg.Firestore.EmulatorHost == "" {
		missing = append(missing, "API_FIRESTORE_PROJECT_ID")
	}
	if cfg.Stripe.APIKey == "" {
		missing = append(missing, "API_STRIPE_API_KEY")
	}
	if cfg.Stripe.WebhookSecret == "" {
		missing = append(missing, "API_STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "API_JWT_SECRET")
	}
	if cfg.Server.BaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}
	if cfg.Storage.AssetsBucket == "" {
		missing = append(missing, "API_ASSETS_BUCKET")
	}
	if cfg.Storage.SignerKey == "" {
		missing = append(missing, "API_STORAGE_SIGNER_KEY")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, &ValidationError{fields: missing}
	}

	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	values := map[string]string{}
	if path == "" {
		return values, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func durationOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
