package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/assetdeck/api/internal/platform/config"
)

const dialTimeout = 10 * time.Second

// ErrProviderClosed is returned once Close has been called.
var ErrProviderClosed = errors.New("firestore: provider is closed")

// Provider owns the shared Firestore client. Repositories hold the provider
// rather than a raw client, so the client is dialed on first use and a
// failed dial is retried on the next call instead of poisoning startup.
type Provider struct {
	projectID string
	emulator  string

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// NewProvider builds a Provider from the Firestore section of the config.
func NewProvider(cfg config.FirestoreConfig) *Provider {
	emulator := strings.TrimSpace(cfg.EmulatorHost)
	if emulator == "" {
		emulator = strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST"))
	}
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
	}
	return &Provider{projectID: projectID, emulator: emulator}
}

// Client returns the shared client, dialing it if needed.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.client != nil {
		return p.client, nil
	}

	client, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *Provider) dial(ctx context.Context) (*firestore.Client, error) {
	if p.projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var opts []option.ClientOption
	if p.emulator != "" {
		// The SDK also reads FIRESTORE_EMULATOR_HOST; set it so nested
		// clients agree with ours.
		if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
			_ = os.Setenv("FIRESTORE_EMULATOR_HOST", p.emulator)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(p.emulator),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := firestore.NewClient(ctx, p.projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: dial: %w", err)
	}
	return client, nil
}

// RunTransaction dials if needed and runs fn inside a transaction.
func (p *Provider) RunTransaction(ctx context.Context, fn TxFunc) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	return runTransaction(ctx, client, fn)
}

// Close shuts the client down. The provider cannot be reused afterwards.
func (p *Provider) Close(_ context.Context) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
