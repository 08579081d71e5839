package services

import (
	"context"
	"errors"
	"time"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/payments"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/storage"
	"github.com/assetdeck/api/internal/repositories"
)

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

var (
	errStubNotFound    = &stubRepoError{notFound: true}
	errStubUnavailable = &stubRepoError{unavailable: true}
)

var _ repositories.RepositoryError = (*stubRepoError)(nil)

type stubAssetRepository struct {
	insertFunc     func(ctx context.Context, asset domain.Asset) error
	updateFunc     func(ctx context.Context, asset domain.Asset) error
	deleteFunc     func(ctx context.Context, assetID string) error
	findByIDFunc   func(ctx context.Context, assetID string) (domain.Asset, error)
	findByIDsFunc  func(ctx context.Context, assetIDs []string) ([]domain.Asset, error)
	listFunc       func(ctx context.Context, filter repositories.AssetListFilter) ([]domain.Asset, error)
	incrementsFunc func(ctx context.Context, assetID string) error
}

func (s *stubAssetRepository) Insert(ctx context.Context, asset domain.Asset) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, asset)
	}
	return nil
}

func (s *stubAssetRepository) Update(ctx context.Context, asset domain.Asset) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, asset)
	}
	return nil
}

func (s *stubAssetRepository) Delete(ctx context.Context, assetID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, assetID)
	}
	return nil
}

func (s *stubAssetRepository) FindByID(ctx context.Context, assetID string) (domain.Asset, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, assetID)
	}
	return domain.Asset{}, errStubNotFound
}

func (s *stubAssetRepository) FindByIDs(ctx context.Context, assetIDs []string) ([]domain.Asset, error) {
	if s.findByIDsFunc != nil {
		return s.findByIDsFunc(ctx, assetIDs)
	}
	return nil, errStubNotFound
}

func (s *stubAssetRepository) List(ctx context.Context, filter repositories.AssetListFilter) ([]domain.Asset, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return nil, nil
}

func (s *stubAssetRepository) IncrementDownloads(ctx context.Context, assetID string) error {
	if s.incrementsFunc != nil {
		return s.incrementsFunc(ctx, assetID)
	}
	return nil
}

type stubUserRepository struct {
	insertFunc         func(ctx context.Context, user domain.User) error
	findByIDFunc       func(ctx context.Context, userID string) (domain.User, error)
	findByEmailFunc    func(ctx context.Context, email string) (domain.User, error)
	updateProfileFunc  func(ctx context.Context, user domain.User) error
	grantAssetsFunc    func(ctx context.Context, userID string, assetIDs []string) error
	addFavoriteFunc    func(ctx context.Context, userID, assetID string) error
	removeFavoriteFunc func(ctx context.Context, userID, assetID string) error
	recordDownloadFunc func(ctx context.Context, userID, assetID string) error
}

func (s *stubUserRepository) Insert(ctx context.Context, user domain.User) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, user)
	}
	return nil
}

func (s *stubUserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, userID)
	}
	return domain.User{}, errStubNotFound
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if s.findByEmailFunc != nil {
		return s.findByEmailFunc(ctx, email)
	}
	return domain.User{}, errStubNotFound
}

func (s *stubUserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	if s.updateProfileFunc != nil {
		return s.updateProfileFunc(ctx, user)
	}
	return nil
}

func (s *stubUserRepository) GrantAssets(ctx context.Context, userID string, assetIDs []string) error {
	if s.grantAssetsFunc != nil {
		return s.grantAssetsFunc(ctx, userID, assetIDs)
	}
	return nil
}

func (s *stubUserRepository) AddFavorite(ctx context.Context, userID, assetID string) error {
	if s.addFavoriteFunc != nil {
		return s.addFavoriteFunc(ctx, userID, assetID)
	}
	return nil
}

func (s *stubUserRepository) RemoveFavorite(ctx context.Context, userID, assetID string) error {
	if s.removeFavoriteFunc != nil {
		return s.removeFavoriteFunc(ctx, userID, assetID)
	}
	return nil
}

func (s *stubUserRepository) RecordDownload(ctx context.Context, userID, assetID string) error {
	if s.recordDownloadFunc != nil {
		return s.recordDownloadFunc(ctx, userID, assetID)
	}
	return nil
}

type stubOrderRepository struct {
	insertFunc           func(ctx context.Context, order domain.Order) error
	findByIDFunc         func(ctx context.Context, orderID string) (domain.Order, error)
	findBySessionFunc    func(ctx context.Context, sessionID string) (domain.Order, error)
	listByUserFunc       func(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	listStalePendingFunc func(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error)
	attachSessionFunc    func(ctx context.Context, orderID, sessionID string) error
	completeFunc         func(ctx context.Context, orderID, intentID string, completedAt time.Time) (domain.Order, error)
	failFunc             func(ctx context.Context, orderID, reason string, failedAt time.Time) (domain.Order, error)
	cancelFunc           func(ctx context.Context, orderID string, cancelledAt time.Time) (domain.Order, error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, orderID)
	}
	return domain.Order{}, errStubNotFound
}

func (s *stubOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	if s.findBySessionFunc != nil {
		return s.findBySessionFunc(ctx, sessionID)
	}
	return domain.Order{}, errStubNotFound
}

func (s *stubOrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if s.listByUserFunc != nil {
		return s.listByUserFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (s *stubOrderRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	if s.listStalePendingFunc != nil {
		return s.listStalePendingFunc(ctx, olderThan, limit)
	}
	return nil, nil
}

func (s *stubOrderRepository) AttachSession(ctx context.Context, orderID, sessionID string) error {
	if s.attachSessionFunc != nil {
		return s.attachSessionFunc(ctx, orderID, sessionID)
	}
	return nil
}

func (s *stubOrderRepository) CompleteFromPending(ctx context.Context, orderID, intentID string, completedAt time.Time) (domain.Order, error) {
	if s.completeFunc != nil {
		return s.completeFunc(ctx, orderID, intentID, completedAt)
	}
	return domain.Order{}, errors.New("complete not stubbed")
}

func (s *stubOrderRepository) FailFromPending(ctx context.Context, orderID, reason string, failedAt time.Time) (domain.Order, error) {
	if s.failFunc != nil {
		return s.failFunc(ctx, orderID, reason, failedAt)
	}
	return domain.Order{}, errors.New("fail not stubbed")
}

func (s *stubOrderRepository) CancelFromPending(ctx context.Context, orderID string, cancelledAt time.Time) (domain.Order, error) {
	if s.cancelFunc != nil {
		return s.cancelFunc(ctx, orderID, cancelledAt)
	}
	return domain.Order{}, errors.New("cancel not stubbed")
}

type stubContentRepository struct {
	insertFunc   func(ctx context.Context, entry domain.ContentEntry) error
	updateFunc   func(ctx context.Context, entry domain.ContentEntry) error
	deleteFunc   func(ctx context.Context, entryID string) error
	findByIDFunc func(ctx context.Context, entryID string) (domain.ContentEntry, error)
	listFunc     func(ctx context.Context, filter repositories.ContentListFilter) ([]domain.ContentEntry, error)
}

func (s *stubContentRepository) Insert(ctx context.Context, entry domain.ContentEntry) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, entry)
	}
	return nil
}

func (s *stubContentRepository) Update(ctx context.Context, entry domain.ContentEntry) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, entry)
	}
	return nil
}

func (s *stubContentRepository) Delete(ctx context.Context, entryID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, entryID)
	}
	return nil
}

func (s *stubContentRepository) FindByID(ctx context.Context, entryID string) (domain.ContentEntry, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, entryID)
	}
	return domain.ContentEntry{}, errStubNotFound
}

func (s *stubContentRepository) List(ctx context.Context, filter repositories.ContentListFilter) ([]domain.ContentEntry, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return nil, nil
}

type stubTicketRepository struct {
	insertFunc       func(ctx context.Context, ticket domain.SupportTicket) error
	findByIDFunc     func(ctx context.Context, ticketID string) (domain.SupportTicket, error)
	listByUserFunc   func(ctx context.Context, userID string, limit int) ([]domain.SupportTicket, error)
	listByStatusFunc func(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.SupportTicket, error)
	updateStatusFunc func(ctx context.Context, ticketID string, status domain.TicketStatus, updatedAt time.Time) error
}

func (s *stubTicketRepository) Insert(ctx context.Context, ticket domain.SupportTicket) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, ticket)
	}
	return nil
}

func (s *stubTicketRepository) FindByID(ctx context.Context, ticketID string) (domain.SupportTicket, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, ticketID)
	}
	return domain.SupportTicket{}, errStubNotFound
}

func (s *stubTicketRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.SupportTicket, error) {
	if s.listByUserFunc != nil {
		return s.listByUserFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (s *stubTicketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.SupportTicket, error) {
	if s.listByStatusFunc != nil {
		return s.listByStatusFunc(ctx, status, limit)
	}
	return nil, nil
}

func (s *stubTicketRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, updatedAt time.Time) error {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, ticketID, status, updatedAt)
	}
	return nil
}

type stubWebhookEventRepository struct {
	processedFunc func(ctx context.Context, eventID string) (bool, error)
	markFunc      func(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error)
}

func (s *stubWebhookEventRepository) Processed(ctx context.Context, eventID string) (bool, error) {
	if s.processedFunc != nil {
		return s.processedFunc(ctx, eventID)
	}
	return false, nil
}

func (s *stubWebhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error) {
	if s.markFunc != nil {
		return s.markFunc(ctx, eventID, eventType, receivedAt)
	}
	return true, nil
}

type stubPaymentProvider struct {
	createFunc func(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	lookupFunc func(ctx context.Context, req payments.LookupRequest) (payments.PaymentDetails, error)
}

func (s *stubPaymentProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, req)
	}
	return payments.CheckoutSession{}, errors.New("create session not stubbed")
}

func (s *stubPaymentProvider) LookupPayment(ctx context.Context, req payments.LookupRequest) (payments.PaymentDetails, error) {
	if s.lookupFunc != nil {
		return s.lookupFunc(ctx, req)
	}
	return payments.PaymentDetails{}, errors.New("lookup not stubbed")
}

type stubPublisher struct {
	publishFunc func(ctx context.Context, message OrderEventMessage) (string, error)
	published   []OrderEventMessage
}

func (s *stubPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	s.published = append(s.published, message)
	if s.publishFunc != nil {
		return s.publishFunc(ctx, message)
	}
	return "msg-1", nil
}

type stubDownloadSigner struct {
	signFunc func(ctx context.Context, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error)
}

func (s *stubDownloadSigner) SignedDownloadURL(ctx context.Context, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error) {
	if s.signFunc != nil {
		return s.signFunc(ctx, object, opts)
	}
	return storage.SignedURLResult{URL: "https://signed.example/" + object}, nil
}

type stubTokenMinter struct {
	issueFunc func(identity auth.Identity) (string, time.Time, error)
}

func (s *stubTokenMinter) Issue(identity auth.Identity) (string, time.Time, error) {
	if s.issueFunc != nil {
		return s.issueFunc(identity)
	}
	return "token-" + identity.UID, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), nil
}
