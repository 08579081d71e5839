package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/repositories"
)

const minPasswordLength = 8

var (
	// ErrUserInvalidInput indicates the caller supplied invalid parameters.
	ErrUserInvalidInput = errors.New("users: invalid input")
	// ErrUserEmailTaken indicates the email is already registered.
	ErrUserEmailTaken = errors.New("users: email already registered")
	// ErrUserBadCredentials indicates the email or password did not match.
	ErrUserBadCredentials = errors.New("users: bad credentials")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("users: not found")
	// ErrUserUnavailable indicates user dependencies are currently unavailable.
	ErrUserUnavailable = errors.New("users: unavailable")
)

// tokenMinter abstracts auth.TokenIssuer for easier testing.
type tokenMinter interface {
	Issue(identity auth.Identity) (string, time.Time, error)
}

// UserServiceDeps wires the dependencies required by the user service.
type UserServiceDeps struct {
	Users      repositories.UserRepository
	Tokens     tokenMinter
	BcryptCost int
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users  repositories.UserRepository
	tokens tokenMinter
	cost   int
	now    func() time.Time
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewUserService constructs a UserService validating required dependencies.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token issuer is required")
	}

	cost := deps.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:  deps.Users,
		tokens: deps.Tokens,
		cost:   cost,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Register creates an account and returns an authenticated session.
func (s *userService) Register(ctx context.Context, cmd RegisterCommand) (AuthSession, error) {
	if s == nil || s.users == nil {
		return AuthSession{}, ErrUserUnavailable
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	name := strings.TrimSpace(cmd.Name)
	if email == "" || !strings.Contains(email, "@") || name == "" {
		return AuthSession{}, ErrUserInvalidInput
	}
	if len(cmd.Password) < minPasswordLength {
		return AuthSession{}, ErrUserInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.cost)
	if err != nil {
		s.logger(ctx, "users.hash_failed", map[string]any{"error": err.Error()})
		return AuthSession{}, ErrUserUnavailable
	}

	now := s.now()
	user := domain.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Name:         name,
		Role:         domain.RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) || repositories.IsConflict(err) {
			return AuthSession{}, ErrUserEmailTaken
		}
		s.logger(ctx, "users.register_failed", map[string]any{"error": err.Error()})
		return AuthSession{}, ErrUserUnavailable
	}

	s.logger(ctx, "users.registered", map[string]any{"userId": user.ID})
	return s.session(user)
}

// Login authenticates the account and returns a session token.
func (s *userService) Login(ctx context.Context, cmd LoginCommand) (AuthSession, error) {
	if s == nil || s.users == nil {
		return AuthSession{}, ErrUserUnavailable
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return AuthSession{}, ErrUserInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return AuthSession{}, ErrUserBadCredentials
		}
		s.logger(ctx, "users.login_lookup_failed", map[string]any{"error": err.Error()})
		return AuthSession{}, ErrUserUnavailable
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)) != nil {
		return AuthSession{}, ErrUserBadCredentials
	}

	return s.session(user)
}

// Profile returns the account without its credential hash.
func (s *userService) Profile(ctx context.Context, userID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, ErrUserInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.User{}, ErrUserNotFound
		}
		s.logger(ctx, "users.profile_failed", map[string]any{"userId": userID, "error": err.Error()})
		return domain.User{}, ErrUserUnavailable
	}
	user.PasswordHash = ""
	return user, nil
}

// AddFavorite adds an asset to the user's favorites set.
func (s *userService) AddFavorite(ctx context.Context, userID, assetID string) error {
	return s.favoriteOp(ctx, userID, assetID, s.users.AddFavorite)
}

// RemoveFavorite removes an asset from the user's favorites set.
func (s *userService) RemoveFavorite(ctx context.Context, userID, assetID string) error {
	return s.favoriteOp(ctx, userID, assetID, s.users.RemoveFavorite)
}

func (s *userService) favoriteOp(ctx context.Context, userID, assetID string, op func(context.Context, string, string) error) error {
	if s == nil || s.users == nil {
		return ErrUserUnavailable
	}
	userID = strings.TrimSpace(userID)
	assetID = strings.TrimSpace(assetID)
	if userID == "" || assetID == "" {
		return ErrUserInvalidInput
	}

	if err := op(ctx, userID, assetID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrUserNotFound
		}
		s.logger(ctx, "users.favorite_failed", map[string]any{
			"userId":  userID,
			"assetId": assetID,
			"error":   err.Error(),
		})
		return ErrUserUnavailable
	}
	return nil
}

// GrantEntitlements adds assets to the user's purchased set outside the
// checkout flow. Used by the admin grant endpoint.
func (s *userService) GrantEntitlements(ctx context.Context, userID string, assetIDs []string) error {
	if s == nil || s.users == nil {
		return ErrUserUnavailable
	}
	userID = strings.TrimSpace(userID)
	ids := dedupeIDs(assetIDs)
	if userID == "" || len(ids) == 0 {
		return ErrUserInvalidInput
	}

	if err := s.users.GrantAssets(ctx, userID, ids); err != nil {
		if repositories.IsNotFound(err) {
			return ErrUserNotFound
		}
		s.logger(ctx, "users.grant_failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
		return ErrUserUnavailable
	}

	s.logger(ctx, "users.granted", map[string]any{
		"userId": userID,
		"assets": len(ids),
	})
	return nil
}

func (s *userService) session(user domain.User) (AuthSession, error) {
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		UID:   user.ID,
		Email: user.Email,
		Role:  user.Role,
	})
	if err != nil {
		return AuthSession{}, ErrUserUnavailable
	}
	user.PasswordHash = ""
	return AuthSession{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
