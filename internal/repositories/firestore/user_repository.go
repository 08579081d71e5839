package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/assetdeck/api/internal/domain"
	pfirestore "github.com/assetdeck/api/internal/platform/firestore"
	"github.com/assetdeck/api/internal/repositories"
)

const userCollection = "users"

// UserRepository persists user accounts in Firestore. Entitlement sets are
// arrays on the user document mutated through ArrayUnion, which makes grants
// naturally idempotent.
type UserRepository struct {
	base     *pfirestore.BaseRepository[domain.User]
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		base:     pfirestore.NewBaseRepository[domain.User](provider, userCollection),
		provider: provider,
	}, nil
}

// Insert stores a new user account. Fails when the email is already taken.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return errors.New("user email is required")
	}

	if _, err := r.FindByEmail(ctx, user.Email); err == nil {
		return repositories.ErrDuplicateEmail
	} else if !repositories.IsNotFound(err) {
		return err
	}

	_, err := r.base.Create(ctx, user.ID, user)
	return err
}

// FindByID loads the user by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user := doc.Data
	user.ID = doc.ID
	return user, nil
}

// FindByEmail resolves the account registered under the email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(docs) == 0 {
		return domain.User{}, pfirestore.WrapError("users.find_by_email", status.Error(codes.NotFound, "user not found"))
	}
	user := docs[0].Data
	user.ID = docs[0].ID
	return user, nil
}

// UpdateProfile rewrites the mutable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}

	_, err := r.base.Update(ctx, user.ID, []firestore.Update{
		{Path: "name", Value: strings.TrimSpace(user.Name)},
		{Path: "role", Value: string(user.Role)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

// GrantAssets adds asset ids to the purchased set. Replaying the same grant
// leaves the set unchanged.
func (r *UserRepository) GrantAssets(ctx context.Context, userID string, assetIDs []string) error {
	ids := uniqueNonEmpty(assetIDs)
	if len(ids) == 0 {
		return errors.New("at least one asset id is required")
	}
	return r.arrayUnion(ctx, userID, "purchasedAssets", ids)
}

// AddFavorite adds the asset to the user's favorites set.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, assetID string) error {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return errors.New("asset id is required")
	}
	return r.arrayUnion(ctx, userID, "favorites", []string{assetID})
}

// RemoveFavorite removes the asset from the user's favorites set.
func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, assetID string) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return errors.New("asset id is required")
	}

	_, err := r.base.Update(ctx, userID, []firestore.Update{
		{Path: "favorites", Value: firestore.ArrayRemove(assetID)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

// RecordDownload adds the asset to the user's download history set.
func (r *UserRepository) RecordDownload(ctx context.Context, userID, assetID string) error {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return errors.New("asset id is required")
	}
	return r.arrayUnion(ctx, userID, "downloads", []string{assetID})
}

func (r *UserRepository) arrayUnion(ctx context.Context, userID, field string, values []string) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}

	elems := make([]any, 0, len(values))
	for _, v := range values {
		elems = append(elems, v)
	}

	_, err := r.base.Update(ctx, userID, []firestore.Update{
		{Path: field, Value: firestore.ArrayUnion(elems...)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
