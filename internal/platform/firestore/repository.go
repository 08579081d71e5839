package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Document pairs decoded data with the snapshot timestamps.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
	ReadTime   time.Time
}

// MutationResult reports the server timestamp of a write.
type MutationResult struct {
	UpdateTime time.Time
}

// QueryBuilder narrows the collection query before execution.
type QueryBuilder func(query firestore.Query) firestore.Query

// BaseRepository gives each aggregate repository typed access to one
// collection. All errors come back classified through WrapError.
type BaseRepository[T any] struct {
	provider   *Provider
	collection string
}

// NewBaseRepository binds a collection name.
func NewBaseRepository[T any](provider *Provider, collection string) *BaseRepository[T] {
	return &BaseRepository[T]{provider: provider, collection: strings.TrimSpace(collection)}
}

// Create writes value under id, failing when the document already exists.
func (r *BaseRepository[T]) Create(ctx context.Context, id string, value T) (MutationResult, error) {
	return r.mutate(ctx, "create", id, func(doc *firestore.DocumentRef) (*firestore.WriteResult, error) {
		return doc.Create(ctx, value)
	})
}

// Set upserts value under id.
func (r *BaseRepository[T]) Set(ctx context.Context, id string, value T, opts ...firestore.SetOption) (MutationResult, error) {
	return r.mutate(ctx, "set", id, func(doc *firestore.DocumentRef) (*firestore.WriteResult, error) {
		return doc.Set(ctx, value, opts...)
	})
}

// Update applies field updates to an existing document.
func (r *BaseRepository[T]) Update(ctx context.Context, id string, updates []firestore.Update, opts ...firestore.Precondition) (MutationResult, error) {
	return r.mutate(ctx, "update", id, func(doc *firestore.DocumentRef) (*firestore.WriteResult, error) {
		return doc.Update(ctx, updates, opts...)
	})
}

// Delete removes the document.
func (r *BaseRepository[T]) Delete(ctx context.Context, id string) error {
	_, err := r.mutate(ctx, "delete", id, func(doc *firestore.DocumentRef) (*firestore.WriteResult, error) {
		return doc.Delete(ctx)
	})
	return err
}

func (r *BaseRepository[T]) mutate(ctx context.Context, action, id string, write func(*firestore.DocumentRef) (*firestore.WriteResult, error)) (MutationResult, error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return MutationResult{}, err
	}
	result, err := write(doc)
	if err != nil {
		return MutationResult{}, WrapError(r.collection+"."+action, err)
	}
	return MutationResult{UpdateTime: result.UpdateTime}, nil
}

// Get fetches and decodes one document.
func (r *BaseRepository[T]) Get(ctx context.Context, id string) (Document[T], error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snapshot, err := doc.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(r.collection+".get", err)
	}
	return DecodeSnapshot[T](snapshot)
}

// Query runs build over the collection and decodes every hit.
func (r *BaseRepository[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	coll, err := r.collectionRef(ctx)
	if err != nil {
		return nil, err
	}

	query := coll.Query
	if build != nil {
		query = build(query)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapError(r.collection+".query", err)
		}
		decoded, err := DecodeSnapshot[T](snapshot)
		if err != nil {
			return nil, fmt.Errorf("firestore: decode %s/%s: %w", r.collection, snapshot.Ref.ID, err)
		}
		docs = append(docs, decoded)
	}
}

// DocumentRef resolves the raw document reference, for transactional reads
// and writes that bypass the typed helpers.
func (r *BaseRepository[T]) DocumentRef(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(r.collection+".ref", errors.New("firestore: document id is required"))
	}
	coll, err := r.collectionRef(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

func (r *BaseRepository[T]) collectionRef(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil || r.collection == "" {
		return nil, WrapError("firestore.collection", errors.New("firestore: repository not initialised"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(r.collection), nil
}

// DecodeSnapshot decodes a snapshot read outside the typed helpers, such
// as inside a transaction.
func DecodeSnapshot[T any](snapshot *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snapshot.DataTo(&data); err != nil {
		return Document[T]{}, err
	}
	return Document[T]{
		ID:         snapshot.Ref.ID,
		Data:       data,
		CreateTime: snapshot.CreateTime,
		UpdateTime: snapshot.UpdateTime,
		ReadTime:   snapshot.ReadTime,
	}, nil
}
