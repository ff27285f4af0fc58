package services

import (
	"context"

	"screamlink/internal/store"
)

// Store is the subset of the record store the write paths use.
type Store interface {
	Get(ctx context.Context, doc store.Document, id string) error
	First(ctx context.Context, doc store.Document, q store.Query) error
	Find(ctx context.Context, dest any, q store.Query) error
	Create(ctx context.Context, doc store.Document) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Increment(ctx context.Context, collection, id, field string, delta int) error
	Delete(ctx context.Context, collection, id string) error
	Commit(ctx context.Context, b *store.Batch) error
}
