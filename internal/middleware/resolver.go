package middleware

import (
	"context"
	"log"

	"github.com/obada/child-profiles-backend/internal/models"
)

// ChildFinder looks a profile up in the document store.
type ChildFinder interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

// ChildCache caches resolved profiles between guarded requests.
type ChildCache interface {
	Get(ctx context.Context, id string) (*models.Child, error)
	Set(ctx context.Context, child *models.Child) error
}

// CachedResolver resolves guard subjects through a short-TTL cache backed by
// the store. Cache failures degrade to plain store lookups.
type CachedResolver struct {
	store ChildFinder
	cache ChildCache
}

func NewCachedResolver(store ChildFinder, cache ChildCache) *CachedResolver {
	return &CachedResolver{store: store, cache: cache}
}

func (r *CachedResolver) Resolve(ctx context.Context, id string) (*models.Child, error) {
	if r.cache != nil {
		child, err := r.cache.Get(ctx, id)
		if err != nil {
			log.Printf("child cache get: %v", err)
		} else if child != nil {
			return child, nil
		}
	}

	child, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, child); err != nil {
			log.Printf("child cache set: %v", err)
		}
	}
	return child, nil
}
