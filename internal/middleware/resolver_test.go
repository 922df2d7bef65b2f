package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/obada/child-profiles-backend/internal/models"
	"github.com/obada/child-profiles-backend/internal/store"
)

type fakeFinder struct {
	child *models.Child
	calls int
}

func (f *fakeFinder) FindByID(context.Context, string) (*models.Child, error) {
	f.calls++
	if f.child == nil {
		return nil, store.ErrNotFound
	}
	return f.child, nil
}

type fakeCache struct {
	entries map[string]*models.Child
	getErr  error
	sets    int
}

func (f *fakeCache) Get(_ context.Context, id string) (*models.Child, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[id], nil
}

func (f *fakeCache) Set(_ context.Context, child *models.Child) error {
	f.sets++
	if f.entries == nil {
		f.entries = map[string]*models.Child{}
	}
	f.entries[child.ID.Hex()] = child
	return nil
}

func TestResolverCacheMissPopulates(t *testing.T) {
	child := &models.Child{ID: primitive.NewObjectID(), Name: "Sara"}
	finder := &fakeFinder{child: child}
	cache := &fakeCache{}
	r := NewCachedResolver(finder, cache)

	got, err := r.Resolve(context.Background(), child.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.ID)
	assert.Equal(t, 1, finder.calls)
	assert.Equal(t, 1, cache.sets)

	// second resolve is served from cache
	_, err = r.Resolve(context.Background(), child.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, finder.calls)
}

func TestResolverCacheErrorFallsBackToStore(t *testing.T) {
	child := &models.Child{ID: primitive.NewObjectID(), Name: "Sara"}
	finder := &fakeFinder{child: child}
	r := NewCachedResolver(finder, &fakeCache{getErr: errors.New("redis down")})

	got, err := r.Resolve(context.Background(), child.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.ID)
	assert.Equal(t, 1, finder.calls)
}

func TestResolverMissingProfile(t *testing.T) {
	r := NewCachedResolver(&fakeFinder{}, &fakeCache{})

	_, err := r.Resolve(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
