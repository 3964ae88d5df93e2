package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/geoweather/internal/store"
)

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, store.KeyLocation, sampleRecord{Name: "Paris, FR"}))

	var got sampleRecord
	found, err := s.Load(ctx, store.KeyLocation, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Paris, FR", got.Name)
}

func TestMemoryStore_Load_Miss(t *testing.T) {
	var got sampleRecord
	found, err := store.NewMemoryStore().Load(context.Background(), store.KeyWeather, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_SaveCopiesValue(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	rec := sampleRecord{Name: "before"}
	require.NoError(t, s.Save(ctx, store.KeyLocation, &rec))
	rec.Name = "after"

	var got sampleRecord
	_, err := s.Load(ctx, store.KeyLocation, &got)
	require.NoError(t, err)
	assert.Equal(t, "before", got.Name, "later mutation of the saved value must not leak into the store")
}

func TestMemoryStore_SaveUnmarshalable(t *testing.T) {
	err := store.NewMemoryStore().Save(context.Background(), store.KeyLocation, make(chan int))
	require.Error(t, err)
}
