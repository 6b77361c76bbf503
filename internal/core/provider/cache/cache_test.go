package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

func TestManagerGetSet(t *testing.T) {
	m := newManager(10, time.Minute)
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	s := m.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 0.5, s.HitRatio)
}

func TestManagerExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(10, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	assert.Equal(t, 0, m.Stats().Size)
}

func TestManagerEvictsLeastUsed(t *testing.T) {
	m := newManager(2, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestNewDisabled(t *testing.T) {
	store, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = New(config.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}

type countingDetailer struct {
	calls int
	food  *provider.Food
}

func (c *countingDetailer) FoodDetails(ctx context.Context, id string) (*provider.Food, error) {
	c.calls++
	return c.food, nil
}

type countingBarcode struct {
	calls int
}

func (c *countingBarcode) LookupBarcode(ctx context.Context, code string) (*provider.Food, error) {
	c.calls++
	return nil, nil
}

func TestFoodDetailerCachesNormalizedNutrition(t *testing.T) {
	next := &countingDetailer{food: &provider.Food{
		ID:     "35718",
		Name:   "Apples",
		Source: provider.SourceFatSecret,
		Basis:  nutrition.BasisPerServing,
		Raw:    nutrition.FatSecretServing{Fields: nutrition.Fields{"calories": "95", "sodium": "2"}},
	}}
	d := NewFoodDetailer(next, newManager(10, time.Hour), "fatsecret")
	ctx := context.Background()

	first, err := d.FoodDetails(ctx, "35718")
	require.NoError(t, err)
	second, err := d.FoodDetails(ctx, "35718")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "Apples", second.Name)
	assert.Equal(t, nutrition.BasisPerServing, second.Basis)
	assert.Equal(t, nutrition.Normalize(first.Raw), nutrition.Normalize(second.Raw))
	assert.IsType(t, nutrition.Normalized{}, second.Raw)
}

func TestBarcodeLookupDoesNotCacheNotFound(t *testing.T) {
	next := &countingBarcode{}
	b := NewBarcodeLookup(next, newManager(10, time.Hour))
	ctx := context.Background()

	f, err := b.LookupBarcode(ctx, "0000000000000")
	require.NoError(t, err)
	assert.Nil(t, f)
	_, _ = b.LookupBarcode(ctx, "0000000000000")
	assert.Equal(t, 2, next.calls)
}

func TestNilStorePassesThrough(t *testing.T) {
	next := &countingDetailer{}
	assert.Same(t, next, NewFoodDetailer(next, nil, "fatsecret"))
}

func TestUnreachableRedisFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStoreWithClient(client, time.Hour)

	next := &countingDetailer{food: &provider.Food{ID: "1", Name: "Oats", Source: provider.SourceFatSecret}}
	d := NewFoodDetailer(next, store, "fatsecret")

	f, err := d.FoodDetails(context.Background(), "1")

	require.NoError(t, err)
	assert.Equal(t, "Oats", f.Name)
	assert.Equal(t, 1, next.calls)
	assert.Error(t, store.Ping(context.Background()))
}
