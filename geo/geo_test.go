package geo

import (
	"context"
	"errors"
	"testing"

	"sentinel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticResolver_StableAssignment(t *testing.T) {
	r := NewStaticResolver(zap.NewNop().Sugar())

	first, err := r.Locate(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := r.Locate(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStaticResolver_InvalidIP(t *testing.T) {
	r := NewStaticResolver(zap.NewNop().Sugar())

	_, err := r.Locate(context.Background(), "not-an-ip")
	assert.ErrorIs(t, err, core.ErrExternalCollaborator)
}

func TestStaticResolver_PrivateIPResolvesToNothing(t *testing.T) {
	r := NewStaticResolver(zap.NewNop().Sugar())

	loc, err := r.Locate(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Nil(t, loc)

	loc, err = r.Locate(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

// countingResolver wraps a fixed answer and counts calls.
type countingResolver struct {
	loc   *core.Location
	err   error
	calls int
}

func (c *countingResolver) Locate(ctx context.Context, ip string) (*core.Location, error) {
	c.calls++
	return c.loc, c.err
}

func TestCachedResolver_CachesHits(t *testing.T) {
	inner := &countingResolver{loc: &core.Location{Country: "NL", City: "Amsterdam"}}
	r, err := NewCachedResolver(inner, 8, zap.NewNop().Sugar())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		loc, err := r.Locate(context.Background(), "198.51.100.9")
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, "NL", loc.Country)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, r.Len())
}

func TestCachedResolver_CachesNegativeResults(t *testing.T) {
	inner := &countingResolver{}
	r, err := NewCachedResolver(inner, 8, zap.NewNop().Sugar())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		loc, err := r.Locate(context.Background(), "192.168.1.50")
		require.NoError(t, err)
		assert.Nil(t, loc)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedResolver_DoesNotCacheErrors(t *testing.T) {
	inner := &countingResolver{err: errors.New("lookup down")}
	r, err := NewCachedResolver(inner, 8, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, err = r.Locate(context.Background(), "203.0.113.1")
	assert.Error(t, err)
	_, err = r.Locate(context.Background(), "203.0.113.1")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedResolver_ReturnsCopies(t *testing.T) {
	inner := &countingResolver{loc: &core.Location{Country: "DE", City: "Frankfurt"}}
	r, err := NewCachedResolver(inner, 8, zap.NewNop().Sugar())
	require.NoError(t, err)

	first, err := r.Locate(context.Background(), "203.0.113.2")
	require.NoError(t, err)
	first.Country = "XX"

	second, err := r.Locate(context.Background(), "203.0.113.2")
	require.NoError(t, err)
	assert.Equal(t, "DE", second.Country)
}
