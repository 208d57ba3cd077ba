package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T) (*RedisProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedis(Options{Addr: mr.Addr()}, zap.NewNop()), mr
}

func TestRedisProviderRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, ok := p.Get(ctx, "missing")
	assert.False(t, ok)

	p.Set(ctx, "k", []byte(`{"temp":72.5}`), time.Minute)
	got, ok := p.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `{"temp":72.5}`, string(got))
}

func TestRedisProviderTTLExpiry(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()

	p.Set(ctx, "k", []byte("v"), 10*time.Second)
	mr.FastForward(11 * time.Second)

	_, ok := p.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisProviderDegradesToMissWhenDown(t *testing.T) {
	p, mr := newTestProvider(t)
	ctx := context.Background()
	mr.Close()

	// A dead backend must not panic or error out of the Provider contract.
	p.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := p.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisProviderLastWriteWins(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	p.Set(ctx, "k", []byte("first"), time.Minute)
	p.Set(ctx, "k", []byte("second"), time.Minute)
	got, ok := p.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "second", string(got))
}
