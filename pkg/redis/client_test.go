package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewClient(ctx, Options{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	assert.True(t, c.Healthy(ctx))

	mr.Close()
	assert.False(t, c.Healthy(ctx))
	_ = c.Close()
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), Options{Addr: addr}, nil)
	assert.Error(t, err)
}
