package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewClientDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	client, err := NewClient(lc, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestNewClientPingsOnStart(t *testing.T) {
	mr := miniredis.RunT(t)

	lc := fxtest.NewLifecycle(t)
	client, err := NewClient(lc, config.Config{Redis: config.RedisConfig{Addr: mr.Addr()}}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, client)

	lc.RequireStart()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
	lc.RequireStop()
}
