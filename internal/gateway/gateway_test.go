// ABOUTME: Tests for gateway construction and server lifecycle.
// ABOUTME: Verifies adapter wiring from config and clean shutdown on context cancel.

package gateway

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chase-gateway/internal/config"
)

func TestNew_DefaultConfig(t *testing.T) {
	g, err := New(config.Default(), slog.Default())
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "canned", g.provider.Name(), "zero config falls back to the canned provider")
}

func TestNew_ProviderRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Name = "anthropic"
	cfg.Provider.APIKey = ""

	_, err := New(cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"

	g, err := New(cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
