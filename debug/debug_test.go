package debug

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoggersStopWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, cancel := context.WithCancel(context.Background())
	StartGoroutineLogger(ctx, time.Millisecond, logger)
	StartMemLogger(ctx, time.Millisecond, logger)
	time.Sleep(20 * time.Millisecond)
	cancel()
	// let the loops observe cancellation
	time.Sleep(20 * time.Millisecond)
}

func TestProcessRSS(t *testing.T) {
	rss, err := processRSS()
	require.NoError(t, err)
	assert.Positive(t, rss)

	again, err := processRSS()
	require.NoError(t, err)
	assert.Positive(t, again)
}
