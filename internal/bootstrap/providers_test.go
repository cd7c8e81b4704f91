package bootstrap

import (
	"context"
	"testing"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvideConfig_RejectsNegativeRetention(t *testing.T) {
	t.Setenv("HISTORY_RETENTION_MS", "-60000")
	_, err := ProvideConfig()
	require.ErrorContains(t, err, "HISTORY_RETENTION_MS")
}

func TestProvideBackends_MemoryDefaults(t *testing.T) {
	cfg := config.Config{Storage: "memory", TokenStore: "memory", HistoryRetention: time.Hour}
	b, cleanup, err := ProvideBackends(context.Background(), cfg, application.SystemClock(), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, b.History)
	require.Nil(t, b.Tokens)
	require.Nil(t, b.Ping)
	require.IsType(t, application.NoopIdempotency{}, b.Idem)
}

func TestProvideBackends_PGWithoutURL(t *testing.T) {
	cfg := config.Config{Storage: "pg", TokenStore: "memory", HistoryRetention: time.Hour}
	_, _, err := ProvideBackends(context.Background(), cfg, application.SystemClock(), zap.NewNop())
	require.ErrorIs(t, err, ErrMissingDBURL)
}
