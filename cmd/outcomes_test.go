// File: cmd/outcomes_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/store"
)

func newMockStore(t *testing.T) (*store.Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	mockPool.ExpectPing().WillReturnError(nil)
	s, err := store.New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return s, mockPool
}

func expectReport(mockPool pgxmock.PgxPoolIface, rows *pgxmock.Rows) {
	mockPool.ExpectQuery("FROM interaction_outcomes").WithArgs(pgxmock.AnyArg()).WillReturnRows(rows)
}

func reportRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"target", "total", "native", "fallback", "failed"}).
		AddRow("Filter button", int64(10), int64(4), int64(5), int64(1)).
		AddRow("Close icon", int64(8), int64(8), int64(0), int64(0))
}

func TestRunOutcomes(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("prints a table", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		expectReport(mockPool, reportRows())
		provider := &stubStoreProvider{store: s}

		var out bytes.Buffer
		require.NoError(t, runOutcomes(ctx, logger, newTestConfig(), 24*time.Hour, "text", provider, &out))

		lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)
		assert.Contains(t, string(lines[0]), "FALLBACK RATE")
		assert.Regexp(t, `^Filter button\s+10\s+4\s+5\s+1\s+50%$`, string(lines[1]))
		assert.Regexp(t, `^Close icon\s+8\s+8\s+0\s+0\s+0%$`, string(lines[2]))
		assert.True(t, provider.cleaned)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("prints json", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		expectReport(mockPool, reportRows())

		var out bytes.Buffer
		require.NoError(t, runOutcomes(ctx, logger, newTestConfig(), time.Hour, "json", &stubStoreProvider{store: s}, &out))

		var rows []outcomeRow
		require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, outcomeRow{Target: "Filter button", Total: 10, Native: 4, Fallback: 5, Failed: 1, FallbackRate: 0.5}, rows[0])
	})

	t.Run("says so when nothing was recorded", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		expectReport(mockPool, pgxmock.NewRows([]string{"target", "total", "native", "fallback", "failed"}))

		var out bytes.Buffer
		require.NoError(t, runOutcomes(ctx, logger, newTestConfig(), 2*time.Hour, "text", &stubStoreProvider{store: s}, &out))
		assert.Equal(t, "No outcomes recorded in the last 2h0m0s.\n", out.String())
	})

	t.Run("wraps store initialization errors", func(t *testing.T) {
		initErr := errors.New("outcome store is not configured")
		err := runOutcomes(ctx, logger, newTestConfig(), time.Hour, "text", &stubStoreProvider{err: initErr}, &bytes.Buffer{})
		assert.ErrorIs(t, err, initErr)
		assert.Contains(t, err.Error(), "failed to initialize store")
	})

	t.Run("validates flags before touching the store", func(t *testing.T) {
		provider := &stubStoreProvider{err: errors.New("must not be called")}
		err := runOutcomes(ctx, logger, newTestConfig(), time.Hour, "xml", provider, &bytes.Buffer{})
		assert.ErrorContains(t, err, `unsupported format "xml"`)
		err = runOutcomes(ctx, logger, newTestConfig(), -time.Hour, "text", provider, &bytes.Buffer{})
		assert.ErrorContains(t, err, "--since must be positive")
	})
}

func TestDefaultStoreProvider_NotConfigured(t *testing.T) {
	provider := NewStoreProvider()
	_, _, err := provider.Create(context.Background(), newTestConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outcome store is not configured")
}
