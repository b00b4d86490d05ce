// File: cmd/outcomes.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/service"
	"github.com/xkilldash9x/uiharness/internal/store"
)

// storeProvider creates the outcome store for commands that only read it.
type storeProvider interface {
	// Create returns the store and a cleanup function releasing its pool.
	Create(ctx context.Context, cfg config.Interface) (*store.Store, func(), error)
}

type defaultStoreProvider struct {
	connect service.ConnectFunc
}

// NewStoreProvider returns a provider connecting to PostgreSQL.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{connect: service.ConnectPostgres}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (*store.Store, func(), error) {
	logger := observability.GetLogger()
	s, pool, err := service.InitializeStore(ctx, cfg.Store(), p.connect, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed (via outcomes cleanup).")
	}
	return s, cleanup, nil
}

func newOutcomesCmd(provider storeProvider) *cobra.Command {
	var since time.Duration
	var format string

	outcomesCmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Report which targets lean on the scripted click fallback",
		Long: `Aggregates recorded interaction outcomes per logical target: how often
the native path worked, how often the scripted fallback was needed and how
often both failed. Targets with the most fallbacks come first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runOutcomes(ctx, observability.GetLogger(), cfg, since, format, provider, cmd.OutOrStdout())
		},
	}

	outcomesCmd.Flags().DurationVar(&since, "since", 24*time.Hour, "report outcomes observed within this window")
	outcomesCmd.Flags().StringVarP(&format, "format", "f", "text", "output format ('text' or 'json')")
	return outcomesCmd
}

type outcomeRow struct {
	Target       string  `json:"target"`
	Total        int64   `json:"total"`
	Native       int64   `json:"native"`
	Fallback     int64   `json:"fallback"`
	Failed       int64   `json:"failed"`
	FallbackRate float64 `json:"fallback_rate"`
}

func runOutcomes(ctx context.Context, logger *zap.Logger, cfg config.Interface, since time.Duration, format string, provider storeProvider, out io.Writer) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (expected 'text' or 'json')", format)
	}
	if since <= 0 {
		return fmt.Errorf("--since must be positive, got %v", since)
	}

	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer cleanup()

	stats, err := s.FallbackReport(ctx, time.Now().Add(-since))
	if err != nil {
		return err
	}
	logger.Debug("Fallback report generated.", zap.Int("targets", len(stats)), zap.Duration("since", since))

	rows := make([]outcomeRow, len(stats))
	for i, st := range stats {
		rows[i] = outcomeRow{st.Target, st.Total, st.Native, st.Fallback, st.Failed, st.FallbackRate()}
	}

	if format == "json" {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintf(out, "No outcomes recorded in the last %v.\n", since)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tTOTAL\tNATIVE\tFALLBACK\tFAILED\tFALLBACK RATE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.0f%%\n", r.Target, r.Total, r.Native, r.Fallback, r.Failed, r.FallbackRate*100)
	}
	return w.Flush()
}
