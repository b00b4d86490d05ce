// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver/cdp"
	"github.com/xkilldash9x/uiharness/internal/store"
)

// LaunchFunc starts a browser.
type LaunchFunc func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, error)

// ConnectFunc opens a database pool.
type ConnectFunc func(ctx context.Context, cfg config.StoreConfig) (Pool, error)

// LaunchChrome starts Chrome through chromedp.
func LaunchChrome(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, error) {
	d, err := cdp.Launch(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ConnectPostgres opens a pgx pool.
func ConnectPostgres(ctx context.Context, cfg config.StoreConfig) (Pool, error) {
	pool, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// InitializeStore connects to the outcome store and applies the schema. The
// caller owns the returned pool.
func InitializeStore(ctx context.Context, cfg config.StoreConfig, connect ConnectFunc, logger *zap.Logger) (*store.Store, Pool, error) {
	if !cfg.Enabled || cfg.URL == "" {
		return nil, nil, fmt.Errorf("outcome store is not configured (hint: check UIHARNESS_STORE_URL)")
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize outcome store: %w", err)
	}

	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	logger.Debug("Outcome store initialized.", zap.String("run_id", s.RunID().String()))
	return s, pool, nil
}
