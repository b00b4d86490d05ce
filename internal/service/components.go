// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/interact"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/navigation"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/store"
)

// shutdownTimeout bounds the final outcome flush and browser teardown.
const shutdownTimeout = 30 * time.Second

// Browser is a driver that can also load pages and release the browser.
type Browser interface {
	driver.Driver
	Navigate(ctx context.Context, url string) error
	Close() error
}

// Pool is the database handle the components own.
type Pool interface {
	store.DBPool
	Close()
}

// Components holds one wired interaction engine and everything it depends on.
type Components struct {
	Config   config.Interface
	Profile  config.TimeoutProfile
	Browser  Browser
	Resolver *locator.Resolver
	Executor *interact.Executor
	Tracker  *navigation.Tracker

	// Store and Outcomes are nil unless the outcome store is enabled.
	Store    *store.Store
	Outcomes *store.Buffer
	DBPool   Pool
}

// Shutdown flushes buffered outcomes, then closes the browser and the
// database pool. It is safe on partially initialized components.
func (c *Components) Shutdown(ctx context.Context) {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	// The caller's context is often already canceled by a signal here.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if c.Outcomes != nil && c.Outcomes.Len() > 0 {
		if err := c.Outcomes.Flush(shutdownCtx); err != nil {
			logger.Warn("Failed to flush interaction outcomes.", zap.Int("pending", c.Outcomes.Len()), zap.Error(err))
		} else {
			logger.Debug("Interaction outcomes flushed.")
		}
	}

	if c.Browser != nil {
		if err := c.Browser.Close(); err != nil {
			logger.Warn("Error during browser shutdown.", zap.Error(err))
		} else {
			logger.Debug("Browser shut down.")
		}
	}

	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}

	logger.Debug("All components shut down.")
}
