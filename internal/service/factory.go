// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/interact"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/navigation"
	"github.com/xkilldash9x/uiharness/internal/store"
)

// ComponentFactory builds the components a command needs.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

type concreteFactory struct {
	launch  LaunchFunc
	connect ConnectFunc
}

// NewComponentFactory returns the production factory: Chrome via chromedp
// and PostgreSQL via pgx.
func NewComponentFactory() ComponentFactory {
	return NewComponentFactoryWith(LaunchChrome, ConnectPostgres)
}

// NewComponentFactoryWith returns a factory using the given browser
// launcher and database connector.
func NewComponentFactoryWith(launch LaunchFunc, connect ConnectFunc) ComponentFactory {
	return &concreteFactory{launch: launch, connect: connect}
}

// Create wires store, browser, resolver, executor and tracker together. On
// failure everything created so far is shut down.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	profile := cfg.ActiveProfile()
	components := &Components{Config: cfg, Profile: profile}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown(ctx)
		}
	}()

	// 1. Outcome store (optional)
	var sinks []interact.OutcomeSink
	if cfg.Store().Enabled {
		s, pool, err := InitializeStore(ctx, cfg.Store(), f.connect, logger)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.Store = s
		components.DBPool = pool
		components.Outcomes = store.NewBuffer(s)
		sinks = append(sinks, components.Outcomes)
	}

	// 2. Browser
	browser, err := f.launch(ctx, cfg.Browser(), logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to launch browser: %w", err)
		return nil, initializationErr
	}
	components.Browser = browser
	logger.Debug("Browser launched.")

	// 3. Engine
	components.Resolver = locator.NewResolver(browser, profile, logger)
	components.Executor = interact.NewExecutor(profile, logger, sinks...)
	components.Tracker = navigation.NewTracker(browser, components.Resolver, profile, logger)

	logger.Info("Interaction engine ready.",
		zap.String("profile", profile.Name),
		zap.Bool("store", components.Store != nil),
	)
	return components, nil
}
