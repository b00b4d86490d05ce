// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver/fake"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/service"
	"github.com/xkilldash9x/uiharness/internal/store"
)

// resetForTest silences logging and isolates the test from the host's
// profile-selecting environment.
func resetForTest(t *testing.T) {
	t.Helper()
	t.Setenv("UIHARNESS_CONSTRAINED", "")
	t.Setenv("CI", "")
	t.Setenv("UIHARNESS_STORE_URL", "")
	t.Setenv("UIHARNESS_LOGGER_LEVEL", "fatal")
	t.Chdir(t.TempDir())

	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)
}

// newTestConfig returns the default configuration with timings shrunk so
// tests run in milliseconds.
func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	p := &cfg.TimeoutsCfg.Profiles.Interactive
	p.Resolve = 200 * time.Millisecond
	p.PollInterval = 10 * time.Millisecond
	p.ScrollSettle = 0
	p.KeyPacing = 0
	p.SpawnWindow = 200 * time.Millisecond
	p.DomSettle = 200 * time.Millisecond
	p.DomGrace = 0
	p.Navigation = time.Second
	return cfg
}

// fakeFactory builds real components on top of a fake browser.
func fakeFactory(t *testing.T, d *fake.Driver) service.ComponentFactory {
	t.Helper()
	launch := func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (service.Browser, error) {
		return d, nil
	}
	connect := func(ctx context.Context, cfg config.StoreConfig) (service.Pool, error) {
		t.Fatal("the outcome store is disabled in command tests")
		return nil, nil
	}
	return service.NewComponentFactoryWith(launch, connect)
}

// stubStoreProvider hands out a fixed store.
type stubStoreProvider struct {
	store   *store.Store
	err     error
	cleaned bool
}

func (p *stubStoreProvider) Create(ctx context.Context, cfg config.Interface) (*store.Store, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.cleaned = true }, nil
}

// executeRoot runs root with args and returns its combined output.
func executeRoot(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}
