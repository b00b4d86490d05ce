// internal/driver/cdp/launch.go
package cdp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/uiharness/internal/config"
	"go.uber.org/zap"
)

// startupTimeout bounds the initial attach to a freshly launched or remote browser.
const startupTimeout = 30 * time.Second

// Launch starts (or attaches to) a browser described by cfg and returns a
// Driver whose first window is the browser's initial tab. Close releases
// the browser.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	logger = logger.Named("cdp")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
		logger.Info("Attaching to remote browser.", zap.String("url", cfg.RemoteURL))
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
		logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
	}

	sugar := logger.Sugar()
	rootCtx, rootCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		// Protocol events newer than cdproto are reported as errors; they are noise here.
		chromedp.WithErrorf(sugar.Debugf),
	)

	// Confirm the browser is alive before handing it out.
	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()
	runCtx, cancelRun := combineContext(rootCtx, startCtx)
	defer cancelRun()
	if err := chromedp.Run(runCtx); err != nil {
		rootCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	d := newDriver(rootCtx, logger)
	d.closers = append(d.closers, rootCancel, allocCancel)
	logger.Debug("Browser ready.", zap.String("window", d.current))
	return d, nil
}

// allocatorOptions turns cfg into exec allocator options on top of
// chromedp's defaults.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		// Sandboxing fails on hardened hosts and in most containers.
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Width, cfg.Height))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for _, arg := range cfg.Args {
		name, value := parseFlag(arg)
		if name == "" {
			continue
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// parseFlag splits a command-line style flag ("--lang=de", "mute-audio")
// into a chromedp flag name and value. A bare flag is boolean true.
func parseFlag(arg string) (string, any) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", nil
	}
	name, value, found := strings.Cut(arg, "=")
	if !found {
		return name, true
	}
	switch strings.ToLower(value) {
	case "true":
		return name, true
	case "false":
		return name, false
	}
	return name, value
}
