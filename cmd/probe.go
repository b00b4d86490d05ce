// File: cmd/probe.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/service"
)

type probeOptions struct {
	URL      string
	Name     string
	Locators []string
	Click    bool
	Read     bool
	Timeout  time.Duration
}

func newProbeCmd(factory service.ComponentFactory) *cobra.Command {
	opts := &probeOptions{}

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Resolve a target on a live page and optionally click or read it",
		Long: `Loads --url, resolves the target described by the --locator candidates
(first match wins, in the order given) and reports which strategy found it.
With --click the element is clicked, falling back to a scripted click when
the native click is intercepted. With --read its visible text is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runProbe(ctx, observability.GetLogger(), cfg, *opts, factory, cmd.OutOrStdout())
		},
	}

	probeCmd.Flags().StringVar(&opts.URL, "url", "", "page to load (required)")
	_ = probeCmd.MarkFlagRequired("url")
	probeCmd.Flags().StringVar(&opts.Name, "name", "", "logical target name used in logs and outcomes (default: first locator)")
	probeCmd.Flags().StringArrayVarP(&opts.Locators, "locator", "l", nil, locatorUsage)
	probeCmd.Flags().BoolVar(&opts.Click, "click", false, "click the resolved element")
	probeCmd.Flags().BoolVar(&opts.Read, "read", false, "print the resolved element's text")
	probeCmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "resolution timeout (default: the active profile's resolve timeout)")
	return probeCmd
}

func runProbe(ctx context.Context, logger *zap.Logger, cfg config.Interface, opts probeOptions, factory service.ComponentFactory, out io.Writer) error {
	spec, err := buildSpec(opts.Name, opts.Locators)
	if err != nil {
		return err
	}

	components, err := factory.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown(ctx)

	if err := openPage(ctx, components, opts.URL); err != nil {
		return err
	}

	el, err := components.Resolver.Resolve(ctx, spec, locator.Options{RequireInteractable: opts.Click, Timeout: opts.Timeout})
	if err != nil {
		if failure.IsNotFound(err) {
			fmt.Fprintf(out, "%s: not found (tried %s)\n", spec.Name, strings.Join(spec.Strategies(), ", "))
		}
		return err
	}
	fmt.Fprintf(out, "%s: resolved via strategy %d of %d (%s)\n", spec.Name, el.Index, len(spec.Candidates), el.Candidate)

	if opts.Read {
		text, err := components.Executor.ReadText(ctx, el)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "text: %s\n", text)
	}

	if opts.Click {
		outcome, err := components.Executor.Click(ctx, el)
		fmt.Fprintf(out, "click: %s (%s path, %v)\n", outcome.Status, outcome.Path, outcome.Duration.Round(time.Millisecond))
		if err != nil {
			return err
		}
	}
	return nil
}

// openPage loads url in the current window, records it as the primary
// window and waits for the document to settle.
func openPage(ctx context.Context, c *service.Components, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, c.Profile.Navigation)
	defer cancel()
	if err := c.Browser.Navigate(navCtx, url); err != nil {
		return err
	}
	if _, err := c.Tracker.RecordPrimary(ctx); err != nil {
		return err
	}
	return c.Tracker.AwaitDomSettled(ctx, 0)
}
