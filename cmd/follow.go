// File: cmd/follow.go
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
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/navigation"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/service"
)

type followOptions struct {
	URL          string
	Name         string
	Locators     []string
	SpawnTimeout time.Duration
	ExpectURL    string
	ExpectTitle  string
	ExpectText   string
	ExpectLocs   []string
	Close        bool
}

func newFollowCmd(factory service.ComponentFactory) *cobra.Command {
	opts := &followOptions{}

	followCmd := &cobra.Command{
		Use:   "follow",
		Short: "Click a target and follow the navigation it causes",
		Long: `Loads --url, clicks the target described by the --locator candidates and
follows the resulting navigation: into a newly spawned window if one appears
within --spawn-timeout, in place otherwise. Reports every state entered and
the window that ended up active. The --expect-* flags add readiness probes;
the page counts as ready once any of them passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runFollow(ctx, observability.GetLogger(), cfg, *opts, factory, cmd.OutOrStdout())
		},
	}

	followCmd.Flags().StringVar(&opts.URL, "url", "", "page to load (required)")
	_ = followCmd.MarkFlagRequired("url")
	followCmd.Flags().StringVar(&opts.Name, "name", "", "logical target name used in logs and outcomes (default: first locator)")
	followCmd.Flags().StringArrayVarP(&opts.Locators, "locator", "l", nil, locatorUsage)
	followCmd.Flags().DurationVar(&opts.SpawnTimeout, "spawn-timeout", 0, "how long to wait for a new window (default: the active profile's spawn_window)")
	followCmd.Flags().StringVar(&opts.ExpectURL, "expect-url", "", "ready when the URL contains this text")
	followCmd.Flags().StringVar(&opts.ExpectTitle, "expect-title", "", "ready when the title contains this text")
	followCmd.Flags().StringArrayVar(&opts.ExpectLocs, "expect-locator", nil, "ready when this element is visible (kind=value, repeatable)")
	followCmd.Flags().StringVar(&opts.ExpectText, "expect-text", "", "ready when the visible page text contains this text")
	followCmd.Flags().BoolVar(&opts.Close, "close", false, "close a spawned window afterwards and return to the primary one")
	return followCmd
}

func runFollow(ctx context.Context, logger *zap.Logger, cfg config.Interface, opts followOptions, factory service.ComponentFactory, out io.Writer) error {
	spec, err := buildSpec(opts.Name, opts.Locators)
	if err != nil {
		return err
	}
	probes, err := expectations(opts)
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

	el, err := components.Resolver.Resolve(ctx, spec, locator.Options{RequireInteractable: true})
	if err != nil {
		return err
	}

	trigger := func(ctx context.Context) error {
		_, err := components.Executor.Click(ctx, el)
		return err
	}
	res, err := components.Tracker.FollowNavigation(ctx, trigger, navigation.FollowOptions{SpawnTimeout: opts.SpawnTimeout})
	states := make([]string, len(res.States))
	for i, s := range res.States {
		states[i] = string(s)
	}
	fmt.Fprintf(out, "navigation %s: %s\n", res.ID, strings.Join(states, " -> "))
	if err != nil {
		return err
	}

	url, _ := components.Browser.CurrentURL(ctx)
	fmt.Fprintf(out, "window: %s (%s) %s\n", res.Window.Handle, res.Window.Role, url)

	if len(probes) > 0 {
		passed, err := components.Tracker.AwaitPage(ctx, 0, probes...)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ready: %s\n", passed.Name)
	}

	if opts.Close && res.NewWindow {
		if err := components.Tracker.CloseAndReturnToPrimary(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "closed %s, back on %s\n", res.Window.Handle, components.Tracker.Active().Handle)
	}
	return nil
}

// expectations turns the --expect-* flags into readiness probes, cheapest first.
func expectations(opts followOptions) ([]navigation.Probe, error) {
	var probes []navigation.Probe
	if opts.ExpectURL != "" {
		probes = append(probes, navigation.URLContains(opts.ExpectURL))
	}
	if opts.ExpectTitle != "" {
		probes = append(probes, navigation.TitleContains(opts.ExpectTitle))
	}
	if len(opts.ExpectLocs) > 0 {
		spec, err := buildSpec("", opts.ExpectLocs)
		if err != nil {
			return nil, err
		}
		probes = append(probes, navigation.ElementVisible(spec))
	}
	if opts.ExpectText != "" {
		probes = append(probes, navigation.SourceContains(opts.ExpectText))
	}
	return probes, nil
}
