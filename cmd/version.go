// File: cmd/version.go
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is the application version.
// This value is intended to be set at build time using ldflags.
// Example: go build -ldflags "-X github.com/xkilldash9x/uiharness/cmd.Version=1.0.0"
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the uiharness version",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration or logger.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("uiharness version %s\n", Version)
		},
	}
}
