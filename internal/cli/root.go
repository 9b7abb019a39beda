// Package cli implements the chatquery command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatquery/config"
)

// version is set at build time with -ldflags "-X".
var version = "dev"

// newRootCmd builds the command tree. A fresh tree per run keeps flag state
// from leaking between invocations.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatquery",
		Short: "Query chat history through a hot/cold result cache",
		Long: `chatquery answers chat-history queries from a two-tier result cache,
fetching only the missing time ranges from the message store.

Configuration is read from --config or the ` + config.EnvPath + ` environment
variable (TOML or YAML). Without either, an in-memory SQLite store and a
memory-only cache are used.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (.toml, .yaml or .yml)")

	root.AddCommand(newQueryCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newClearCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the file named by --config, falling back to the
// environment variable.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ResolvePath("")
	}
	return config.Load(path)
}

// withApp loads the configuration, wires an app, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}
