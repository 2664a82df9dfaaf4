// cukerail pushes cucumber JSON results into TestRail test plans.
//
// Usage:
//
//	cukerail push --plan Regression --build 1.4.2 --report ios.json:"iOS 7,Phone"
//	cukerail results --plan "Regression - 1.4" [--markdown]
//	cukerail delete-entry --plan Regression --build 1.4.2
//	cukerail configs
//	cukerail history [--limit 20]
//	cukerail serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cukerail/internal/logging"
	mcpserver "cukerail/internal/mcp"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cukerail",
		Short: "Push cucumber results into TestRail test plans",
		Long: `cukerail reads cucumber JSON reports and records them in a TestRail plan.
Each build gets a plan entry with one run per configuration set; missing
cases and sections are created on the fly.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			if opts.logFormat != "text" && opts.logFormat != "json" {
				return fmt.Errorf("unknown log format %q (want text or json)", opts.logFormat)
			}
			logging.Init(level, opts.logFormat, cmd.ErrOrStderr())
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file, YAML or JSON (default cukerail.yaml when present)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(
		newPushCmd(opts),
		newResultsCmd(opts),
		newDeleteEntryCmd(opts),
		newConfigsCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func main() {
	mcpserver.Version = version
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
