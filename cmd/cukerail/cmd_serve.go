package main

import (
	"context"

	"github.com/spf13/cobra"

	"cukerail/internal/logging"
	mcpserver "cukerail/internal/mcp"
	"cukerail/internal/reporter"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server over stdin/stdout exposing push_report,
get_plan_results, delete_plan_entry and list_configurations.

The server stops when the process that launched it exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root)
		},
	}
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	sess, err := root.openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	srv := mcpserver.NewServer(func(ctx context.Context, plan string) (*reporter.Reporter, error) {
		return sess.newReporter(ctx, plan)
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger := logging.New("mcp")
	mcpserver.WatchStdin(ctx, logger, cancel)

	logger.Info("starting cukerail MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
