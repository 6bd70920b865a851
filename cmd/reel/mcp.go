package main

import (
	"context"

	"github.com/aretw0/reel/internal/cli"
	reelmcp "github.com/aretw0/reel/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve render tools over the Model Context Protocol (stdio)",
	Long: `Starts an MCP server on stdin/stdout exposing start_render, get_render,
cancel_render and list_renders. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rt, err := cli.Build(cfg, logger, cli.BuildOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancelJobs := context.WithCancel(context.Background())
		defer cancelJobs()

		server := reelmcp.NewServer(rt.Orchestrator,
			reelmcp.WithBaseContext(ctx),
			reelmcp.WithLogger(logger),
		)
		return server.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
