package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lexideck/lexideck/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for lexideck",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			server := mcp.NewServer(a.sync, a.query, a.cache, a.logger)
			return server.Run(context.Background())
		},
	}

	return cmd
}
