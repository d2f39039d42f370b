package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	postmockmcp "github.com/blackmichael/postmock/internal/mcp"
)

// newMCPCmd creates the mcp command for running as an MCP server.
func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run postmock as a Model Context Protocol (MCP) server over stdio.

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "postmock": {
        "command": "postmock",
        "args": ["mcp"]
      }
    }
  }

Available tools: format_count, transform_text, render_post`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeStudio, err := openStudio(cmd)
			if err != nil {
				return err
			}
			defer closeStudio()

			server := postmockmcp.NewServer(buildVersion(), st)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
