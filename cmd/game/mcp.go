package main

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"storyloop/internal/mcp"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := createApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			server := mcp.NewServer(a.engine, version)
			return server.Run(ctx, &sdk.StdioTransport{})
		},
	}
}
