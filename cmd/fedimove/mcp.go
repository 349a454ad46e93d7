// ABOUTME: MCP server command implementation for fedimove.
// ABOUTME: Starts the MCP server in stdio mode over one opened archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fedimove/fedimove/internal/archive"
	mcppkg "github.com/fedimove/fedimove/internal/mcp"
)

var mcpArchive string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio and exposes read-only tools for
inspecting one archive: listing posts, reading a post in full, and
previewing how long text would split.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVarP(&mcpArchive, "archive", "a", "", "Archive to expose (required)")
	_ = mcpCmd.MarkFlagRequired("archive")
}

func runMCP(cmd *cobra.Command, args []string) error {
	dataDir, err := globalConfig.GetDataDir()
	if err != nil {
		return err
	}
	arch, err := archive.Load(dataDir, mcpArchive)
	if errors.Is(err, archive.ErrNotPresent) {
		return fmt.Errorf("no archive named %q", mcpArchive)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := mcppkg.NewServer(arch)
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}
