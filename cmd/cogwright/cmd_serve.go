package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/cogwright/pkg/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the meshing tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	tb, err := newToolbox()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving MCP", zap.String("transport", cfg.Transport), zap.String("version", version))
	if err := tools.ServeStdio(ctx, tools.NewServer(tb, version)); err != nil {
		return err
	}
	logger.Info("MCP server stopped")
	return nil
}
