package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/chatrooms/internal/app"
	"github.com/nfrund/chatrooms/internal/config"
	"github.com/nfrund/chatrooms/internal/logging"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start the HTTP server with the WebSocket endpoint at /ws and the REST API
under /api. The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		logging.New(cfg.GetLogFormat(), cfg.GetLogLevel())
		slog.Info("Starting chatrooms", "version", version, "store", cfg.GetStoreDriver(), "port", cfg.GetPort())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.New(cfg).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides PORT)")
}
