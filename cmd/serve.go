package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"orion/internal/app"
	"orion/internal/server"
	"orion/pkg/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the studio HTTP API",
	Long: `Expose content generation, speech synthesis, rendering and the render
webhook over HTTP under /api.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	result, err := app.BuildService(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Close(); err != nil {
			slog.Warn("Failed to release clients", "error", err)
		}
	}()

	srv := server.New(result.Service, server.Options{
		Notifications: result.Notifications,
		Logger:        slog.Default(),
	})

	if callback := cfg.Server.CallbackURL(); callback != "" {
		slog.Info("Render callbacks enabled", "url", callback)
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
