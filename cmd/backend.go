package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"orion/internal/app"
	"orion/internal/studio"
	"orion/internal/studio/remote"
	"orion/pkg/config"
)

var backendURL string

func addBackendFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&backendURL, "backend", "b", "", "Use a running orion server instead of calling providers directly")
}

// openBackend returns the remote client when a server URL is configured,
// otherwise an in-process studio. The returned func releases it.
func openBackend(ctx context.Context, cfg *config.Config) (studio.Backend, func(), error) {
	url := backendURL
	if url == "" {
		url = cfg.Backend.URL
	}
	if url != "" {
		slog.Debug("Using remote backend", "url", url)
		return remote.NewClient(url), func() {}, nil
	}

	result, err := app.BuildService(ctx, cfg, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := result.Close(); err != nil {
			slog.Warn("Failed to release clients", "error", err)
		}
	}
	return result.Service, release, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}
