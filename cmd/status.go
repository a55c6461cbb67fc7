package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"orion/internal/render"
	"orion/pkg/config"
)

var statusCmd = &cobra.Command{
	Use:   "status <render-id>",
	Short: "Check the progress of a render",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	addBackendFlag(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return err
	}

	backend, release, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	status, err := backend.RenderStatus(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("Render %s: %s", status.ID, status.Status)))
	switch status.Status {
	case render.StatusDone:
		fmt.Println(successStyle.Render("✓ " + status.URL))
	case render.StatusFailed:
		fmt.Println(warnStyle.Render("✗ " + status.Error))
	default:
		if status.Progress > 0 {
			fmt.Printf("  render time %.1fs\n", status.Progress)
		}
	}
	return nil
}
