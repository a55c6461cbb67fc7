package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"orion/pkg/config"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "orion",
	Short: "Create social media posts with generated copy, voiceover and video",
	Long: `Orion walks you through building a social media post: describe your brand,
pick a platform and tone, and it writes the copy, records an optional voiceover
and renders the image or video through Shotstack.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to config file")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	// stderr keeps log lines out of the interactive forms on stdout.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
