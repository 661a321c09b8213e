// Package cli implements the viat command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/internal/config"
)

// Version is the application version.
const Version = "1.0.0"

// cfg is loaded once in the root PersistentPreRunE and shared by subcommands.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:     "viat",
	Short:   "Video and image annotation toolkit",
	Long:    "viat manages bounding-box annotation projects: inspect and validate project files, export to COCO, YOLO, Pascal VOC or Raya, convert whole datasets, interpolate between keyframes, and propose annotations with a local vision model.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute runs the CLI. It exits the process on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
