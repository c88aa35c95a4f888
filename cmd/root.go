package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-floudsfs/internal/config"
)

var (
	// Global output flags only
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "floudsfs",
	Short: "Succinct FLOUDS filesystem tool",
	Long: `floudsfs maintains a mountable user-space filesystem whose entire
directory hierarchy lives in a succinct FLOUDS encoding: a first-child
bit vector, a four-symbol wavelet tree of node types and a name
sequence, persisted together with an inode table inside a single image
file.

Commands:
  mkfs       Create or reset a filesystem image
  info       Show the image header, volume UUID and allocator state
  tree       Print the directory hierarchy of an image
  mount      Expose an image through FUSE
  config     Show the effective configuration`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
}

// newLogger builds the logger implied by the output flags.
func newLogger() *slog.Logger {
	switch {
	case quiet:
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	case verbose:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
}

// loadConfig loads the viper configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
