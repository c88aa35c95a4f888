package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-floudsfs/internal/fsm"
)

var mkfsForce bool

var mkfsCmd = &cobra.Command{
	Use:   "mkfs <image>",
	Short: "Create or reset a filesystem image",
	Long: `mkfs formats the given image file: it installs the header with a
fresh volume UUID, an empty root folder and its inode record. An
existing image is only overwritten with --force.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err == nil {
			if !mkfsForce {
				return fmt.Errorf("%s exists, use --force to reformat", path)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing %s: %w", path, err)
			}
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		manager := fsm.NewManager(cfg, newLogger())
		if err := manager.Mount(path); err != nil {
			return err
		}
		if err := manager.Unmount(); err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("formatted %s (block size %d)\n", path, cfg.BlockSize)
		}
		return nil
	},
}

func init() {
	mkfsCmd.Flags().BoolVar(&mkfsForce, "force", false, "reformat an existing image")
	rootCmd.AddCommand(mkfsCmd)
}
