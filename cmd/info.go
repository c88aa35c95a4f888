package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-floudsfs/internal/alloc"
	"github.com/deploymenttheory/go-floudsfs/internal/fsm"
)

var infoCmd = &cobra.Command{
	Use:   "info <image>",
	Short: "Show the image header, volume UUID and allocator state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		manager := fsm.NewManager(cfg, newLogger())
		if err := manager.Mount(args[0]); err != nil {
			return err
		}
		defer manager.Unmount()

		header := manager.Header()
		fmt.Printf("volume UUID:    %s\n", header.VolumeUUID)
		fmt.Printf("block size:     %d\n", cfg.BlockSize)
		fmt.Printf("nodes:          %d\n", manager.Tree().Size())
		fmt.Printf("flouds:         handle %d, %d bytes\n", header.FloudsHandle, header.FloudsSize)
		fmt.Printf("inode table:    handle %d, %d bytes\n", header.InodeHandle, header.InodeSize)
		fmt.Printf("allocator:      handle %d, %d bytes\n", header.AllocatorHandle, header.AllocatorSize)
		if monotonic, ok := manager.Allocator().(*alloc.Monotonic); ok {
			fmt.Printf("next block:     %d\n", monotonic.NextBlock())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
