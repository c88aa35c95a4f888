package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("block_size:             %d\n", cfg.BlockSize)
		fmt.Printf("bitvector_strategy:     %s\n", cfg.BitVectorStrategy)
		fmt.Printf("namesequence_strategy:  %s\n", cfg.NameSequenceStrategy)
		fmt.Printf("allocator_strategy:     %s\n", cfg.AllocatorStrategy)
		fmt.Printf("save_on_mutation:       %t\n", cfg.SaveOnMutation)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
