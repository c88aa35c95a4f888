package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-floudsfs/internal/flouds"
	"github.com/deploymenttheory/go-floudsfs/internal/fsm"
)

var treeCmd = &cobra.Command{
	Use:   "tree <image>",
	Short: "Print the directory hierarchy of an image",
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
		return printSubtree(manager, manager.Tree(), 0, 0)
	},
}

func printSubtree(manager *fsm.Manager, tree *flouds.Tree, node, depth int) error {
	name, err := tree.Name(node)
	if err != nil {
		return err
	}
	record, err := manager.GetInode(node)
	if err != nil {
		return err
	}
	isFolder, err := tree.IsFolder(node)
	if err != nil {
		return err
	}
	if isFolder {
		fmt.Printf("%s%s/ (node %d)\n", strings.Repeat("  ", depth), name, node)
	} else {
		fmt.Printf("%s%s (node %d, %d bytes)\n", strings.Repeat("  ", depth), name, node, record.Size)
	}
	count, err := tree.ChildrenCount(node)
	if err != nil {
		return err
	}
	for k := 0; k < count; k++ {
		child, err := tree.Child(node, k)
		if err != nil {
			return err
		}
		if err := printSubtree(manager, tree, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
