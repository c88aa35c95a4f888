package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-floudsfs/internal/fsm"
	"github.com/deploymenttheory/go-floudsfs/internal/fusebridge"
)

var mountAllowOther bool

var mountCmd = &cobra.Command{
	Use:   "mount <image> <mountpoint>",
	Short: "Expose an image through FUSE",
	Long: `mount attaches the filesystem in the image file at the given
mountpoint and serves kernel requests until interrupted or unmounted.
The image is formatted first if it carries no filesystem.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		manager := fsm.NewManager(cfg, logger)
		if err := manager.Mount(args[0]); err != nil {
			return err
		}

		server, err := fusebridge.Mount(fusebridge.Options{
			Mountpoint: args[1],
			Manager:    manager,
			AllowOther: mountAllowOther,
			Logger:     logger,
		})
		if err != nil {
			manager.Unmount()
			return err
		}

		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-interrupts
			logger.Info("unmounting on signal")
			server.Unmount()
		}()

		server.Serve()
		return manager.Unmount()
	},
}

func init() {
	mountCmd.Flags().BoolVar(&mountAllowOther, "allow-other", false,
		"permit other users to access the mount")
	rootCmd.AddCommand(mountCmd)
}
