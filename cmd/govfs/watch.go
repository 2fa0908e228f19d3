package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gitvfs/govfs/internal/govfslog"
	"github.com/gitvfs/govfs/internal/volumewatcher"
	"github.com/spf13/cobra"
)

func init() {
	Root.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <volume-path>",
	Short: "Block until a volume path becomes reachable, polling every 15s",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := volumewatcher.New(volumewatcher.DefaultPollInterval, nil, govfslog.New(nil))
		defer w.Dispose()

		done := make(chan struct{})
		w.Register(args[0], func() {
			fmt.Printf("%s is now reachable\n", args[0])
			close(done)
		})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-done:
		case <-sigCh:
		}
		return nil
	},
}
