package main

import (
	"context"
	"fmt"

	"github.com/gitvfs/govfs/internal/placeholder"
	"github.com/spf13/cobra"
)

func init() {
	catalogCmd.AddCommand(catalogStatsCmd)
	Root.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Placeholder Catalog inspection",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats <path-to-sqlite-db>",
	Short: "Print file/folder counts from a placeholder catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := placeholder.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		stats, err := c.ComputeStats(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("files:               %d\n", stats.FileCount)
		fmt.Printf("partial folders:     %d\n", stats.PartialFolderCount)
		fmt.Printf("expanded folders:    %d\n", stats.ExpandedFolderCount)
		fmt.Printf("tombstone folders:   %d\n", stats.PossibleTombstoneCount)
		return nil
	},
}
