package main

import (
	"fmt"

	"github.com/gitvfs/govfs/internal/refrepair"
	"github.com/spf13/cobra"
)

func init() {
	refsCmd.AddCommand(refsCheckCmd)
	refsCmd.AddCommand(refsRepairCmd)
	Root.AddCommand(refsCmd)
}

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Ref Repair Engine operations",
}

// refsCheckCmd is read-only diagnosis, kept separate from the mutating
// repair subcommand the way backend/torrent/cmd/backend.go separates
// "stats"/"trackers" from "pause"/"resume"/"stop".
var refsCheckCmd = &cobra.Command{
	Use:   "check <enlistment-root>",
	Short: "Diagnose ref corruption without repairing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := refrepair.New(args[0])
		return runFamilies(engine, func(e *refrepair.Engine, family refrepair.RefFamily) error {
			issue, messages, err := e.HasIssue(family)
			if err != nil {
				return err
			}
			for _, m := range messages {
				fmt.Println(m)
			}
			fmt.Println(issue)
			return nil
		})
	},
}

var refsRepairCmd = &cobra.Command{
	Use:   "repair <enlistment-root>",
	Short: "Repair ref corruption from reflog tails where safe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := refrepair.New(args[0])
		return runFamilies(engine, func(e *refrepair.Engine, family refrepair.RefFamily) error {
			issue, diagMessages, err := e.HasIssue(family)
			if err != nil {
				return err
			}
			for _, m := range diagMessages {
				fmt.Println(m)
			}
			if issue == refrepair.CantFix {
				return nil
			}
			result, fixMessages, err := e.TryFix(family)
			if err != nil {
				return err
			}
			for _, m := range fixMessages {
				fmt.Println(m)
			}
			fmt.Println(result)
			return nil
		})
	},
}

func runFamilies(engine *refrepair.Engine, fn func(*refrepair.Engine, refrepair.RefFamily) error) error {
	families := []refrepair.RefFamily{refrepair.HeadFamily{}, refrepair.LocalBranchFamily{}}
	for _, family := range families {
		if err := fn(engine, family); err != nil {
			return err
		}
	}
	return nil
}
