package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binday/internal/models"
	"binday/internal/registry"
)

var statusFlags struct {
	refresh bool
}

var statusCmd = &cobra.Command{
	Use:   "status [premises-id]",
	Short: "Show the next collection dates from the local cache",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.refresh, "refresh", false, "Check the schedule feed before printing")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var regs []registry.Registration
	if len(args) == 1 {
		reg, err := a.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		regs = append(regs, reg)
	} else if regs, err = a.store.List(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(regs) == 0 {
		fmt.Fprintf(out, "No households registered.\n")
		return nil
	}

	for _, reg := range regs {
		state, ok := a.fetcher.Initial(reg.PremisesID)
		if !ok {
			state = models.AwaitingState(reg.PremisesID)
		}
		if statusFlags.refresh {
			outcome := a.fetcher.Refresh(ctx, reg.PremisesID, state)
			if outcome.Kind != models.NotModified {
				state = outcome.State
			}
			if outcome.Err != nil {
				fmt.Fprintf(out, "Warning: refresh for %s failed: %v\n", reg.Name, outcome.Err)
			}
		}
		printView(out, reg.Name, state, a.now())
	}
	return nil
}
