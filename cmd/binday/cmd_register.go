package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerFlags struct {
	postcode string
	house    string
}

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a household and fetch its first collection dates",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister <premises-id>",
	Short: "Remove a household and its cached data",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnregister,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered households",
	RunE:  runList,
}

func init() {
	f := registerCmd.Flags()
	f.StringVar(&registerFlags.postcode, "postcode", "", "Postcode, e.g. LS1 1UR (required)")
	f.StringVar(&registerFlags.house, "house", "", "House number or name (required)")

	_ = registerCmd.MarkFlagRequired("postcode")
	_ = registerCmd.MarkFlagRequired("house")
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reg, err := a.registry.Register(cmd.Context(), args[0], registerFlags.postcode, registerFlags.house)
	if err != nil {
		return fmt.Errorf("register %q: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (premises %s)\n", reg.Name, reg.PremisesID)
	if p, ok := a.registry.Poller(reg.PremisesID); ok {
		printView(cmd.OutOrStdout(), reg.Name, p.State(), a.now())
	}
	return nil
}

func runUnregister(cmd *cobra.Command, args []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.registry.Unregister(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Unregistered premises %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	regs, err := a.store.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(regs) == 0 {
		fmt.Fprintf(out, "No households registered.\n")
		fmt.Fprintf(out, "Run 'binday register' to add one.\n")
		return nil
	}
	fmt.Fprintf(out, "%-12s %-20s %-10s %s\n", "Premises", "Name", "Postcode", "House")
	for _, r := range regs {
		fmt.Fprintf(out, "%-12s %-20s %-10s %s\n", r.PremisesID, r.Name, r.Postcode, r.House)
	}
	return nil
}
