package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lookupFlags struct {
	postcode string
	house    string
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Find the premises ID for a postcode and house",
	RunE:  runLookup,
}

func init() {
	f := lookupCmd.Flags()
	f.StringVar(&lookupFlags.postcode, "postcode", "", "Postcode, e.g. LS1 1UR (required)")
	f.StringVar(&lookupFlags.house, "house", "", "House number or name (required)")

	_ = lookupCmd.MarkFlagRequired("postcode")
	_ = lookupCmd.MarkFlagRequired("house")
}

func runLookup(cmd *cobra.Command, _ []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.resolver.Resolve(cmd.Context(), lookupFlags.postcode, lookupFlags.house)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Premises: %s\n", rec.PremisesID)
	fmt.Fprintf(out, "Postcode: %s\n", rec.Postcode)
	if rec.HouseNumber != "" {
		fmt.Fprintf(out, "Number:   %s\n", rec.HouseNumber)
	}
	if rec.HouseName != "" {
		fmt.Fprintf(out, "Name:     %s\n", rec.HouseName)
	}
	return nil
}
