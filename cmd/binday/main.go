// binday tracks the next Leeds bin collection dates for registered households.
//
// Usage:
//
//	binday lookup --postcode=<postcode> --house=<name|number>
//	binday register <name> --postcode=<postcode> --house=<name|number>
//	binday unregister <premises-id>
//	binday list
//	binday status [premises-id] [--refresh]
//	binday run
//	binday cache dump <premises-id>
//	binday cache delete <premises-id>
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
