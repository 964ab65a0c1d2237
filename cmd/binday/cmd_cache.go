package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local collection cache",
}

var cacheDumpCmd = &cobra.Command{
	Use:   "dump <premises-id>",
	Short: "Print the cached entry for a household",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDump,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <premises-id>",
	Short: "Delete the cached entry for a household",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDelete,
}

func init() {
	cacheCmd.AddCommand(cacheDumpCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
}

func runCacheDump(cmd *cobra.Command, args []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	e, ok := a.cache.Load(args[0])
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "No usable cache for premises %s (%s)\n", args[0], a.cache.FilePath(args[0]))
		return nil
	}
	e.Dump(cmd.OutOrStdout())
	return nil
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cache.Delete(args[0]); err != nil {
		return fmt.Errorf("deleting cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cache deleted: %s\n", a.cache.FilePath(args[0]))
	return nil
}
