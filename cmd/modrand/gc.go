package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Drop uninstalled mods from every profile",
	Long: `Refresh the installed mods and remove ids that are no longer installed
from every profile, the saved display orders and the known-mods cache.

Running it twice in a row changes nothing the second time.

Examples:
  modrand gc
  modrand gc --json`,
	Args: cobra.NoArgs,
	RunE: runGC,
}

func init() {
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	res, err := service.CollectGarbage(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	if res.PrunedIDs == 0 {
		fmt.Fprintln(out, "Nothing to prune.")
		return nil
	}
	fmt.Fprintf(out, "%s Pruned %d uninstalled mod id(s)\n", colorGreen("✓"), res.PrunedIDs)
	return nil
}
