package main

import (
	"fmt"
	"text/tabwriter"

	"modrand/internal/core"

	"github.com/spf13/cobra"
)

var listProfile string

type listJSONOutput struct {
	Profile      string     `json:"profile"`
	RandomizeAll bool       `json:"randomize_all"`
	CurrentMod   string     `json:"current_mod,omitempty"`
	Mods         []core.Row `json:"mods"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List mods of a profile",
	Long: `List the mods of a profile in display order with their checkboxes.

Mods enabled in the profile but no longer installed are listed too.

Examples:
  modrand list
  modrand list --profile Work`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listProfile, "profile", "p", "", "profile to list (default: active profile)")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	view, err := openSession(cmd.Context(), service, listProfile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		rows := view.Rows
		if rows == nil {
			rows = []core.Row{}
		}
		return printJSON(out, listJSONOutput{
			Profile:      view.Profile,
			RandomizeAll: view.RandomizeAll,
			CurrentMod:   view.CurrentMod,
			Mods:         rows,
		})
	}

	fmt.Fprintf(out, "Profile: %s\n", view.Profile)
	if view.CurrentMod != "" {
		fmt.Fprintf(out, "Current mod: %s\n", view.CurrentMod)
	}
	if view.RandomizeAll {
		fmt.Fprintln(out, colorYellow("Randomize all mods is on; every installed mod is included."))
	}
	fmt.Fprintln(out)

	if len(view.Rows) == 0 {
		fmt.Fprintln(out, "No mods installed.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENABLED\tNAME\tID\tINSTALLED")
	fmt.Fprintln(w, "-------\t----\t--\t---------")
	for _, row := range view.Rows {
		box := "[ ]"
		if row.Checked {
			box = "[x]"
		}
		installed := "yes"
		if !row.Detected {
			installed = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", box, truncate(row.Name, 40), row.ID, installed)
	}
	w.Flush()

	if verbose {
		fmt.Fprintf(out, "\nTotal: %d mod(s), %d enabled\n", len(view.Rows), len(view.CheckedIDs()))
	}
	return nil
}

// truncate shortens s to max runes, marking the cut with "..."
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
