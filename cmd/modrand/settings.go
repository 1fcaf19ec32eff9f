package main

import (
	"fmt"
	"text/tabwriter"

	"modrand/internal/core"
	"modrand/internal/domain"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change randomizer settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show settings",
	Long: `Show every setting, or a single one.

Keys: ` + fmt.Sprint(core.SettingKeys()) + `

Examples:
  modrand settings get
  modrand settings get randomizeTime --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting. Switches take true or false, timeUnit takes minutes,
hours or days, and randomizeTime is a number in the current time unit.

Examples:
  modrand settings set autoModIdentificationChecked true
  modrand settings set timeUnit hours
  modrand settings set randomizeTime 1.5`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	rootCmd.AddCommand(settingsCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	values, err := service.Settings().All(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	keys := core.SettingKeys()
	if len(args) == 1 {
		if _, ok := values[args[0]]; !ok {
			return &domain.ValidationError{Field: "setting", Reason: fmt.Sprintf("%q is unknown", args[0])}
		}
		keys = []string{args[0]}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		selected := make(map[string]any, len(keys))
		for _, k := range keys {
			selected[k] = values[k]
		}
		return printJSON(out, selected)
	}

	unit, _ := core.ParseTimeUnit(fmt.Sprint(values[domain.KeyTimeUnit]))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		v := values[k]
		if k == domain.KeyRandomizeTime {
			minutes, _ := v.(float64)
			v = core.FormatInterval(minutes, unit)
		}
		fmt.Fprintf(w, "%s\t%v\n", k, v)
	}
	return w.Flush()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	if err := service.Settings().Set(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", colorGreen("✓"), args[0], args[1])
	return nil
}
