package main

import (
	"fmt"
	"strings"

	"modrand/internal/core"
	"modrand/internal/domain"

	"github.com/spf13/cobra"
)

var modProfile string

var enableCmd = &cobra.Command{
	Use:   "enable <mod>...",
	Short: "Enable mods in a profile",
	Long: `Enable one or more mods in a profile. Mods are matched by id, then by
name ignoring case.

Examples:
  modrand enable abcdefghijklmnopabcdefghijklmnop
  modrand enable "Night Sky" --profile Work`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModEdit(cmd, args, func(s *core.Session, id string) (core.View, error) {
			return s.SetChecked(id, true)
		})
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <mod>...",
	Short: "Disable mods in a profile",
	Long: `Disable one or more mods in a profile. Mods are matched by id, then by
name ignoring case.

Examples:
  modrand disable "Night Sky"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModEdit(cmd, args, func(s *core.Session, id string) (core.View, error) {
			return s.SetChecked(id, false)
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <mod>...",
	Short: "Flip mods in a profile",
	Long: `Flip the checkbox of one or more mods in a profile.

Examples:
  modrand toggle "Night Sky" "Sunset"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModEdit(cmd, args, (*core.Session).Toggle)
	},
}

var toggleAllCmd = &cobra.Command{
	Use:   "toggle-all",
	Short: "Enable every mod, or disable all when all are enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulkEdit(cmd, (*core.Session).ToggleAll)
	},
}

var reverseAllCmd = &cobra.Command{
	Use:   "reverse-all",
	Short: "Invert every checkbox of a profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulkEdit(cmd, (*core.Session).ReverseAll)
	},
}

func init() {
	for _, c := range []*cobra.Command{enableCmd, disableCmd, toggleCmd, toggleAllCmd, reverseAllCmd} {
		c.Flags().StringVarP(&modProfile, "profile", "p", "", "profile to edit (default: active profile)")
		rootCmd.AddCommand(c)
	}
}

// resolveMod finds a row by id, then by name ignoring case
func resolveMod(view core.View, arg string) (string, error) {
	if view.Index(arg) >= 0 {
		return arg, nil
	}
	var match string
	for _, row := range view.Rows {
		if strings.EqualFold(row.Name, arg) {
			if match != "" {
				return "", fmt.Errorf("%q matches more than one mod; use the id", arg)
			}
			match = row.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrModNotInList, arg)
	}
	return match, nil
}

func runModEdit(cmd *cobra.Command, args []string, edit func(*core.Session, string) (core.View, error)) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	view, err := openSession(ctx, service, modProfile)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := resolveMod(view, arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		if view, err = edit(service.Session(), id); err != nil {
			return err
		}
	}
	if err := flushSession(ctx, service); err != nil {
		return err
	}

	printEditSummary(cmd, view)
	return nil
}

func runBulkEdit(cmd *cobra.Command, edit func(*core.Session) (core.View, error)) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	if _, err := openSession(ctx, service, modProfile); err != nil {
		return err
	}

	view, err := edit(service.Session())
	if err != nil {
		return err
	}
	if err := flushSession(ctx, service); err != nil {
		return err
	}

	printEditSummary(cmd, view)
	return nil
}

func printEditSummary(cmd *cobra.Command, view core.View) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %d of %d mod(s) enabled\n",
		colorGreen("✓"), view.Profile, len(view.CheckedIDs()), len(view.Rows))
	if verbose {
		for _, row := range view.Rows {
			if row.Checked {
				fmt.Fprintf(out, "  %s (%s)\n", row.Name, row.ID)
			}
		}
	}
}
