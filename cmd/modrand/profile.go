package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"modrand/internal/domain"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	profileYes      bool
	profileNoSwitch bool

	// canPrompt reports whether stdin is a terminal a form can run on.
	canPrompt = func() bool { return isTerminal(os.Stdin) }
)

type profileJSON struct {
	Name     string   `json:"name"`
	Active   bool     `json:"active"`
	ModIDs   []string `json:"mod_ids"`
	ModCount int      `json:"mod_count"`
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage mod profiles",
	Long: `Manage mod profiles: named sets of mods the randomizer picks from.

The active profile is the one the randomizer uses. A "Default" profile is
created when none exist, and the last profile cannot be deleted.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Long: `List all profiles with the number of enabled mods.

Examples:
  modrand profile list
  modrand profile list --json`,
	Args: cobra.NoArgs,
	RunE: runProfileList,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Long: `Create a new empty profile and make it the active one.

Names are trimmed, at most 50 characters, and must differ from every
existing profile ignoring case.

Examples:
  modrand profile create Work`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileCreate,
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a profile",
	Long: `Rename a profile, keeping its mods and their order.

Examples:
  modrand profile rename Work "Work Days"`,
	Args: cobra.ExactArgs(2),
	RunE: runProfileRename,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Long: `Delete a profile. When it is the active one another profile becomes
active. The last remaining profile cannot be deleted.

Examples:
  modrand profile delete Work
  modrand profile delete Work --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileDelete,
}

var profileSwitchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "Make a profile the active one",
	Long: `Make a profile the active one. The randomizer picks from its mods.

Examples:
  modrand profile switch Work`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileSwitch,
}

var profileExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export all profiles",
	Long: `Export every profile to a JSON file with the mod names, so it can be
imported elsewhere. When path is a directory, or omitted, the file is named
mod-randomizer-profiles-<date>.json.

Examples:
  modrand profile export
  modrand profile export ~/backup/profiles.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProfileExport,
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import profiles",
	Long: `Import profiles from an exported JSON file.

Profiles whose name already exists are skipped. Mods are matched by id,
then by name; mods that are not installed are reported and left out.

Examples:
  modrand profile import profiles.json`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileImport,
}

func init() {
	profileDeleteCmd.Flags().BoolVarP(&profileYes, "yes", "y", false, "delete without asking")
	profileCreateCmd.Flags().BoolVar(&profileNoSwitch, "no-switch", false, "keep the current active profile")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileRenameCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileSwitchCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileImportCmd)

	rootCmd.AddCommand(profileCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	if _, err := openSession(ctx, service, ""); err != nil {
		return err
	}
	profiles, active, err := service.Profiles().List(ctx)
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		list := make([]profileJSON, 0, len(profiles))
		for _, name := range profiles.Names() {
			ids := append([]string{}, profiles[name]...)
			sort.Strings(ids)
			list = append(list, profileJSON{Name: name, Active: name == active, ModIDs: ids, ModCount: len(ids)})
		}
		return printJSON(out, list)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODS\tACTIVE")
	fmt.Fprintln(w, "----\t----\t------")
	for _, name := range profiles.Names() {
		mark := ""
		if name == active {
			mark = colorGreen("*")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(profiles[name]), mark)
	}
	return w.Flush()
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	if _, err := openSession(ctx, service, ""); err != nil {
		return err
	}

	_, previous, err := service.Profiles().List(ctx)
	if err != nil {
		return err
	}
	name, err := service.Profiles().Create(ctx, args[0])
	if err != nil {
		return err
	}
	if profileNoSwitch && previous != "" {
		if err := service.Profiles().Switch(ctx, previous); err != nil {
			return fmt.Errorf("restoring active profile: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Created profile %s\n", colorGreen("✓"), name)
	return nil
}

func runProfileRename(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	if _, err := openSession(ctx, service, ""); err != nil {
		return err
	}
	name, err := service.Profiles().Rename(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Renamed %s to %s\n", colorGreen("✓"), args[0], name)
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	if _, err := openSession(ctx, service, ""); err != nil {
		return err
	}

	profiles, _, err := service.Profiles().List(ctx)
	if err != nil {
		return err
	}
	name, ok := profiles.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProfileNotFound, args[0])
	}

	if !profileYes {
		confirmed, err := confirmDelete(name, len(profiles[name]))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return ErrCancelled
		}
	}

	if err := service.Profiles().Delete(ctx, name); err != nil {
		return err
	}
	_, active, err := service.Profiles().List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted profile %s (active: %s)\n", colorGreen("✓"), name, active)
	return nil
}

// confirmDelete asks before a profile is deleted. Without a terminal the
// answer is no.
func confirmDelete(name string, mods int) (bool, error) {
	if !canPrompt() {
		return false, fmt.Errorf("refusing to delete %s without confirmation; pass --yes", name)
	}

	var confirm bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete profile %s?", name)).
				Description(fmt.Sprintf("It has %d enabled mod(s). This cannot be undone.", mods)).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&confirm),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prompting: %w", err)
	}
	return confirm, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func runProfileSwitch(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	if _, err := openSession(ctx, service, ""); err != nil {
		return err
	}
	if err := service.Profiles().Switch(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Active profile: %s\n", colorGreen("✓"), service.Session().Current())
	return nil
}

func runProfileExport(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	written, err := service.ExportFile(cmd.Context(), path, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Exported profiles to %s\n", colorGreen("✓"), written)
	return nil
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	res, err := service.ImportFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}

	if len(res.Imported) == 0 {
		fmt.Fprintln(out, "No profiles imported.")
	} else {
		fmt.Fprintf(out, "%s Imported: %s\n", colorGreen("✓"), strings.Join(res.Imported, ", "))
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "%s Skipped (name exists): %s\n", colorYellow("!"), strings.Join(res.Skipped, ", "))
	}
	if verbose {
		fmt.Fprintf(out, "Import batch: %s\n", res.Batch)
	}
	for _, profile := range res.Imported {
		missing := res.MissingMods[profile]
		if len(missing) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s %s: %d mod(s) not installed: %s\n",
			colorYellow("!"), profile, len(missing), strings.Join(missing, ", "))
	}
	return nil
}
