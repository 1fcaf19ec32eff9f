package views

import (
	"fmt"
	"strings"

	"modrand/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SwitchProfileMsg is sent to show a profile
type SwitchProfileMsg struct {
	Name string
}

// CreateProfileMsg is sent when a new profile is entered
type CreateProfileMsg struct {
	Name string
}

// RenameProfileMsg is sent when a profile gets a new name
type RenameProfileMsg struct {
	Old string
	New string
}

// DeleteProfileMsg is sent after a delete was confirmed
type DeleteProfileMsg struct {
	Name string
}

// ExportProfilesMsg is sent to write every profile to Path
type ExportProfilesMsg struct {
	Path string
}

// ImportProfilesMsg is sent to merge the profiles stored in Path
type ImportProfilesMsg struct {
	Path string
}

// ProfileInfo is one line of the profile list
type ProfileInfo struct {
	Name     string
	ModCount int
}

type inputMode int

const (
	inputNone inputMode = iota
	inputCreate
	inputRename
	inputImport
	inputExport
)

// Profiles is the profile management view
type Profiles struct {
	keys          KeyMap
	profiles      []ProfileInfo
	current       string
	active        string
	selected      int
	mode          inputMode
	confirmDelete bool
	input         textinput.Model
	width         int
	height        int
}

// NewProfiles creates a new profiles view. current is the profile shown in
// the mod list, active the one the randomizer uses.
func NewProfiles(keys KeyMap, profiles []ProfileInfo, current, active string) Profiles {
	ti := textinput.New()
	ti.CharLimit = domain.MaxProfileNameLength
	ti.Width = 40

	p := Profiles{
		keys:   keys,
		input:  ti,
		width:  80,
		height: 24,
	}
	return p.SetProfiles(profiles, current, active)
}

// SetProfiles replaces the list, keeping the cursor on the same name
func (p Profiles) SetProfiles(profiles []ProfileInfo, current, active string) Profiles {
	var selectedName string
	if sel := p.SelectedProfile(); sel != nil {
		selectedName = sel.Name
	} else {
		selectedName = current
	}

	p.profiles = profiles
	p.current = current
	p.active = active
	p.selected = 0
	for i, info := range profiles {
		if info.Name == selectedName {
			p.selected = i
			break
		}
	}
	return p
}

// ProfilesFrom converts stored profiles to list entries in display order
func ProfilesFrom(profiles domain.Profiles) []ProfileInfo {
	names := profiles.Names()
	out := make([]ProfileInfo, 0, len(names))
	for _, name := range names {
		out = append(out, ProfileInfo{Name: name, ModCount: len(profiles[name])})
	}
	return out
}

// Selected returns the currently selected index
func (p Profiles) Selected() int {
	return p.selected
}

// ProfileCount returns the number of profiles
func (p Profiles) ProfileCount() int {
	return len(p.profiles)
}

// IsCreating returns whether we're in create mode
func (p Profiles) IsCreating() bool {
	return p.mode == inputCreate
}

// Capturing reports whether keys go to a text input or a confirmation
func (p Profiles) Capturing() bool {
	return p.mode != inputNone || p.confirmDelete
}

// SelectedProfile returns the currently selected profile
func (p Profiles) SelectedProfile() *ProfileInfo {
	if len(p.profiles) == 0 || p.selected >= len(p.profiles) {
		return nil
	}
	info := p.profiles[p.selected]
	return &info
}

// Init implements tea.Model
func (p Profiles) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (p Profiles) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.confirmDelete {
			return p.handleConfirmDelete(msg)
		}
		if p.mode != inputNone {
			return p.handleInputMode(msg)
		}
		return p.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil
	}

	return p, nil
}

func (p Profiles) handleConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p.confirmDelete = false
	if msg.String() != "y" && msg.String() != "Y" {
		return p, nil
	}
	profile := p.SelectedProfile()
	if profile == nil {
		return p, nil
	}
	name := profile.Name
	return p, func() tea.Msg {
		return DeleteProfileMsg{Name: name}
	}
}

func (p Profiles) startInput(mode inputMode, placeholder, value string) (Profiles, tea.Cmd) {
	p.mode = mode
	p.input.Reset()
	p.input.Placeholder = placeholder
	p.input.SetValue(value)
	p.input.CursorEnd()
	p.input.Focus()
	return p, textinput.Blink
}

func (p Profiles) endInput() Profiles {
	p.mode = inputNone
	p.input.Reset()
	p.input.Blur()
	return p
}

func (p Profiles) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case p.keys.IsCancel(msg):
		return p.endInput(), nil

	case p.keys.IsConfirm(msg):
		value := strings.TrimSpace(p.input.Value())
		if value == "" {
			return p, nil
		}
		mode := p.mode
		var old string
		if sel := p.SelectedProfile(); sel != nil {
			old = sel.Name
		}
		p = p.endInput()

		switch mode {
		case inputCreate:
			return p, func() tea.Msg { return CreateProfileMsg{Name: value} }
		case inputRename:
			return p, func() tea.Msg { return RenameProfileMsg{Old: old, New: value} }
		case inputImport:
			return p, func() tea.Msg { return ImportProfilesMsg{Path: value} }
		case inputExport:
			return p, func() tea.Msg { return ExportProfilesMsg{Path: value} }
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p Profiles) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case p.keys.IsUp(msg):
		if len(p.profiles) > 0 {
			p.selected--
			if p.selected < 0 {
				p.selected = len(p.profiles) - 1
			}
		}
		return p, nil

	case p.keys.IsDown(msg):
		if len(p.profiles) > 0 {
			p.selected++
			if p.selected >= len(p.profiles) {
				p.selected = 0
			}
		}
		return p, nil

	case p.keys.IsHome(msg):
		p.selected = 0
		return p, nil

	case p.keys.IsEnd(msg):
		if len(p.profiles) > 0 {
			p.selected = len(p.profiles) - 1
		}
		return p, nil

	case p.keys.IsConfirm(msg):
		profile := p.SelectedProfile()
		if profile != nil {
			name := profile.Name
			return p, func() tea.Msg {
				return SwitchProfileMsg{Name: name}
			}
		}
		return p, nil

	case p.keys.IsDelete(msg):
		if p.SelectedProfile() != nil {
			p.confirmDelete = true
		}
		return p, nil
	}

	switch msg.String() {
	case "n":
		return p.startInput(inputCreate, "Profile name...", "")

	case "R":
		profile := p.SelectedProfile()
		if profile != nil {
			return p.startInput(inputRename, "New name...", profile.Name)
		}
		return p, nil

	case "i":
		return p.startInput(inputImport, "path/to/profiles.json", "")

	case "e":
		return p.startInput(inputExport, "directory or file", ".")
	}

	return p, nil
}

// View implements tea.Model
func (p Profiles) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	currentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	activeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(4)

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	output := titleStyle.Render("Profiles") + "\n\n"

	switch p.mode {
	case inputCreate:
		output += "New profile name: " + p.input.View() + "\n\n"
		output += infoStyle.Render("enter: create  esc: cancel")
		return output
	case inputRename:
		output += "Rename to: " + p.input.View() + "\n\n"
		output += infoStyle.Render("enter: rename  esc: cancel")
		return output
	case inputImport:
		output += "Import from: " + p.input.View() + "\n\n"
		output += infoStyle.Render("enter: import  esc: cancel")
		return output
	case inputExport:
		output += "Export to: " + p.input.View() + "\n\n"
		output += infoStyle.Render("enter: export  esc: cancel")
		return output
	}

	if len(p.profiles) == 0 {
		output += itemStyle.Render("No profiles loaded.") + "\n\n"
		output += infoStyle.Render("Press 'n' to create a new profile.") + "\n"
		return output
	}

	for i, profile := range p.profiles {
		cursor := "  "
		style := itemStyle

		if i == p.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		status := ""
		if profile.Name == p.current {
			status += currentStyle.Render(" [shown]")
		}
		if profile.Name == p.active {
			status += activeStyle.Render(" [active]")
		}

		output += style.Render(cursor+profile.Name) + status + "\n"

		if i == p.selected {
			output += detailStyle.Render(fmt.Sprintf("Enabled mods: %d", profile.ModCount)) + "\n\n"
		}
	}

	if p.confirmDelete {
		if sel := p.SelectedProfile(); sel != nil {
			output += warnStyle.Render(fmt.Sprintf("Delete profile %q? (y/N)", sel.Name))
			return output
		}
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("enter: switch  n: new  R: rename  d: delete  i: import  e: export")

	return output
}
