package views

import (
	"fmt"
	"strings"

	"modrand/internal/core"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// KeyMap is the part of the keybindings the views consult
type KeyMap interface {
	IsUp(tea.KeyMsg) bool
	IsDown(tea.KeyMsg) bool
	IsLeft(tea.KeyMsg) bool
	IsRight(tea.KeyMsg) bool
	IsHome(tea.KeyMsg) bool
	IsEnd(tea.KeyMsg) bool
	IsConfirm(tea.KeyMsg) bool
	IsCancel(tea.KeyMsg) bool
	IsToggle(tea.KeyMsg) bool
	IsSearch(tea.KeyMsg) bool
	IsDelete(tea.KeyMsg) bool
}

// ToggleModMsg is sent to flip one mod of the current profile
type ToggleModMsg struct {
	ID string
}

// ToggleAllMsg is sent to check or uncheck every mod
type ToggleAllMsg struct{}

// ReverseAllMsg is sent to invert every checkbox
type ReverseAllMsg struct{}

// Installed is the mod checklist of the current profile
type Installed struct {
	keys      KeyMap
	view      core.View
	visible   []int
	selected  int
	filtering bool
	filter    textinput.Model
	width     int
	height    int
}

// NewInstalled creates a new mod checklist view
func NewInstalled(keys KeyMap, view core.View) Installed {
	ti := textinput.New()
	ti.Placeholder = "Filter mods..."
	ti.CharLimit = 64
	ti.Width = 30

	m := Installed{
		keys:   keys,
		filter: ti,
		width:  80,
		height: 24,
	}
	return m.SetView(view)
}

// SetView replaces the rendered rows, keeping the cursor on the same mod
// when it is still listed.
func (m Installed) SetView(view core.View) Installed {
	var selectedID string
	if row := m.SelectedRow(); row != nil {
		selectedID = row.ID
	}
	m.view = view
	m.applyFilter()
	if selectedID != "" {
		for i, idx := range m.visible {
			if m.view.Rows[idx].ID == selectedID {
				m.selected = i
				break
			}
		}
	}
	return m
}

func (m *Installed) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = make([]int, 0, len(m.view.Rows))
	for i, row := range m.view.Rows {
		if query == "" ||
			strings.Contains(strings.ToLower(row.Name), query) ||
			strings.Contains(strings.ToLower(row.ID), query) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

// Selected returns the cursor position among the listed mods
func (m Installed) Selected() int {
	return m.selected
}

// ModCount returns the number of listed mods
func (m Installed) ModCount() int {
	return len(m.visible)
}

// Filtering reports whether the filter input has focus
func (m Installed) Filtering() bool {
	return m.filtering
}

// SelectedRow returns the row under the cursor
func (m Installed) SelectedRow() *core.Row {
	if m.selected < 0 || m.selected >= len(m.visible) {
		return nil
	}
	row := m.view.Rows[m.visible[m.selected]]
	return &row
}

// Init implements tea.Model
func (m Installed) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Installed) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterMode(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Installed) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.keys.IsCancel(msg):
		m.filtering = false
		m.filter.Reset()
		m.filter.Blur()
		m.applyFilter()
		return m, nil

	case m.keys.IsConfirm(msg):
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Installed) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.keys.IsSearch(msg):
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink

	case m.keys.IsCancel(msg):
		if m.filter.Value() != "" {
			m.filter.Reset()
			m.applyFilter()
		}
		return m, nil
	}

	if len(m.visible) == 0 {
		return m, nil
	}

	switch {
	case m.keys.IsUp(msg):
		m.selected--
		if m.selected < 0 {
			m.selected = len(m.visible) - 1
		}
		return m, nil

	case m.keys.IsDown(msg):
		m.selected++
		if m.selected >= len(m.visible) {
			m.selected = 0
		}
		return m, nil

	case m.keys.IsHome(msg):
		m.selected = 0
		return m, nil

	case m.keys.IsEnd(msg):
		m.selected = len(m.visible) - 1
		return m, nil
	}

	// The list is read-only while every mod is randomized
	if m.view.RandomizeAll {
		return m, nil
	}

	switch {
	case m.keys.IsToggle(msg):
		row := m.SelectedRow()
		if row != nil {
			id := row.ID
			return m, func() tea.Msg {
				return ToggleModMsg{ID: id}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "a":
		return m, func() tea.Msg { return ToggleAllMsg{} }
	case "r":
		return m, func() tea.Msg { return ReverseAllMsg{} }
	}

	return m, nil
}

// View implements tea.Model
func (m Installed) View() string {
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

	missingStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("241"))

	currentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	lockedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	output := titleStyle.Render("Mods") + "\n"

	profile := m.view.Profile
	if profile == "" {
		profile = "No profile"
	}
	checked := len(m.view.CheckedIDs())
	output += infoStyle.Render(fmt.Sprintf("Profile: %s  Enabled: %d/%d", profile, checked, len(m.view.Rows))) + "\n"

	if m.view.CurrentMod != "" {
		output += infoStyle.Render("Current mod: "+m.view.CurrentMod) + "\n"
	}
	if m.view.RandomizeAll {
		output += lockedStyle.Render("Randomize all mods is on; every installed mod is included.") + "\n"
	}

	if m.filtering || m.filter.Value() != "" {
		output += "Filter: " + m.filter.View() + "\n"
	}
	output += "\n"

	if len(m.view.Rows) == 0 {
		output += itemStyle.Render("No mods installed.") + "\n\n"
		output += infoStyle.Render("Install mods in the browser, then come back here.") + "\n"
		return output
	}
	if len(m.visible) == 0 {
		output += itemStyle.Render("No mods match the filter.") + "\n"
		return output
	}

	for i, idx := range m.visible {
		row := m.view.Rows[idx]
		cursor := "  "
		style := itemStyle

		if i == m.selected {
			cursor = "▸ "
			style = selectedStyle
		} else if !row.Detected {
			style = missingStyle
		}

		box := "[ ]"
		if row.Checked {
			box = "[x]"
		}

		line := fmt.Sprintf("%s%s %s", cursor, box, row.Name)
		if !row.Detected {
			line += " (not installed)"
		}
		output += style.Render(line)
		if m.view.CurrentMod != "" && row.Name == m.view.CurrentMod {
			output += currentStyle.Render(" ★ current")
		}
		output += "\n"
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	if m.filtering {
		output += helpStyle.Render("enter: keep filter  esc: clear")
	} else {
		output += helpStyle.Render("space: toggle  a: toggle all  r: reverse all  /: filter")
	}

	return output
}
