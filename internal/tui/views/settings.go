package views

import (
	"fmt"
	"strconv"

	"modrand/internal/core"
	"modrand/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SettingChangedMsg is sent when a setting is modified
type SettingChangedMsg struct {
	Key   string
	Value string
}

// settingItem represents a single setting
type settingItem struct {
	key         string
	name        string
	description string
	options     []string
	current     int
	text        string // free-form value, used when options is empty
}

var settingLabels = map[string][2]string{
	domain.KeyRandomizeAll:          {"Randomize all mods", "Pick from every installed mod instead of the profile"},
	domain.KeyUninstallAndReinstall: {"Uninstall and reinstall", "Reinstall the chosen mod instead of enabling it"},
	domain.KeyOpenModsTab:           {"Open mods tab", "Open the mods page after randomizing"},
	domain.KeyShowNotifications:     {"Show notifications", "Announce the randomized mod"},
	domain.KeyRandomizeOnStartup:    {"Randomize on startup", "Randomize when the browser starts"},
	domain.KeyRandomizeOnSetTime:    {"Randomize on a timer", "Randomize every interval"},
	domain.KeyRandomizeTime:         {"Interval", "Time between timed randomizations, 0 disables"},
	domain.KeyTimeUnit:              {"Time unit", "Unit the interval is entered in"},
}

var onOff = []string{"off", "on"}

// Settings is the settings view
type Settings struct {
	keys     KeyMap
	items    []settingItem
	selected int
	editing  bool
	input    textinput.Model
	width    int
	height   int
}

// NewSettings creates a new settings view from the values returned by
// core.Settings.All.
func NewSettings(keys KeyMap, values map[string]any) Settings {
	ti := textinput.New()
	ti.CharLimit = 12
	ti.Width = 12

	s := Settings{
		keys:   keys,
		input:  ti,
		width:  80,
		height: 24,
	}
	return s.SetValues(values)
}

// SetValues rebuilds the items from stored values
func (s Settings) SetValues(values map[string]any) Settings {
	unit := core.UnitMinutes
	if u, ok := values[domain.KeyTimeUnit].(string); ok {
		if parsed, err := core.ParseTimeUnit(u); err == nil {
			unit = parsed
		}
	}

	items := make([]settingItem, 0, len(settingLabels))
	for _, key := range core.SettingKeys() {
		label := settingLabels[key]
		item := settingItem{key: key, name: label[0], description: label[1]}

		switch key {
		case domain.KeyRandomizeTime:
			minutes, _ := values[key].(float64)
			item.text = core.FormatInterval(minutes, unit)
		case domain.KeyTimeUnit:
			item.options = []string{string(core.UnitMinutes), string(core.UnitHours), string(core.UnitDays)}
			for i, opt := range item.options {
				if opt == string(unit) {
					item.current = i
				}
			}
		default:
			item.options = onOff
			on, ok := values[key].(bool)
			if !ok {
				on = domain.BoolSettingDefaults[key]
			}
			if on {
				item.current = 1
			}
		}
		items = append(items, item)
	}

	s.items = items
	if s.selected >= len(items) {
		s.selected = 0
	}
	return s
}

// Selected returns the currently selected setting index
func (s Settings) Selected() int {
	return s.selected
}

// Editing reports whether the interval input has focus
func (s Settings) Editing() bool {
	return s.editing
}

// Value returns the displayed value of key
func (s Settings) Value(key string) string {
	for _, item := range s.items {
		if item.key != key {
			continue
		}
		if len(item.options) == 0 {
			return item.text
		}
		return item.options[item.current]
	}
	return ""
}

// Init implements tea.Model
func (s Settings) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s Settings) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s.editing {
			return s.handleEditMode(msg)
		}
		return s.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		return s, nil
	}

	return s, nil
}

func (s Settings) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case s.keys.IsCancel(msg):
		s.editing = false
		s.input.Blur()
		return s, nil

	case s.keys.IsConfirm(msg):
		s.editing = false
		s.input.Blur()
		s.items = append([]settingItem(nil), s.items...)
		item := &s.items[s.selected]
		item.text = s.input.Value()
		key, value := item.key, item.text
		return s, func() tea.Msg {
			return SettingChangedMsg{Key: key, Value: value}
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s Settings) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(s.items) == 0 {
		return s, nil
	}

	switch {
	case s.keys.IsUp(msg):
		s.selected--
		if s.selected < 0 {
			s.selected = len(s.items) - 1
		}
		return s, nil

	case s.keys.IsDown(msg):
		s.selected++
		if s.selected >= len(s.items) {
			s.selected = 0
		}
		return s, nil

	case s.keys.IsConfirm(msg), s.keys.IsToggle(msg), s.keys.IsRight(msg):
		if len(s.items[s.selected].options) == 0 {
			return s.startEdit()
		}
		return s.cycle(1)

	case s.keys.IsLeft(msg):
		if len(s.items[s.selected].options) == 0 {
			return s, nil
		}
		return s.cycle(-1)
	}

	return s, nil
}

func (s Settings) startEdit() (tea.Model, tea.Cmd) {
	s.editing = true
	s.input.SetValue(s.items[s.selected].text)
	s.input.CursorEnd()
	s.input.Focus()
	return s, textinput.Blink
}

func (s Settings) cycle(step int) (tea.Model, tea.Cmd) {
	s.items = append([]settingItem(nil), s.items...)
	item := &s.items[s.selected]
	n := len(item.options)
	item.current = ((item.current+step)%n + n) % n

	key := item.key
	value := item.options[item.current]
	if item.options[0] == onOff[0] {
		value = strconv.FormatBool(item.current == 1)
	}
	return s, func() tea.Msg {
		return SettingChangedMsg{Key: key, Value: value}
	}
}

// View implements tea.Model
func (s Settings) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(4)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	optionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	selectedOptionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	output := titleStyle.Render("Settings") + "\n\n"

	if len(s.items) == 0 {
		return output + itemStyle.Render("Settings are loading.") + "\n"
	}

	for i, item := range s.items {
		cursor := "  "
		style := itemStyle

		if i == s.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		value := item.text
		if len(item.options) > 0 {
			value = item.options[item.current]
		}
		if i == s.selected && s.editing {
			value = s.input.View()
		} else {
			value = valueStyle.Render(value)
		}
		output += style.Render(fmt.Sprintf("%s%s:", cursor, item.name)) + " " + value + "\n"

		if i == s.selected {
			output += descStyle.Render(item.description) + "\n"
			if len(item.options) > 0 {
				optionsLine := "    Options: "
				for j, opt := range item.options {
					if j == item.current {
						optionsLine += selectedOptionStyle.Render("[" + opt + "]")
					} else {
						optionsLine += optionStyle.Render(" " + opt + " ")
					}
				}
				output += optionsLine + "\n"
			}
		}
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	if s.editing {
		output += helpStyle.Render("enter: save  esc: cancel")
	} else {
		output += helpStyle.Render("↑/↓: navigate  ←/→ or enter: change value")
	}

	return output
}
