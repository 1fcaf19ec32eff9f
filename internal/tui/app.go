package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"modrand/internal/core"
	"modrand/internal/domain"
	"modrand/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewMods ViewType = iota
	ViewProfiles
	ViewSettings
)

var viewTabs = []string{"[1]Mods", "[2]Profiles", "[3]Settings"}

// NavigateMsg is sent to change views
type NavigateMsg struct {
	View ViewType
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// RenderMsg carries a view produced by the session. Rendered is false when
// the render was suppressed and View is the last one shown.
type RenderMsg struct {
	View     core.View
	Rendered bool
	Err      error
}

type profilesLoadedMsg struct {
	profiles []views.ProfileInfo
	current  string
	active   string
}

type settingsLoadedMsg struct {
	values map[string]any
}

type actionDoneMsg struct {
	status   string
	err      error
	showMods bool
}

const actionTimeout = 10 * time.Second

// App is the main TUI application model
type App struct {
	service     *core.Service
	keys        *KeyMap
	currentView ViewType
	width       int
	height      int
	err         error
	status      string
	showHelp    bool

	mods     views.Installed
	profiles views.Profiles
	settings views.Settings
}

// NewApp creates a new TUI application
func NewApp(service *core.Service) App {
	mode := ""
	if service != nil {
		mode = service.Config().Keybindings
	}
	keys := NewKeyMap(mode)

	return App{
		service:     service,
		keys:        keys,
		currentView: ViewMods,
		width:       80,
		height:      24,
		mods:        views.NewInstalled(keys, core.View{}),
		profiles:    views.NewProfiles(keys, nil, "", ""),
		settings:    views.NewSettings(keys, nil),
	}
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	if a.service == nil {
		return nil
	}
	return tea.Sequence(a.openSession(), tea.Batch(a.loadProfiles(), a.loadSettings()))
}

func (a App) openSession() tea.Cmd {
	session := a.service.Session()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		view, err := session.Open(ctx)
		return RenderMsg{View: view, Rendered: err == nil, Err: err}
	}
}

func (a App) loadProfiles() tea.Cmd {
	if a.service == nil {
		return nil
	}
	svc := a.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		profiles, active, err := svc.Profiles().List(ctx)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("listing profiles: %w", err)}
		}
		return profilesLoadedMsg{
			profiles: views.ProfilesFrom(profiles),
			current:  svc.Session().Current(),
			active:   active,
		}
	}
}

func (a App) loadSettings() tea.Cmd {
	if a.service == nil {
		return nil
	}
	settings := a.service.Settings()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		values, err := settings.All(ctx)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("reading settings: %w", err)}
		}
		return settingsLoadedMsg{values: values}
	}
}

// edit runs a checklist edit; edits are in-memory and return at once.
func (a App) edit(fn func(*core.Session) (core.View, error)) tea.Cmd {
	if a.service == nil {
		return nil
	}
	session := a.service.Session()
	return func() tea.Msg {
		view, err := fn(session)
		return RenderMsg{View: view, Rendered: err == nil, Err: err}
	}
}

// action runs a profile or settings operation and reports its outcome.
func (a App) action(fn func(context.Context, *core.Service) (string, error)) tea.Cmd {
	if a.service == nil {
		return nil
	}
	svc := a.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		status, err := fn(ctx, svc)
		return actionDoneMsg{status: status, err: err}
	}
}

// showMods makes a successful action return to the mod list
func showMods(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		done, ok := cmd().(actionDoneMsg)
		if !ok {
			return nil
		}
		done.showMods = true
		return done
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		a.err = nil
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		m, _ := a.mods.Update(msg)
		a.mods = m.(views.Installed)
		p, _ := a.profiles.Update(msg)
		a.profiles = p.(views.Profiles)
		s, _ := a.settings.Update(msg)
		a.settings = s.(views.Settings)
		return a, nil

	case NavigateMsg:
		a.currentView = msg.View
		return a, nil

	case ErrorMsg:
		a.err = msg.Err
		return a, nil

	case RenderMsg:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		if !msg.Rendered {
			return a, nil
		}
		a.mods = a.mods.SetView(msg.View)
		return a, a.loadProfiles()

	case profilesLoadedMsg:
		a.profiles = a.profiles.SetProfiles(msg.profiles, msg.current, msg.active)
		return a, nil

	case settingsLoadedMsg:
		a.settings = a.settings.SetValues(msg.values)
		return a, nil

	case actionDoneMsg:
		if msg.err != nil {
			a.err = msg.err
			a.status = ""
		} else {
			a.err = nil
			a.status = msg.status
			if msg.showMods {
				a.currentView = ViewMods
			}
		}
		if a.service == nil {
			return a, nil
		}
		view := a.service.Session().View()
		return a, tea.Batch(
			func() tea.Msg { return RenderMsg{View: view, Rendered: true} },
			a.loadSettings(),
		)

	case views.ToggleModMsg:
		return a, a.edit(func(s *core.Session) (core.View, error) { return s.Toggle(msg.ID) })

	case views.ToggleAllMsg:
		return a, a.edit((*core.Session).ToggleAll)

	case views.ReverseAllMsg:
		return a, a.edit((*core.Session).ReverseAll)

	case views.SwitchProfileMsg:
		return a, showMods(a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			if err := svc.Profiles().Switch(ctx, msg.Name); err != nil {
				if errors.Is(err, domain.ErrRenderSuppressed) {
					return "", fmt.Errorf("saving changes, try again in a moment")
				}
				return "", err
			}
			return fmt.Sprintf("Showing profile %s", msg.Name), nil
		}))

	case views.CreateProfileMsg:
		return a, a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			name, err := svc.Profiles().Create(ctx, msg.Name)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Created profile %s", name), nil
		})

	case views.RenameProfileMsg:
		return a, a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			name, err := svc.Profiles().Rename(ctx, msg.Old, msg.New)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Renamed %s to %s", msg.Old, name), nil
		})

	case views.DeleteProfileMsg:
		return a, a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			if err := svc.Profiles().Delete(ctx, msg.Name); err != nil {
				return "", err
			}
			return fmt.Sprintf("Deleted profile %s", msg.Name), nil
		})

	case views.ImportProfilesMsg:
		return a, a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			res, err := svc.ImportFile(ctx, msg.Path)
			if err != nil {
				return "", err
			}
			return importSummary(res), nil
		})

	case views.ExportProfilesMsg:
		return a, a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			path, err := svc.ExportFile(ctx, msg.Path, time.Now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Exported profiles to %s", path), nil
		})

	case views.SettingChangedMsg:
		return a, a.action(func(ctx context.Context, svc *core.Service) (string, error) {
			if err := svc.Settings().Set(ctx, msg.Key, msg.Value); err != nil {
				return "", err
			}
			return "Settings saved", nil
		})
	}

	// Delegate to current view's model
	return a.updateCurrentView(msg)
}

func importSummary(res domain.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d profile(s)", len(res.Imported))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, ", skipped %s", strings.Join(res.Skipped, ", "))
	}
	missing := 0
	for _, names := range res.MissingMods {
		missing += len(names)
	}
	if missing > 0 {
		fmt.Fprintf(&b, ", %d mod(s) not installed", missing)
	}
	return b.String()
}

// capturing reports whether the current view owns every key
func (a App) capturing() bool {
	switch a.currentView {
	case ViewMods:
		return a.mods.Filtering()
	case ViewProfiles:
		return a.profiles.Capturing()
	case ViewSettings:
		return a.settings.Editing()
	}
	return false
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}
	if a.capturing() {
		return a.updateCurrentView(msg)
	}

	// Global keybindings
	switch {
	case a.keys.IsQuit(msg):
		return a, tea.Quit

	case a.keys.IsHelp(msg):
		a.showHelp = !a.showHelp
		return a, nil

	case a.keys.IsNextView(msg):
		a.currentView = (a.currentView + 1) % ViewType(len(viewTabs))
		return a, nil
	}

	switch msg.String() {
	case "1":
		a.currentView = ViewMods
		return a, nil

	case "2":
		a.currentView = ViewProfiles
		return a, nil

	case "3":
		a.currentView = ViewSettings
		return a, nil
	}

	// Delegate to current view
	return a.updateCurrentView(msg)
}

func (a App) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var m tea.Model
	var cmd tea.Cmd

	switch a.currentView {
	case ViewMods:
		m, cmd = a.mods.Update(msg)
		a.mods = m.(views.Installed)
	case ViewProfiles:
		m, cmd = a.profiles.Update(msg)
		a.profiles = m.(views.Profiles)
	case ViewSettings:
		m, cmd = a.settings.Update(msg)
		a.settings = m.(views.Settings)
	}

	return a, cmd
}

// View implements tea.Model
func (a App) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	tabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	activeTabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	header := titleStyle.Render("modrand - Mod Randomizer")

	tabBar := ""
	for i, tab := range viewTabs {
		if ViewType(i) == a.currentView {
			tabBar += activeTabStyle.Render(tab) + "  "
		} else {
			tabBar += tabStyle.Render(tab) + "  "
		}
	}

	content := a.renderCurrentView()
	if a.showHelp {
		content = a.keys.FullHelp()
	}

	statusLine := ""
	if a.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		statusLine = errStyle.Render(fmt.Sprintf("Error: %v", a.err))
	} else if a.status != "" {
		okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
		statusLine = okStyle.Render(a.status)
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	footer := footerStyle.Render("q: quit  ?: help  tab: next view  " + a.keys.NavigationHelp())

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n%s", header, tabBar, content, statusLine, footer)
}

func (a App) renderCurrentView() string {
	switch a.currentView {
	case ViewMods:
		return a.mods.View()
	case ViewProfiles:
		return a.profiles.View()
	case ViewSettings:
		return a.settings.View()
	default:
		return "Unknown view"
	}
}

// Run starts the TUI application and feeds it store changes until it exits
func Run(ctx context.Context, service *core.Service) error {
	p := tea.NewProgram(NewApp(service), tea.WithAltScreen(), tea.WithContext(ctx))

	stop := service.Watch(ctx, func(view core.View, rendered bool, err error) {
		p.Send(RenderMsg{View: view, Rendered: rendered, Err: err})
	})
	defer stop()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
