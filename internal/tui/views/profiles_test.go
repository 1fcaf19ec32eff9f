package views_test

import (
	"testing"

	"modrand/internal/domain"
	"modrand/internal/tui"
	"modrand/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfiles() []views.ProfileInfo {
	return []views.ProfileInfo{
		{Name: "Default", ModCount: 2},
		{Name: "Work", ModCount: 0},
	}
}

func typeText(t *testing.T, m tea.Model, s string) tea.Model {
	t.Helper()
	for _, r := range s {
		m, _ = m.Update(keyRunes(string(r)))
	}
	return m
}

func TestProfiles_InitialState(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Work", "Default")

	assert.Equal(t, 2, model.ProfileCount())
	assert.Equal(t, 1, model.Selected(), "cursor starts on the shown profile")
	assert.False(t, model.IsCreating())

	view := model.View()
	assert.Contains(t, view, "Default")
	assert.Contains(t, view, "[active]")
	assert.Contains(t, view, "[shown]")
	assert.Contains(t, view, "Enabled mods: 0")
}

func TestProfilesFrom(t *testing.T) {
	infos := views.ProfilesFrom(domain.Profiles{"work": {"a"}, "Default": {"a", "b"}})

	assert.Equal(t, []views.ProfileInfo{{Name: "Default", ModCount: 2}, {Name: "work", ModCount: 1}}, infos)
}

func TestProfiles_Switch(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Default", "Default")

	m, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(views.SwitchProfileMsg)
	require.True(t, ok)
	assert.Equal(t, "Work", msg.Name)
}

func TestProfiles_Create(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Default", "Default")

	m, _ := model.Update(keyRunes("n"))
	require.True(t, m.(views.Profiles).IsCreating())
	require.True(t, m.(views.Profiles).Capturing())

	m = typeText(t, m, "Travel")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.(views.Profiles).IsCreating())

	msg, ok := cmd().(views.CreateProfileMsg)
	require.True(t, ok)
	assert.Equal(t, "Travel", msg.Name)
}

func TestProfiles_CreateBlankStaysOpen(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Default", "Default")

	m, _ := model.Update(keyRunes("n"))
	m = typeText(t, m, "   ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, m.(views.Profiles).IsCreating())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.(views.Profiles).Capturing())
}

func TestProfiles_Rename(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Work", "Default")

	m, _ := model.Update(keyRunes("R"))
	// prefilled with the old name
	assert.Contains(t, m.View(), "Work")

	m = typeText(t, m, "2")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(views.RenameProfileMsg)
	require.True(t, ok)
	assert.Equal(t, "Work", msg.Old)
	assert.Equal(t, "Work2", msg.New)
}

func TestProfiles_DeleteNeedsConfirmation(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Work", "Default")

	m, cmd := model.Update(keyRunes("d"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), `Delete profile "Work"?`)

	_, cmd = m.Update(keyRunes("y"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(views.DeleteProfileMsg)
	require.True(t, ok)
	assert.Equal(t, "Work", msg.Name)
}

func TestProfiles_DeleteDeclined(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Work", "Default")

	m, _ := model.Update(keyRunes("d"))
	m, cmd := m.Update(keyRunes("n"))

	assert.Nil(t, cmd)
	assert.False(t, m.(views.Profiles).Capturing())
}

func TestProfiles_ImportExport(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Default", "Default")

	m, _ := model.Update(keyRunes("i"))
	m = typeText(t, m, "in.json")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	imp, ok := cmd().(views.ImportProfilesMsg)
	require.True(t, ok)
	assert.Equal(t, "in.json", imp.Path)

	// export defaults to the working directory
	m, _ = model.Update(keyRunes("e"))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	exp, ok := cmd().(views.ExportProfilesMsg)
	require.True(t, ok)
	assert.Equal(t, ".", exp.Path)
}

func TestProfiles_SetProfilesKeepsCursor(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Work", "Default")
	require.Equal(t, "Work", model.SelectedProfile().Name)

	model = model.SetProfiles([]views.ProfileInfo{{Name: "Alpha"}, {Name: "Default"}, {Name: "Work"}}, "Work", "Default")
	assert.Equal(t, 2, model.Selected())
}

func TestProfiles_EmptyList(t *testing.T) {
	model := views.NewProfiles(tui.NewKeyMap("vim"), nil, "", "")

	assert.Contains(t, model.View(), "No profiles")
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
