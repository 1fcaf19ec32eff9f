package domain

// UnknownModName labels an id that is neither detected nor recently uninstalled.
const UnknownModName = "Unknown Mod (not detected)"

// Mod is a browser mod reported by the inventory. Identity is ID; Name is display-only.
type Mod struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// UninstalledMod is the fallback label kept for a mod that recently disappeared
type UninstalledMod struct {
	Name string `json:"name"`
}

// UnknownLabel is the label used in import/export documents for an id without a name.
func UnknownLabel(id string) string {
	return "Unknown (" + id + ")"
}

// ModIDs returns the ids of mods in order.
func ModIDs(mods []Mod) []string {
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}
	return ids
}

// NameIndex maps mod ids to their display names.
func NameIndex(mods []Mod) map[string]string {
	idx := make(map[string]string, len(mods))
	for _, m := range mods {
		idx[m.ID] = m.Name
	}
	return idx
}
