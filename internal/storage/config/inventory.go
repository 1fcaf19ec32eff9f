package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modrand/internal/domain"

	"gopkg.in/yaml.v3"
)

// InventoryFile is the top-level structure of a declared mod inventory
// (mods.yaml). It lets users list mods that no extensions directory reports.
type InventoryFile struct {
	Mods []domain.Mod `yaml:"mods"`
}

// LoadInventory reads a declared mod inventory. A missing file yields an empty list.
func LoadInventory(path string) ([]domain.Mod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	var file InventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}

	mods := make([]domain.Mod, 0, len(file.Mods))
	seen := make(map[string]bool, len(file.Mods))
	for i, m := range file.Mods {
		if m.ID == "" {
			return nil, fmt.Errorf("inventory entry %d: missing id", i+1)
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		mods = append(mods, m)
	}

	return mods, nil
}

// SaveInventory writes a declared mod inventory
func SaveInventory(path string, mods []domain.Mod) error {
	data, err := yaml.Marshal(&InventoryFile{Mods: mods})
	if err != nil {
		return fmt.Errorf("marshaling inventory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating inventory dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}

	return nil
}
