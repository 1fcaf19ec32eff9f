// Package static serves a mod inventory declared in a YAML file.
package static

import (
	"context"

	"modrand/internal/domain"
	"modrand/internal/storage/config"
)

// Source reads mods.yaml on every Detect so edits are picked up without a restart
type Source struct {
	path string
}

// New creates a source for the inventory file at path
func New(path string) *Source {
	return &Source{path: path}
}

// ID returns the source identifier
func (s *Source) ID() string { return "static" }

// Name returns the display name
func (s *Source) Name() string { return "Declared inventory" }

// Detect returns the mods listed in the file, or none if it does not exist.
func (s *Source) Detect(ctx context.Context) ([]domain.Mod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return config.LoadInventory(s.path)
}
