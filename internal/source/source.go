// Package source provides the inventory of mods actually installed on the host.
package source

import (
	"context"

	"modrand/internal/domain"
)

// InventorySource reports the mods currently present. It is the ground
// truth for whether an id exists.
type InventorySource interface {
	// Identity
	ID() string
	Name() string

	// Detect lists the mods present right now, in a stable order.
	Detect(ctx context.Context) ([]domain.Mod, error)
}
