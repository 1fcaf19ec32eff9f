package core

import (
	"context"

	"modrand/internal/background"
)

// Collaborator owns profile membership. The core never writes the profiles
// key through it except via these calls; background.Agent implements it.
type Collaborator interface {
	GetExtensions(ctx context.Context) (background.Extensions, error)
	SaveModExtensionIDs(ctx context.Context, ids []string, profile string) background.Response
	CreateProfile(ctx context.Context, name string) background.Response
	RenameProfile(ctx context.Context, oldName, newName string) background.Response
	DeleteProfile(ctx context.Context, name string) background.Response
	SetActiveProfile(ctx context.Context, name string) background.Response
}

var _ Collaborator = (*background.Agent)(nil)
