package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrValidation       = errors.New("invalid input")
	ErrDuplicateProfile = errors.New("a profile with this name already exists")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrLastProfile      = errors.New("cannot delete the last profile")
	ErrCollaborator     = errors.New("collaborator call failed")
	ErrFormat           = errors.New("invalid profile file format")
	ErrNoProfiles       = errors.New("no profiles to export")
	ErrRenderSuppressed = errors.New("render suppressed while a save is in progress")
	ErrRandomizeAll     = errors.New("mod list is locked while randomize all mods is enabled")
	ErrModNotInList     = errors.New("mod not in list")
)

// CollaboratorError carries the message reported by a membership collaborator
// that answered with a non-success status.
type CollaboratorError struct {
	Op      string
	Message string
}

func (e *CollaboratorError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return ErrCollaborator
}

// ValidationError reports user input that was rejected before any state changed.
// Err optionally narrows the cause, e.g. ErrDuplicateProfile.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// DuplicateProfileError is the validation failure for a name clash.
func DuplicateProfileError(name string) error {
	return &ValidationError{Field: "profile " + strconv.Quote(name), Reason: "already exists", Err: ErrDuplicateProfile}
}
