package provisioning

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by configuration, providers, and the executor.
// Providers wrap these with fmt.Errorf so callers can match with errors.Is.
var (
	// ErrInvalidIdentifier marks a malformed tenant, owner, team, or namespace name.
	// It is always raised before any remote call.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrAlreadyExists marks a remote name collision the adopt policy refused.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrTeamNotFound marks a GitHub team that does not exist in the owner organization.
	ErrTeamNotFound = errors.New("team not found")

	// ErrNamespaceConflict marks a namespace or binding already owned by someone else.
	ErrNamespaceConflict = errors.New("namespace conflict")

	// ErrDependencyNotReady marks an attempt to use a resource before its
	// declared dependency resolved.
	ErrDependencyNotReady = errors.New("dependency not ready")

	// ErrNameCollision marks two declarations deriving the same resource name.
	ErrNameCollision = errors.New("resource name collision")
)

// ResourceError identifies the resource and scope a failure belongs to.
type ResourceError struct {
	ID    ID
	Kind  string
	Scope string
	Err   error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Scope, e.Kind, e.ID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
