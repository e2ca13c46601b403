package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates that no authenticated principal is available.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrIntegrity indicates a violated persistence invariant, e.g. two live
	// permission records for one (target, principal) pair.
	ErrIntegrity = errors.New("data integrity violation")
)
