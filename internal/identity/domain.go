package identity

import "time"

// User is a locally persisted mirror of an identity-provider user. The
// KeycloakID is the externally issued stable identifier; the surrogate ID is
// what permission records reference.
type User struct {
	ID         int64
	KeycloakID string
	Email      string
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Group is a locally persisted mirror of an identity-provider group. Group
// membership itself is never stored locally; it is resolved live against the
// provider.
type Group struct {
	ID         int64
	KeycloakID string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
