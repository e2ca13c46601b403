package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// GroupResolver answers group-membership questions against the external
// identity provider. GroupsOf must return a stable order across calls: the
// first-match fan-out consults exactly one group's grant, so the order decides
// which grant wins.
type GroupResolver interface {
	GroupsOf(ctx context.Context, user *identity.User) ([]identity.Group, error)
	IsMember(ctx context.Context, user *identity.User, group *identity.Group) (bool, error)
}

// UserDirectory resolves the user IDs carried by permission records back to
// users, for the owner lookup.
type UserDirectory interface {
	UserByID(ctx context.Context, id int64) (*identity.User, error)
}

// collectionOf turns a single-record lookup result into an effective
// collection: absence of a grant is the empty collection, never an error.
func collectionOf[T Record](record T, err error) (Collection, error) {
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Collection{}, nil
		}
		return Collection{}, err
	}
	return resolveStored(record.Collection())
}

// resolveStored resolves the collection name carried by a persisted record. A
// record referencing an unregistered name cannot have been written through the
// service layer, so this is a data-integrity failure, not a lookup miss.
func resolveStored(name CollectionName) (Collection, error) {
	collection, err := ResolveCollection(name)
	if err != nil {
		return Collection{}, fmt.Errorf("permission: stored collection %q unregistered: %w", name, shared.ErrIntegrity)
	}
	return collection, nil
}
