package permission

import (
	"fmt"

	"github.com/tellus-gis/tellus/internal/shared"
)

// Action is an atomic right on a target, stored as one bit so collections can
// be combined and tested with mask arithmetic.
type Action uint8

const (
	ActionCreate Action = 1 << iota
	ActionRead
	ActionUpdate
	ActionDelete
	ActionAdmin
)

var actionNames = map[string]Action{
	"CREATE": ActionCreate,
	"READ":   ActionRead,
	"UPDATE": ActionUpdate,
	"DELETE": ActionDelete,
	"ADMIN":  ActionAdmin,
}

var actionOrder = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionAdmin}

// ParseAction maps an action name to its bit. Unknown names return
// shared.ErrNotFound; the evaluator treats them as an immediate deny.
func ParseAction(name string) (Action, error) {
	action, ok := actionNames[name]
	if !ok {
		return 0, fmt.Errorf("permission: action %q: %w", name, shared.ErrNotFound)
	}
	return action, nil
}

// String returns the canonical name of a single action bit.
func (a Action) String() string {
	for name, action := range actionNames {
		if action == a {
			return name
		}
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

// CollectionName identifies a registered permission collection. The set of
// names is fixed at deployment time and not extensible at runtime.
type CollectionName string

const (
	CollectionRead      CollectionName = "READ"
	CollectionReadWrite CollectionName = "READ_WRITE"
	CollectionAdmin     CollectionName = "ADMIN"
)

// Collection is an immutable named bundle of actions. The zero value grants
// nothing; services return it when no record exists for a pair.
type Collection struct {
	name    CollectionName
	actions Action
}

// Name returns the registered name, or "" for the empty collection.
func (c Collection) Name() CollectionName { return c.name }

// Actions returns the granted action mask.
func (c Collection) Actions() Action { return c.actions }

// Grants reports whether every bit of the requested action is granted.
func (c Collection) Grants(action Action) bool {
	return action != 0 && c.actions&action == action
}

// IsEmpty reports whether the collection grants no action at all.
func (c Collection) IsEmpty() bool { return c.actions == 0 }

// ActionNames returns the names of the granted actions in canonical order.
func (c Collection) ActionNames() []string {
	names := make([]string, 0, len(actionOrder))
	for _, action := range actionOrder {
		if c.actions&action == action {
			names = append(names, action.String())
		}
	}
	return names
}

// The registry forms a strict chain: READ ⊂ READ_WRITE ⊂ ADMIN. READ_WRITE
// deliberately excludes DELETE; removing an entity requires ADMIN.
var collections = map[CollectionName]Collection{
	CollectionRead: {
		name:    CollectionRead,
		actions: ActionRead,
	},
	CollectionReadWrite: {
		name:    CollectionReadWrite,
		actions: ActionCreate | ActionRead | ActionUpdate,
	},
	CollectionAdmin: {
		name:    CollectionAdmin,
		actions: ActionCreate | ActionRead | ActionUpdate | ActionDelete | ActionAdmin,
	},
}

// ResolveCollection looks up a collection by name. Write paths call this
// before touching any record so that a grant with an unknown name fails fast
// instead of persisting a record with no effective rights.
func ResolveCollection(name CollectionName) (Collection, error) {
	collection, ok := collections[name]
	if !ok {
		return Collection{}, fmt.Errorf("permission: collection %q: %w", name, shared.ErrNotFound)
	}
	return collection, nil
}
