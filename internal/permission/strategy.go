package permission

import (
	"context"
	"errors"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// DefaultStrategy composes the four grant layers in fixed precedence order:
// user instance, group instance, user class, group class. The first layer
// holding any record for the principal decides; later layers are not
// consulted even when the deciding collection does not grant the action.
// With no grant at any layer the answer is deny.
type DefaultStrategy struct {
	userInstance  *UserInstanceService
	groupInstance *GroupInstanceService
	userClass     *UserClassService
	groupClass    *GroupClassService
}

// NewDefaultStrategy constructs a DefaultStrategy.
func NewDefaultStrategy(
	userInstance *UserInstanceService,
	groupInstance *GroupInstanceService,
	userClass *UserClassService,
	groupClass *GroupClassService,
) *DefaultStrategy {
	return &DefaultStrategy{
		userInstance:  userInstance,
		groupInstance: groupInstance,
		userClass:     userClass,
		groupClass:    groupClass,
	}
}

// Evaluate implements Strategy.
func (d *DefaultStrategy) Evaluate(ctx context.Context, user *identity.User, entity Entity, action Action) (bool, error) {
	if record, err := d.userInstance.FindFor(ctx, entity, user); err == nil {
		return grants(record, action)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}

	if record, err := d.groupInstance.FindForUser(ctx, entity, user); err == nil {
		return grants(record, action)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}

	if record, err := d.userClass.FindFor(ctx, entity.EntityClass(), user); err == nil {
		return grants(record, action)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}

	if record, err := d.groupClass.FindForUser(ctx, entity.EntityClass(), user); err == nil {
		return grants(record, action)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}

	return false, nil
}

func grants(record Record, action Action) (bool, error) {
	collection, err := resolveStored(record.Collection())
	if err != nil {
		return false, err
	}
	return collection.Grants(action), nil
}

var _ Strategy = (*DefaultStrategy)(nil)

// PublicReadStrategy allows READ for every authenticated user and defers all
// other actions to the wrapped strategy. Register it for entity classes whose
// instances are publicly readable.
type PublicReadStrategy struct {
	Next Strategy
}

// Evaluate implements Strategy.
func (p PublicReadStrategy) Evaluate(ctx context.Context, user *identity.User, entity Entity, action Action) (bool, error) {
	if action == ActionRead {
		return true, nil
	}
	return p.Next.Evaluate(ctx, user, entity, action)
}

var _ Strategy = PublicReadStrategy{}
