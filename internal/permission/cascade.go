package permission

import (
	"context"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
)

// Cascade removes every permission record referencing a deleted entity, user,
// or group. Each cascade runs in a single transaction so a failure cannot
// leave some variants cleaned and others dangling; callers must run it before
// removing the owning row.
type Cascade struct {
	runner TxRunner
	logger *slog.Logger
}

// NewCascade constructs a Cascade.
func NewCascade(runner TxRunner, logger *slog.Logger) *Cascade {
	return &Cascade{runner: runner, logger: logger}
}

// DeleteAllForEntity removes all four record variants referencing the entity
// or its class.
func (c *Cascade) DeleteAllForEntity(ctx context.Context, entity Entity) error {
	err := c.runner.InTx(ctx, func(s StoreSet) error {
		userInstance, err := s.UserInstance.FindByEntity(ctx, entity.EntityID())
		if err != nil {
			return err
		}
		if err := s.UserInstance.DeleteAll(ctx, userInstance); err != nil {
			return err
		}

		groupInstance, err := s.GroupInstance.FindByEntity(ctx, entity.EntityID())
		if err != nil {
			return err
		}
		if err := s.GroupInstance.DeleteAll(ctx, groupInstance); err != nil {
			return err
		}

		userClass, err := s.UserClass.FindByClass(ctx, entity.EntityClass())
		if err != nil {
			return err
		}
		if err := s.UserClass.DeleteAll(ctx, userClass); err != nil {
			return err
		}

		groupClass, err := s.GroupClass.FindByClass(ctx, entity.EntityClass())
		if err != nil {
			return err
		}
		return s.GroupClass.DeleteAll(ctx, groupClass)
	})
	if err != nil {
		return err
	}
	c.logger.Info("cascaded permission delete for entity",
		slog.Int64("entity", entity.EntityID()), slog.String("class", entity.EntityClass()))
	return nil
}

// DeleteAllForUser removes all permission records owned by the user.
func (c *Cascade) DeleteAllForUser(ctx context.Context, user *identity.User) error {
	err := c.runner.InTx(ctx, func(s StoreSet) error {
		instance, err := s.UserInstance.FindByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if err := s.UserInstance.DeleteAll(ctx, instance); err != nil {
			return err
		}

		class, err := s.UserClass.FindByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		return s.UserClass.DeleteAll(ctx, class)
	})
	if err != nil {
		return err
	}
	c.logger.Info("cascaded permission delete for user", slog.Int64("user", user.ID))
	return nil
}

// DeleteAllForGroup removes all permission records owned by the group.
func (c *Cascade) DeleteAllForGroup(ctx context.Context, group *identity.Group) error {
	err := c.runner.InTx(ctx, func(s StoreSet) error {
		instance, err := s.GroupInstance.FindByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		if err := s.GroupInstance.DeleteAll(ctx, instance); err != nil {
			return err
		}

		class, err := s.GroupClass.FindByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		return s.GroupClass.DeleteAll(ctx, class)
	})
	if err != nil {
		return err
	}
	c.logger.Info("cascaded permission delete for group", slog.Int64("group", group.ID))
	return nil
}
