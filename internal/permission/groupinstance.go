package permission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// GroupInstanceService manages permissions of groups on single entities.
type GroupInstanceService struct {
	store    GroupInstanceStore
	resolver GroupResolver
	logger   *slog.Logger
}

// NewGroupInstanceService constructs a GroupInstanceService.
func NewGroupInstanceService(store GroupInstanceStore, resolver GroupResolver, logger *slog.Logger) *GroupInstanceService {
	return &GroupInstanceService{store: store, resolver: resolver, logger: logger}
}

// FindForGroup returns all group instance permissions owned by the group.
func (s *GroupInstanceService) FindForGroup(ctx context.Context, group *identity.Group) ([]GroupInstancePermission, error) {
	return s.store.FindByGroup(ctx, group.ID)
}

// FindForEntity returns all group instance permissions referencing the entity.
func (s *GroupInstanceService) FindForEntity(ctx context.Context, entity Entity) ([]GroupInstancePermission, error) {
	return s.store.FindByEntity(ctx, entity.EntityID())
}

// FindFor returns the single permission for the (entity, group) pair, or
// shared.ErrNotFound.
func (s *GroupInstanceService) FindFor(ctx context.Context, entity Entity, group *identity.Group) (*GroupInstancePermission, error) {
	return s.store.Find(ctx, entity.EntityID(), group.ID)
}

// FindForUser returns the permission of the first of the user's groups that
// holds one on the entity. The resolver's group order decides which grant
// wins; grants of later groups are never consulted.
func (s *GroupInstanceService) FindForUser(ctx context.Context, entity Entity, user *identity.User) (*GroupInstancePermission, error) {
	groups, err := s.resolver.GroupsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		record, err := s.store.Find(ctx, entity.EntityID(), group.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		return record, nil
	}
	return nil, shared.ErrNotFound
}

// FindForInGroup returns the permission for the (entity, group) pair, but only
// if the user is currently a member of the group. A lapsed membership yields
// shared.ErrNotFound even when the record still exists.
func (s *GroupInstanceService) FindForInGroup(ctx context.Context, entity Entity, group *identity.Group, user *identity.User) (*GroupInstancePermission, error) {
	member, err := s.resolver.IsMember(ctx, user, group)
	if err != nil {
		return nil, err
	}
	if !member {
		s.logger.Debug("user is not a member of group, no permissions available",
			slog.Int64("user", user.ID), slog.Int64("group", group.ID))
		return nil, shared.ErrNotFound
	}
	return s.FindFor(ctx, entity, group)
}

// CollectionFor returns the effective collection for the (entity, group) pair.
func (s *GroupInstanceService) CollectionFor(ctx context.Context, entity Entity, group *identity.Group) (Collection, error) {
	return collectionOf(s.FindFor(ctx, entity, group))
}

// CollectionForUser returns the effective collection for the entity via the
// user's groups, first match.
func (s *GroupInstanceService) CollectionForUser(ctx context.Context, entity Entity, user *identity.User) (Collection, error) {
	return collectionOf(s.FindForUser(ctx, entity, user))
}

// CollectionForInGroup returns the effective collection for the (entity,
// group) pair gated on current membership of the user.
func (s *GroupInstanceService) CollectionForInGroup(ctx context.Context, entity Entity, group *identity.Group, user *identity.User) (Collection, error) {
	return collectionOf(s.FindForInGroup(ctx, entity, group, user))
}

// SetPermission grants the named collection to the group on the entity,
// replacing any existing grant for the pair.
func (s *GroupInstanceService) SetPermission(ctx context.Context, entity Entity, group *identity.Group, name CollectionName) error {
	if _, err := ResolveCollection(name); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st GroupInstanceStore) error {
		return s.replace(ctx, st, entity, group, name)
	})
}

// SetPermissionAll grants the named collection to the group on every entity in
// one transaction.
func (s *GroupInstanceService) SetPermissionAll(ctx context.Context, entities []Entity, group *identity.Group, name CollectionName) error {
	if _, err := ResolveCollection(name); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st GroupInstanceStore) error {
		for _, entity := range entities {
			if err := s.replace(ctx, st, entity, group, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GroupInstanceService) replace(ctx context.Context, st GroupInstanceStore, entity Entity, group *identity.Group, name CollectionName) error {
	existing, err := st.Find(ctx, entity.EntityID(), group.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil {
		s.logger.Debug("replacing group instance permission",
			slog.Int64("entity", entity.EntityID()),
			slog.Int64("group", group.ID),
			slog.String("collection", string(existing.CollectionName)))
		if err := st.Delete(ctx, existing); err != nil {
			return err
		}
	}
	return st.Save(ctx, &GroupInstancePermission{
		EntityID:       entity.EntityID(),
		GroupID:        group.ID,
		CollectionName: name,
	})
}

// DeleteFor removes the permission for the (entity, group) pair. Deleting a
// non-existent permission is a no-op.
func (s *GroupInstanceService) DeleteFor(ctx context.Context, entity Entity, group *identity.Group) error {
	record, err := s.FindFor(ctx, entity, group)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("no group instance permission to delete",
				slog.Int64("entity", entity.EntityID()), slog.Int64("group", group.ID))
			return nil
		}
		return err
	}
	return s.store.Delete(ctx, record)
}

// DeleteAllFor removes every group instance permission referencing the entity.
func (s *GroupInstanceService) DeleteAllFor(ctx context.Context, entity Entity) error {
	records, err := s.FindForEntity(ctx, entity)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAll(ctx, records); err != nil {
		return err
	}
	s.logger.Info("deleted group instance permissions",
		slog.Int64("entity", entity.EntityID()), slog.Int("count", len(records)))
	return nil
}
