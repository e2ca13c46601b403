package permission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// GroupClassService manages class-wide permissions of groups.
type GroupClassService struct {
	store    GroupClassStore
	resolver GroupResolver
	logger   *slog.Logger
}

// NewGroupClassService constructs a GroupClassService.
func NewGroupClassService(store GroupClassStore, resolver GroupResolver, logger *slog.Logger) *GroupClassService {
	return &GroupClassService{store: store, resolver: resolver, logger: logger}
}

// FindForGroup returns all group class permissions owned by the group.
func (s *GroupClassService) FindForGroup(ctx context.Context, group *identity.Group) ([]GroupClassPermission, error) {
	return s.store.FindByGroup(ctx, group.ID)
}

// FindForClass returns all group class permissions referencing the class.
func (s *GroupClassService) FindForClass(ctx context.Context, className string) ([]GroupClassPermission, error) {
	return s.store.FindByClass(ctx, className)
}

// FindFor returns the single permission for the (class, group) pair, or
// shared.ErrNotFound.
func (s *GroupClassService) FindFor(ctx context.Context, className string, group *identity.Group) (*GroupClassPermission, error) {
	return s.store.Find(ctx, className, group.ID)
}

// FindForUser returns the permission of the first of the user's groups that
// holds one on the class. The resolver's group order decides which grant wins;
// grants of later groups are never consulted.
func (s *GroupClassService) FindForUser(ctx context.Context, className string, user *identity.User) (*GroupClassPermission, error) {
	groups, err := s.resolver.GroupsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		record, err := s.store.Find(ctx, className, group.ID)
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

// FindForInGroup returns the permission for the (class, group) pair, but only
// if the user is currently a member of the group.
func (s *GroupClassService) FindForInGroup(ctx context.Context, className string, group *identity.Group, user *identity.User) (*GroupClassPermission, error) {
	member, err := s.resolver.IsMember(ctx, user, group)
	if err != nil {
		return nil, err
	}
	if !member {
		s.logger.Debug("user is not a member of group, no permissions available",
			slog.Int64("user", user.ID), slog.Int64("group", group.ID))
		return nil, shared.ErrNotFound
	}
	return s.FindFor(ctx, className, group)
}

// CollectionFor returns the effective collection for the (class, group) pair.
func (s *GroupClassService) CollectionFor(ctx context.Context, className string, group *identity.Group) (Collection, error) {
	return collectionOf(s.FindFor(ctx, className, group))
}

// CollectionForUser returns the effective collection for the class via the
// user's groups, first match.
func (s *GroupClassService) CollectionForUser(ctx context.Context, className string, user *identity.User) (Collection, error) {
	return collectionOf(s.FindForUser(ctx, className, user))
}

// SetPermission grants the named collection to the group on the class,
// replacing any existing grant for the pair.
func (s *GroupClassService) SetPermission(ctx context.Context, className string, group *identity.Group, name CollectionName) error {
	if _, err := ResolveCollection(name); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st GroupClassStore) error {
		existing, err := st.Find(ctx, className, group.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			s.logger.Debug("replacing group class permission",
				slog.String("class", className),
				slog.Int64("group", group.ID),
				slog.String("collection", string(existing.CollectionName)))
			if err := st.Delete(ctx, existing); err != nil {
				return err
			}
		}
		return st.Save(ctx, &GroupClassPermission{
			ClassName:      className,
			GroupID:        group.ID,
			CollectionName: name,
		})
	})
}

// DeleteFor removes the permission for the (class, group) pair. Deleting a
// non-existent permission is a no-op.
func (s *GroupClassService) DeleteFor(ctx context.Context, className string, group *identity.Group) error {
	record, err := s.FindFor(ctx, className, group)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("no group class permission to delete",
				slog.String("class", className), slog.Int64("group", group.ID))
			return nil
		}
		return err
	}
	return s.store.Delete(ctx, record)
}

// DeleteAllFor removes every group class permission referencing the class.
func (s *GroupClassService) DeleteAllFor(ctx context.Context, className string) error {
	records, err := s.FindForClass(ctx, className)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAll(ctx, records); err != nil {
		return err
	}
	s.logger.Info("deleted group class permissions",
		slog.String("class", className), slog.Int("count", len(records)))
	return nil
}
