package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// UserInstanceService manages permissions of single users on single entities.
type UserInstanceService struct {
	store  UserInstanceStore
	users  UserDirectory
	logger *slog.Logger
}

// NewUserInstanceService constructs a UserInstanceService.
func NewUserInstanceService(store UserInstanceStore, users UserDirectory, logger *slog.Logger) *UserInstanceService {
	return &UserInstanceService{store: store, users: users, logger: logger}
}

// FindForUser returns all user instance permissions owned by the user.
func (s *UserInstanceService) FindForUser(ctx context.Context, user *identity.User) ([]UserInstancePermission, error) {
	return s.store.FindByUser(ctx, user.ID)
}

// FindForEntity returns all user instance permissions referencing the entity.
func (s *UserInstanceService) FindForEntity(ctx context.Context, entity Entity) ([]UserInstancePermission, error) {
	return s.store.FindByEntity(ctx, entity.EntityID())
}

// FindFor returns the single permission for the (entity, user) pair, or
// shared.ErrNotFound.
func (s *UserInstanceService) FindFor(ctx context.Context, entity Entity, user *identity.User) (*UserInstancePermission, error) {
	return s.store.Find(ctx, entity.EntityID(), user.ID)
}

// CollectionFor returns the effective collection for the (entity, user) pair.
// Absence of a grant is the empty collection, never an error.
func (s *UserInstanceService) CollectionFor(ctx context.Context, entity Entity, user *identity.User) (Collection, error) {
	return collectionOf(s.FindFor(ctx, entity, user))
}

// SetPermission grants the named collection to the user on the entity,
// replacing any existing grant for the pair. The read-then-delete-then-insert
// sequence runs in one SERIALIZABLE transaction so two concurrent callers
// cannot both insert.
func (s *UserInstanceService) SetPermission(ctx context.Context, entity Entity, user *identity.User, name CollectionName) error {
	if _, err := ResolveCollection(name); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st UserInstanceStore) error {
		return s.replace(ctx, st, entity, user, name)
	})
}

// SetPermissionAll grants the named collection to the user on every entity in
// one transaction.
func (s *UserInstanceService) SetPermissionAll(ctx context.Context, entities []Entity, user *identity.User, name CollectionName) error {
	if _, err := ResolveCollection(name); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st UserInstanceStore) error {
		for _, entity := range entities {
			if err := s.replace(ctx, st, entity, user, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *UserInstanceService) replace(ctx context.Context, st UserInstanceStore, entity Entity, user *identity.User, name CollectionName) error {
	existing, err := st.Find(ctx, entity.EntityID(), user.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil {
		s.logger.Debug("replacing user instance permission",
			slog.Int64("entity", entity.EntityID()),
			slog.Int64("user", user.ID),
			slog.String("collection", string(existing.CollectionName)))
		if err := st.Delete(ctx, existing); err != nil {
			return err
		}
	}
	return st.Save(ctx, &UserInstancePermission{
		EntityID:       entity.EntityID(),
		UserID:         user.ID,
		CollectionName: name,
	})
}

// DeleteFor removes the permission for the (entity, user) pair. Deleting a
// non-existent permission is a no-op.
func (s *UserInstanceService) DeleteFor(ctx context.Context, entity Entity, user *identity.User) error {
	record, err := s.FindFor(ctx, entity, user)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("no user instance permission to delete",
				slog.Int64("entity", entity.EntityID()), slog.Int64("user", user.ID))
			return nil
		}
		return err
	}
	return s.store.Delete(ctx, record)
}

// DeleteAllFor removes every user instance permission referencing the entity.
func (s *UserInstanceService) DeleteAllFor(ctx context.Context, entity Entity) error {
	records, err := s.FindForEntity(ctx, entity)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAll(ctx, records); err != nil {
		return err
	}
	s.logger.Info("deleted user instance permissions",
		slog.Int64("entity", entity.EntityID()), slog.Int("count", len(records)))
	return nil
}

// Owners returns every user holding an ADMIN instance permission on the
// entity. No owner is an empty result, not an error.
func (s *UserInstanceService) Owners(ctx context.Context, entity Entity) ([]identity.User, error) {
	records, err := s.store.FindByEntityAndCollection(ctx, entity.EntityID(), CollectionAdmin)
	if err != nil {
		return nil, err
	}
	owners := make([]identity.User, 0, len(records))
	for _, record := range records {
		user, err := s.users.UserByID(ctx, record.UserID)
		if err != nil {
			return nil, fmt.Errorf("permission: resolve owner %d: %w", record.UserID, err)
		}
		owners = append(owners, *user)
	}
	return owners, nil
}
