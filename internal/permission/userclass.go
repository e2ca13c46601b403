package permission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// UserClassService manages class-wide permissions of single users.
type UserClassService struct {
	store  UserClassStore
	logger *slog.Logger
}

// NewUserClassService constructs a UserClassService.
func NewUserClassService(store UserClassStore, logger *slog.Logger) *UserClassService {
	return &UserClassService{store: store, logger: logger}
}

// FindForUser returns all user class permissions owned by the user.
func (s *UserClassService) FindForUser(ctx context.Context, user *identity.User) ([]UserClassPermission, error) {
	return s.store.FindByUser(ctx, user.ID)
}

// FindForClass returns all user class permissions referencing the class.
func (s *UserClassService) FindForClass(ctx context.Context, className string) ([]UserClassPermission, error) {
	return s.store.FindByClass(ctx, className)
}

// FindFor returns the single permission for the (class, user) pair, or
// shared.ErrNotFound.
func (s *UserClassService) FindFor(ctx context.Context, className string, user *identity.User) (*UserClassPermission, error) {
	return s.store.Find(ctx, className, user.ID)
}

// CollectionFor returns the effective collection for the (class, user) pair.
// Absence of a grant is the empty collection, never an error.
func (s *UserClassService) CollectionFor(ctx context.Context, className string, user *identity.User) (Collection, error) {
	return collectionOf(s.FindFor(ctx, className, user))
}

// SetPermission grants the named collection to the user on the class,
// replacing any existing grant for the pair.
func (s *UserClassService) SetPermission(ctx context.Context, className string, user *identity.User, name CollectionName) error {
	if _, err := ResolveCollection(name); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st UserClassStore) error {
		existing, err := st.Find(ctx, className, user.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			s.logger.Debug("replacing user class permission",
				slog.String("class", className),
				slog.Int64("user", user.ID),
				slog.String("collection", string(existing.CollectionName)))
			if err := st.Delete(ctx, existing); err != nil {
				return err
			}
		}
		return st.Save(ctx, &UserClassPermission{
			ClassName:      className,
			UserID:         user.ID,
			CollectionName: name,
		})
	})
}

// DeleteFor removes the permission for the (class, user) pair. Deleting a
// non-existent permission is a no-op.
func (s *UserClassService) DeleteFor(ctx context.Context, className string, user *identity.User) error {
	record, err := s.FindFor(ctx, className, user)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("no user class permission to delete",
				slog.String("class", className), slog.Int64("user", user.ID))
			return nil
		}
		return err
	}
	return s.store.Delete(ctx, record)
}

// DeleteAllFor removes every user class permission referencing the class.
func (s *UserClassService) DeleteAllFor(ctx context.Context, className string) error {
	records, err := s.FindForClass(ctx, className)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAll(ctx, records); err != nil {
		return err
	}
	s.logger.Info("deleted user class permissions",
		slog.String("class", className), slog.Int("count", len(records)))
	return nil
}
