package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Service resolves authenticated identity claims to persisted users and
// groups. It never writes users; provisioning them is the job of the identity
// provider sync outside this repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// FindBySubject resolves an opaque principal identifier from the
// authentication layer to a persisted user. Subjects that parse as UUIDs are
// treated as Keycloak IDs, anything else as an email claim. Returns
// shared.ErrNotFound when no matching user exists.
func (s *Service) FindBySubject(ctx context.Context, subject string) (*User, error) {
	if _, err := uuid.Parse(subject); err == nil {
		user, err := s.repo.FindUserByKeycloakID(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("identity: find by keycloak id: %w", err)
		}
		return user, nil
	}
	user, err := s.repo.FindUserByEmail(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("identity: find by email: %w", err)
	}
	return user, nil
}

// UserByID fetches a user by surrogate ID.
func (s *Service) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// GroupByID fetches a group by surrogate ID.
func (s *Service) GroupByID(ctx context.Context, id int64) (*Group, error) {
	return s.repo.FindGroupByID(ctx, id)
}
