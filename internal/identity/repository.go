package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tellus-gis/tellus/internal/shared"
)

// Repository defines persistence operations for users and groups.
type Repository interface {
	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindUserByKeycloakID(ctx context.Context, keycloakID string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindGroupByID(ctx context.Context, id int64) (*Group, error)
	EnsureGroup(ctx context.Context, keycloakID, name string) (*Group, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, keycloak_id, email, enabled, created_at, updated_at`

func (r *PGRepository) scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.KeycloakID, &user.Email, &user.Enabled, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByID fetches a user by surrogate ID.
func (r *PGRepository) FindUserByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindUserByKeycloakID fetches a user by the identity provider's stable ID.
func (r *PGRepository) FindUserByKeycloakID(ctx context.Context, keycloakID string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE keycloak_id = $1`, keycloakID))
}

// FindUserByEmail fetches a user by email claim.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

const groupColumns = `id, keycloak_id, name, created_at, updated_at`

func (r *PGRepository) scanGroup(row pgx.Row) (*Group, error) {
	var group Group
	if err := row.Scan(&group.ID, &group.KeycloakID, &group.Name, &group.CreatedAt, &group.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// FindGroupByID fetches a group by surrogate ID.
func (r *PGRepository) FindGroupByID(ctx context.Context, id int64) (*Group, error) {
	return r.scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
}

// EnsureGroup upserts a group row for an identity-provider group seen during
// membership resolution, keeping the local name in sync.
func (r *PGRepository) EnsureGroup(ctx context.Context, keycloakID, name string) (*Group, error) {
	now := time.Now().UTC()
	return r.scanGroup(r.pool.QueryRow(ctx,
		`INSERT INTO groups (keycloak_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (keycloak_id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		 RETURNING `+groupColumns,
		keycloakID, name, now))
}

var _ Repository = (*PGRepository)(nil)
