package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tellus-gis/tellus/internal/platform/db"
	"github.com/tellus-gis/tellus/internal/shared"
)

// PGUserInstanceStore implements UserInstanceStore using PostgreSQL.
type PGUserInstanceStore struct {
	pool *pgxpool.Pool
	q    querier
}

const userInstanceColumns = `id, entity_id, user_id, collection_name, created_at, updated_at`

func scanUserInstance(rows pgx.Rows) ([]UserInstancePermission, error) {
	defer rows.Close()
	var records []UserInstancePermission
	for rows.Next() {
		var rec UserInstancePermission
		if err := rows.Scan(&rec.ID, &rec.EntityID, &rec.UserID, &rec.CollectionName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByID returns the record with the given surrogate ID.
func (s *PGUserInstanceStore) FindByID(ctx context.Context, id int64) (*UserInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userInstanceColumns+` FROM user_instance_permissions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	records, err := scanUserInstance(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, shared.ErrNotFound
	}
	return &records[0], nil
}

// FindByUser returns all user instance permissions owned by a user.
func (s *PGUserInstanceStore) FindByUser(ctx context.Context, userID int64) ([]UserInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userInstanceColumns+` FROM user_instance_permissions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return scanUserInstance(rows)
}

// FindByEntity returns all user instance permissions referencing an entity.
func (s *PGUserInstanceStore) FindByEntity(ctx context.Context, entityID int64) ([]UserInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userInstanceColumns+` FROM user_instance_permissions WHERE entity_id = $1 ORDER BY id`, entityID)
	if err != nil {
		return nil, err
	}
	return scanUserInstance(rows)
}

// FindByEntityAndCollection returns all user instance permissions on an entity
// carrying the given collection. Used for the owner lookup.
func (s *PGUserInstanceStore) FindByEntityAndCollection(ctx context.Context, entityID int64, name CollectionName) ([]UserInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userInstanceColumns+` FROM user_instance_permissions WHERE entity_id = $1 AND collection_name = $2 ORDER BY id`, entityID, name)
	if err != nil {
		return nil, err
	}
	return scanUserInstance(rows)
}

// Find returns the single record for an (entity, user) pair.
func (s *PGUserInstanceStore) Find(ctx context.Context, entityID, userID int64) (*UserInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userInstanceColumns+` FROM user_instance_permissions WHERE entity_id = $1 AND user_id = $2 ORDER BY id`, entityID, userID)
	if err != nil {
		return nil, err
	}
	records, err := scanUserInstance(rows)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("permission: %d user instance permissions for entity %d and user %d: %w",
			len(records), entityID, userID, shared.ErrIntegrity)
	}
}

// Save inserts a new record and fills in its surrogate ID and timestamps.
func (s *PGUserInstanceStore) Save(ctx context.Context, record *UserInstancePermission) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.q.QueryRow(ctx,
		`INSERT INTO user_instance_permissions (entity_id, user_id, collection_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		record.EntityID, record.UserID, record.CollectionName, now,
	).Scan(&record.ID)
}

// Delete removes a record by its surrogate ID.
func (s *PGUserInstanceStore) Delete(ctx context.Context, record *UserInstancePermission) error {
	_, err := s.q.Exec(ctx, `DELETE FROM user_instance_permissions WHERE id = $1`, record.ID)
	return err
}

// DeleteAll removes all given records.
func (s *PGUserInstanceStore) DeleteAll(ctx context.Context, records []UserInstancePermission) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	_, err := s.q.Exec(ctx, `DELETE FROM user_instance_permissions WHERE id = ANY($1)`, ids)
	return err
}

// InTx runs fn against a store bound to one SERIALIZABLE transaction.
func (s *PGUserInstanceStore) InTx(ctx context.Context, fn func(UserInstanceStore) error) error {
	return db.WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGUserInstanceStore{pool: s.pool, q: tx})
	})
}

var _ UserInstanceStore = (*PGUserInstanceStore)(nil)

// PGGroupInstanceStore implements GroupInstanceStore using PostgreSQL.
type PGGroupInstanceStore struct {
	pool *pgxpool.Pool
	q    querier
}

const groupInstanceColumns = `id, entity_id, group_id, collection_name, created_at, updated_at`

func scanGroupInstance(rows pgx.Rows) ([]GroupInstancePermission, error) {
	defer rows.Close()
	var records []GroupInstancePermission
	for rows.Next() {
		var rec GroupInstancePermission
		if err := rows.Scan(&rec.ID, &rec.EntityID, &rec.GroupID, &rec.CollectionName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByID returns the record with the given surrogate ID.
func (s *PGGroupInstanceStore) FindByID(ctx context.Context, id int64) (*GroupInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupInstanceColumns+` FROM group_instance_permissions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	records, err := scanGroupInstance(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, shared.ErrNotFound
	}
	return &records[0], nil
}

// FindByGroup returns all group instance permissions owned by a group.
func (s *PGGroupInstanceStore) FindByGroup(ctx context.Context, groupID int64) ([]GroupInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupInstanceColumns+` FROM group_instance_permissions WHERE group_id = $1 ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	return scanGroupInstance(rows)
}

// FindByEntity returns all group instance permissions referencing an entity.
func (s *PGGroupInstanceStore) FindByEntity(ctx context.Context, entityID int64) ([]GroupInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupInstanceColumns+` FROM group_instance_permissions WHERE entity_id = $1 ORDER BY id`, entityID)
	if err != nil {
		return nil, err
	}
	return scanGroupInstance(rows)
}

// Find returns the single record for an (entity, group) pair.
func (s *PGGroupInstanceStore) Find(ctx context.Context, entityID, groupID int64) (*GroupInstancePermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupInstanceColumns+` FROM group_instance_permissions WHERE entity_id = $1 AND group_id = $2 ORDER BY id`, entityID, groupID)
	if err != nil {
		return nil, err
	}
	records, err := scanGroupInstance(rows)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("permission: %d group instance permissions for entity %d and group %d: %w",
			len(records), entityID, groupID, shared.ErrIntegrity)
	}
}

// Save inserts a new record and fills in its surrogate ID and timestamps.
func (s *PGGroupInstanceStore) Save(ctx context.Context, record *GroupInstancePermission) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.q.QueryRow(ctx,
		`INSERT INTO group_instance_permissions (entity_id, group_id, collection_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		record.EntityID, record.GroupID, record.CollectionName, now,
	).Scan(&record.ID)
}

// Delete removes a record by its surrogate ID.
func (s *PGGroupInstanceStore) Delete(ctx context.Context, record *GroupInstancePermission) error {
	_, err := s.q.Exec(ctx, `DELETE FROM group_instance_permissions WHERE id = $1`, record.ID)
	return err
}

// DeleteAll removes all given records.
func (s *PGGroupInstanceStore) DeleteAll(ctx context.Context, records []GroupInstancePermission) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	_, err := s.q.Exec(ctx, `DELETE FROM group_instance_permissions WHERE id = ANY($1)`, ids)
	return err
}

// InTx runs fn against a store bound to one SERIALIZABLE transaction.
func (s *PGGroupInstanceStore) InTx(ctx context.Context, fn func(GroupInstanceStore) error) error {
	return db.WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGGroupInstanceStore{pool: s.pool, q: tx})
	})
}

var _ GroupInstanceStore = (*PGGroupInstanceStore)(nil)
