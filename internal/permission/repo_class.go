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

// PGUserClassStore implements UserClassStore using PostgreSQL.
type PGUserClassStore struct {
	pool *pgxpool.Pool
	q    querier
}

const userClassColumns = `id, class_name, user_id, collection_name, created_at, updated_at`

func scanUserClass(rows pgx.Rows) ([]UserClassPermission, error) {
	defer rows.Close()
	var records []UserClassPermission
	for rows.Next() {
		var rec UserClassPermission
		if err := rows.Scan(&rec.ID, &rec.ClassName, &rec.UserID, &rec.CollectionName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByID returns the record with the given surrogate ID.
func (s *PGUserClassStore) FindByID(ctx context.Context, id int64) (*UserClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userClassColumns+` FROM user_class_permissions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	records, err := scanUserClass(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, shared.ErrNotFound
	}
	return &records[0], nil
}

// FindByUser returns all user class permissions owned by a user.
func (s *PGUserClassStore) FindByUser(ctx context.Context, userID int64) ([]UserClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userClassColumns+` FROM user_class_permissions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return scanUserClass(rows)
}

// FindByClass returns all user class permissions referencing a class.
func (s *PGUserClassStore) FindByClass(ctx context.Context, className string) ([]UserClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userClassColumns+` FROM user_class_permissions WHERE class_name = $1 ORDER BY id`, className)
	if err != nil {
		return nil, err
	}
	return scanUserClass(rows)
}

// Find returns the single record for a (class, user) pair.
func (s *PGUserClassStore) Find(ctx context.Context, className string, userID int64) (*UserClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userClassColumns+` FROM user_class_permissions WHERE class_name = $1 AND user_id = $2 ORDER BY id`, className, userID)
	if err != nil {
		return nil, err
	}
	records, err := scanUserClass(rows)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("permission: %d user class permissions for class %s and user %d: %w",
			len(records), className, userID, shared.ErrIntegrity)
	}
}

// Save inserts a new record and fills in its surrogate ID and timestamps.
func (s *PGUserClassStore) Save(ctx context.Context, record *UserClassPermission) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.q.QueryRow(ctx,
		`INSERT INTO user_class_permissions (class_name, user_id, collection_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		record.ClassName, record.UserID, record.CollectionName, now,
	).Scan(&record.ID)
}

// Delete removes a record by its surrogate ID.
func (s *PGUserClassStore) Delete(ctx context.Context, record *UserClassPermission) error {
	_, err := s.q.Exec(ctx, `DELETE FROM user_class_permissions WHERE id = $1`, record.ID)
	return err
}

// DeleteAll removes all given records.
func (s *PGUserClassStore) DeleteAll(ctx context.Context, records []UserClassPermission) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	_, err := s.q.Exec(ctx, `DELETE FROM user_class_permissions WHERE id = ANY($1)`, ids)
	return err
}

// InTx runs fn against a store bound to one SERIALIZABLE transaction.
func (s *PGUserClassStore) InTx(ctx context.Context, fn func(UserClassStore) error) error {
	return db.WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGUserClassStore{pool: s.pool, q: tx})
	})
}

var _ UserClassStore = (*PGUserClassStore)(nil)

// PGGroupClassStore implements GroupClassStore using PostgreSQL.
type PGGroupClassStore struct {
	pool *pgxpool.Pool
	q    querier
}

const groupClassColumns = `id, class_name, group_id, collection_name, created_at, updated_at`

func scanGroupClass(rows pgx.Rows) ([]GroupClassPermission, error) {
	defer rows.Close()
	var records []GroupClassPermission
	for rows.Next() {
		var rec GroupClassPermission
		if err := rows.Scan(&rec.ID, &rec.ClassName, &rec.GroupID, &rec.CollectionName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByID returns the record with the given surrogate ID.
func (s *PGGroupClassStore) FindByID(ctx context.Context, id int64) (*GroupClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupClassColumns+` FROM group_class_permissions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	records, err := scanGroupClass(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, shared.ErrNotFound
	}
	return &records[0], nil
}

// FindByGroup returns all group class permissions owned by a group.
func (s *PGGroupClassStore) FindByGroup(ctx context.Context, groupID int64) ([]GroupClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupClassColumns+` FROM group_class_permissions WHERE group_id = $1 ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	return scanGroupClass(rows)
}

// FindByClass returns all group class permissions referencing a class.
func (s *PGGroupClassStore) FindByClass(ctx context.Context, className string) ([]GroupClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupClassColumns+` FROM group_class_permissions WHERE class_name = $1 ORDER BY id`, className)
	if err != nil {
		return nil, err
	}
	return scanGroupClass(rows)
}

// Find returns the single record for a (class, group) pair.
func (s *PGGroupClassStore) Find(ctx context.Context, className string, groupID int64) (*GroupClassPermission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+groupClassColumns+` FROM group_class_permissions WHERE class_name = $1 AND group_id = $2 ORDER BY id`, className, groupID)
	if err != nil {
		return nil, err
	}
	records, err := scanGroupClass(rows)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("permission: %d group class permissions for class %s and group %d: %w",
			len(records), className, groupID, shared.ErrIntegrity)
	}
}

// Save inserts a new record and fills in its surrogate ID and timestamps.
func (s *PGGroupClassStore) Save(ctx context.Context, record *GroupClassPermission) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.q.QueryRow(ctx,
		`INSERT INTO group_class_permissions (class_name, group_id, collection_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		record.ClassName, record.GroupID, record.CollectionName, now,
	).Scan(&record.ID)
}

// Delete removes a record by its surrogate ID.
func (s *PGGroupClassStore) Delete(ctx context.Context, record *GroupClassPermission) error {
	_, err := s.q.Exec(ctx, `DELETE FROM group_class_permissions WHERE id = $1`, record.ID)
	return err
}

// DeleteAll removes all given records.
func (s *PGGroupClassStore) DeleteAll(ctx context.Context, records []GroupClassPermission) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	_, err := s.q.Exec(ctx, `DELETE FROM group_class_permissions WHERE id = ANY($1)`, ids)
	return err
}

// InTx runs fn against a store bound to one SERIALIZABLE transaction.
func (s *PGGroupClassStore) InTx(ctx context.Context, fn func(GroupClassStore) error) error {
	return db.WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGGroupClassStore{pool: s.pool, q: tx})
	})
}

var _ GroupClassStore = (*PGGroupClassStore)(nil)
