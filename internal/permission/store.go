package permission

import "context"

// The store contracts below are the only persistence surface the kernel
// relies on. Find methods that match nothing return shared.ErrNotFound;
// finding more than one record for a pair that must be unique returns
// shared.ErrIntegrity. InTx runs the given function against a store bound to
// one SERIALIZABLE transaction so the service-layer read-then-delete-then-insert
// sequence cannot interleave with a concurrent writer of the same pair.

// UserInstanceStore persists UserInstancePermission records.
type UserInstanceStore interface {
	FindByID(ctx context.Context, id int64) (*UserInstancePermission, error)
	FindByUser(ctx context.Context, userID int64) ([]UserInstancePermission, error)
	FindByEntity(ctx context.Context, entityID int64) ([]UserInstancePermission, error)
	FindByEntityAndCollection(ctx context.Context, entityID int64, name CollectionName) ([]UserInstancePermission, error)
	Find(ctx context.Context, entityID, userID int64) (*UserInstancePermission, error)
	Save(ctx context.Context, record *UserInstancePermission) error
	Delete(ctx context.Context, record *UserInstancePermission) error
	DeleteAll(ctx context.Context, records []UserInstancePermission) error
	InTx(ctx context.Context, fn func(UserInstanceStore) error) error
}

// GroupInstanceStore persists GroupInstancePermission records.
type GroupInstanceStore interface {
	FindByID(ctx context.Context, id int64) (*GroupInstancePermission, error)
	FindByGroup(ctx context.Context, groupID int64) ([]GroupInstancePermission, error)
	FindByEntity(ctx context.Context, entityID int64) ([]GroupInstancePermission, error)
	Find(ctx context.Context, entityID, groupID int64) (*GroupInstancePermission, error)
	Save(ctx context.Context, record *GroupInstancePermission) error
	Delete(ctx context.Context, record *GroupInstancePermission) error
	DeleteAll(ctx context.Context, records []GroupInstancePermission) error
	InTx(ctx context.Context, fn func(GroupInstanceStore) error) error
}

// UserClassStore persists UserClassPermission records.
type UserClassStore interface {
	FindByID(ctx context.Context, id int64) (*UserClassPermission, error)
	FindByUser(ctx context.Context, userID int64) ([]UserClassPermission, error)
	FindByClass(ctx context.Context, className string) ([]UserClassPermission, error)
	Find(ctx context.Context, className string, userID int64) (*UserClassPermission, error)
	Save(ctx context.Context, record *UserClassPermission) error
	Delete(ctx context.Context, record *UserClassPermission) error
	DeleteAll(ctx context.Context, records []UserClassPermission) error
	InTx(ctx context.Context, fn func(UserClassStore) error) error
}

// GroupClassStore persists GroupClassPermission records.
type GroupClassStore interface {
	FindByID(ctx context.Context, id int64) (*GroupClassPermission, error)
	FindByGroup(ctx context.Context, groupID int64) ([]GroupClassPermission, error)
	FindByClass(ctx context.Context, className string) ([]GroupClassPermission, error)
	Find(ctx context.Context, className string, groupID int64) (*GroupClassPermission, error)
	Save(ctx context.Context, record *GroupClassPermission) error
	Delete(ctx context.Context, record *GroupClassPermission) error
	DeleteAll(ctx context.Context, records []GroupClassPermission) error
	InTx(ctx context.Context, fn func(GroupClassStore) error) error
}

// StoreSet bundles the four variant stores. Cascading deletes run against a
// StoreSet bound to a single transaction so a partial cascade cannot leave
// dangling references.
type StoreSet struct {
	UserInstance  UserInstanceStore
	GroupInstance GroupInstanceStore
	UserClass     UserClassStore
	GroupClass    GroupClassStore
}

// TxRunner executes a function against a transaction-bound StoreSet.
type TxRunner interface {
	InTx(ctx context.Context, fn func(StoreSet) error) error
}
