package permission

import "time"

// Entity is implemented by every persisted domain object that can be the
// target of an authorization decision. The class name is the stable type
// identifier used for class-wide grants and strategy dispatch.
type Entity interface {
	EntityID() int64
	EntityClass() string
}

// EntityRef is a detached target reference used where no loaded domain object
// is at hand, e.g. in admin handlers and cleanup jobs.
type EntityRef struct {
	ID    int64
	Class string
}

func (r EntityRef) EntityID() int64     { return r.ID }
func (r EntityRef) EntityClass() string { return r.Class }

// Record is the capability shared by the four permission record variants.
type Record interface {
	Collection() CollectionName
}

// UserInstancePermission grants a collection to one user on one entity.
type UserInstancePermission struct {
	ID             int64
	EntityID       int64
	UserID         int64
	CollectionName CollectionName
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Collection returns the name of the granted collection.
func (p UserInstancePermission) Collection() CollectionName { return p.CollectionName }

// GroupInstancePermission grants a collection to one group on one entity.
type GroupInstancePermission struct {
	ID             int64
	EntityID       int64
	GroupID        int64
	CollectionName CollectionName
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Collection returns the name of the granted collection.
func (p GroupInstancePermission) Collection() CollectionName { return p.CollectionName }

// UserClassPermission grants a collection to one user on every entity of a class.
type UserClassPermission struct {
	ID             int64
	ClassName      string
	UserID         int64
	CollectionName CollectionName
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Collection returns the name of the granted collection.
func (p UserClassPermission) Collection() CollectionName { return p.CollectionName }

// GroupClassPermission grants a collection to one group on every entity of a class.
type GroupClassPermission struct {
	ID             int64
	ClassName      string
	GroupID        int64
	CollectionName CollectionName
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Collection returns the name of the granted collection.
func (p GroupClassPermission) Collection() CollectionName { return p.CollectionName }
