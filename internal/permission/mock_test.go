package permission

import (
	"context"
	"io"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// IN-MEMORY STORES
// ============================================================================

type memUserInstanceStore struct {
	records map[int64]*UserInstancePermission
	nextID  int64

	findErr   error
	saveErr   error
	deleteErr error
	txErr     error
}

func newMemUserInstanceStore() *memUserInstanceStore {
	return &memUserInstanceStore{records: make(map[int64]*UserInstancePermission), nextID: 1}
}

func (m *memUserInstanceStore) FindByID(_ context.Context, id int64) (*UserInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memUserInstanceStore) FindByUser(_ context.Context, userID int64) ([]UserInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []UserInstancePermission{}
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memUserInstanceStore) FindByEntity(_ context.Context, entityID int64) ([]UserInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []UserInstancePermission{}
	for _, r := range m.records {
		if r.EntityID == entityID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memUserInstanceStore) FindByEntityAndCollection(_ context.Context, entityID int64, name CollectionName) ([]UserInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []UserInstancePermission{}
	for _, r := range m.records {
		if r.EntityID == entityID && r.CollectionName == name {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memUserInstanceStore) Find(_ context.Context, entityID, userID int64) (*UserInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.records {
		if r.EntityID == entityID && r.UserID == userID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memUserInstanceStore) Save(_ context.Context, record *UserInstancePermission) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	record.ID = m.nextID
	m.nextID++
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *memUserInstanceStore) Delete(_ context.Context, record *UserInstancePermission) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.records, record.ID)
	return nil
}

func (m *memUserInstanceStore) DeleteAll(ctx context.Context, records []UserInstancePermission) error {
	for i := range records {
		if err := m.Delete(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memUserInstanceStore) InTx(_ context.Context, fn func(UserInstanceStore) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

type memGroupInstanceStore struct {
	records map[int64]*GroupInstancePermission
	nextID  int64

	findErr error
	txErr   error
}

func newMemGroupInstanceStore() *memGroupInstanceStore {
	return &memGroupInstanceStore{records: make(map[int64]*GroupInstancePermission), nextID: 1}
}

func (m *memGroupInstanceStore) FindByID(_ context.Context, id int64) (*GroupInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memGroupInstanceStore) FindByGroup(_ context.Context, groupID int64) ([]GroupInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []GroupInstancePermission{}
	for _, r := range m.records {
		if r.GroupID == groupID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memGroupInstanceStore) FindByEntity(_ context.Context, entityID int64) ([]GroupInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []GroupInstancePermission{}
	for _, r := range m.records {
		if r.EntityID == entityID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memGroupInstanceStore) Find(_ context.Context, entityID, groupID int64) (*GroupInstancePermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.records {
		if r.EntityID == entityID && r.GroupID == groupID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memGroupInstanceStore) Save(_ context.Context, record *GroupInstancePermission) error {
	record.ID = m.nextID
	m.nextID++
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *memGroupInstanceStore) Delete(_ context.Context, record *GroupInstancePermission) error {
	delete(m.records, record.ID)
	return nil
}

func (m *memGroupInstanceStore) DeleteAll(ctx context.Context, records []GroupInstancePermission) error {
	for i := range records {
		if err := m.Delete(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memGroupInstanceStore) InTx(_ context.Context, fn func(GroupInstanceStore) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

type memUserClassStore struct {
	records map[int64]*UserClassPermission
	nextID  int64

	findErr error
	txErr   error
}

func newMemUserClassStore() *memUserClassStore {
	return &memUserClassStore{records: make(map[int64]*UserClassPermission), nextID: 1}
}

func (m *memUserClassStore) FindByID(_ context.Context, id int64) (*UserClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memUserClassStore) FindByUser(_ context.Context, userID int64) ([]UserClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []UserClassPermission{}
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memUserClassStore) FindByClass(_ context.Context, className string) ([]UserClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []UserClassPermission{}
	for _, r := range m.records {
		if r.ClassName == className {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memUserClassStore) Find(_ context.Context, className string, userID int64) (*UserClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.records {
		if r.ClassName == className && r.UserID == userID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memUserClassStore) Save(_ context.Context, record *UserClassPermission) error {
	record.ID = m.nextID
	m.nextID++
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *memUserClassStore) Delete(_ context.Context, record *UserClassPermission) error {
	delete(m.records, record.ID)
	return nil
}

func (m *memUserClassStore) DeleteAll(ctx context.Context, records []UserClassPermission) error {
	for i := range records {
		if err := m.Delete(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memUserClassStore) InTx(_ context.Context, fn func(UserClassStore) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

type memGroupClassStore struct {
	records map[int64]*GroupClassPermission
	nextID  int64

	findErr error
	txErr   error
}

func newMemGroupClassStore() *memGroupClassStore {
	return &memGroupClassStore{records: make(map[int64]*GroupClassPermission), nextID: 1}
}

func (m *memGroupClassStore) FindByID(_ context.Context, id int64) (*GroupClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memGroupClassStore) FindByGroup(_ context.Context, groupID int64) ([]GroupClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []GroupClassPermission{}
	for _, r := range m.records {
		if r.GroupID == groupID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memGroupClassStore) FindByClass(_ context.Context, className string) ([]GroupClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []GroupClassPermission{}
	for _, r := range m.records {
		if r.ClassName == className {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memGroupClassStore) Find(_ context.Context, className string, groupID int64) (*GroupClassPermission, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.records {
		if r.ClassName == className && r.GroupID == groupID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memGroupClassStore) Save(_ context.Context, record *GroupClassPermission) error {
	record.ID = m.nextID
	m.nextID++
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *memGroupClassStore) Delete(_ context.Context, record *GroupClassPermission) error {
	delete(m.records, record.ID)
	return nil
}

func (m *memGroupClassStore) DeleteAll(ctx context.Context, records []GroupClassPermission) error {
	for i := range records {
		if err := m.Delete(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memGroupClassStore) InTx(_ context.Context, fn func(GroupClassStore) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

// memStores bundles the four in-memory stores and doubles as TxRunner.
type memStores struct {
	userInstance  *memUserInstanceStore
	groupInstance *memGroupInstanceStore
	userClass     *memUserClassStore
	groupClass    *memGroupClassStore

	txErr error
}

func newMemStores() *memStores {
	return &memStores{
		userInstance:  newMemUserInstanceStore(),
		groupInstance: newMemGroupInstanceStore(),
		userClass:     newMemUserClassStore(),
		groupClass:    newMemGroupClassStore(),
	}
}

func (m *memStores) InTx(_ context.Context, fn func(StoreSet) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(StoreSet{
		UserInstance:  m.userInstance,
		GroupInstance: m.groupInstance,
		UserClass:     m.userClass,
		GroupClass:    m.groupClass,
	})
}

// ============================================================================
// IDENTITY MOCKS
// ============================================================================

type mockResolver struct {
	groups map[int64][]identity.Group

	groupsErr error
	memberErr error
}

func (m *mockResolver) GroupsOf(_ context.Context, user *identity.User) ([]identity.Group, error) {
	if m.groupsErr != nil {
		return nil, m.groupsErr
	}
	return m.groups[user.ID], nil
}

func (m *mockResolver) IsMember(_ context.Context, user *identity.User, group *identity.Group) (bool, error) {
	if m.memberErr != nil {
		return false, m.memberErr
	}
	for _, g := range m.groups[user.ID] {
		if g.ID == group.ID {
			return true, nil
		}
	}
	return false, nil
}

type mockDirectory struct {
	users map[int64]*identity.User
	err   error
}

func (m *mockDirectory) UserByID(_ context.Context, id int64) (*identity.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

type mockUserResolver struct {
	users map[string]*identity.User
	err   error
}

func (m *mockUserResolver) FindBySubject(_ context.Context, subject string) (*identity.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[subject]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

type mockObserver struct {
	classes []string
	allowed []bool
}

func (m *mockObserver) ObserveDecision(class string, allowed bool) {
	m.classes = append(m.classes, class)
	m.allowed = append(m.allowed, allowed)
}
