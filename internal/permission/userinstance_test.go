package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

func newUserInstanceFixture() (*UserInstanceService, *memUserInstanceStore, *mockDirectory) {
	store := newMemUserInstanceStore()
	dir := &mockDirectory{users: make(map[int64]*identity.User)}
	return NewUserInstanceService(store, dir, testLogger()), store, dir
}

func TestUserInstanceSetPermission(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	ctx := context.Background()
	layer := EntityRef{ID: 42, Class: "Layer"}
	user := &identity.User{ID: 7}

	require.NoError(t, svc.SetPermission(ctx, layer, user, CollectionRead))

	record, err := svc.FindFor(ctx, layer, user)
	require.NoError(t, err)
	assert.Equal(t, CollectionRead, record.CollectionName)
	assert.Len(t, store.records, 1)
}

func TestUserInstanceSetPermissionReplaces(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	ctx := context.Background()
	layer := EntityRef{ID: 42, Class: "Layer"}
	user := &identity.User{ID: 7}

	require.NoError(t, svc.SetPermission(ctx, layer, user, CollectionRead))
	require.NoError(t, svc.SetPermission(ctx, layer, user, CollectionAdmin))
	require.NoError(t, svc.SetPermission(ctx, layer, user, CollectionReadWrite))

	// Replacement keeps at most one record per pair.
	assert.Len(t, store.records, 1)
	record, err := svc.FindFor(ctx, layer, user)
	require.NoError(t, err)
	assert.Equal(t, CollectionReadWrite, record.CollectionName)
}

func TestUserInstanceSetPermissionUnknownCollection(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	ctx := context.Background()

	err := svc.SetPermission(ctx, EntityRef{ID: 1, Class: "Layer"}, &identity.User{ID: 7}, "SUPERUSER")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Empty(t, store.records)
}

func TestUserInstanceSetPermissionAll(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	ctx := context.Background()
	user := &identity.User{ID: 7}
	entities := []Entity{
		EntityRef{ID: 1, Class: "Layer"},
		EntityRef{ID: 2, Class: "Layer"},
		EntityRef{ID: 3, Class: "Layer"},
	}

	require.NoError(t, svc.SetPermissionAll(ctx, entities, user, CollectionRead))
	assert.Len(t, store.records, 3)

	for _, entity := range entities {
		record, err := svc.FindFor(ctx, entity, user)
		require.NoError(t, err)
		assert.Equal(t, CollectionRead, record.CollectionName)
	}
}

func TestUserInstanceCollectionForAbsent(t *testing.T) {
	svc, _, _ := newUserInstanceFixture()

	collection, err := svc.CollectionFor(context.Background(), EntityRef{ID: 1, Class: "Layer"}, &identity.User{ID: 7})
	require.NoError(t, err)
	assert.True(t, collection.IsEmpty())
}

func TestUserInstanceCollectionForCorruptRecord(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	store.records[1] = &UserInstancePermission{ID: 1, EntityID: 1, UserID: 7, CollectionName: "LEGACY"}

	_, err := svc.CollectionFor(context.Background(), EntityRef{ID: 1, Class: "Layer"}, &identity.User{ID: 7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrIntegrity))
}

func TestUserInstanceDeleteForIdempotent(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	ctx := context.Background()
	layer := EntityRef{ID: 42, Class: "Layer"}
	user := &identity.User{ID: 7}

	require.NoError(t, svc.SetPermission(ctx, layer, user, CollectionRead))
	require.NoError(t, svc.DeleteFor(ctx, layer, user))
	assert.Empty(t, store.records)

	// Deleting again is a no-op, not an error.
	require.NoError(t, svc.DeleteFor(ctx, layer, user))
}

func TestUserInstanceDeleteAllFor(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	ctx := context.Background()
	layer := EntityRef{ID: 42, Class: "Layer"}

	require.NoError(t, svc.SetPermission(ctx, layer, &identity.User{ID: 7}, CollectionRead))
	require.NoError(t, svc.SetPermission(ctx, layer, &identity.User{ID: 8}, CollectionAdmin))
	require.NoError(t, svc.SetPermission(ctx, EntityRef{ID: 43, Class: "Layer"}, &identity.User{ID: 7}, CollectionRead))

	require.NoError(t, svc.DeleteAllFor(ctx, layer))

	assert.Len(t, store.records, 1)
	_, err := svc.FindFor(ctx, EntityRef{ID: 43, Class: "Layer"}, &identity.User{ID: 7})
	assert.NoError(t, err)
}

func TestUserInstanceOwners(t *testing.T) {
	svc, _, dir := newUserInstanceFixture()
	ctx := context.Background()
	layer := EntityRef{ID: 42, Class: "Layer"}

	dir.users[7] = &identity.User{ID: 7, Email: "alice@example.com"}
	dir.users[8] = &identity.User{ID: 8, Email: "bob@example.com"}

	require.NoError(t, svc.SetPermission(ctx, layer, dir.users[7], CollectionAdmin))
	require.NoError(t, svc.SetPermission(ctx, layer, dir.users[8], CollectionRead))

	owners, err := svc.Owners(ctx, layer)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, int64(7), owners[0].ID)
}

func TestUserInstanceOwnersNone(t *testing.T) {
	svc, _, _ := newUserInstanceFixture()

	owners, err := svc.Owners(context.Background(), EntityRef{ID: 42, Class: "Layer"})
	require.NoError(t, err)
	assert.NotNil(t, owners)
	assert.Empty(t, owners)
}

func TestUserInstanceOwnersDirectoryError(t *testing.T) {
	svc, _, dir := newUserInstanceFixture()
	ctx := context.Background()
	layer := EntityRef{ID: 42, Class: "Layer"}

	dir.users[7] = &identity.User{ID: 7}
	require.NoError(t, svc.SetPermission(ctx, layer, dir.users[7], CollectionAdmin))

	dir.err = errors.New("directory down")
	_, err := svc.Owners(ctx, layer)
	require.Error(t, err)
}

func TestUserInstanceSetPermissionTxError(t *testing.T) {
	svc, store, _ := newUserInstanceFixture()
	store.txErr = errors.New("serialization failure")

	err := svc.SetPermission(context.Background(), EntityRef{ID: 1, Class: "Layer"}, &identity.User{ID: 7}, CollectionRead)
	require.Error(t, err)
	assert.Empty(t, store.records)
}
