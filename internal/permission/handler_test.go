package permission

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

type fakeIdentityRepo struct {
	users  map[int64]*identity.User
	groups map[int64]*identity.Group
}

func (f *fakeIdentityRepo) FindUserByID(_ context.Context, id int64) (*identity.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (f *fakeIdentityRepo) FindUserByKeycloakID(_ context.Context, keycloakID string) (*identity.User, error) {
	for _, u := range f.users {
		if u.KeycloakID == keycloakID {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeIdentityRepo) FindUserByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeIdentityRepo) FindGroupByID(_ context.Context, id int64) (*identity.Group, error) {
	group, ok := f.groups[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return group, nil
}

func (f *fakeIdentityRepo) EnsureGroup(_ context.Context, keycloakID, name string) (*identity.Group, error) {
	for _, g := range f.groups {
		if g.KeycloakID == keycloakID {
			return g, nil
		}
	}
	group := &identity.Group{ID: int64(len(f.groups) + 1), KeycloakID: keycloakID, Name: name}
	f.groups[group.ID] = group
	return group, nil
}

type handlerFixture struct {
	stores *memStores
	repo   *fakeIdentityRepo
	router chi.Router
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		stores: newMemStores(),
		repo: &fakeIdentityRepo{
			users:  map[int64]*identity.User{7: {ID: 7, Email: "alice@example.com"}},
			groups: map[int64]*identity.Group{3: {ID: 3, Name: "editors"}},
		},
	}
	logger := testLogger()
	identities := identity.NewService(f.repo, logger)
	resolver := &mockResolver{groups: make(map[int64][]identity.Group)}

	handler := NewHandler(
		logger,
		NewUserInstanceService(f.stores.userInstance, identities, logger),
		NewGroupInstanceService(f.stores.groupInstance, resolver, logger),
		NewUserClassService(f.stores.userClass, logger),
		NewGroupClassService(f.stores.groupClass, resolver, logger),
		identities,
	)
	f.router = chi.NewRouter()
	f.router.Route("/admin/permissions", handler.MountRoutes)
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSetUserInstance(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodPost, "/admin/permissions/instance/user", map[string]any{
		"entityId":   42,
		"className":  "Layer",
		"userId":     7,
		"collection": "READ_WRITE",
	})

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.stores.userInstance.records, 1)
}

func TestHandlerSetUserInstanceUnknownUser(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodPost, "/admin/permissions/instance/user", map[string]any{
		"entityId":   42,
		"className":  "Layer",
		"userId":     999,
		"collection": "READ",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerSetUserInstanceUnknownCollection(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodPost, "/admin/permissions/instance/user", map[string]any{
		"entityId":   42,
		"className":  "Layer",
		"userId":     7,
		"collection": "SUPERUSER",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.stores.userInstance.records)
}

func TestHandlerSetUserInstanceValidation(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodPost, "/admin/permissions/instance/user", map[string]any{
		"entityId": 42,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestHandlerDeleteUserInstance(t *testing.T) {
	f := newHandlerFixture()
	body := map[string]any{
		"entityId":   42,
		"className":  "Layer",
		"userId":     7,
		"collection": "READ",
	}
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/admin/permissions/instance/user", body).Code)

	del := map[string]any{"entityId": 42, "className": "Layer", "userId": 7}
	rec := f.do(t, http.MethodDelete, "/admin/permissions/instance/user", del)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.stores.userInstance.records)

	// Repeating the delete still succeeds.
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/admin/permissions/instance/user", del).Code)
}

func TestHandlerSetGroupClass(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodPost, "/admin/permissions/class/group", map[string]any{
		"className":  "Layer",
		"groupId":    3,
		"collection": "ADMIN",
	})

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.stores.groupClass.records, 1)
}

func TestHandlerOwners(t *testing.T) {
	f := newHandlerFixture()
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/admin/permissions/instance/user", map[string]any{
		"entityId":   42,
		"className":  "Layer",
		"userId":     7,
		"collection": "ADMIN",
	}).Code)

	rec := f.do(t, http.MethodGet, "/admin/permissions/instance/Layer/42/owners", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var owners []ownerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &owners))
	require.Len(t, owners, 1)
	assert.Equal(t, "alice@example.com", owners[0].Email)
}

func TestHandlerOwnersEmpty(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodGet, "/admin/permissions/instance/Layer/42/owners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandlerEffective(t *testing.T) {
	f := newHandlerFixture()
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/admin/permissions/instance/user", map[string]any{
		"entityId":   42,
		"className":  "Layer",
		"userId":     7,
		"collection": "READ_WRITE",
	}).Code)

	rec := f.do(t, http.MethodGet, "/admin/permissions/instance/Layer/42/effective/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp effectiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "READ_WRITE", resp.Collection)
	assert.Equal(t, []string{"CREATE", "READ", "UPDATE"}, resp.Actions)
}

func TestHandlerEffectiveAbsentGrant(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodGet, "/admin/permissions/instance/Layer/42/effective/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp effectiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "", resp.Collection)
	assert.Empty(t, resp.Actions)
}

func TestHandlerEffectiveBadEntityID(t *testing.T) {
	f := newHandlerFixture()

	rec := f.do(t, http.MethodGet, "/admin/permissions/instance/Layer/notanumber/owners", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
