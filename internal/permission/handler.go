package permission

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/platform/httpx"
)

// Handler exposes the permission administration API. It is host-application
// glue around the services; the kernel itself is transport-free.
type Handler struct {
	logger        *slog.Logger
	userInstance  *UserInstanceService
	groupInstance *GroupInstanceService
	userClass     *UserClassService
	groupClass    *GroupClassService
	identities    *identity.Service
	validate      *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(
	logger *slog.Logger,
	userInstance *UserInstanceService,
	groupInstance *GroupInstanceService,
	userClass *UserClassService,
	groupClass *GroupClassService,
	identities *identity.Service,
) *Handler {
	return &Handler{
		logger:        logger,
		userInstance:  userInstance,
		groupInstance: groupInstance,
		userClass:     userClass,
		groupClass:    groupClass,
		identities:    identities,
		validate:      validator.New(),
	}
}

// MountRoutes registers permission administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/instance/user", h.setUserInstance)
	r.Delete("/instance/user", h.deleteUserInstance)
	r.Post("/instance/group", h.setGroupInstance)
	r.Delete("/instance/group", h.deleteGroupInstance)
	r.Post("/class/user", h.setUserClass)
	r.Delete("/class/user", h.deleteUserClass)
	r.Post("/class/group", h.setGroupClass)
	r.Delete("/class/group", h.deleteGroupClass)
	r.Get("/instance/{className}/{entityID}/owners", h.owners)
	r.Get("/instance/{className}/{entityID}/effective/{userID}", h.effective)
}

type instanceUserRequest struct {
	EntityID   int64  `json:"entityId" validate:"required"`
	ClassName  string `json:"className" validate:"required"`
	UserID     int64  `json:"userId" validate:"required"`
	Collection string `json:"collection" validate:"required"`
}

func (h *Handler) setUserInstance(w http.ResponseWriter, r *http.Request) {
	var req instanceUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.identities.UserByID(r.Context(), req.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entity := EntityRef{ID: req.EntityID, Class: req.ClassName}
	if err := h.userInstance.SetPermission(r.Context(), entity, user, CollectionName(req.Collection)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUserInstance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID  int64  `json:"entityId" validate:"required"`
		ClassName string `json:"className" validate:"required"`
		UserID    int64  `json:"userId" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.identities.UserByID(r.Context(), req.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entity := EntityRef{ID: req.EntityID, Class: req.ClassName}
	if err := h.userInstance.DeleteFor(r.Context(), entity, user); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type instanceGroupRequest struct {
	EntityID   int64  `json:"entityId" validate:"required"`
	ClassName  string `json:"className" validate:"required"`
	GroupID    int64  `json:"groupId" validate:"required"`
	Collection string `json:"collection" validate:"required"`
}

func (h *Handler) setGroupInstance(w http.ResponseWriter, r *http.Request) {
	var req instanceGroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.identities.GroupByID(r.Context(), req.GroupID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entity := EntityRef{ID: req.EntityID, Class: req.ClassName}
	if err := h.groupInstance.SetPermission(r.Context(), entity, group, CollectionName(req.Collection)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteGroupInstance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID  int64  `json:"entityId" validate:"required"`
		ClassName string `json:"className" validate:"required"`
		GroupID   int64  `json:"groupId" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.identities.GroupByID(r.Context(), req.GroupID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entity := EntityRef{ID: req.EntityID, Class: req.ClassName}
	if err := h.groupInstance.DeleteFor(r.Context(), entity, group); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type classUserRequest struct {
	ClassName  string `json:"className" validate:"required"`
	UserID     int64  `json:"userId" validate:"required"`
	Collection string `json:"collection" validate:"required"`
}

func (h *Handler) setUserClass(w http.ResponseWriter, r *http.Request) {
	var req classUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.identities.UserByID(r.Context(), req.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.userClass.SetPermission(r.Context(), req.ClassName, user, CollectionName(req.Collection)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUserClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassName string `json:"className" validate:"required"`
		UserID    int64  `json:"userId" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.identities.UserByID(r.Context(), req.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.userClass.DeleteFor(r.Context(), req.ClassName, user); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type classGroupRequest struct {
	ClassName  string `json:"className" validate:"required"`
	GroupID    int64  `json:"groupId" validate:"required"`
	Collection string `json:"collection" validate:"required"`
}

func (h *Handler) setGroupClass(w http.ResponseWriter, r *http.Request) {
	var req classGroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.identities.GroupByID(r.Context(), req.GroupID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.groupClass.SetPermission(r.Context(), req.ClassName, group, CollectionName(req.Collection)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteGroupClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassName string `json:"className" validate:"required"`
		GroupID   int64  `json:"groupId" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.identities.GroupByID(r.Context(), req.GroupID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.groupClass.DeleteFor(r.Context(), req.ClassName, group); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ownerResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (h *Handler) owners(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entityFromURL(w, r)
	if !ok {
		return
	}
	owners, err := h.userInstance.Owners(r.Context(), entity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]ownerResponse, len(owners))
	for i, owner := range owners {
		resp[i] = ownerResponse{ID: owner.ID, Email: owner.Email}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type effectiveResponse struct {
	Collection string   `json:"collection"`
	Actions    []string `json:"actions"`
}

// effective reports the user's own instance-level collection on the entity,
// the empty collection when no grant exists.
func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entityFromURL(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user ID")
		return
	}
	user, err := h.identities.UserByID(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	collection, err := h.userInstance.CollectionFor(r.Context(), entity, user)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, effectiveResponse{
		Collection: string(collection.Name()),
		Actions:    collection.ActionNames(),
	})
}

func (h *Handler) entityFromURL(w http.ResponseWriter, r *http.Request) (EntityRef, bool) {
	entityID, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entity ID")
		return EntityRef{}, false
	}
	return EntityRef{ID: entityID, Class: chi.URLParam(r, "className")}, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
