package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tellus-gis/tellus/internal/observability"
	"github.com/tellus-gis/tellus/internal/permission"
	"github.com/tellus-gis/tellus/internal/platform/httpx"
	"github.com/tellus-gis/tellus/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	PermissionsHandler *permission.Handler
	Evaluator          *permission.Evaluator
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Tellus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/admin/permissions", params.PermissionsHandler.MountRoutes)
	r.Post("/authz/check", checkHandler(params.Evaluator))

	return r
}

type checkRequest struct {
	EntityID  int64  `json:"entityId"`
	ClassName string `json:"className"`
	Action    string `json:"action"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// checkHandler answers authorization questions for the authenticated caller.
// It always returns a decision; malformed input is simply a deny.
func checkHandler(evaluator *permission.Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.JSON(w, http.StatusOK, checkResponse{Allowed: false})
			return
		}
		principal := shared.PrincipalFromContext(r.Context())
		allowed := evaluator.Evaluate(r.Context(), principal,
			permission.EntityRef{ID: req.EntityID, Class: req.ClassName}, req.Action)
		httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
	}
}
