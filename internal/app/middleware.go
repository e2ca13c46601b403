package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/tellus-gis/tellus/internal/observability"
	"github.com/tellus-gis/tellus/internal/shared"
)

// Headers set by the ingress OIDC proxy after it has authenticated the
// request. Verifying them is the proxy's job; this service only consumes the
// claims.
const (
	headerAuthSubject = "X-Auth-Subject"
	headerAuthEmail   = "X-Auth-Email"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the Tellus middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	principalMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subject := r.Header.Get(headerAuthSubject); subject != "" {
				ctx := shared.ContextWithPrincipal(r.Context(), &shared.Principal{
					Subject: subject,
					Email:   r.Header.Get(headerAuthEmail),
				})
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}

	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(30 * time.Second),
		httprate.LimitByIP(300, time.Minute),
		secureMiddleware.Handler,
		cfg.Metrics.Middleware,
		principalMiddleware,
	}
}
