package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/dmitrijs2005/volunteerhub/internal/server/observability"
	"github.com/gorilla/mux"
)

// Guards turns auth.Guard decisions into net/http middleware. On success the
// decoded auth.Identity is attached to the request context.
type Guards struct {
	guard   *auth.Guard
	metrics *observability.Metrics
	log     logging.Logger
}

func NewGuards(guard *auth.Guard, metrics *observability.Metrics, log logging.Logger) *Guards {
	return &Guards{guard: guard, metrics: metrics, log: log.With("module", "guards")}
}

func requestToken(r *http.Request) string {
	return auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
}

func (g *Guards) reject(w http.ResponseWriter, r *http.Request, guard string, err error) {
	kind := common.Kind(err)
	if kind == common.KindInternal {
		g.log.Error(r.Context(), "guard failed", "guard", guard, "path", r.URL.Path, "error", err)
	}
	g.metrics.ObserveGuardRejection(guard, kind.String())

	status, msg := statusFor(err)
	writeErrorMessage(w, status, msg)
}

// Authenticated admits any live, unrevoked token.
func (g *Guards) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.guard.Generic(r.Context(), requestToken(r))
		if err != nil {
			g.reject(w, r, "generic", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireRole admits live tokens whose role is one of roles.
func (g *Guards) RequireRole(roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := g.guard.Role(r.Context(), requestToken(r), roles...)
			if err != nil {
				g.reject(w, r, "role", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// Logout admits decodable tokens with a known role, revoked or not.
func (g *Guards) Logout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.guard.Logout(requestToken(r))
		if err != nil {
			g.reject(w, r, "logout", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}
