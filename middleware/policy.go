package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenpair"
	"go.uber.org/zap"
)

// Rule grants a path prefix to holders of any of Roles.
type Rule struct {
	Prefix string
	Roles  []tokenpair.Role
}

// DefaultRules grants /api/user to USER and /api/admin to ADMIN.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/api/user", Roles: []tokenpair.Role{tokenpair.RoleUser}},
		{Prefix: "/api/admin", Roles: []tokenpair.Role{tokenpair.RoleAdmin}},
	}
}

func (r Rule) matches(path string) bool {
	prefix := strings.TrimSuffix(r.Prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Policy enforces rules on authenticated requests. The first matching
// rule decides; a path no rule matches is denied.
func Policy(engine *tokenpair.Engine, log *zap.Logger, rules ...Rule) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := tokenpair.PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, r, http.StatusUnauthorized)
				return
			}

			var roles []tokenpair.Role
			for _, rule := range rules {
				if rule.matches(r.URL.Path) {
					roles = rule.Roles
					break
				}
			}
			// With no roles AuthorizeRole always denies.
			if err := engine.AuthorizeRole(r.Context(), p, roles...); err != nil {
				reject(log, w, r, StageResourceAccess, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
