package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenpair"
	"go.uber.org/zap"
)

// Guard authenticates the bearer token and requires the ACCESS
// capability. The resolved principal is bound to the request context.
func Guard(engine *tokenpair.Engine, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, r, http.StatusInternalServerError)
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, r, http.StatusUnauthorized)
				return
			}

			p, err := engine.Authenticate(r.Context(), raw)
			if err == nil {
				err = engine.Authorize(r.Context(), p, tokenpair.CapabilityAccess)
			}
			if err != nil {
				reject(log, w, r, "resource_access", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(tokenpair.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole admits requests whose principal holds at least one of roles.
// It must run after Guard.
func RequireRole(engine *tokenpair.Engine, log *zap.Logger, roles ...tokenpair.Role) func(http.Handler) http.Handler {
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
			if err := engine.AuthorizeRole(r.Context(), p, roles...); err != nil {
				reject(log, w, r, "resource_access", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(log *zap.Logger, w http.ResponseWriter, r *http.Request, stage string, err error) {
	status := StatusFor(err)
	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}
	WriteError(w, r, status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
