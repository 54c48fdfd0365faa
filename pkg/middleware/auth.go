package middleware

import (
	"context"
	"net/http"
	"strings"

	"rentcar/pkg/credentials"
	apperrors "rentcar/pkg/errors"
	httputil "rentcar/pkg/http"
	"rentcar/pkg/logger"
	"rentcar/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const PrincipalKey contextKey = "principal"

type TokenParser interface {
	Parse(token string) (*credentials.Claims, error)
}

// Authenticate resolves the caller from a Bearer token or the session cookie
// and rejects the request with 401 when neither carries a valid token.
func Authenticate(tokens TokenParser, log *logger.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			raw := extractToken(r)
			if raw == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized to access this route"))
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				log.Debug("Rejected session token",
					"request_id", RequestIDFromContext(r.Context()),
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized to access this route"))
				return
			}

			principal := model.Principal{UserID: claims.UserID, Role: claims.Role}
			next(w, r.WithContext(WithPrincipal(r.Context(), principal)), ps)
		}
	}
}

// Authorize admits only principals holding one of roles. It must run inside Authenticate.
func Authorize(roles ...string) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized to access this route"))
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next(w, r, ps)
					return
				}
			}

			_ = httputil.WriteError(w, apperrors.Forbidden("User role "+principal.Role+" is not authorized to access this route"))
		}
	}
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(httputil.SessionCookieName); err == nil && cookie.Value != "none" {
		return cookie.Value
	}
	return ""
}

func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(model.Principal)
	return p, ok
}
