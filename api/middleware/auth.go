package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/solarflow/solarshop-backend/api/responses"
	pkgAuth "github.com/solarflow/solarshop-backend/pkg/auth"
	"github.com/solarflow/solarshop-backend/pkg/auth/session"
	"github.com/solarflow/solarshop-backend/pkg/config"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

// Authenticator resolves the access token carried by a request, from the
// Authorization header first and the session cookie second.
type Authenticator struct {
	jwt      config.JWTConfig
	cookie   string
	verifier session.AccessSessionChecker
	logg     *logger.Logger
}

func NewAuthenticator(jwtCfg config.JWTConfig, sessionCfg config.SessionConfig, verifier session.AccessSessionChecker, logg *logger.Logger) *Authenticator {
	return &Authenticator{jwt: jwtCfg, cookie: sessionCfg.AccessCookie, verifier: verifier, logg: logg}
}

// Required rejects requests without a valid, live session.
func (a *Authenticator) Required() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := a.authenticate(r)
			if err != nil {
				responses.WriteError(r.Context(), a.logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional seeds the context when a valid token is present and lets anonymous requests through.
// A presented but invalid token is still rejected.
func (a *Authenticator) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.token(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := a.authenticate(r)
			if err != nil {
				responses.WriteError(r.Context(), a.logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Authenticator) token(r *http.Request) string {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if a.cookie == "" {
		return ""
	}
	if c, err := r.Cookie(a.cookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func (a *Authenticator) authenticate(r *http.Request) (context.Context, error) {
	token := a.token(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(a.jwt, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if a.verifier != nil {
		ok, err := a.verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	ctx := WithUser(r.Context(), claims.UserID.String(), string(claims.Role))
	ctx = context.WithValue(ctx, ctxAccessID, claims.ID)
	if a.logg != nil {
		ctx = a.logg.WithUserID(ctx, claims.UserID.String())
		ctx = a.logg.WithActorRole(ctx, string(claims.Role))
	}
	return ctx, nil
}
