package middleware

import (
	"net/http"
	"strings"

	"github.com/solarflow/solarshop-backend/api/responses"
	"github.com/solarflow/solarshop-backend/pkg/config"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/security"
)

// CSRF enforces the double-submit check on unsafe methods when the caller relies on cookies.
// Requests carrying an Authorization header are not cookie-authenticated and pass through.
func CSRF(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) || strings.TrimSpace(r.Header.Get("Authorization")) != "" || !hasSessionCookie(r, cfg) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cfg.CSRFCookie)
			header := strings.TrimSpace(r.Header.Get(cfg.CSRFHeader))
			if err != nil || cookie.Value == "" || header == "" || !security.TokensEqual(cookie.Value, header) {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "path", r.URL.Path), "csrf.rejected")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "csrf token mismatch"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueCSRFCookie sets a fresh CSRF token readable by browser scripts and returns it.
func IssueCSRFCookie(w http.ResponseWriter, cfg config.SessionConfig) (string, error) {
	token, err := security.NewToken(32)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CSRFCookie,
		Value:    token,
		Path:     "/",
		Secure:   cfg.SecureCookies,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func hasSessionCookie(r *http.Request, cfg config.SessionConfig) bool {
	for _, name := range []string{cfg.AccessCookie, cfg.RefreshCookie, cfg.GuestCookie} {
		if name == "" {
			continue
		}
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}
