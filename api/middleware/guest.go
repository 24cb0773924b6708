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

const guestSessionBytes = 24

// GuestSession attaches the anonymous cart session to requests without a logged-in user,
// minting the cookie on first use.
func GuestSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}

			var sessionID string
			if c, err := r.Cookie(cfg.GuestCookie); err == nil {
				sessionID = strings.TrimSpace(c.Value)
			}
			if sessionID == "" {
				token, err := security.NewToken(guestSessionBytes)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "guest session"))
					return
				}
				sessionID = token
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.GuestCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.GuestCookieTTL.Seconds()),
					Secure:   cfg.SecureCookies,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithGuestSession(r.Context(), sessionID)))
		})
	}
}
