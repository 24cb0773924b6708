package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/api/middleware"
	"github.com/solarflow/solarshop-backend/api/responses"
	"github.com/solarflow/solarshop-backend/api/validators"
	"github.com/solarflow/solarshop-backend/internal/auth"
	pkgAuth "github.com/solarflow/solarshop-backend/pkg/auth"
	"github.com/solarflow/solarshop-backend/pkg/config"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

const refreshCookiePath = "/api/v1/auth"

// guestCartMerger moves a guest cart onto the user who just signed in.
type guestCartMerger interface {
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type refreshBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthCSRF issues a fresh CSRF cookie and echoes the token.
func AuthCSRF(cookies config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := middleware.IssueCSRFCookie(w, cookies)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue csrf token"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"csrf_token": token})
	}
}

// AuthRegister opens a customer account and signs the user in.
func AuthRegister(svc auth.Service, carts guestCartMerger, cookies config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adoptGuestCart(w, r, carts, cookies, sess, logg)
		setSessionCookies(w, cookies, sess)
		responses.WriteSuccessStatus(w, http.StatusCreated, sess)
	}
}

// AuthLogin exchanges credentials for a session.
func AuthLogin(svc auth.Service, carts guestCartMerger, cookies config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Login(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adoptGuestCart(w, r, carts, cookies, sess, logg)
		setSessionCookies(w, cookies, sess)
		responses.WriteSuccess(w, sess)
	}
}

// AuthRefresh rotates the refresh token. Tokens come from the body or, for browsers, the session cookies.
func AuthRefresh(svc auth.Service, cookies config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		var body refreshBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req := auth.RefreshRequest{
			AccessToken:  firstNonEmpty(body.AccessToken, bearerToken(r), cookieValue(r, cookies.AccessCookie)),
			RefreshToken: firstNonEmpty(body.RefreshToken, cookieValue(r, cookies.RefreshCookie)),
		}
		if req.AccessToken == "" || req.RefreshToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		sess, err := svc.Refresh(r.Context(), req)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeUnauthorized {
				clearSessionCookies(w, cookies)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookies(w, cookies, sess)
		responses.WriteSuccess(w, sess)
	}
}

// AuthLogout revokes the session tied to the presented access token. Expired tokens are accepted.
func AuthLogout(svc auth.Service, jwtCfg config.JWTConfig, cookies config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		token := firstNonEmpty(bearerToken(r), cookieValue(r, cookies.AccessCookie))
		if token != "" {
			if claims, err := pkgAuth.ParseAccessTokenAllowExpired(jwtCfg, token); err == nil {
				if err := svc.Logout(r.Context(), claims.ID); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
		}

		clearSessionCookies(w, cookies)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthMe returns the signed-in user.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		user, err := svc.Me(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// adoptGuestCart merges the anonymous cart into the account. Failures are logged; the sign-in still succeeds.
func adoptGuestCart(w http.ResponseWriter, r *http.Request, carts guestCartMerger, cookies config.SessionConfig, sess *auth.Session, logg *logger.Logger) {
	guest := cookieValue(r, cookies.GuestCookie)
	if carts == nil || guest == "" || sess == nil || sess.User == nil {
		return
	}
	if err := carts.MergeGuest(r.Context(), guest, sess.User.ID); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(r.Context(), "user_id", sess.User.ID.String()), "cart.merge_guest_failed", err)
		}
		return
	}
	expireCookie(w, cookies, cookies.GuestCookie, "/")
}

func setSessionCookies(w http.ResponseWriter, cookies config.SessionConfig, sess *auth.Session) {
	if sess == nil {
		return
	}
	// The access cookie outlives the JWT so refresh can still read the expired token.
	http.SetCookie(w, &http.Cookie{
		Name:     cookies.AccessCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		Expires:  sess.RefreshExpiresAt,
		Secure:   cookies.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookies.RefreshCookie,
		Value:    sess.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  sess.RefreshExpiresAt,
		Secure:   cookies.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookies(w http.ResponseWriter, cookies config.SessionConfig) {
	expireCookie(w, cookies, cookies.AccessCookie, "/")
	expireCookie(w, cookies, cookies.RefreshCookie, refreshCookiePath)
}

func expireCookie(w http.ResponseWriter, cookies config.SessionConfig, name, path string) {
	if name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   cookies.SecureCookies,
		HttpOnly: true,
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func cookieValue(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
