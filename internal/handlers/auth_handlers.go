package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/middleware"
	"casecraft_echo/internal/models"
	"casecraft_echo/internal/services"
)

const sessionDuration = 5 * 24 * time.Hour

type SessionManager interface {
	Verify(ctx context.Context, cred services.Credential) (*services.Identity, error)
	CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	Revoke(ctx context.Context, subjectID string) error
}

type UserEnsurer interface {
	EnsureUser(ctx context.Context, id *services.Identity) (*models.User, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessions     SessionManager
	users        UserEnsurer
	secureCookie bool
}

func NewAuthHandler(sessions SessionManager, users UserEnsurer, secureCookie bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users, secureCookie: secureCookie}
}

// HandleLogin verifies the Firebase ID token, makes sure the local user
// exists and sets a session cookie.
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	cred := middleware.CredentialFromRequest(c)
	if cred.Kind != services.CredentialIDToken || cred.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	ctx := c.Request().Context()
	identity, err := h.sessions.Verify(ctx, cred)
	if err != nil {
		return err
	}
	user, err := h.users.EnsureUser(ctx, identity)
	if err != nil {
		return err
	}

	cookieValue, err := h.sessions.CreateSessionCookie(ctx, cred.Value, sessionDuration)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    cookieValue,
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   user,
	})
}

// HandleLogout revokes the caller's sessions when it can identify them and
// always clears the cookie.
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	ctx := c.Request().Context()
	if identity, err := h.sessions.Verify(ctx, middleware.CredentialFromRequest(c)); err == nil {
		if err := h.sessions.Revoke(ctx, identity.SubjectID); err != nil {
			log.Warn().Err(err).Str("user_id", identity.SubjectID).Msg("failed to revoke sessions")
		}
	}
	middleware.ClearSessionCookie(c)

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}

// Me returns the local user of the authenticated caller, creating it on the
// first visit after sign-in.
func (h *AuthHandler) Me(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return services.ErrUnauthenticated
	}
	user, err := h.users.EnsureUser(c.Request().Context(), identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
