package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"casecraft_echo/internal/services"
)

const (
	SessionCookieName = "session"
	identityKey       = "identity"
)

// Verifier checks a credential and returns the verified identity.
type Verifier interface {
	Verify(ctx context.Context, cred services.Credential) (*services.Identity, error)
}

// CredentialFromRequest extracts the caller's credential. A bearer ID token
// takes precedence over the session cookie.
func CredentialFromRequest(c echo.Context) services.Credential {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return services.Credential{Kind: services.CredentialIDToken, Value: strings.TrimSpace(token)}
		}
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return services.Credential{Kind: services.CredentialSessionCookie, Value: cookie.Value}
	}
	return services.Credential{}
}

// RequireAuth returns a middleware that verifies the bearer token or session
// cookie and stores the identity on the context.
func RequireAuth(verifier Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := CredentialFromRequest(c)
			identity, err := verifier.Verify(c.Request().Context(), cred)
			if err != nil {
				if cred.Kind == services.CredentialSessionCookie {
					ClearSessionCookie(c)
				}
				return err
			}

			c.Set(identityKey, identity)
			c.Set("userUID", identity.SubjectID)
			c.Set("userEmail", identity.Email)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by RequireAuth.
func IdentityFrom(c echo.Context) (*services.Identity, bool) {
	identity, ok := c.Get(identityKey).(*services.Identity)
	return identity, ok
}

func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}
