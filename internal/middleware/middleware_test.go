package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casecraft_echo/internal/services"
)

type stubVerifier struct {
	identity *services.Identity
	err      error
	got      services.Credential
}

func (s *stubVerifier) Verify(ctx context.Context, cred services.Credential) (*services.Identity, error) {
	s.got = cred
	if cred.Value == "" {
		return nil, services.ErrUnauthenticated
	}
	return s.identity, s.err
}

func newTestServer(verifier Verifier) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = CustomErrorHandler
	e.GET("/me", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return errors.New("no identity")
		}
		return c.String(http.StatusOK, id.SubjectID)
	}, RequireAuth(verifier))
	return e
}

func TestRequireAuth(t *testing.T) {
	verifier := &stubVerifier{identity: &services.Identity{SubjectID: "uid-1", Email: "a@example.com"}}
	e := newTestServer(verifier)

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer tok-123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "uid-1", rec.Body.String())
		assert.Equal(t, services.Credential{Kind: services.CredentialIDToken, Value: "tok-123"}, verifier.got)
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-1"})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, services.CredentialSessionCookie, verifier.got.Kind)
	})

	t.Run("missing credential", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unauthenticated", body.Error.Kind)
		assert.Equal(t, "please log in again", body.Error.Message)
	})

	t.Run("rejected cookie is cleared", func(t *testing.T) {
		e := newTestServer(&stubVerifier{err: services.ErrUnauthenticated})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "session=;")
	})
}

func TestCustomErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
		wantMsg  string
	}{
		{"service error", services.ErrPaymentProvider, http.StatusBadGateway, "payment_provider_error", "payment provider unavailable, try again"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "bad json"), http.StatusBadRequest, "invalid_input", "bad json"},
		{"route not found", echo.ErrNotFound, http.StatusNotFound, "not_found", "Not Found"},
		{"raw error hides cause", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal", "something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			CustomErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}
