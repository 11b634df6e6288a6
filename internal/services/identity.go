package services

import (
	"context"
	"errors"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog/log"
)

type CredentialKind int

const (
	CredentialIDToken CredentialKind = iota
	CredentialSessionCookie
)

// Credential is the opaque proof of identity a caller presents with a request.
type Credential struct {
	Kind  CredentialKind
	Value string
}

// Identity is a verified subject.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	PhotoURL    string
	Claims      map[string]interface{}
	Expires     time.Time
}

const sessionExpiredMessage = "session expired, please log in again"

type IdentityService struct {
	auth FirebaseAuth
}

func NewIdentityService(auth FirebaseAuth) *IdentityService {
	return &IdentityService{auth: auth}
}

// Verify checks the credential with Firebase, including revocation. Every
// failure is reported as an unauthenticated error.
func (s *IdentityService) Verify(ctx context.Context, cred Credential) (*Identity, error) {
	if cred.Value == "" {
		return nil, ErrUnauthenticated
	}
	if s.auth == nil {
		return nil, newError(ErrUnauthenticated, errors.New("firebase auth not configured"))
	}

	var (
		token *auth.Token
		err   error
	)
	switch cred.Kind {
	case CredentialSessionCookie:
		token, err = s.auth.VerifySessionCookieAndCheckRevoked(ctx, cred.Value)
	default:
		token, err = s.auth.VerifyIDTokenAndCheckRevoked(ctx, cred.Value)
	}
	if err != nil {
		if auth.IsIDTokenExpired(err) || auth.IsSessionCookieExpired(err) {
			return nil, newErrorf(ErrUnauthenticated, err, sessionExpiredMessage)
		}
		return nil, newError(ErrUnauthenticated, err)
	}

	id := &Identity{
		SubjectID: token.UID,
		Claims:    token.Claims,
		Expires:   time.Unix(token.Expires, 0),
	}
	id.Email, _ = token.Claims["email"].(string)
	id.DisplayName, _ = token.Claims["name"].(string)
	id.PhotoURL, _ = token.Claims["picture"].(string)

	if id.Email == "" {
		s.fillFromUserRecord(ctx, id)
	}
	return id, nil
}

// VerifyMatches verifies the credential and additionally requires it to
// belong to expectedSubjectID.
func (s *IdentityService) VerifyMatches(ctx context.Context, cred Credential, expectedSubjectID string) (*Identity, error) {
	id, err := s.Verify(ctx, cred)
	if err != nil {
		return nil, err
	}
	if id.SubjectID != expectedSubjectID {
		return nil, ErrMismatch
	}
	return id, nil
}

// CreateSessionCookie exchanges a fresh ID token for a session cookie.
func (s *IdentityService) CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	if s.auth == nil {
		return "", newError(ErrUnauthenticated, errors.New("firebase auth not configured"))
	}
	cookie, err := s.auth.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", newError(ErrUnauthenticated, err)
	}
	return cookie, nil
}

// Revoke invalidates all refresh tokens and session cookies of the subject.
func (s *IdentityService) Revoke(ctx context.Context, subjectID string) error {
	if s.auth == nil {
		return nil
	}
	if err := s.auth.RevokeRefreshTokens(ctx, subjectID); err != nil {
		return newError(ErrInternal, err)
	}
	return nil
}

// fillFromUserRecord covers providers whose tokens carry no email claim.
func (s *IdentityService) fillFromUserRecord(ctx context.Context, id *Identity) {
	record, err := s.auth.GetUser(ctx, id.SubjectID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id.SubjectID).Msg("failed to fetch firebase user record")
		return
	}
	if record.UserInfo == nil {
		return
	}
	id.Email = record.Email
	if id.DisplayName == "" {
		id.DisplayName = record.DisplayName
	}
	if id.PhotoURL == "" {
		id.PhotoURL = record.PhotoURL
	}
}
