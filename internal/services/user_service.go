package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// EnsureUser returns the local user for the verified identity, creating it on
// first use. Identities without an email cannot own orders.
func (s *UserService) EnsureUser(ctx context.Context, id *Identity) (*models.User, error) {
	if id.Email == "" {
		return nil, ErrIncompleteIdentity
	}

	user, err := s.users.Upsert(ctx, &models.User{
		FirebaseUID: id.SubjectID,
		Email:       id.Email,
		Name:        id.DisplayName,
		ImageURL:    id.PhotoURL,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", id.SubjectID).Msg("failed to upsert user")
		return nil, newError(ErrInternal, err)
	}
	return user, nil
}
