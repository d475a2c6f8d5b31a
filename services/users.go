package services

import (
	"context"

	"indibox/models"
	"indibox/repository"
)

// UserService mirrors auth provider identities into the local users table.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// EnsureProfile creates or refreshes the caller's profile row from token claims.
func (s *UserService) EnsureProfile(ctx context.Context, who Identity) (*models.User, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	user := &models.User{
		ID:          who.UserID,
		Email:       who.Email,
		DisplayName: who.Name,
		AvatarURL:   who.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}
