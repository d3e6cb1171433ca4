package auth

import (
	"github.com/maruel/dundie/internal/email"
	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/storage"
)

// Authenticate returns the user of address when password matches.
func Authenticate(s *storage.Store, address, password string) (*models.User, error) {
	if !email.IsValid(address) {
		return nil, errors.InvalidEmail(address)
	}
	u, err := s.User.GetByKey(address)
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.Password, password) {
		return nil, errors.Unauthorized("invalid email or password")
	}
	return u, nil
}
