package auth

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/models"
)

// Authenticate resolves identifier as a username, then as an email, and
// checks password. Anything other than exactly one matching user with a
// matching password is ErrUnauthorized.
func Authenticate(ctx context.Context, db *gorm.DB, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.ErrUnauthorized
	}

	var matches []models.User
	err := db.WithContext(ctx).
		Where("username = ?", identifier).
		Limit(2).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("lookup user by username: %w", err)
	}
	if len(matches) == 0 {
		err = db.WithContext(ctx).
			Where("email = ?", identifier).
			Limit(2).
			Find(&matches).Error
		if err != nil {
			return nil, fmt.Errorf("lookup user by email: %w", err)
		}
	}
	if len(matches) != 1 {
		return nil, apperr.ErrUnauthorized
	}

	user := matches[0]
	if !CheckPassword(user.PasswordHash, password) {
		return nil, apperr.ErrUnauthorized
	}
	return &user, nil
}
