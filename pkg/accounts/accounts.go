// Package accounts handles registration, the caller's own account and
// public profile lookups.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/auth"
	"resenhas/pkg/media"
	"resenhas/pkg/models"
	"resenhas/pkg/queue"
	"resenhas/pkg/store"
	"resenhas/pkg/validation"
)

const avatarFolder = "avatars"

type Service struct {
	db         *gorm.DB
	media      media.Store
	allowedExt []string
	maxUpload  int64
	retry      RetryQueue
}

// RetryQueue takes media deletions that failed so they can be attempted
// again on a later avatar change.
type RetryQueue interface {
	Enqueue(ref string, maxAttempts int)
	Drain(ctx context.Context, handle queue.Handler) int
}

func NewService(db *gorm.DB, mediaStore media.Store, allowedExt []string, maxUpload int64) *Service {
	return &Service{db: db, media: mediaStore, allowedExt: allowedExt, maxUpload: maxUpload}
}

// WithRetryQueue makes failed avatar deletions retry through q instead of
// being dropped.
func (s *Service) WithRetryQueue(q RetryQueue) *Service {
	s.retry = q
	return s
}

type RegisterInput struct {
	Username string `json:"username" form:"username" validate:"required,max=150,username"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Register creates a user and its profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	v := apperr.NewValidation()
	if err := s.checkUnique(ctx, v, 0, &in.Username, &in.Email); err != nil {
		return nil, err
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := store.CreateUserWithProfile(ctx, s.db, u); err != nil {
		return nil, err
	}
	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Me returns the user with its profile.
func (s *Service) Me(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

// PublicProfile looks a user up by username.
func (s *Service) PublicProfile(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

// Upload is an avatar file received with an account update.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// UpdateInput lists the account fields a caller may change. Nil fields are
// left untouched.
type UpdateInput struct {
	Username *string `json:"username" form:"username" validate:"omitempty,notblank,max=150,username"`
	Email    *string `json:"email" form:"email" validate:"omitempty,notblank,email"`
	Hobbies  *string `json:"hobbies" form:"hobbies"`
	Bio      *string `json:"bio" form:"bio" validate:"omitempty,max=300"`
	Avatar   *Upload `json:"-" form:"-" validate:"-"`
}

// UpdateAccount applies the present fields of in to userID's account and
// profile. A new avatar replaces the previous file.
func (s *Service) UpdateAccount(ctx context.Context, userID uint, in UpdateInput) (*models.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.Username = trimmed(in.Username)
	in.Email = trimmed(in.Email)
	v := apperr.NewValidation()
	if err := validation.Struct(&in); err != nil {
		fieldErrs, ok := apperr.AsValidation(err)
		if !ok {
			return nil, err
		}
		v = fieldErrs
	}
	if in.Avatar != nil {
		s.checkAvatar(v, in.Avatar)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, v, u.ID, in.Username, in.Email); err != nil {
		return nil, err
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	profile := u.Profile
	if profile == nil {
		profile = &models.Profile{UserID: u.ID}
	}
	oldAvatar := profile.Avatar

	var newAvatar string
	if in.Avatar != nil {
		newAvatar, err = s.media.Save(ctx, media.NewKey(avatarFolder, in.Avatar.Filename), in.Avatar.Body, in.Avatar.Size, in.Avatar.ContentType)
		if err != nil {
			return nil, fmt.Errorf("save avatar: %w", err)
		}
		profile.Avatar = newAvatar
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Hobbies != nil {
		profile.Hobbies = *in.Hobbies
	}
	if in.Bio != nil {
		profile.Bio = *in.Bio
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Select("Username", "Email").Updates(u).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if err := tx.Save(profile).Error; err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
	if err != nil {
		if newAvatar != "" {
			s.discard(ctx, newAvatar)
		}
		return nil, err
	}
	if newAvatar != "" && oldAvatar != "" && oldAvatar != newAvatar {
		s.discard(ctx, oldAvatar)
	}
	if newAvatar != "" && s.retry != nil {
		s.retry.Drain(ctx, s.media.Delete)
	}
	u.Profile = profile
	return u, nil
}

func (s *Service) discard(ctx context.Context, ref string) {
	err := s.media.Delete(ctx, ref)
	if err == nil {
		return
	}
	if s.retry == nil {
		slog.Warn("failed to delete avatar", "ref", ref, "err", err)
		return
	}
	slog.Warn("failed to delete avatar, will retry", "ref", ref, "err", err)
	s.retry.Enqueue(ref, 0)
}

func (s *Service) checkAvatar(v *apperr.ValidationError, up *Upload) {
	if err := media.CheckExtension(up.Filename, s.allowedExt); err != nil {
		v.Add("avatar", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		return
	}
	if s.maxUpload > 0 && up.Size > s.maxUpload {
		v.Add("avatar", fmt.Sprintf("Ensure the file is at most %d bytes.", s.maxUpload))
	}
}

// checkUnique adds errors for a username or email already used by a user
// other than selfID.
func (s *Service) checkUnique(ctx context.Context, v *apperr.ValidationError, selfID uint, username, email *string) error {
	taken := func(column, value string) (bool, error) {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where(column+" = ? AND id <> ?", value, selfID).
			Count(&n).Error
		if err != nil {
			return false, fmt.Errorf("check %s: %w", column, err)
		}
		return n > 0, nil
	}

	if username != nil && *username != "" {
		ok, err := taken("username", *username)
		if err != nil {
			return err
		}
		if ok {
			v.Add("username", "A user with that username already exists.")
		}
	}
	if email != nil && *email != "" {
		ok, err := taken("email", *email)
		if err != nil {
			return err
		}
		if ok {
			v.Add("email", "A user with that email already exists.")
		}
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
