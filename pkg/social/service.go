// Package social implements reviews, comments, likes, direct messages and
// notifications on top of the entity store.
package social

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// notify records a notification unless the actor is acting on their own
// content.
func notify(tx *gorm.DB, senderID, recipientID uint, kind models.NotificationKind, reviewID *uint) error {
	if senderID == recipientID {
		return nil
	}
	n := models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Kind:        kind,
		ReviewID:    reviewID,
	}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	slog.Debug("notification created", "id", n.ID, "kind", kind, "recipient", recipientID, "sender", senderID)
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func withUser(db *gorm.DB) *gorm.DB {
	return db.Preload("User.Profile")
}
