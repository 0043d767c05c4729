package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/models"
	"resenhas/pkg/validation"
)

type MessageInput struct {
	RecipientUsername string `json:"destinatario_username" form:"destinatario_username"`
	Text              string `json:"texto" form:"texto" validate:"notblank"`
}

func withSender(db *gorm.DB) *gorm.DB {
	return db.Preload("Sender.Profile")
}

// SendMessage delivers a direct message and notifies the recipient.
func (s *Service) SendMessage(ctx context.Context, actorID uint, in MessageInput) (*models.Message, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	var m models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipient models.User
		err := tx.Select("id").Where("username = ?", strings.TrimSpace(in.RecipientUsername)).First(&recipient).Error
		if err != nil {
			return notFound(err, "recipient")
		}
		m = models.Message{SenderID: actorID, RecipientID: recipient.ID, Text: in.Text}
		if err := tx.Omit("Sender", "Recipient").Create(&m).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return notify(tx, actorID, recipient.ID, models.NotificationMessage, nil)
	})
	if err != nil {
		return nil, err
	}

	var out models.Message
	if err := withSender(s.db.WithContext(ctx)).First(&out, m.ID).Error; err != nil {
		return nil, notFound(err, "message")
	}
	return &out, nil
}

// ListMessages returns every message actorID sent or received, oldest first.
func (s *Service) ListMessages(ctx context.Context, actorID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := withSender(s.db.WithContext(ctx)).
		Where("sender_id = ? OR recipient_id = ?", actorID, actorID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// ErrPeerRequired is returned when a conversation is requested without a peer.
var ErrPeerRequired = apperr.Invalid("user", validation.MsgRequired)

// Conversation returns the messages between actorID and the user named
// peer, oldest first. An unknown peer yields an empty conversation.
func (s *Service) Conversation(ctx context.Context, actorID uint, peer string) ([]models.Message, error) {
	peer = strings.TrimSpace(peer)
	if peer == "" {
		return nil, ErrPeerRequired
	}

	var other models.User
	err := s.db.WithContext(ctx).Select("id").Where("username = ?", peer).First(&other).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load peer: %w", err)
	}

	var msgs []models.Message
	err = withSender(s.db.WithContext(ctx)).
		Where("sender_id = ? OR recipient_id = ?", actorID, actorID).
		Where("sender_id = ? OR recipient_id = ?", other.ID, other.ID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return msgs, nil
}
