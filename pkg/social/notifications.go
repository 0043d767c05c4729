package social

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/models"
)

func notificationQuery(db *gorm.DB, recipientID uint) *gorm.DB {
	return withSender(db).Preload("Review").Where("recipient_id = ?", recipientID)
}

// ListNotifications returns actorID's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, actorID uint) ([]models.Notification, error) {
	var list []models.Notification
	err := notificationQuery(s.db.WithContext(ctx), actorID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// GetNotification returns one of actorID's notifications. Notifications of
// other users are reported as not found.
func (s *Service) GetNotification(ctx context.Context, actorID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := notificationQuery(s.db.WithContext(ctx), actorID).First(&n, id).Error; err != nil {
		return nil, notFound(err, "notification")
	}
	return &n, nil
}

func (s *Service) DeleteNotification(ctx context.Context, actorID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, actorID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every notification of actorID as read.
func (s *Service) MarkAllRead(ctx context.Context, actorID uint) error {
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", actorID, false).
		Update("read", true).Error
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
