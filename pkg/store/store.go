// Package store holds the multi-row writes that must happen in one
// transaction: account creation, like toggles and cascading deletes.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/models"
)

// Like join tables and their owner columns.
const (
	ReviewLikes  = "review_likes"
	CommentLikes = "comment_likes"
)

var ownerColumns = map[string]string{
	ReviewLikes:  "review_id",
	CommentLikes: "comment_id",
}

// CreateUserWithProfile inserts the user and its empty profile together.
func CreateUserWithProfile(ctx context.Context, db *gorm.DB, user *models.User) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile := user.Profile
		user.Profile = nil
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if profile == nil {
			profile = &models.Profile{}
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		user.Profile = profile
		return nil
	})
}

// ToggleLike flips userID's membership in the like set of ownerID and
// returns the new state together with the resulting like count.
func ToggleLike(tx *gorm.DB, table string, ownerID, userID uint) (liked bool, total int64, err error) {
	col, ok := ownerColumns[table]
	if !ok {
		return false, 0, fmt.Errorf("unknown like table %q", table)
	}

	var n int64
	if err := tx.Table(table).Where(col+" = ? AND user_id = ?", ownerID, userID).Count(&n).Error; err != nil {
		return false, 0, fmt.Errorf("check like: %w", err)
	}
	if n > 0 {
		err = tx.Exec("DELETE FROM "+table+" WHERE "+col+" = ? AND user_id = ?", ownerID, userID).Error
	} else {
		err = tx.Table(table).Create(map[string]interface{}{col: ownerID, "user_id": userID}).Error
		liked = true
	}
	if err != nil {
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}

	if err := tx.Table(table).Where(col+" = ?", ownerID).Count(&total).Error; err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}
	return liked, total, nil
}

// DeleteReview removes a review with its comments and like rows.
// Notifications that point at it keep existing with a null review.
func DeleteReview(ctx context.Context, db *gorm.DB, reviewID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.Select("id").First(&review, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return fmt.Errorf("load review: %w", err)
		}

		if err := tx.Model(&models.Notification{}).
			Where("review_id = ?", reviewID).
			Update("review_id", nil).Error; err != nil {
			return fmt.Errorf("detach notifications: %w", err)
		}

		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("review_id = ?", reviewID).Pluck("id", &commentIDs).Error; err != nil {
			return fmt.Errorf("load comments: %w", err)
		}
		if err := deleteComments(tx, commentIDs); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+ReviewLikes+" WHERE review_id = ?", reviewID).Error; err != nil {
			return fmt.Errorf("delete review likes: %w", err)
		}
		if err := tx.Delete(&models.Review{}, reviewID).Error; err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		return nil
	})
}

// DeleteComment removes a comment and its whole reply subtree.
func DeleteComment(ctx context.Context, db *gorm.DB, commentID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.Select("id").First(&root, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return fmt.Errorf("load comment: %w", err)
		}

		ids := []uint{root.ID}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return fmt.Errorf("load replies: %w", err)
			}
			ids = append(ids, children...)
			frontier = children
		}
		return deleteComments(tx, ids)
	})
}

func deleteComments(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM "+CommentLikes+" WHERE comment_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}
	// unlink the subtree so row order inside the DELETE does not matter
	if err := tx.Model(&models.Comment{}).Where("id IN ?", ids).Update("parent_id", nil).Error; err != nil {
		return fmt.Errorf("detach replies: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
