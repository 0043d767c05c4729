package social

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"resenhas/pkg/models"
	"resenhas/pkg/policy"
	"resenhas/pkg/store"
)

type CommentInput struct {
	Text     *string `json:"texto" form:"texto" validate:"required,notblank,max=200"`
	ParentID *uint   `json:"parent_id" form:"parent_id"`
}

func (in CommentInput) Validate(partial bool) error {
	in.Text = trim(in.Text)
	var present []string
	if in.Text != nil {
		present = append(present, "Text")
	}
	return check(&in, partial, present)
}

func (in CommentInput) hasParent() bool {
	return in.ParentID != nil && *in.ParentID != 0
}

// commentsOf loads every comment of the given reviews in one query, oldest
// first, with authors and like sets.
func (s *Service) commentsOf(ctx context.Context, reviewIDs ...uint) ([]models.Comment, error) {
	if len(reviewIDs) == 0 {
		return nil, nil
	}
	var comments []models.Comment
	err := withUser(s.db.WithContext(ctx)).
		Preload("Likes").
		Where("review_id IN ?", reviewIDs).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return comments, nil
}

// CreateComment adds a comment, or a reply when ParentID is set, and
// notifies the review owner.
func (s *Service) CreateComment(ctx context.Context, actorID, reviewID uint, in CommentInput) (*models.Comment, error) {
	var c models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Review
		if err := tx.Select("id", "user_id").First(&r, reviewID).Error; err != nil {
			return notFound(err, "review")
		}

		var parentID *uint
		if in.hasParent() {
			var parent models.Comment
			err := tx.Select("id").Where("review_id = ?", r.ID).First(&parent, *in.ParentID).Error
			if err != nil {
				return notFound(err, "parent comment")
			}
			parentID = &parent.ID
		}

		if err := in.Validate(false); err != nil {
			return err
		}

		c = models.Comment{UserID: actorID, ReviewID: r.ID, ParentID: parentID, Text: *trim(in.Text)}
		if err := tx.Omit("User", "Replies", "Likes").Create(&c).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return notify(tx, actorID, r.UserID, models.NotificationComment, &r.ID)
	})
	if err != nil {
		return nil, err
	}
	out, _, err := s.GetComment(ctx, c.ID)
	return out, err
}

// GetComment returns a comment and the other comments of its review, from
// which its reply subtree can be built.
func (s *Service) GetComment(ctx context.Context, id uint) (*models.Comment, []models.Comment, error) {
	var c models.Comment
	if err := withUser(s.db.WithContext(ctx)).Preload("Likes").First(&c, id).Error; err != nil {
		return nil, nil, notFound(err, "comment")
	}
	related, err := s.commentsOf(ctx, c.ReviewID)
	if err != nil {
		return nil, nil, err
	}
	return &c, related, nil
}

// UpdateComment changes the text of a comment owned by actorID.
func (s *Service) UpdateComment(ctx context.Context, actorID, id uint, in CommentInput, partial bool) (*models.Comment, []models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, nil, notFound(err, "comment")
	}
	if err := policy.Authorize(actorID, c.UserID, policy.ActionUpdate); err != nil {
		return nil, nil, err
	}
	if err := in.Validate(partial); err != nil {
		return nil, nil, err
	}
	if in.Text != nil {
		if err := s.db.WithContext(ctx).Model(&c).Update("text", *trim(in.Text)).Error; err != nil {
			return nil, nil, fmt.Errorf("update comment: %w", err)
		}
	}
	return s.GetComment(ctx, c.ID)
}

// DeleteComment removes a comment owned by actorID and all of its replies.
func (s *Service) DeleteComment(ctx context.Context, actorID, id uint) error {
	var c models.Comment
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&c, id).Error; err != nil {
		return notFound(err, "comment")
	}
	if err := policy.Authorize(actorID, c.UserID, policy.ActionDelete); err != nil {
		return err
	}
	return store.DeleteComment(ctx, s.db, c.ID)
}

// ToggleCommentLike flips actorID's like on a comment. New likes notify the
// comment author, referencing the comment's review.
func (s *Service) ToggleCommentLike(ctx context.Context, actorID, id uint) (LikeResult, error) {
	var res LikeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Select("id", "user_id", "review_id").First(&c, id).Error; err != nil {
			return notFound(err, "comment")
		}
		liked, total, err := store.ToggleLike(tx, store.CommentLikes, c.ID, actorID)
		if err != nil {
			return err
		}
		if liked {
			if err := notify(tx, actorID, c.UserID, models.NotificationLike, &c.ReviewID); err != nil {
				return err
			}
		}
		res = likeResult(liked, total)
		return nil
	})
	return res, err
}
