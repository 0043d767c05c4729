package social

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"resenhas/pkg/models"
	"resenhas/pkg/policy"
	"resenhas/pkg/store"
)

// ReviewInput is the writable part of a review. Nil fields are absent from
// the request.
type ReviewInput struct {
	Title    *string `json:"titulo_livro" form:"titulo_livro" validate:"required,notblank,maxwords=50,max=1000"`
	Author   *string `json:"autor_livro" form:"autor_livro" validate:"required,notblank,maxwords=50,max=1000"`
	ImageURL *string `json:"url_imagem" form:"url_imagem" validate:"omitempty,max=500,http_url"`
	Text     *string `json:"texto_resenha" form:"texto_resenha" validate:"required,notblank,maxwords=500"`
	Rating   *int    `json:"nota" form:"nota" validate:"required,oneof=1 2 3 4 5"`
}

// normalize trims text fields; an empty image URL means "no image".
func (in ReviewInput) normalize() ReviewInput {
	in.Title = trim(in.Title)
	in.Author = trim(in.Author)
	in.Text = trim(in.Text)
	in.ImageURL = trim(in.ImageURL)
	if in.ImageURL != nil && *in.ImageURL == "" {
		in.ImageURL = nil
	}
	return in
}

// Validate checks in. With partial set only present fields are checked.
func (in ReviewInput) Validate(partial bool) error {
	in = in.normalize()
	var present []string
	if in.Title != nil {
		present = append(present, "Title")
	}
	if in.Author != nil {
		present = append(present, "Author")
	}
	if in.ImageURL != nil {
		present = append(present, "ImageURL")
	}
	if in.Text != nil {
		present = append(present, "Text")
	}
	if in.Rating != nil {
		present = append(present, "Rating")
	}
	return check(&in, partial, present)
}

func (in ReviewInput) apply(r *models.Review) {
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		r.Author = strings.TrimSpace(*in.Author)
	}
	if in.Text != nil {
		r.Text = strings.TrimSpace(*in.Text)
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.ImageURL != nil {
		if u := strings.TrimSpace(*in.ImageURL); u == "" {
			r.ImageURL = nil
		} else {
			r.ImageURL = &u
		}
	}
}

// ListOptions filter and order the review list.
type ListOptions struct {
	OnlyMine bool
	Search   string
	Ordering string
}

var reviewOrderings = map[string]string{
	"nota":          "reviews.rating ASC, reviews.id ASC",
	"-nota":         "reviews.rating DESC, reviews.id DESC",
	"data_criacao":  "reviews.created_at ASC, reviews.id ASC",
	"-data_criacao": "reviews.created_at DESC, reviews.id DESC",
}

const defaultReviewOrdering = "-data_criacao"

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes LIKE wildcards in a search term match literally.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func reviewQuery(db *gorm.DB) *gorm.DB {
	return withUser(db).Preload("Likes.Profile")
}

// ListReviews returns the matching reviews and every comment that belongs
// to them. only_mine is ignored for anonymous callers.
func (s *Service) ListReviews(ctx context.Context, actorID *uint, opts ListOptions) ([]models.Review, []models.Comment, error) {
	q := reviewQuery(s.db.WithContext(ctx)).Model(&models.Review{})

	if opts.OnlyMine && actorID != nil {
		q = q.Where("reviews.user_id = ?", *actorID)
	}
	if term := strings.ToLower(strings.TrimSpace(opts.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Select("reviews.*").
			Joins("JOIN users ON users.id = reviews.user_id").
			Where(`LOWER(reviews.title) LIKE ? ESCAPE '\' OR LOWER(reviews.author) LIKE ? ESCAPE '\' OR `+
				`LOWER(reviews.text) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\'`,
				like, like, like, like)
	}
	order, ok := reviewOrderings[opts.Ordering]
	if !ok {
		order = reviewOrderings[defaultReviewOrdering]
	}

	var reviews []models.Review
	if err := q.Order(order).Find(&reviews).Error; err != nil {
		return nil, nil, fmt.Errorf("list reviews: %w", err)
	}

	ids := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	comments, err := s.commentsOf(ctx, ids...)
	if err != nil {
		return nil, nil, err
	}
	return reviews, comments, nil
}

// GetReview returns a review and all of its comments.
func (s *Service) GetReview(ctx context.Context, id uint) (*models.Review, []models.Comment, error) {
	var r models.Review
	if err := reviewQuery(s.db.WithContext(ctx)).First(&r, id).Error; err != nil {
		return nil, nil, notFound(err, "review")
	}
	comments, err := s.commentsOf(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	return &r, comments, nil
}

// CreateReview stores a review owned by actorID.
func (s *Service) CreateReview(ctx context.Context, actorID uint, in ReviewInput) (*models.Review, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	r := models.Review{UserID: actorID}
	in.apply(&r)
	if err := s.db.WithContext(ctx).Omit("User", "Likes", "Comments").Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	out, _, err := s.GetReview(ctx, r.ID)
	return out, err
}

// UpdateReview replaces (partial=false) or patches a review owned by actorID.
func (s *Service) UpdateReview(ctx context.Context, actorID, id uint, in ReviewInput, partial bool) (*models.Review, []models.Comment, error) {
	var r models.Review
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, nil, notFound(err, "review")
	}
	if err := policy.Authorize(actorID, r.UserID, policy.ActionUpdate); err != nil {
		return nil, nil, err
	}
	if err := in.Validate(partial); err != nil {
		return nil, nil, err
	}
	if !partial && in.ImageURL == nil {
		empty := ""
		in.ImageURL = &empty
	}
	in.apply(&r)
	err := s.db.WithContext(ctx).Model(&r).
		Select("Title", "Author", "ImageURL", "Text", "Rating").
		Updates(&r).Error
	if err != nil {
		return nil, nil, fmt.Errorf("update review: %w", err)
	}
	return s.GetReview(ctx, r.ID)
}

// DeleteReview removes a review owned by actorID together with its comments.
func (s *Service) DeleteReview(ctx context.Context, actorID, id uint) error {
	var r models.Review
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&r, id).Error; err != nil {
		return notFound(err, "review")
	}
	if err := policy.Authorize(actorID, r.UserID, policy.ActionDelete); err != nil {
		return err
	}
	return store.DeleteReview(ctx, s.db, r.ID)
}

// Like toggle outcomes.
const (
	StatusLiked   = "liked"
	StatusUnliked = "unliked"
)

type LikeResult struct {
	Status     string `json:"status"`
	TotalLikes int64  `json:"total_likes"`
}

func likeResult(liked bool, total int64) LikeResult {
	if liked {
		return LikeResult{Status: StatusLiked, TotalLikes: total}
	}
	return LikeResult{Status: StatusUnliked, TotalLikes: total}
}

// ToggleReviewLike flips actorID's like on a review and notifies the owner
// on a new like.
func (s *Service) ToggleReviewLike(ctx context.Context, actorID, id uint) (LikeResult, error) {
	var res LikeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Review
		if err := tx.Select("id", "user_id").First(&r, id).Error; err != nil {
			return notFound(err, "review")
		}
		liked, total, err := store.ToggleLike(tx, store.ReviewLikes, r.ID, actorID)
		if err != nil {
			return err
		}
		if liked {
			if err := notify(tx, actorID, r.UserID, models.NotificationLike, &r.ID); err != nil {
				return err
			}
		}
		res = likeResult(liked, total)
		return nil
	})
	return res, err
}
