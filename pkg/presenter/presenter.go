// Package presenter turns stored entities into the JSON documents returned
// by the API. Every builder takes the Viewer explicitly; computed fields
// such as liked_by_me and is_mine depend on it.
package presenter

import (
	"sort"
	"time"

	"resenhas/pkg/media"
	"resenhas/pkg/models"
)

// RemovedReviewTitle stands in for the title of a deleted review.
const RemovedReviewTitle = "Conteúdo removido"

// Viewer is the caller a document is rendered for.
type Viewer struct {
	UserID   *uint
	BaseURL  string
	MediaURL string
}

// Anonymous returns a viewer with no identity.
func Anonymous(baseURL, mediaURL string) Viewer {
	return Viewer{BaseURL: baseURL, MediaURL: mediaURL}
}

// As returns a copy of v identified as id.
func (v Viewer) As(id uint) Viewer {
	v.UserID = &id
	return v
}

func (v Viewer) is(id uint) bool {
	return v.UserID != nil && *v.UserID == id
}

func (v Viewer) url(ref string) *string {
	return media.ResolveURL(v.BaseURL, v.MediaURL, ref)
}

func (v Viewer) avatar(u models.User) *string {
	if u.Profile == nil {
		return nil
	}
	return v.url(u.Profile.Avatar)
}

func (v Viewer) likedByMe(likes []models.User) bool {
	if v.UserID == nil {
		return false
	}
	for _, u := range likes {
		if u.ID == *v.UserID {
			return true
		}
	}
	return false
}

type ProfileView struct {
	Avatar  *string `json:"avatar"`
	Hobbies string  `json:"hobbies"`
	Bio     string  `json:"bio"`
}

type UserView struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Profile  ProfileView `json:"perfil"`
}

type PublicUserView struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Profile  ProfileView `json:"perfil"`
}

func (v Viewer) profile(u models.User) ProfileView {
	if u.Profile == nil {
		return ProfileView{}
	}
	return ProfileView{
		Avatar:  v.url(u.Profile.Avatar),
		Hobbies: u.Profile.Hobbies,
		Bio:     u.Profile.Bio,
	}
}

// User renders the caller's own account, email included.
func User(v Viewer, u models.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Profile: v.profile(u)}
}

func PublicUser(v Viewer, u models.User) PublicUserView {
	return PublicUserView{ID: u.ID, Username: u.Username, Profile: v.profile(u)}
}

type Liker struct {
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

type CommentView struct {
	ID         uint          `json:"id"`
	UserID     uint          `json:"usuario_id"`
	Username   string        `json:"usuario_nome"`
	UserAvatar *string       `json:"usuario_avatar"`
	ReviewID   uint          `json:"resenha"`
	ParentID   *uint         `json:"parent"`
	Text       string        `json:"texto"`
	CreatedAt  time.Time     `json:"data_criacao"`
	TotalLikes int           `json:"total_likes"`
	LikedByMe  bool          `json:"liked_by_me"`
	Replies    []CommentView `json:"replies"`
}

type ReviewView struct {
	ID         uint          `json:"id"`
	UserID     uint          `json:"usuario_id"`
	Username   string        `json:"usuario_nome"`
	UserAvatar *string       `json:"usuario_avatar"`
	Title      string        `json:"titulo_livro"`
	Author     string        `json:"autor_livro"`
	ImageURL   *string       `json:"url_imagem"`
	Text       string        `json:"texto_resenha"`
	Rating     int           `json:"nota"`
	CreatedAt  time.Time     `json:"data_criacao"`
	TotalLikes int           `json:"total_likes"`
	LikedByMe  bool          `json:"liked_by_me"`
	Comments   []CommentView `json:"comments"`
	Likers     []Liker       `json:"likers"`
}

// Review renders r. comments holds every comment of the review, in any
// order; the reply tree is rebuilt from their parent references.
func Review(v Viewer, r models.Review, comments []models.Comment) ReviewView {
	likers := make([]Liker, 0, len(r.Likes))
	for _, u := range r.Likes {
		likers = append(likers, Liker{Username: u.Username, Avatar: v.avatar(u)})
	}
	return ReviewView{
		ID:         r.ID,
		UserID:     r.UserID,
		Username:   r.User.Username,
		UserAvatar: v.avatar(r.User),
		Title:      r.Title,
		Author:     r.Author,
		ImageURL:   r.ImageURL,
		Text:       r.Text,
		Rating:     r.Rating,
		CreatedAt:  r.CreatedAt,
		TotalLikes: len(r.Likes),
		LikedByMe:  v.likedByMe(r.Likes),
		Comments:   newTree(comments).roots(v),
		Likers:     likers,
	}
}

// Reviews renders a list, distributing comments to their reviews.
func Reviews(v Viewer, reviews []models.Review, comments []models.Comment) []ReviewView {
	byReview := make(map[uint][]models.Comment)
	for _, c := range comments {
		byReview[c.ReviewID] = append(byReview[c.ReviewID], c)
	}
	out := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, Review(v, r, byReview[r.ID]))
	}
	return out
}

// Comment renders c with its replies; related must contain its descendants.
func Comment(v Viewer, c models.Comment, related []models.Comment) CommentView {
	return newTree(related).render(v, c)
}

type commentTree struct {
	children map[uint][]models.Comment
	top      []models.Comment
}

func newTree(comments []models.Comment) *commentTree {
	t := &commentTree{children: make(map[uint][]models.Comment)}
	for _, c := range comments {
		if c.ParentID == nil {
			t.top = append(t.top, c)
			continue
		}
		t.children[*c.ParentID] = append(t.children[*c.ParentID], c)
	}
	sort.SliceStable(t.top, func(i, j int) bool { return newer(t.top[i], t.top[j]) })
	for id := range t.children {
		kids := t.children[id]
		sort.SliceStable(kids, func(i, j int) bool { return newer(kids[j], kids[i]) })
	}
	return t
}

// newer orders by creation time, then id.
func newer(a, b models.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (t *commentTree) roots(v Viewer) []CommentView {
	out := make([]CommentView, 0, len(t.top))
	for _, c := range t.top {
		out = append(out, t.render(v, c))
	}
	return out
}

func (t *commentTree) render(v Viewer, c models.Comment) CommentView {
	kids := t.children[c.ID]
	replies := make([]CommentView, 0, len(kids))
	for _, k := range kids {
		replies = append(replies, t.render(v, k))
	}
	return CommentView{
		ID:         c.ID,
		UserID:     c.UserID,
		Username:   c.User.Username,
		UserAvatar: v.avatar(c.User),
		ReviewID:   c.ReviewID,
		ParentID:   c.ParentID,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
		TotalLikes: len(c.Likes),
		LikedByMe:  v.likedByMe(c.Likes),
		Replies:    replies,
	}
}

type NotificationView struct {
	ID           uint                    `json:"id"`
	RecipientID  uint                    `json:"destinatario"`
	SenderID     uint                    `json:"remetente"`
	SenderName   string                  `json:"remetente_nome"`
	SenderAvatar *string                 `json:"remetente_avatar"`
	Kind         models.NotificationKind `json:"tipo"`
	ReviewID     *uint                   `json:"resenha"`
	ReviewTitle  string                  `json:"titulo_resenha"`
	Read         bool                    `json:"lida"`
	CreatedAt    time.Time               `json:"data"`
}

func Notification(v Viewer, n models.Notification) NotificationView {
	title := RemovedReviewTitle
	if n.ReviewID != nil && n.Review != nil {
		title = n.Review.Title
	}
	return NotificationView{
		ID:           n.ID,
		RecipientID:  n.RecipientID,
		SenderID:     n.SenderID,
		SenderName:   n.Sender.Username,
		SenderAvatar: v.avatar(n.Sender),
		Kind:         n.Kind,
		ReviewID:     n.ReviewID,
		ReviewTitle:  title,
		Read:         n.Read,
		CreatedAt:    n.CreatedAt,
	}
}

func Notifications(v Viewer, list []models.Notification) []NotificationView {
	out := make([]NotificationView, 0, len(list))
	for _, n := range list {
		out = append(out, Notification(v, n))
	}
	return out
}

type MessageView struct {
	ID           uint      `json:"id"`
	SenderID     uint      `json:"remetente"`
	RecipientID  uint      `json:"destinatario"`
	SenderName   string    `json:"remetente_nome"`
	SenderAvatar *string   `json:"remetente_avatar"`
	Text         string    `json:"texto"`
	CreatedAt    time.Time `json:"data"`
	IsMine       bool      `json:"is_mine"`
}

func Message(v Viewer, m models.Message) MessageView {
	return MessageView{
		ID:           m.ID,
		SenderID:     m.SenderID,
		RecipientID:  m.RecipientID,
		SenderName:   m.Sender.Username,
		SenderAvatar: v.avatar(m.Sender),
		Text:         m.Text,
		CreatedAt:    m.CreatedAt,
		IsMine:       v.is(m.SenderID),
	}
}

func Messages(v Viewer, list []models.Message) []MessageView {
	out := make([]MessageView, 0, len(list))
	for _, m := range list {
		out = append(out, Message(v, m))
	}
	return out
}
