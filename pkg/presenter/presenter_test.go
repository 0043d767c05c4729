package presenter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resenhas/pkg/models"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func uintPtr(v uint) *uint { return &v }

func user(id uint, name, avatar string) models.User {
	return models.User{ID: id, Username: name, Email: name + "@example.com", Profile: &models.Profile{UserID: id, Avatar: avatar, Bio: "bio " + name}}
}

func comment(id, review uint, parent *uint, minutes int, author models.User) models.Comment {
	return models.Comment{
		ID:        id,
		UserID:    author.ID,
		User:      author,
		ReviewID:  review,
		ParentID:  parent,
		Text:      "c",
		CreatedAt: t0.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestReviewView(t *testing.T) {
	ana := user(1, "ana", "avatars/ana.png")
	bob := user(2, "bob", "")
	r := models.Review{
		ID: 10, UserID: ana.ID, User: ana, Title: "Dom Casmurro", Author: "Machado",
		Text: "bom", Rating: 5, CreatedAt: t0, Likes: []models.User{bob},
	}
	comments := []models.Comment{
		comment(1, 10, nil, 1, bob),
		comment(2, 10, nil, 5, ana),
		comment(3, 10, uintPtr(1), 9, ana),
		comment(4, 10, uintPtr(1), 3, bob),
		comment(5, 10, uintPtr(4), 4, ana),
	}
	comments[0].Likes = []models.User{ana}

	v := Anonymous("http://localhost:8000", "/media/").As(bob.ID)
	view := Review(v, r, comments)

	assert.Equal(t, 1, view.TotalLikes)
	assert.True(t, view.LikedByMe)
	require.NotNil(t, view.UserAvatar)
	assert.Equal(t, "http://localhost:8000/media/avatars/ana.png", *view.UserAvatar)
	require.Len(t, view.Likers, 1)
	assert.Equal(t, "bob", view.Likers[0].Username)
	assert.Nil(t, view.Likers[0].Avatar)

	// top level newest first, replies oldest first, unbounded depth
	require.Len(t, view.Comments, 2)
	assert.Equal(t, uint(2), view.Comments[0].ID)
	first := view.Comments[1]
	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, 1, first.TotalLikes)
	assert.False(t, first.LikedByMe)
	require.Len(t, first.Replies, 2)
	assert.Equal(t, uint(4), first.Replies[0].ID)
	assert.Equal(t, uint(3), first.Replies[1].ID)
	require.Len(t, first.Replies[0].Replies, 1)
	assert.Equal(t, uint(5), first.Replies[0].Replies[0].ID)
	assert.Empty(t, first.Replies[1].Replies)

	anon := Review(Anonymous("", "/media/"), r, comments)
	assert.False(t, anon.LikedByMe)
	assert.Equal(t, "/media/avatars/ana.png", *anon.UserAvatar)
}

func TestReviewJSONShape(t *testing.T) {
	ana := user(1, "ana", "")
	r := models.Review{ID: 1, UserID: 1, User: ana, Title: "T", Author: "A", Text: "x", Rating: 3, CreatedAt: t0}

	raw, err := json.Marshal(Review(Anonymous("", ""), r, nil))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, key := range []string{"id", "usuario_id", "usuario_nome", "usuario_avatar", "titulo_livro", "autor_livro",
		"url_imagem", "texto_resenha", "nota", "data_criacao", "total_likes", "liked_by_me", "comments", "likers"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, []interface{}{}, doc["comments"])
	assert.Equal(t, []interface{}{}, doc["likers"])
	assert.Nil(t, doc["url_imagem"])
}

func TestReviewsGroupsComments(t *testing.T) {
	ana := user(1, "ana", "")
	reviews := []models.Review{{ID: 1, User: ana}, {ID: 2, User: ana}}
	comments := []models.Comment{comment(1, 1, nil, 0, ana), comment(2, 2, nil, 0, ana), comment(3, 2, nil, 1, ana)}

	views := Reviews(Anonymous("", ""), reviews, comments)
	require.Len(t, views, 2)
	assert.Len(t, views[0].Comments, 1)
	assert.Len(t, views[1].Comments, 2)
}

func TestCommentSubtree(t *testing.T) {
	ana := user(1, "ana", "")
	root := comment(1, 1, nil, 0, ana)
	related := []models.Comment{root, comment(2, 1, uintPtr(1), 1, ana), comment(3, 1, uintPtr(2), 2, ana)}

	view := Comment(Anonymous("", ""), root, related)
	require.Len(t, view.Replies, 1)
	require.Len(t, view.Replies[0].Replies, 1)
	assert.Equal(t, uint(3), view.Replies[0].Replies[0].ID)
}

func TestNotificationView(t *testing.T) {
	ana := user(1, "ana", "https://cdn.example.com/a.png")
	review := models.Review{ID: 7, Title: "Iracema"}

	n := models.Notification{ID: 1, RecipientID: 2, SenderID: 1, Sender: ana, Kind: models.NotificationLike, ReviewID: &review.ID, Review: &review}
	view := Notification(Anonymous("http://api", "/media/"), n)
	assert.Equal(t, "Iracema", view.ReviewTitle)
	assert.Equal(t, "https://cdn.example.com/a.png", *view.SenderAvatar)
	assert.Equal(t, "ana", view.SenderName)

	n.ReviewID, n.Review = nil, nil
	view = Notification(Anonymous("", ""), n)
	assert.Equal(t, RemovedReviewTitle, view.ReviewTitle)
	assert.Nil(t, view.ReviewID)
}

func TestMessageIsMine(t *testing.T) {
	ana := user(1, "ana", "")
	m := models.Message{ID: 1, SenderID: 1, Sender: ana, RecipientID: 2, Text: "oi"}

	assert.True(t, Message(Anonymous("", "").As(1), m).IsMine)
	assert.False(t, Message(Anonymous("", "").As(2), m).IsMine)
	assert.False(t, Message(Anonymous("", ""), m).IsMine)
}

func TestUserViews(t *testing.T) {
	ana := user(1, "ana", "avatars/a.png")
	v := Anonymous("http://api", "/media/")

	own := User(v, ana)
	assert.Equal(t, "ana@example.com", own.Email)
	assert.Equal(t, "http://api/media/avatars/a.png", *own.Profile.Avatar)

	raw, err := json.Marshal(PublicUser(v, ana))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "email")

	noProfile := models.User{ID: 3, Username: "zed"}
	assert.Nil(t, User(v, noProfile).Profile.Avatar)
}
