package accounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resenhas/pkg/apperr"
	"resenhas/pkg/auth"
	"resenhas/pkg/database"
	"resenhas/pkg/media"
	"resenhas/pkg/models"
	"resenhas/pkg/queue"
)

func setupService(t *testing.T) (*Service, *gorm.DB, string) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	root := t.TempDir()
	local, err := media.NewLocalStore(root)
	require.NoError(t, err)
	return NewService(db, local, []string{".jpg", ".png"}, 1024), db, root
}

func str(s string) *string { return &s }

func fields(t *testing.T, err error) map[string][]string {
	t.Helper()
	v, ok := apperr.AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	return v.Fields
}

func TestRegister(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: "ana@test.com", Password: "segredo123"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "segredo123"))

	var profiles int64
	db.Model(&models.Profile{}).Where("user_id = ?", u.ID).Count(&profiles)
	assert.Equal(t, int64(1), profiles)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{name: "duplicate username", in: RegisterInput{Username: "ana", Email: "x@test.com", Password: "p"}, field: "username"},
		{name: "duplicate email", in: RegisterInput{Username: "bia", Email: "ana@test.com", Password: "p"}, field: "email"},
		{name: "missing username", in: RegisterInput{Email: "c@test.com", Password: "p"}, field: "username"},
		{name: "invalid username", in: RegisterInput{Username: "com espaco", Email: "c@test.com", Password: "p"}, field: "username"},
		{name: "missing email", in: RegisterInput{Username: "carla", Password: "p"}, field: "email"},
		{name: "invalid email", in: RegisterInput{Username: "carla", Email: "nope", Password: "p"}, field: "email"},
		{name: "missing password", in: RegisterInput{Username: "carla", Email: "c@test.com"}, field: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.Contains(t, fields(t, err), tt.field)
		})
	}

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(1), users)
}

func TestUpdateAccountFields(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	ana, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: "ana@test.com", Password: "p"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "bia", Email: "bia@test.com", Password: "p"})
	require.NoError(t, err)

	u, err := svc.UpdateAccount(ctx, ana.ID, UpdateInput{Bio: str("Leitora"), Hobbies: str("ler, correr")})
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, "Leitora", u.Profile.Bio)

	u, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Username: str("ana_paula")})
	require.NoError(t, err)
	assert.Equal(t, "ana_paula", u.Username)
	assert.Equal(t, "Leitora", u.Profile.Bio)
	assert.Equal(t, "ler, correr", u.Profile.Hobbies)

	// keeping your own username is not a conflict
	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Username: str("ana_paula"), Email: str("ana@test.com")})
	require.NoError(t, err)

	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Username: str("bia")})
	assert.Contains(t, fields(t, err), "username")
	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Email: str("bia@test.com")})
	assert.Contains(t, fields(t, err), "email")
	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Bio: str(strings.Repeat("x", 301))})
	assert.Contains(t, fields(t, err), "bio")
	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Username: str("   ")})
	assert.Equal(t, []string{"This field may not be blank."}, fields(t, err)["username"])
	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Email: str("nope")})
	assert.Equal(t, []string{"Enter a valid email address."}, fields(t, err)["email"])

	_, err = svc.UpdateAccount(ctx, 999, UpdateInput{Bio: str("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateAccountAvatar(t *testing.T) {
	svc, _, root := setupService(t)
	ctx := context.Background()
	ana, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: "ana@test.com", Password: "p"})
	require.NoError(t, err)

	upload := func(name, body string) *Upload {
		return &Upload{Filename: name, Size: int64(len(body)), ContentType: "image/png", Body: strings.NewReader(body)}
	}

	u, err := svc.UpdateAccount(ctx, ana.ID, UpdateInput{Avatar: upload("me.png", "first")})
	require.NoError(t, err)
	first := u.Profile.Avatar
	assert.True(t, strings.HasPrefix(first, "avatars/"))
	_, err = os.Stat(filepath.Join(root, first))
	require.NoError(t, err)

	u, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Avatar: upload("me2.jpg", "second")})
	require.NoError(t, err)
	assert.NotEqual(t, first, u.Profile.Avatar)
	_, err = os.Stat(filepath.Join(root, first))
	assert.True(t, os.IsNotExist(err))

	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Avatar: upload("virus.exe", "x")})
	assert.Contains(t, fields(t, err), "avatar")
	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Avatar: upload("big.png", strings.Repeat("x", 2048))})
	assert.Contains(t, fields(t, err), "avatar")
}

func TestPublicProfile(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: "ana@test.com", Password: "p"})
	require.NoError(t, err)

	u, err := svc.PublicProfile(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, u.Profile)

	_, err = svc.PublicProfile(ctx, "fantasma")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type stickyStore struct {
	*media.LocalStore
}

func (stickyStore) Delete(context.Context, string) error { return errors.New("storage offline") }

type recordingQueue struct {
	refs   []string
	drains int
}

func (q *recordingQueue) Enqueue(ref string, _ int) { q.refs = append(q.refs, ref) }

func (q *recordingQueue) Drain(context.Context, queue.Handler) int {
	q.drains++
	return 0
}

func TestFailedAvatarDeletionIsQueued(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	local, err := media.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	q := &recordingQueue{}
	svc := NewService(db, stickyStore{local}, []string{".png"}, 1024).WithRetryQueue(q)
	ctx := context.Background()

	ana, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: "ana@test.com", Password: "p"})
	require.NoError(t, err)
	u, err := svc.UpdateAccount(ctx, ana.ID, UpdateInput{Avatar: &Upload{Filename: "a.png", Size: 1, Body: strings.NewReader("a")}})
	require.NoError(t, err)
	first := u.Profile.Avatar
	assert.Empty(t, q.refs)

	_, err = svc.UpdateAccount(ctx, ana.ID, UpdateInput{Avatar: &Upload{Filename: "b.png", Size: 1, Body: strings.NewReader("b")}})
	require.NoError(t, err)
	assert.Equal(t, []string{first}, q.refs)
	assert.Equal(t, 2, q.drains)
}
