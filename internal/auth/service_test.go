package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/auth/authtest"
	"github.com/BorisDmv/blog-cms/internal/models"
)

func newTestService() (*Service, *authtest.MemUsers) {
	users := authtest.NewMemUsers()
	svc := NewService(users, "test-secret", time.Hour)
	svc.cost = bcrypt.MinCost
	return svc, users
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, users := newTestService()

	u, err := svc.Register(context.Background(), RegisterInput{Email: " Admin@Blog.TEST ", Password: "admin123", Username: "adminaja"})
	require.NoError(t, err)

	assert.Equal(t, "admin@blog.test", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	stored, ok := users.Get("admin@blog.test")
	require.True(t, ok)
	assert.NotEqual(t, "admin123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("admin123")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := RegisterInput{Email: "a@blog.test", Password: "pw", Username: "a"}

	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.Email = "A@blog.test"
	_, err = svc.Register(ctx, in)
	var dup *apperr.DuplicateEmailError
	assert.True(t, errors.As(err, &dup))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	cases := map[string]RegisterInput{
		"email":    {Password: "pw", Username: "u"},
		"password": {Email: "a@blog.test", Username: "u"},
		"username": {Email: "a@blog.test", Password: "pw"},
	}
	for field, in := range cases {
		_, err := svc.Register(context.Background(), in)
		var ve *apperr.ValidationError
		require.True(t, errors.As(err, &ve), field)
		assert.Equal(t, field, ve.Field)
	}

	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "pw", Username: "u"})
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	registered, err := svc.Register(ctx, RegisterInput{Email: "a@blog.test", Password: "pw", Username: "a"})
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "A@blog.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.Subject)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "a@blog.test", Password: "pw", Username: "a"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@blog.test", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrInvalidCredentials))

	_, _, err = svc.Login(ctx, "nobody@blog.test", "pw")
	assert.True(t, errors.Is(err, apperr.ErrInvalidCredentials))
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "a@blog.test", Password: "pw", Username: "a"})
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "a@blog.test", "pw")
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Hour)
	svc.now = func() time.Time { return later }
	_, err = svc.ParseToken(token)
	assert.Error(t, err)

	other := NewService(authtest.NewMemUsers(), "other-secret", time.Hour)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()
	in := RegisterInput{Email: "admin@blog.test", Password: "admin123", Username: "adminaja"}

	created, err := svc.EnsureAdmin(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	admin, _ := users.Get("admin@blog.test")
	assert.Equal(t, models.RoleAdmin, admin.Role)

	created, err = svc.EnsureAdmin(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
}
