package services_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []string
	to   []string
}

func (m *captureMailer) Send(to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.sent = append(m.sent, body)
	return nil
}

var _ utils.MailSender = (*captureMailer)(nil)

func TestRegisterAndAuthenticate(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	user, err := svc.Register(ctx, services.SignupInput{
		FirstName: "Leo", LastName: "Tolstoy", Username: "leo", Email: "leo@example.com",
		Password1: "war-and-peace-1869", Password2: "war-and-peace-1869",
	}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Leo Tolstoy", user.FullName())

	_, err = svc.Register(ctx, services.SignupInput{Username: "leo", Password1: "a", Password2: "b"}, "")
	var verr services.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "username")
	assert.Contains(t, verr, "password2")

	got, err := svc.Authenticate(ctx, "leo", "war-and-peace-1869")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "leo", "wrong")
	assert.ErrorIs(t, err, services.ErrBadLogin)
	_, err = svc.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, services.ErrBadLogin)
}

func TestChangePassword(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "leo")

	err := svc.ChangePassword(ctx, user, "wrong", "brand-new-secret", "brand-new-secret")
	var verr services.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "old_password")

	require.NoError(t, svc.ChangePassword(ctx, user, testutil.Password, "brand-new-secret", "brand-new-secret"))
	fresh, err := svc.Authenticate(ctx, "leo", "brand-new-secret")
	require.NoError(t, err)
	assert.Equal(t, uint(1), fresh.SessionVersion)
	assert.Equal(t, uint(1), user.SessionVersion)
}

func TestPasswordResetFlow(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "leo")
	mailer := &captureMailer{}

	require.NoError(t, svc.StartPasswordReset(ctx, "LEO@example.com", "http://testserver", mailer))
	require.NoError(t, svc.StartPasswordReset(ctx, "unknown@example.com", "http://testserver", mailer))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, user.Email, mailer.to[0])

	m := regexp.MustCompile(`/auth/reset/([^/]+)/([^/]+)/`).FindStringSubmatch(mailer.sent[0])
	require.Len(t, m, 3)
	uid, token := m[1], m[2]
	assert.Equal(t, services.EncodeUID(user.ID), uid)

	found, err := svc.CheckResetToken(ctx, uid, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	err = svc.CompleteReset(ctx, uid, token, "new-secret-pass", "different")
	var verr services.ValidationErrors
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.CompleteReset(ctx, uid, token, "new-secret-pass", "new-secret-pass"))
	reset, err := svc.Authenticate(ctx, "leo", "new-secret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.SessionVersion+1, reset.SessionVersion)

	assert.ErrorIs(t, svc.CompleteReset(ctx, uid, token, "again-secret-1", "again-secret-1"), services.ErrNotFound)
	_, err = svc.CheckResetToken(ctx, "!!", token)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUpsertOAuthUser(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()
	testutil.CreateUser(t, db, "octocat")

	u, err := svc.UpsertOAuthUser(ctx, "github", &services.OAuthIdentity{ID: "1", Username: "OctoCat", DisplayName: "The Octocat"})
	require.NoError(t, err)
	assert.Equal(t, "octocat_1", u.Username)
	assert.Equal(t, "The", u.FirstName)
	assert.Equal(t, "Octocat", u.LastName)

	again, err := svc.UpsertOAuthUser(ctx, "github", &services.OAuthIdentity{ID: "1", Username: "renamed", Email: "o@example.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "o@example.com", again.Email)
}

func TestUIDRoundTrip(t *testing.T) {
	id, ok := services.DecodeUID(services.EncodeUID(42))
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
	_, ok = services.DecodeUID("MA")
	assert.False(t, ok)
}
