package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/session"
	"github.com/trezcool/harmony/core/user"
	inmemcache "github.com/trezcool/harmony/storage/cache/inmem"
	inmemdb "github.com/trezcool/harmony/storage/database/inmem"
)

const pwd = "Tr3ble&Bass"

func setup(t *testing.T) (*session.Service, user.User, user.Repository) {
	t.Helper()
	conf := core.NewTestConfig()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	usrSvc := user.NewService(repo)
	usr, err := usrSvc.Create(context.Background(), user.NewUser{
		Name: "Admin", Email: "admin@test.test", Password: pwd, PasswordConfirm: pwd,
	})
	require.NoError(t, err)
	return session.NewService(usrSvc, inmemcache.NewRevocationStore(), conf), usr, repo
}

func TestService_SignIn(t *testing.T) {
	svc, usr, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "who@test.test", pwd: pwd, wantErr: user.ErrAuthenticationFailed},
		{name: "bad password", email: usr.Email, pwd: "nope", wantErr: user.ErrAuthenticationFailed},
		{name: "ok", email: usr.Email, pwd: pwd},
		{name: "email is cleaned", email: " ADMIN@test.test ", pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.SignIn(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.True(t, session.HasUser(sess))
			assert.Equal(t, usr.ID, sess.User.ID)
			assert.NotEmpty(t, sess.Token)
			assert.True(t, sess.ExpiresAt.After(sess.EstablishedAt))

			resolved, err := svc.Resolve(ctx, sess.Token)
			require.NoError(t, err)
			assert.Equal(t, sess.User, resolved.User)
		})
	}
}

func TestService_Resolve(t *testing.T) {
	svc, usr, repo := setup(t)
	ctx := context.Background()

	sess, err := svc.SignIn(ctx, usr.Email, pwd)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", sess.Token + "x"} {
		_, err = svc.Resolve(ctx, token)
		assert.Equal(t, session.ErrNoSession, err, "token %q", token)
	}

	// deactivated accounts lose their sessions
	usr, err = repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	usr.IsActive = false
	_, err = repo.UpdateUser(ctx, usr)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, sess.Token)
	assert.Equal(t, session.ErrNoSession, err)
}

func TestService_SignOut(t *testing.T) {
	svc, usr, _ := setup(t)
	ctx := context.Background()

	sess, err := svc.SignIn(ctx, usr.Email, pwd)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.Token))
	_, err = svc.Resolve(ctx, sess.Token)
	assert.Equal(t, session.ErrNoSession, err)

	assert.NoError(t, svc.SignOut(ctx, sess.Token), "signing out twice is a no-op")
	assert.NoError(t, svc.SignOut(ctx, "garbage"))
}

func TestService_Refresh(t *testing.T) {
	svc, usr, _ := setup(t)
	ctx := context.Background()

	sess, err := svc.SignIn(ctx, usr.Email, pwd)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, sess.Token)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Token, refreshed.Token)
	assert.Equal(t, sess.EstablishedAt, refreshed.EstablishedAt)

	_, err = svc.Resolve(ctx, sess.Token)
	assert.Equal(t, session.ErrNoSession, err, "the old token is revoked")
	_, err = svc.Resolve(ctx, refreshed.Token)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), refreshed.ExpiresAt, time.Minute)
}
