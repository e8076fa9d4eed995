package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/utils"
)

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")

	res, err := f.sessions.Login(ctx, LoginInput{Email: "ALICE@x.com", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)

	claims, err := f.codec.VerifyAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID())
	assert.Equal(t, "alice", claims.Username)

	u, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, u.HasRefreshToken())
	assert.Equal(t, utils.HashRefreshRaw(res.Tokens.RefreshToken), *u.RefreshToken)
	assert.Contains(t, f.events.types(), queue.EventLoggedIn)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw123")

	_, err := f.sessions.Login(ctx, LoginInput{Password: "pw123"})
	assert.Equal(t, KindBadRequest, KindOf(err))

	_, err = f.sessions.Login(ctx, LoginInput{Username: "nobody", Password: "pw123"})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestRefresh_Rotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")
	res, err := f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "pw123"})
	require.NoError(t, err)
	r1 := res.Tokens.RefreshToken

	pair, err := f.sessions.Refresh(ctx, r1)
	require.NoError(t, err)
	assert.NotEqual(t, r1, pair.RefreshToken)

	u, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, utils.HashRefreshRaw(pair.RefreshToken), *u.RefreshToken)

	_, err = f.sessions.Refresh(ctx, r1)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = f.sessions.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")
	res, err := f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "pw123"})
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, "  ")
	assert.Equal(t, KindBadRequest, KindOf(err))

	_, err = f.sessions.Refresh(ctx, "not-a-jwt")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// an access token is signed with the other secret
	_, err = f.sessions.Refresh(ctx, res.Tokens.AccessToken)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	expired := *f.codec
	expired.Now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, err := expired.IssueRefreshToken(id)
	require.NoError(t, err)
	_, err = f.sessions.Refresh(ctx, old.Raw)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	ghost, err := f.codec.IssueRefreshToken("ghost")
	require.NoError(t, err)
	_, err = f.sessions.Refresh(ctx, ghost.Raw)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw123")
	res, err := f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "pw123"})
	require.NoError(t, err)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.sessions.Refresh(ctx, res.Tokens.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")
	res, err := f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "pw123"})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, id))

	u, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.HasRefreshToken())

	_, err = f.sessions.Refresh(ctx, res.Tokens.RefreshToken)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// access tokens outlive logout
	_, err = f.codec.VerifyAccess(res.Tokens.AccessToken)
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")
	before, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)

	err = f.sessions.ChangePassword(ctx, id, ChangePasswordInput{Email: "alice@x.com", CurrentPassword: "nope", NewPassword: "pw456"})
	assert.Equal(t, KindBadRequest, KindOf(err))
	after, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	err = f.sessions.ChangePassword(ctx, id, ChangePasswordInput{Email: "other@x.com", CurrentPassword: "pw123", NewPassword: "pw456"})
	assert.Equal(t, KindBadRequest, KindOf(err))

	err = f.sessions.ChangePassword(ctx, "missing", ChangePasswordInput{Email: "alice@x.com", CurrentPassword: "pw123", NewPassword: "pw456"})
	assert.Equal(t, KindBadRequest, KindOf(err))

	require.NoError(t, f.sessions.ChangePassword(ctx, id, ChangePasswordInput{Email: "alice@x.com", CurrentPassword: "pw123", NewPassword: "pw456"}))

	_, err = f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "pw123"})
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = f.sessions.Login(ctx, LoginInput{Username: "alice", Password: "pw456"})
	assert.NoError(t, err)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	err := Internal("boom", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "unauthorized", KindUnauthorized.String())
}
