package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

func TestRegister_CreatesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	avatar := stage(t, "a.png")
	cover := stage(t, "c.png")

	p, err := f.accounts.Register(ctx, RegisterInput{
		Username:       "  Alice ",
		Email:          "Alice@X.com",
		Fullname:       "Alice A",
		Password:       "pw123",
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice@x.com", p.Email)
	assert.Equal(t, "http://cdn.local/a.png", p.Avatar)
	assert.Equal(t, "http://cdn.local/c.png", p.CoverImage)

	u, err := f.store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", u.PasswordHash)
	assert.True(t, utils.NewPasswordHasher(4).Verify(u.PasswordHash, "pw123"))
	assert.False(t, u.HasRefreshToken())

	_, statErr := os.Stat(avatar)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []string{queue.EventRegistered}, f.events.types())
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, RegisterInput{Username: "bob", Email: "", Fullname: "Bob", Password: "x", AvatarPath: stage(t, "b.png")})
	assert.Equal(t, KindBadRequest, KindOf(err))

	_, err = f.accounts.Register(ctx, RegisterInput{Username: "bob", Email: "b@x.com", Fullname: "Bob", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, KindBadRequest, KindOf(err))
	assert.Contains(t, err.Error(), "Avatar file is required")
	assert.Zero(t, f.uploader.count)
}

func TestRegister_ConflictCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw123")

	_, err := f.accounts.Register(ctx, RegisterInput{
		Username: "alice2", Email: "ALICE@x.com", Fullname: "Other", Password: "pw", AvatarPath: stage(t, "o.png"),
	})
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = f.store.FindByUsernameOrEmail(ctx, "alice2", "")
	assert.Error(t, err)
	assert.Equal(t, 1, f.uploader.count)
}

func TestRegister_AvatarUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail["bad.png"] = true

	_, err := f.accounts.Register(context.Background(), RegisterInput{
		Username: "carol", Email: "c@x.com", Fullname: "Carol", Password: "pw", AvatarPath: stage(t, "bad.png"),
	})
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestRegister_CoverFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail["cover.png"] = true

	p, err := f.accounts.Register(context.Background(), RegisterInput{
		Username: "dave", Email: "d@x.com", Fullname: "Dave", Password: "pw",
		AvatarPath: stage(t, "avatar.png"), CoverImagePath: stage(t, "cover.png"),
	})
	require.NoError(t, err)
	assert.Empty(t, p.CoverImage)
	assert.NotEmpty(t, p.Avatar)
}

func TestUpdateAccountDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")
	f.register(t, "bob", "bob@x.com", "pw123")

	p, err := f.accounts.UpdateAccountDetails(ctx, id, "Alice Liddell", "Liddell@X.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", p.FullName)
	assert.Equal(t, "liddell@x.com", p.Email)

	_, err = f.accounts.UpdateAccountDetails(ctx, id, "Alice", "bob@x.com")
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = f.accounts.UpdateAccountDetails(ctx, id, "", "a@x.com")
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestUpdateImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "pw123")

	p, err := f.accounts.UpdateAvatar(ctx, id, stage(t, "new-avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/new-avatar.png", p.Avatar)

	p, err = f.accounts.UpdateCoverImage(ctx, id, stage(t, "new-cover.png"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/new-cover.png", p.CoverImage)

	_, err = f.accounts.UpdateAvatar(ctx, id, "")
	assert.Equal(t, KindBadRequest, KindOf(err))

	f.uploader.fail["broken.png"] = true
	_, err = f.accounts.UpdateCoverImage(ctx, id, stage(t, "broken.png"))
	assert.Equal(t, KindBadRequest, KindOf(err))
	assert.Contains(t, err.Error(), "Error while uploading cover image")
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "alice", "alice@x.com", "pw123")

	p, err := f.accounts.CurrentUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	_, err = f.accounts.CurrentUser(context.Background(), "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

// unreachableStore fails every lookup the way a dropped database
// connection would.
type unreachableStore struct{ *repository.MemoryUserRepo }

func (unreachableStore) FindByUsernameOrEmail(context.Context, string, string) (model.User, error) {
	return model.User{}, errors.New("connection reset by peer")
}

func TestRegister_StoreFailureRemovesStagedFiles(t *testing.T) {
	f := newFixture(t)
	f.accounts.Users = unreachableStore{repository.NewMemoryUserRepo()}
	avatar := stage(t, "a.png")
	cover := stage(t, "c.png")

	_, err := f.accounts.Register(context.Background(), RegisterInput{
		Username: "erin", Email: "e@x.com", Fullname: "Erin", Password: "pw",
		AvatarPath: avatar, CoverImagePath: cover,
	})
	assert.Equal(t, KindInternal, KindOf(err))
	assert.NoFileExists(t, avatar)
	assert.NoFileExists(t, cover)
	assert.Zero(t, f.uploader.count)
}
