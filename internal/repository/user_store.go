package repository

import (
	"context"

	"github.com/iliyamo/account-service/internal/model"
)

// UserStore is the credential store contract shared by every backend.
// Every write is atomic at the single-record level only.
type UserStore interface {
	// Create inserts u. Username and email must already be normalized.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	// FindByUsernameOrEmail matches either field; blank arguments are ignored.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error)

	// SetRefreshToken overwrites the stored refresh token digest.
	SetRefreshToken(ctx context.Context, id, digest string) error
	// SwapRefreshToken replaces oldDigest with newDigest in one conditional
	// write and returns ErrStaleToken when the stored value is not oldDigest.
	SwapRefreshToken(ctx context.Context, id, oldDigest, newDigest string) error
	// ClearRefreshToken removes the stored refresh token digest.
	ClearRefreshToken(ctx context.Context, id string) error

	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateDetails(ctx context.Context, id, fullname, email string) (model.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (model.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (model.User, error)
}
