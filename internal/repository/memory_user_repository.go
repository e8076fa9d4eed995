package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

// MemoryUserRepo keeps users in process memory. It backs DB_DRIVER=memory
// for local runs and the service tests; a single mutex makes every method
// atomic, including the refresh token compare-and-swap.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
	now   func() time.Time
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: map[string]model.User{}, now: func() time.Time { return time.Now().UTC() }}
}

var _ UserStore = (*MemoryUserRepo)(nil)

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.ID == u.ID || existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = clone(*u)
	return nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if username == "" && email == "" {
		return model.User{}, ErrNotFound
	}
	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return clone(u), nil
		}
	}
	return model.User{}, ErrNotFound
}

func (r *MemoryUserRepo) SetRefreshToken(_ context.Context, id, digest string) error {
	return r.mutate(id, func(u *model.User) error {
		u.RefreshToken = &digest
		return nil
	})
}

func (r *MemoryUserRepo) SwapRefreshToken(_ context.Context, id, oldDigest, newDigest string) error {
	return r.mutate(id, func(u *model.User) error {
		if u.RefreshToken == nil || *u.RefreshToken != oldDigest {
			return ErrStaleToken
		}
		u.RefreshToken = &newDigest
		return nil
	})
}

func (r *MemoryUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	err := r.mutate(id, func(u *model.User) error {
		u.RefreshToken = nil
		return nil
	})
	if err == ErrNotFound {
		return nil
	}
	return err
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *model.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (r *MemoryUserRepo) UpdateDetails(ctx context.Context, id, fullname, email string) (model.User, error) {
	err := r.mutate(id, func(u *model.User) error {
		for otherID, other := range r.users {
			if otherID != id && other.Email == email {
				return ErrDuplicate
			}
		}
		u.FullName, u.Email = fullname, email
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepo) UpdateAvatar(ctx context.Context, id, url string) (model.User, error) {
	if err := r.mutate(id, func(u *model.User) error { u.Avatar = url; return nil }); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepo) UpdateCoverImage(ctx context.Context, id, url string) (model.User, error) {
	if err := r.mutate(id, func(u *model.User) error { u.CoverImage = url; return nil }); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// mutate applies fn to the stored user under the lock and commits only when
// fn succeeds.
func (r *MemoryUserRepo) mutate(id string, fn func(*model.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u = clone(u)
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = r.now()
	r.users[id] = u
	return nil
}

func clone(u model.User) model.User {
	if u.RefreshToken != nil {
		v := *u.RefreshToken
		u.RefreshToken = &v
	}
	return u
}
