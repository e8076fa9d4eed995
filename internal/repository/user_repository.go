package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"

	"github.com/iliyamo/account-service/internal/model"
)

const userColumns = "id,username,email,fullname,password_hash,avatar,cover_image,refresh_token,created_at,updated_at"

// UserRepo is the MySQL credential store.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var _ UserStore = (*UserRepo)(nil)

// Create inserts the user. A 1062 duplicate-key error becomes ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,username,email,fullname,password_hash,avatar,cover_image,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.Avatar, u.CoverImage, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return pkgerrors.Wrap(err, "insert user")
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// FindByUsernameOrEmail fetches the first user whose username or email matches.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error) {
	var (
		conds []string
		args  []any
	)
	if username != "" {
		conds = append(conds, "username=?")
		args = append(args, username)
	}
	if email != "" {
		conds = append(conds, "email=?")
		args = append(args, email)
	}
	if len(conds) == 0 {
		return model.User{}, ErrNotFound
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+strings.Join(conds, " OR ")+" LIMIT 1", args...)
	return scanUser(row)
}

// SetRefreshToken overwrites the stored refresh token digest.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id, digest string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=?, updated_at=? WHERE id=?",
		digest, time.Now().UTC(), id)
	if err != nil {
		return pkgerrors.Wrap(err, "set refresh token")
	}
	return requireRow(res)
}

// SwapRefreshToken is a conditional update: it only matches while the
// stored digest still equals oldDigest.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id, oldDigest, newDigest string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=?, updated_at=? WHERE id=? AND refresh_token=?",
		newDigest, time.Now().UTC(), id, oldDigest)
	if err != nil {
		return pkgerrors.Wrap(err, "swap refresh token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "swap refresh token")
	}
	if n == 0 {
		return ErrStaleToken
	}
	return nil
}

// ClearRefreshToken sets the refresh token column back to NULL.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=NULL, updated_at=? WHERE id=?",
		time.Now().UTC(), id)
	return pkgerrors.Wrap(err, "clear refresh token")
}

// UpdatePassword stores a new bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		hash, time.Now().UTC(), id)
	if err != nil {
		return pkgerrors.Wrap(err, "update password")
	}
	return requireRow(res)
}

// UpdateDetails changes fullname and email and returns the fresh row.
func (r *UserRepo) UpdateDetails(ctx context.Context, id, fullname, email string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET fullname=?, email=?, updated_at=? WHERE id=?",
		fullname, email, time.Now().UTC(), id)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, pkgerrors.Wrap(err, "update details")
	}
	return r.GetByID(ctx, id)
}

// UpdateAvatar replaces the avatar URI.
func (r *UserRepo) UpdateAvatar(ctx context.Context, id, url string) (model.User, error) {
	return r.updateColumn(ctx, id, "avatar", url)
}

// UpdateCoverImage replaces the cover image URI.
func (r *UserRepo) UpdateCoverImage(ctx context.Context, id, url string) (model.User, error) {
	return r.updateColumn(ctx, id, "cover_image", url)
}

// updateColumn is only called with the fixed column names above.
func (r *UserRepo) updateColumn(ctx context.Context, id, column, value string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+column+"=?, updated_at=? WHERE id=?",
		value, time.Now().UTC(), id)
	if err != nil {
		return model.User{}, pkgerrors.Wrapf(err, "update %s", column)
	}
	return r.GetByID(ctx, id)
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.Avatar, &u.CoverImage, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, pkgerrors.Wrap(err, "scan user")
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
