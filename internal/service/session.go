package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/cache"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

const msgTokenFailure = "Something went wrong while generating access and refresh tokens"

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type LoginResult struct {
	User   model.Profile
	Tokens TokenPair
}

type ChangePasswordInput struct {
	Email           string
	CurrentPassword string
	NewPassword     string
}

// SessionService drives the per-user session state machine.  A user holds
// at most one valid refresh token at a time; its digest lives on the user
// record and is replaced on login and rotation and cleared on logout.
type SessionService struct {
	Users  repository.UserStore
	Codec  *utils.TokenCodec
	Hasher utils.PasswordHasher
	Cache  *cache.ProfileCache
	Events queue.Publisher
	Log    logrus.FieldLogger
}

func NewSessionService(users repository.UserStore, codec *utils.TokenCodec, hasher utils.PasswordHasher,
	profiles *cache.ProfileCache, events queue.Publisher, log logrus.FieldLogger) *SessionService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &SessionService{Users: users, Codec: codec, Hasher: hasher, Cache: profiles, Events: events, Log: log}
}

// Login authenticates by username or email and opens a new session,
// replacing whatever refresh token the user held before.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return LoginResult{}, BadRequest("Email or username is required")
	}

	u, err := s.Users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, NotFound("User does not exist")
		}
		return LoginResult{}, Internal("Something went wrong while logging in", err)
	}
	if !s.Hasher.Verify(u.PasswordHash, in.Password) {
		return LoginResult{}, Unauthorized("Invalid credentials")
	}

	pair, digest, err := s.issuePair(u.Profile())
	if err != nil {
		return LoginResult{}, Internal(msgTokenFailure, err)
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, digest); err != nil {
		return LoginResult{}, Internal(msgTokenFailure, err)
	}

	s.publish(ctx, queue.EventLoggedIn, u)
	s.Log.WithField("user_id", u.ID).Info("user logged in")
	return LoginResult{User: u.Profile(), Tokens: pair}, nil
}

// Refresh rotates the presented refresh token.  The stored digest is
// swapped with a conditional write, so of two concurrent calls presenting
// the same token only one succeeds.
func (s *SessionService) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return TokenPair{}, BadRequest("refresh token is required")
	}
	claims, err := s.Codec.VerifyRefresh(presented)
	if err != nil {
		return TokenPair{}, &Error{Kind: KindUnauthorized, Message: "Invalid refresh token", Err: err}
	}

	u, err := s.Users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, Unauthorized("Invalid refresh token")
		}
		return TokenPair{}, Internal(msgTokenFailure, err)
	}

	oldDigest := utils.HashRefreshRaw(presented)
	if !u.HasRefreshToken() || *u.RefreshToken != oldDigest {
		return TokenPair{}, Unauthorized("unauthorized user")
	}

	pair, newDigest, err := s.issuePair(u.Profile())
	if err != nil {
		return TokenPair{}, Internal(msgTokenFailure, err)
	}
	if err := s.Users.SwapRefreshToken(ctx, u.ID, oldDigest, newDigest); err != nil {
		if errors.Is(err, repository.ErrStaleToken) {
			return TokenPair{}, Unauthorized("unauthorized user")
		}
		return TokenPair{}, Internal(msgTokenFailure, err)
	}

	s.publish(ctx, queue.EventTokenRefreshed, u)
	return pair, nil
}

// Logout ends the session.  Access tokens already issued stay valid until
// they expire.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.Users.ClearRefreshToken(ctx, userID); err != nil {
		return Internal("Something went wrong while logging out", err)
	}
	s.Cache.Invalidate(ctx, userID)
	_ = s.Events.Publish(ctx, queue.NewAccountEvent(queue.EventLoggedOut, userID, "", ""))
	s.Log.WithField("user_id", userID).Info("user logged out")
	return nil
}

// ChangePassword replaces the password hash after checking the current
// password.  The session itself is left untouched.
func (s *SessionService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.NewPassword == "" {
		return BadRequest("Email and new password are required")
	}

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return BadRequest("User not found")
		}
		return Internal("Something went wrong while changing the password", err)
	}
	if u.Email != email {
		return BadRequest("Invalid email")
	}
	if !s.Hasher.Verify(u.PasswordHash, in.CurrentPassword) {
		return BadRequest("Invalid current password")
	}

	hash, err := s.Hasher.Hash(in.NewPassword)
	if err != nil {
		return &Error{Kind: KindBadRequest, Message: "Invalid new password", Err: err}
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return Internal("Something went wrong while changing the password", err)
	}

	s.publish(ctx, queue.EventPasswordChanged, u)
	return nil
}

// issuePair signs a fresh access/refresh pair and returns the digest of
// the refresh token for storage.
func (s *SessionService) issuePair(p model.Profile) (TokenPair, string, error) {
	access, err := s.Codec.IssueAccessToken(p)
	if err != nil {
		return TokenPair{}, "", err
	}
	refresh, err := s.Codec.IssueRefreshToken(p.ID)
	if err != nil {
		return TokenPair{}, "", err
	}
	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
	}, utils.HashRefreshRaw(refresh.Raw), nil
}

func (s *SessionService) publish(ctx context.Context, typ string, u model.User) {
	_ = s.Events.Publish(ctx, queue.NewAccountEvent(typ, u.ID, u.Username, u.Email))
}
