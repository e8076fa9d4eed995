package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/cache"
	"github.com/iliyamo/account-service/internal/media"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// RegisterInput carries the registration form.  AvatarPath and
// CoverImagePath point at files already staged on local disk.
type RegisterInput struct {
	Username       string
	Email          string
	Fullname       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// AccountService creates accounts and edits profile data.
type AccountService struct {
	Users  repository.UserStore
	Media  media.Uploader
	Hasher utils.PasswordHasher
	Cache  *cache.ProfileCache
	Events queue.Publisher
	Log    logrus.FieldLogger
}

func NewAccountService(users repository.UserStore, uploader media.Uploader, hasher utils.PasswordHasher,
	profiles *cache.ProfileCache, events queue.Publisher, log logrus.FieldLogger) *AccountService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &AccountService{Users: users, Media: uploader, Hasher: hasher, Cache: profiles, Events: events, Log: log}
}

// Register validates the form, uploads the images and creates the user.
// Nothing is written to the store when the username or email is taken.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.Profile, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullname := strings.TrimSpace(in.Fullname)
	if username == "" || email == "" || fullname == "" || strings.TrimSpace(in.Password) == "" {
		s.discard(in.AvatarPath, in.CoverImagePath)
		return model.Profile{}, BadRequest("All fields are required")
	}

	_, err := s.Users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		s.discard(in.AvatarPath, in.CoverImagePath)
		return model.Profile{}, Conflict("User with email or username already exists")
	case !errors.Is(err, repository.ErrNotFound):
		s.discard(in.AvatarPath, in.CoverImagePath)
		return model.Profile{}, Internal("Something went wrong while registering the user", err)
	}

	if in.AvatarPath == "" {
		s.discard(in.CoverImagePath)
		return model.Profile{}, BadRequest("Avatar file is required")
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.discard(in.AvatarPath, in.CoverImagePath)
		return model.Profile{}, &Error{Kind: KindBadRequest, Message: "Invalid password", Err: err}
	}

	avatar, err := s.Media.Upload(ctx, in.AvatarPath)
	if err != nil {
		s.discard(in.CoverImagePath)
		return model.Profile{}, &Error{Kind: KindBadRequest, Message: "Avatar file is required", Err: err}
	}
	coverURL := ""
	if in.CoverImagePath != "" {
		cover, err := s.Media.Upload(ctx, in.CoverImagePath)
		if err != nil {
			s.Log.WithError(err).Warn("cover image upload failed; registering without one")
		} else {
			coverURL = cover.URL
		}
	}

	u := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullname,
		PasswordHash: hash,
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
	}
	if err := s.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Profile{}, Conflict("User with email or username already exists")
		}
		return model.Profile{}, Internal("Something went wrong while registering the user", err)
	}

	_ = s.Events.Publish(ctx, queue.NewAccountEvent(queue.EventRegistered, u.ID, u.Username, u.Email))
	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")
	return u.Profile(), nil
}

// CurrentUser returns the profile of userID.
func (s *AccountService) CurrentUser(ctx context.Context, userID string) (model.Profile, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Profile{}, NotFound("User not found")
		}
		return model.Profile{}, Internal("Something went wrong while fetching the user", err)
	}
	return u.Profile(), nil
}

// UpdateAccountDetails changes the display name and email.
func (s *AccountService) UpdateAccountDetails(ctx context.Context, userID, fullname, email string) (model.Profile, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullname == "" || email == "" {
		return model.Profile{}, BadRequest("All fields are required")
	}
	u, err := s.Users.UpdateDetails(ctx, userID, fullname, email)
	if err != nil {
		return model.Profile{}, s.updateErr(err, "Something went wrong while updating account details")
	}
	s.afterUpdate(ctx, u)
	return u.Profile(), nil
}

// UpdateAvatar uploads a new avatar and stores its URI.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID, localPath string) (model.Profile, error) {
	return s.updateImage(ctx, userID, localPath, "Avatar", s.Users.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and stores its URI.
func (s *AccountService) UpdateCoverImage(ctx context.Context, userID, localPath string) (model.Profile, error) {
	return s.updateImage(ctx, userID, localPath, "Cover image", s.Users.UpdateCoverImage)
}

type imageSetter func(ctx context.Context, id, url string) (model.User, error)

func (s *AccountService) updateImage(ctx context.Context, userID, localPath, label string, set imageSetter) (model.Profile, error) {
	if localPath == "" {
		return model.Profile{}, BadRequest(label + " file is missing")
	}
	asset, err := s.Media.Upload(ctx, localPath)
	if err != nil {
		return model.Profile{}, &Error{Kind: KindBadRequest, Message: "Error while uploading " + strings.ToLower(label), Err: err}
	}
	u, err := set(ctx, userID, asset.URL)
	if err != nil {
		return model.Profile{}, s.updateErr(err, "Something went wrong while updating the "+strings.ToLower(label))
	}
	s.afterUpdate(ctx, u)
	return u.Profile(), nil
}

func (s *AccountService) updateErr(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFound("User not found")
	case errors.Is(err, repository.ErrDuplicate):
		return Conflict("User with email or username already exists")
	default:
		return Internal(msg, err)
	}
}

func (s *AccountService) afterUpdate(ctx context.Context, u model.User) {
	s.Cache.Invalidate(ctx, u.ID)
	_ = s.Events.Publish(ctx, queue.NewAccountEvent(queue.EventProfileUpdated, u.ID, u.Username, u.Email))
}

// discard removes staged files the request will not use.
func (s *AccountService) discard(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := removeFile(p); err != nil {
			s.Log.WithError(err).WithField("path", p).Debug("remove staged file")
		}
	}
}

// removeFile deletes a staged upload; a file that is already gone is fine.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
