package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// RefreshCookie is the cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the user endpoints.
type AuthHandler struct {
	Accounts  *service.AccountService
	Sessions  *service.SessionService
	UploadDir string
	Log       logrus.FieldLogger
}

func NewAuthHandler(accounts *service.AccountService, sessions *service.SessionService, uploadDir string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Sessions: sessions, UploadDir: uploadDir, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type changePasswordReq struct {
	Email           string `json:"email" form:"email"`
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

type loginResp struct {
	User         model.Profile `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

// Register: multipart form with the account fields, a required avatar and
// an optional coverImage (only the first file is used).
func (h *AuthHandler) Register(c echo.Context) error {
	paths, err := h.stageAll(firstFile(c, "avatar"), firstFile(c, "coverImage"))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.Accounts.Register(ctx, service.RegisterInput{
		Username:       c.FormValue("username"),
		Email:          c.FormValue("email"),
		Fullname:       c.FormValue("fullname"),
		Password:       c.FormValue("password"),
		AvatarPath:     paths[0],
		CoverImagePath: paths[1],
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, profile, "User registered Successfully")
}

// Login: username or email plus password; sets both token cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return service.BadRequest("invalid body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Sessions.Login(ctx, service.LoginInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	setTokenCookies(c, res.Tokens)
	return respond(c, http.StatusOK, loginResp{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged In Successfully")
}

// Logout: protected; clears the stored refresh token and both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("unauthorized user")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Sessions.Logout(ctx, user.ID); err != nil {
		return err
	}
	clearTokenCookies(c)
	return respond(c, http.StatusOK, struct{}{}, "User logged Out")
}

// RefreshToken: rotates the refresh token presented in the refreshToken
// cookie, the bearer header, or the request body, in that order.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		presented = strings.TrimSpace(ck.Value)
	}
	if presented == "" {
		presented = middleware.BearerToken(c)
	}
	if presented == "" {
		var req refreshReq
		if err := c.Bind(&req); err != nil {
			h.Log.WithError(err).Debug("refresh-token: unreadable body")
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		return err
	}
	setTokenCookies(c, pair)
	return respond(c, http.StatusOK, pair, "Access token refreshed")
}

// ChangePassword: protected; email, currentPassword and newPassword.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("unauthorized user")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return service.BadRequest("invalid body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.Sessions.ChangePassword(ctx, user.ID, service.ChangePasswordInput{
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, struct{}{}, "Password changed successfully")
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func tokenCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
	}
}

func setTokenCookies(c echo.Context, pair service.TokenPair) {
	c.SetCookie(tokenCookie(middleware.AccessCookie, pair.AccessToken, pair.AccessExpiresAt))
	c.SetCookie(tokenCookie(RefreshCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func clearTokenCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, RefreshCookie} {
		ck := tokenCookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

// firstFile returns the first file of a multipart field, or nil.
func firstFile(c echo.Context, field string) *multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	if files := form.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

// stageAll saves each non-nil file into UploadDir and returns the paths in
// order, "" for a nil entry.  When one file fails, the ones already staged
// are removed.
func (h *AuthHandler) stageAll(files ...*multipart.FileHeader) ([]string, error) {
	paths := make([]string, len(files))
	for i, fh := range files {
		if fh == nil {
			continue
		}
		p, err := h.stage(fh)
		if err != nil {
			for _, staged := range paths[:i] {
				if staged != "" {
					_ = os.Remove(staged)
				}
			}
			return nil, service.Internal("Something went wrong while saving the upload", err)
		}
		paths[i] = p
	}
	return paths, nil
}

// stage copies an uploaded file to UploadDir under a random name that
// keeps the uploaded file's extension.
func (h *AuthHandler) stage(fh *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(h.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}
