package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

type updateDetailsReq struct {
	FullName string `json:"fullname" form:"fullname"`
	Email    string `json:"email" form:"email"`
}

// CurrentUser returns the profile of the authenticated caller.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("unauthorized user")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.Accounts.CurrentUser(ctx, user.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "User fetched successfully")
}

// UpdateAccountDetails changes fullname and email.
func (h *AuthHandler) UpdateAccountDetails(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("unauthorized user")
	}
	var req updateDetailsReq
	if err := c.Bind(&req); err != nil {
		return service.BadRequest("invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.Accounts.UpdateAccountDetails(ctx, user.ID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "Account details updated successfully")
}

// UpdateAvatar replaces the avatar with the uploaded "avatar" file.
func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", h.Accounts.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage replaces the cover with the uploaded "coverImage" file.
func (h *AuthHandler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage", h.Accounts.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdate func(ctx context.Context, userID, path string) (model.Profile, error)

func (h *AuthHandler) updateImage(c echo.Context, field string, update imageUpdate, message string) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("unauthorized user")
	}
	paths, err := h.stageAll(firstFile(c, field))
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := update(ctx, user.ID, paths[0])
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, message)
}
