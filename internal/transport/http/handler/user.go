package handler

import (
	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
	"asset-catalog/internal/transport/http/response"
)

type UserHandler struct {
	users *app.UserService
}

type ProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=64"`
	LastName  *string `json:"last_name" binding:"omitempty,max=64"`
	Email     *string `json:"email" binding:"omitempty,email,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,max=128"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=128"`
}

func NewUserHandler(users *app.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(c *gin.Context, id app.Identity) {
	user, err := h.users.GetProfile(c.Request.Context(), id.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

func (h *UserHandler) UpdateProfile(c *gin.Context, id app.Identity) {
	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), id.UserID, app.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

func (h *UserHandler) ChangePassword(c *gin.Context, id app.Identity) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.users.ChangePassword(c.Request.Context(), id.UserID, app.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Message(c, "password updated")
}
