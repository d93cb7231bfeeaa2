package handler

import (
	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
	"asset-catalog/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, gin.H{"user": result.User, "token": result.Token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"user": result.User, "token": result.Token})
}

func (h *AuthHandler) Me(c *gin.Context, id app.Identity) {
	user, err := h.authService.GetUserByID(c.Request.Context(), id.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}
