package handler

import (
	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
	"asset-catalog/internal/model"
	"asset-catalog/internal/transport/http/response"
)

type CategoryHandler struct {
	categories *app.CategoryService
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=1000"`
}

type CategoryPatchRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=128"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

func NewCategoryHandler(categories *app.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) List(c *gin.Context, _ app.Identity) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	if list == nil {
		list = []model.Category{}
	}
	response.OK(c, gin.H{"categories": list})
}

func (h *CategoryHandler) Get(c *gin.Context, _ app.Identity) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	category, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"category": category})
}

func (h *CategoryHandler) Create(c *gin.Context, _ app.Identity) {
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categories.Create(c.Request.Context(), app.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{"category": category})
}

func (h *CategoryHandler) Update(c *gin.Context, _ app.Identity) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CategoryPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categories.Update(c.Request.Context(), id, app.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"category": category})
}

func (h *CategoryHandler) Delete(c *gin.Context, _ app.Identity) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Message(c, "category deleted")
}
