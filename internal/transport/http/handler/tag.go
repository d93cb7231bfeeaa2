package handler

import (
	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
	"asset-catalog/internal/model"
	"asset-catalog/internal/transport/http/response"
)

type TagHandler struct {
	tags *app.TagService
}

type TagRequest struct {
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=1000"`
}

type TagPatchRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=64"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

func NewTagHandler(tags *app.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

func (h *TagHandler) List(c *gin.Context, _ app.Identity) {
	list, err := h.tags.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	if list == nil {
		list = []model.Tag{}
	}
	response.OK(c, gin.H{"tags": list})
}

func (h *TagHandler) Get(c *gin.Context, _ app.Identity) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tag, err := h.tags.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"tag": tag})
}

func (h *TagHandler) Create(c *gin.Context, _ app.Identity) {
	var req TagRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), app.TagInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{"tag": tag})
}

func (h *TagHandler) Update(c *gin.Context, _ app.Identity) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TagPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.tags.Update(c.Request.Context(), id, app.TagPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"tag": tag})
}

func (h *TagHandler) Delete(c *gin.Context, _ app.Identity) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tags.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Message(c, "tag deleted")
}
