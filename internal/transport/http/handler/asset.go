package handler

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
	"asset-catalog/internal/model"
	"asset-catalog/internal/transport/http/response"
)

// multipart framing and metadata fields on top of the file itself
const formOverhead = 1 << 20

type AssetHandler struct {
	assets    *app.AssetService
	maxUpload int64
}

type UpdateAssetRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	SerialNumber  *string  `json:"serial_number"`
	PurchasePrice *float64 `json:"purchase_price"`
	PurchaseDate  *string  `json:"purchase_date"`
	Location      *string  `json:"location"`
	CategoryID    *uint    `json:"category_id"`
	ClearCategory bool     `json:"clear_category"`
	TagIDs        *[]uint  `json:"tag_ids"`
}

func NewAssetHandler(assets *app.AssetService, maxUpload int64) *AssetHandler {
	return &AssetHandler{assets: assets, maxUpload: maxUpload}
}

func (h *AssetHandler) Create(c *gin.Context, id app.Identity) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+formOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		h.fileError(c, err)
		return
	}
	form, err := readAssetForm(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	upload, closeFile, err := openUpload(header)
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer closeFile()

	input := app.CreateAssetInput{
		PurchasePrice: form.PurchasePrice,
		PurchaseDate:  form.PurchaseDate,
		CategoryID:    form.CategoryID,
		File:          upload,
	}
	if form.Name != nil {
		input.Name = *form.Name
	}
	if form.Description != nil {
		input.Description = *form.Description
	}
	if form.SerialNumber != nil {
		input.SerialNumber = *form.SerialNumber
	}
	if form.Location != nil {
		input.Location = *form.Location
	}
	if form.TagIDs != nil {
		input.TagIDs = *form.TagIDs
	}

	asset, err := h.assets.Create(c.Request.Context(), id.UserID, input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{"asset": asset})
}

func (h *AssetHandler) List(c *gin.Context, _ app.Identity) {
	page, err := h.assets.List(c.Request.Context(), app.ListAssetsInput{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.Query("search"),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"assets": nonNil(page.Assets), "meta": page.Meta})
}

func (h *AssetHandler) ListMine(c *gin.Context, id app.Identity) {
	assets, err := h.assets.ListByOwner(c.Request.Context(), id.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"assets": nonNil(assets)})
}

func (h *AssetHandler) Get(c *gin.Context, _ app.Identity) {
	assetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	asset, err := h.assets.GetByID(c.Request.Context(), assetID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"asset": asset})
}

func (h *AssetHandler) Download(c *gin.Context, _ app.Identity) {
	assetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	dl, err := h.assets.Download(c.Request.Context(), assetID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	name := dl.Asset.OriginalName
	if name == "" {
		name = dl.Asset.FilePath
	}
	if dl.Path != "" {
		c.FileAttachment(dl.Path, name)
		return
	}

	defer dl.Reader.Close()
	c.DataFromReader(http.StatusOK, dl.Size, dl.Asset.MimeType, dl.Reader, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
	})
}

// Update accepts either a JSON patch or a multipart form with an optional
// replacement file.
func (h *AssetHandler) Update(c *gin.Context, id app.Identity) {
	assetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input app.UpdateAssetInput
	if c.ContentType() == gin.MIMEJSON {
		var req UpdateAssetRequest
		if !bindJSON(c, &req) {
			return
		}
		var err error
		if input, err = req.toInput(); err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+formOverhead)

		// the file lookup parses the body, so it runs before the form reads
		header, err := c.FormFile("file")
		switch {
		case err == nil:
			upload, closeFile, err := openUpload(header)
			if err != nil {
				response.FromError(c, err)
				return
			}
			defer closeFile()
			input.File = upload
		case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
			h.fileError(c, err)
			return
		}

		form, err := readAssetForm(c)
		if err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		file := input.File
		input = form.toUpdateInput()
		input.File = file
	}

	asset, err := h.assets.Update(c.Request.Context(), assetID, id.UserID, input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"asset": asset})
}

func (h *AssetHandler) Delete(c *gin.Context, id app.Identity) {
	assetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.assets.Delete(c.Request.Context(), assetID, id.UserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Message(c, "asset deleted")
}

func (h *AssetHandler) fileError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		response.FromError(c, app.ErrFileTooLarge)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		response.FromError(c, app.ErrFileRequired)
	default:
		response.Error(c, http.StatusBadRequest, err.Error())
	}
}

func openUpload(header *multipart.FileHeader) (*app.FileUpload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open uploaded file failed: %w", err)
	}
	return &app.FileUpload{
		Reader:       file,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
	}, func() { _ = file.Close() }, nil
}

// assetForm holds the metadata fields of a multipart or urlencoded request.
// A nil field was absent from the form.
type assetForm struct {
	Name          *string
	Description   *string
	SerialNumber  *string
	Location      *string
	PurchasePrice *float64
	PurchaseDate  *time.Time
	CategoryID    *uint
	ClearCategory bool
	TagIDs        *[]uint
}

func readAssetForm(c *gin.Context) (assetForm, error) {
	var form assetForm
	form.Name = formString(c, "name")
	form.Description = formString(c, "description")
	form.SerialNumber = formString(c, "serial_number", "serialNumber")
	form.Location = formString(c, "location")

	if raw := formString(c, "purchase_price", "purchasePrice"); raw != nil && *raw != "" {
		price, err := strconv.ParseFloat(*raw, 64)
		if err != nil {
			return form, errors.New("purchase_price must be a number")
		}
		form.PurchasePrice = &price
	}
	if raw := formString(c, "purchase_date", "purchaseDate"); raw != nil && *raw != "" {
		date, err := parseDate(*raw)
		if err != nil {
			return form, err
		}
		form.PurchaseDate = &date
	}
	if raw := formString(c, "category_id", "categoryId"); raw != nil {
		if *raw == "" {
			form.ClearCategory = true
		} else {
			id, err := strconv.ParseUint(*raw, 10, 64)
			if err != nil {
				return form, errors.New("category_id must be a positive integer")
			}
			categoryID := uint(id)
			form.CategoryID = &categoryID
		}
	}

	for _, key := range []string{"tag_ids", "tag_ids[]", "tagIds"} {
		values, ok := c.GetPostFormArray(key)
		if !ok {
			continue
		}
		ids, err := parseIDList(values)
		if err != nil {
			return form, err
		}
		form.TagIDs = &ids
		break
	}
	return form, nil
}

func (f assetForm) toUpdateInput() app.UpdateAssetInput {
	return app.UpdateAssetInput{
		Name:          f.Name,
		Description:   f.Description,
		SerialNumber:  f.SerialNumber,
		PurchasePrice: f.PurchasePrice,
		PurchaseDate:  f.PurchaseDate,
		Location:      f.Location,
		CategoryID:    f.CategoryID,
		ClearCategory: f.ClearCategory,
		TagIDs:        f.TagIDs,
	}
}

func (r UpdateAssetRequest) toInput() (app.UpdateAssetInput, error) {
	input := app.UpdateAssetInput{
		Name:          r.Name,
		Description:   r.Description,
		SerialNumber:  r.SerialNumber,
		PurchasePrice: r.PurchasePrice,
		Location:      r.Location,
		CategoryID:    r.CategoryID,
		ClearCategory: r.ClearCategory,
		TagIDs:        r.TagIDs,
	}
	if r.PurchaseDate != nil && *r.PurchaseDate != "" {
		date, err := parseDate(*r.PurchaseDate)
		if err != nil {
			return input, err
		}
		input.PurchaseDate = &date
	}
	return input, nil
}

func formString(c *gin.Context, keys ...string) *string {
	for _, key := range keys {
		if v, ok := c.GetPostForm(key); ok {
			return &v
		}
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("purchase_date must be RFC3339 or YYYY-MM-DD")
}

// parseIDList accepts repeated values, comma separated values, or both.
func parseIDList(values []string) ([]uint, error) {
	ids := []uint{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				return nil, errors.New("tag_ids must be positive integers")
			}
			ids = append(ids, uint(id))
		}
	}
	return ids, nil
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func nonNil(assets []model.Asset) []model.Asset {
	if assets == nil {
		return []model.Asset{}
	}
	return assets
}
