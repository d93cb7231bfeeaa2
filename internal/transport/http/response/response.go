package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
)

// MessageBody is the {"message": ...} shape shared by success notices and
// errors.
type MessageBody struct {
	Message string `json:"message"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageBody{Message: message})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, MessageBody{Message: message})
}

// FromError maps a service error to its status. Unclassified errors are
// attached to the context for the access log and answered with a generic 500.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrConflict):
		Error(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "internal server error")
	}
}
