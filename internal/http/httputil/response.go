package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/batch-engine/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

func InternalError(c *gin.Context, err string) {
	Error(c, http.StatusInternalServerError, err)
}

func NotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

// HandleError maps a *common.HttpError to its status code; anything else
// is a 500.
func HandleError(c *gin.Context, err error) {
	var httpErr *common.HttpError
	if errors.As(err, &httpErr) {
		Error(c, httpErr.StatusCode, httpErr.Message)
		return
	}
	InternalError(c, err.Error())
}
