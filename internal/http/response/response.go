package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body of every non-2xx response: {"error":{"message":...,"code":...}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func RespondError(c *gin.Context, status int, code, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Message: message, Code: code}})
}

func RespondOK(c *gin.Context, payload any)      { c.JSON(http.StatusOK, payload) }
func RespondCreated(c *gin.Context, payload any) { c.JSON(http.StatusCreated, payload) }
