package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the wire shape of every API response: code 0 means ok, any
// other value carries the HTTP-style error class the UI switches on.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ListData is the paged payload shape for search endpoints.
type ListData struct {
	Total int64 `json:"total"`
	List  any   `json:"list"`
}

func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Code: 0, Message: message, Data: data})
}

// RespondError always answers HTTP 200; the envelope code carries the error
// class so browser clients read the body instead of a bare status page.
func RespondError(c *gin.Context, code int, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Code: code, Message: message, Data: data})
}
