package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope and aborts the handler chain.
func RespondError(c *gin.Context, status int, code string, err error) {
	e := APIError{Code: code, Message: http.StatusText(status)}
	if err != nil {
		e.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: e})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
