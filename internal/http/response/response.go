package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx response. OK is always false;
// it lets clients branch on a single field instead of the status code.
type ErrorEnvelope struct {
	OK    bool     `json:"ok"`
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. Code is a stable machine string
// for consumers; the human-readable message comes from err when present.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		OK: false,
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK writes payload as-is with a 200. Success bodies are
// endpoint-shaped, so no envelope is imposed here.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
