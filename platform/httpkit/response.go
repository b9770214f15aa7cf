package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

// ErrorResponse is the failure envelope. Success is always false.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    apperr.Code `json:"code,omitempty"`
	Details any         `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) { c.JSON(status, payload) }

func OK(c *gin.Context, payload any) { JSON(c, http.StatusOK, payload) }

// Error writes a failure envelope built from its parts.
func Error(c *gin.Context, status int, code apperr.Code, message string, details any) {
	JSON(c, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// BindError reports a body gin could not decode.
func BindError(c *gin.Context, err error) {
	Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid request body", err.Error())
}

// HandleError writes err as a failure envelope and reports whether it did.
// The status follows the error kind; plain errors surface as Unknown/500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	e := apperr.Ensure(err)
	Error(c, e.HTTPStatus(), e.Code, e.Message, e.Details)
	return true
}
