package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	// MediaID names the existing item when an upload is a duplicate.
	MediaID string `json:"media_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError renders an apierr.Error. Internal failures never expose
// their cause to the client.
func RespondAPIError(c *gin.Context, ae *apierr.Error) {
	msg := ae.Error()
	if ae.Status >= http.StatusInternalServerError && ae.Status != http.StatusBadGateway {
		msg = "internal error"
	}
	body := APIError{Message: msg, Code: ae.Code}
	if id, ok := ae.Details["media_id"].(string); ok {
		body.MediaID = id
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
