package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/media/search"
	"github.com/yungbote/mediahub-backend/internal/platform/apierr"
	"github.com/yungbote/mediahub-backend/internal/services"
)

// toAPIError maps service and pipeline errors onto HTTP statuses.
func toAPIError(err error) *apierr.Error {
	var dup *ingest.DuplicateError
	switch {
	case errors.As(err, &dup):
		return apierr.Conflict("duplicate_media", err).With("media_id", dup.MediaID)
	case errors.Is(err, ingest.ErrDecode):
		return apierr.BadRequest("invalid_image", err)
	case errors.Is(err, ingest.ErrValidation), errors.Is(err, services.ErrValidation):
		return apierr.BadRequest("invalid_request", err)
	case errors.Is(err, search.ErrInvalidQuery):
		return apierr.BadRequest("invalid_query", err)
	case errors.Is(err, ingest.ErrForbidden), errors.Is(err, services.ErrForbidden):
		return apierr.Forbidden("forbidden", err)
	case errors.Is(err, search.ErrNotFound), errors.Is(err, services.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, services.ErrConflict):
		return apierr.Conflict("conflict", err)
	case errors.Is(err, ingest.ErrUpstream), errors.Is(err, search.ErrUpstream):
		return apierr.New(http.StatusBadGateway, "upstream_failed", err)
	default:
		return apierr.As(err)
	}
}

func respondErr(c *gin.Context, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.RespondAPIError(c, ae)
}
