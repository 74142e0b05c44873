package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/services"
)

type TagHandler struct {
	log            *logger.Logger
	tags           services.TagService
	maxUploadBytes int64
}

func NewTagHandler(log *logger.Logger, tags services.TagService, maxUploadBytes int64) *TagHandler {
	return &TagHandler{log: log.With("handler", "TagHandler"), tags: tags, maxUploadBytes: maxUploadBytes}
}

// GET /api/tags
func (h *TagHandler) List(c *gin.Context) {
	rows, err := h.tags.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// POST /api/tags?tags=a,b
func (h *TagHandler) Add(c *gin.Context) {
	raw := c.Query("tags")
	if raw == "" {
		raw = c.PostForm("tags")
	}
	rows, err := h.tags.Add(c.Request.Context(), splitList(raw))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondCreated(c, rows)
}

// POST /api/classify
func (h *TagHandler) Classify(c *gin.Context) {
	raw, err := readImage(c, "image", h.maxUploadBytes)
	if err != nil {
		code := "invalid_upload"
		if errors.Is(err, errMissingFile) {
			code = "missing_image"
		}
		response.RespondError(c, http.StatusBadRequest, code, err)
		return
	}
	names, err := h.tags.Classify(c.Request.Context(), raw)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tags": names})
}
