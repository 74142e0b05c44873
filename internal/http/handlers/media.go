package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/services"
)

type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

type MediaHandler struct {
	log            *logger.Logger
	ingester       Ingester
	media          services.MediaService
	activity       services.ActivityService
	recommend      services.RecommendationService
	maxUploadBytes int64
}

func NewMediaHandler(
	log *logger.Logger,
	ingester Ingester,
	media services.MediaService,
	activity services.ActivityService,
	recommend services.RecommendationService,
	maxUploadBytes int64,
) *MediaHandler {
	return &MediaHandler{
		log:            log.With("handler", "MediaHandler"),
		ingester:       ingester,
		media:          media,
		activity:       activity,
		recommend:      recommend,
		maxUploadBytes: maxUploadBytes,
	}
}

// POST /api/upload
func (h *MediaHandler) Upload(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	raw, err := readImage(c, "image", h.maxUploadBytes)
	if err != nil {
		code := "invalid_upload"
		if errors.Is(err, errMissingFile) {
			code = "missing_image"
		}
		response.RespondError(c, http.StatusBadRequest, code, err)
		return
	}
	isNSFW, _ := strconv.ParseBool(strings.TrimSpace(c.PostForm("is_nsfw")))

	res, err := h.ingester.Ingest(c.Request.Context(), ingest.Request{
		Raw:         raw,
		Title:       c.PostForm("title"),
		Description: c.PostForm("desc"),
		Tags:        splitList(c.PostForm("tags")),
		Collections: splitList(c.PostForm("collections")),
		Sources:     splitList(c.PostForm("src")),
		IsNSFW:      isNSFW,
		Scope:       c.PostForm("scope"),
		OwnerUserID: userID,
	})
	if err != nil {
		h.log.Warn("Upload rejected", "user_id", userID, "error", err)
		respondErr(c, err)
		return
	}
	body := gin.H{"message": "Upload successful", "media_id": res.Media.ID, "tags": res.Tags}
	if len(res.Degraded) > 0 {
		body["degraded"] = res.Degraded
	}
	response.RespondCreated(c, body)
}

// GET /api/media
func (h *MediaHandler) List(c *gin.Context) {
	views, err := h.media.ListPublic(c.Request.Context(), queryInt(c, "limit", 50, 200), queryInt(c, "offset", 0, 0))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}

// GET /api/media/:mid
func (h *MediaHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.media.GetForViewer(ctx, ctxutil.ViewerID(ctx), c.Param("mid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/preference
func (h *MediaHandler) Preference(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	if err := h.activity.SetPreference(c.Request.Context(), userID, c.PostForm("mid"), c.PostForm("attr")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/view
func (h *MediaHandler) View(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	if err := h.activity.RecordView(c.Request.Context(), userID, c.PostForm("mid")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/recommend
func (h *MediaHandler) Recommend(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	ctx := c.Request.Context()
	rows, err := h.recommend.Recommend(ctx, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	views, err := h.media.Describe(ctx, userID, rows)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}
