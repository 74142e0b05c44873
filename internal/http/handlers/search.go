package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/media/search"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/services"
)

type Searcher interface {
	Text(ctx context.Context, viewerID, query string) ([]*types.Media, error)
	VisualByUpload(ctx context.Context, viewerID string, raw []byte) (*search.Result, error)
	VisualByMediaID(ctx context.Context, viewerID, mediaID string) (*search.Result, error)
}

type SearchHandler struct {
	log            *logger.Logger
	search         Searcher
	media          services.MediaService
	maxUploadBytes int64
}

func NewSearchHandler(log *logger.Logger, s Searcher, media services.MediaService, maxUploadBytes int64) *SearchHandler {
	return &SearchHandler{
		log:            log.With("handler", "SearchHandler"),
		search:         s,
		media:          media,
		maxUploadBytes: maxUploadBytes,
	}
}

type visualResponse struct {
	Identical []*services.MediaView `json:"identical"`
	Similar   []*services.MediaView `json:"similar"`
}

// POST /api/search?query=
func (h *SearchHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	viewerID := ctxutil.ViewerID(ctx)
	query := c.Query("query")
	if query == "" {
		query = c.PostForm("query")
	}

	start := time.Now()
	rows, err := h.search.Text(ctx, viewerID, query)
	observeSearch("text", err, start)
	if err != nil {
		respondErr(c, err)
		return
	}
	views, err := h.media.Describe(ctx, viewerID, rows)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, views)
}

// POST /api/visual-search with either an "image" file or a "mid" field.
func (h *SearchHandler) VisualSearch(c *gin.Context) {
	ctx := c.Request.Context()
	viewerID := ctxutil.ViewerID(ctx)

	raw, fileErr := readImage(c, "image", h.maxUploadBytes)
	if fileErr != nil && !errors.Is(fileErr, errMissingFile) {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", fileErr)
		return
	}
	mid := strings.TrimSpace(c.PostForm("mid"))
	hasFile := fileErr == nil
	if hasFile == (mid != "") {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", errors.New("provide exactly one of image or mid"))
		return
	}

	var (
		res  *search.Result
		err  error
		kind = "visual_upload"
	)
	start := time.Now()
	if hasFile {
		res, err = h.search.VisualByUpload(ctx, viewerID, raw)
	} else {
		kind = "visual_by_id"
		res, err = h.search.VisualByMediaID(ctx, viewerID, mid)
	}
	observeSearch(kind, err, start)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := visualResponse{}
	if out.Identical, err = h.media.Describe(ctx, viewerID, res.Identical); err != nil {
		respondErr(c, err)
		return
	}
	if out.Similar, err = h.media.Describe(ctx, viewerID, res.Similar); err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

func observeSearch(kind string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = toAPIError(err).Code
	}
	observability.Current().ObserveSearch(kind, status, time.Since(start))
}
