package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/services"
)

type CollectionHandler struct {
	log         *logger.Logger
	collections services.CollectionService
}

func NewCollectionHandler(log *logger.Logger, collections services.CollectionService) *CollectionHandler {
	return &CollectionHandler{log: log.With("handler", "CollectionHandler"), collections: collections}
}

// GET /api/collections?user_id=
func (h *CollectionHandler) List(c *gin.Context) {
	rows, err := h.collections.ListPublic(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /api/collections/:cid
func (h *CollectionHandler) Get(c *gin.Context) {
	id, ok := parseCollectionID(c, c.Param("cid"))
	if !ok {
		return
	}
	ctx := c.Request.Context()
	detail, err := h.collections.Get(ctx, ctxutil.ViewerID(ctx), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /api/collections
func (h *CollectionHandler) Create(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	view, err := h.collections.Create(c.Request.Context(), services.CreateCollectionInput{
		OwnerUserID: userID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("desc"),
		Tags:        splitList(c.PostForm("tags")),
		Scope:       c.PostForm("scope"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

// POST /api/collection_access
func (h *CollectionHandler) Grant(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	id, ok := parseCollectionID(c, c.PostForm("cid"))
	if !ok {
		return
	}
	if err := h.collections.Grant(c.Request.Context(), userID, id, splitList(c.PostForm("uids"))); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/collection_request
func (h *CollectionHandler) RequestAccess(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	id, ok := parseCollectionID(c, c.PostForm("cid"))
	if !ok {
		return
	}
	if err := h.collections.RequestAccess(c.Request.Context(), userID, id); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// GET /api/collections/:cid/requests
func (h *CollectionHandler) PendingRequests(c *gin.Context) {
	userID := requireViewer(c)
	if userID == "" {
		return
	}
	id, ok := parseCollectionID(c, c.Param("cid"))
	if !ok {
		return
	}
	rows, err := h.collections.PendingRequests(c.Request.Context(), userID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}
