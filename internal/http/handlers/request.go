package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
)

// DefaultMaxUploadBytes bounds an uploaded image when no limit is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

var errMissingFile = errors.New("image file is required")

// splitList splits a comma list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readImage reads the multipart file field. errMissingFile reports an
// absent field, including a request that is not multipart at all.
func readImage(c *gin.Context, field string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, errMissingFile
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > limit {
		return nil, fmt.Errorf("image exceeds %d bytes", limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("image exceeds %d bytes", limit)
	}
	return raw, nil
}

// requireViewer writes 401 and returns "" when the request is anonymous.
func requireViewer(c *gin.Context) string {
	id := ctxutil.ViewerID(c.Request.Context())
	if id == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
	}
	return id
}

func parseCollectionID(c *gin.Context, raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_collection_id", err)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
