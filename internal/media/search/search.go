package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/platform/qdrant"
)

var (
	ErrNotFound     = errors.New("search: media not found")
	ErrInvalidQuery = errors.New("search: invalid query")
	ErrUpstream     = errors.New("search: upstream failed")
)

// DefaultLookupTimeout bounds a shared stored-vector lookup.
const DefaultLookupTimeout = 15 * time.Second

type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, raw []byte) ([]float32, error)
}

type Index interface {
	Search(ctx context.Context, vector []float32, field qdrant.Field, limit int) (qdrant.SearchResult, error)
	GetByID(ctx context.Context, mediaID string) (qdrant.EmbeddingPair, error)
}

// Visibility resolves ids to the rows a viewer may see, keeping input order.
// viewerID is empty for anonymous callers.
type Visibility interface {
	VisibleMedia(ctx context.Context, viewerID string, ids []string) ([]*types.Media, error)
}

type Result struct {
	Identical []*types.Media `json:"identical"`
	Similar   []*types.Media `json:"similar"`
}

type Service struct {
	log     *logger.Logger
	embed   Embedder
	index   Index
	visible Visibility
	limit   int
	tracer  trace.Tracer
	vectors singleflight.Group

	// lookupTimeout applies to a coalesced GetByID, which outlives any
	// single caller.
	lookupTimeout time.Duration
}

func NewService(log *logger.Logger, embed Embedder, index Index, visible Visibility, limit int) *Service {
	if limit <= 0 {
		limit = qdrant.DefaultLimit
	}
	return &Service{
		log:     log.With("service", "SearchService"),
		embed:   embed,
		index:   index,
		visible: visible,
		limit:   limit,
		tracer:  otel.Tracer("github.com/yungbote/mediahub-backend/internal/media/search"),

		lookupTimeout: DefaultLookupTimeout,
	}
}

// Text ranks media by the similarity of their text vectors to the query.
func (s *Service) Text(ctx context.Context, viewerID, query string) ([]*types.Media, error) {
	ctx, span := s.tracer.Start(ctx, "search.text")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidQuery)
	}
	vec, err := s.embed.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed text: %v", ErrUpstream, err)
	}
	res, err := s.query(ctx, vec, qdrant.FieldText)
	if err != nil {
		return nil, err
	}
	out, err := s.visible.VisibleMedia(ctx, viewerID, res.Similar)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.hits", len(res.Similar)), attribute.Int("search.visible", len(out)))
	return out, nil
}

func (s *Service) VisualByUpload(ctx context.Context, viewerID string, raw []byte) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "search.visual_upload")
	defer span.End()

	if _, err := fingerprint.Decode(raw); err != nil {
		return nil, err
	}
	vec, err := s.embed.EmbedImage(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: embed image: %v", ErrUpstream, err)
	}
	return s.visual(ctx, viewerID, vec)
}

// VisualByMediaID reuses the stored image vector of an existing item.
func (s *Service) VisualByMediaID(ctx context.Context, viewerID, mediaID string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "search.visual_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("media.id", mediaID))

	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, fmt.Errorf("%w: media id is required", ErrInvalidQuery)
	}
	rows, err := s.visible.VisibleMedia(ctx, viewerID, []string{mediaID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	pair, shared, err := s.storedVectors(ctx, mediaID)
	if errors.Is(err, qdrant.ErrNotFound) {
		s.log.Warn("Media has no stored vectors", "media_id", mediaID)
		return nil, ErrNotFound
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: load vectors: %v", ErrUpstream, err)
	}
	span.SetAttributes(attribute.Bool("search.vector_shared", shared))
	return s.visual(ctx, viewerID, pair.Image)
}

// storedVectors coalesces concurrent lookups of one id. The shared call runs
// detached from the caller that started it so a cancelled request does not
// fail the others waiting on it.
func (s *Service) storedVectors(ctx context.Context, mediaID string) (qdrant.EmbeddingPair, bool, error) {
	ch := s.vectors.DoChan(mediaID, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
		defer cancel()
		return s.index.GetByID(lctx, mediaID)
	})
	select {
	case <-ctx.Done():
		return qdrant.EmbeddingPair{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return qdrant.EmbeddingPair{}, r.Shared, r.Err
		}
		return r.Val.(qdrant.EmbeddingPair), r.Shared, nil
	}
}

func (s *Service) visual(ctx context.Context, viewerID string, vec []float32) (*Result, error) {
	res, err := s.query(ctx, vec, qdrant.FieldImage)
	if err != nil {
		return nil, err
	}
	identical, err := s.visible.VisibleMedia(ctx, viewerID, res.Identical)
	if err != nil {
		return nil, err
	}
	similar, err := s.visible.VisibleMedia(ctx, viewerID, res.Similar)
	if err != nil {
		return nil, err
	}
	return &Result{Identical: identical, Similar: similar}, nil
}

func (s *Service) query(ctx context.Context, vec []float32, field qdrant.Field) (qdrant.SearchResult, error) {
	res, err := s.index.Search(ctx, vec, field, s.limit)
	if err != nil {
		s.log.Error("Vector search failed", "field", string(field), "error", err)
		return qdrant.SearchResult{}, fmt.Errorf("%w: vector search: %v", ErrUpstream, err)
	}
	return res, nil
}
