package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/platform/qdrant"
)

var newMediaIndex = qdrant.NewMediaIndex

// ResolveMediaIndex builds the Qdrant index, checks it agrees with the
// encoder's dimension and makes sure the collection exists.
func ResolveMediaIndex(ctx context.Context, log *logger.Logger, encoderDim int) (qdrant.MediaIndex, error) {
	cfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("qdrant config: %w", err)
	}
	if encoderDim > 0 && cfg.VectorDim != encoderDim {
		return nil, fmt.Errorf("QDRANT_VECTOR_DIM=%d does not match encoder dim %d", cfg.VectorDim, encoderDim)
	}
	idx, err := newMediaIndex(log, cfg)
	if err != nil {
		return nil, fmt.Errorf("init qdrant: %w", err)
	}
	idx = instrumentMediaIndex(idx)
	if err := idx.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure qdrant collection %q: %w", cfg.Collection, err)
	}
	log.Info("Vector index ready", "url", cfg.URL, "collection", cfg.Collection, "dim", cfg.VectorDim)
	return idx, nil
}

type instrumentedMediaIndex struct {
	inner   qdrant.MediaIndex
	metrics *observability.Metrics
}

func instrumentMediaIndex(inner qdrant.MediaIndex) qdrant.MediaIndex {
	if inner == nil {
		return nil
	}
	return &instrumentedMediaIndex{inner: inner, metrics: observability.Current()}
}

func (s *instrumentedMediaIndex) EnsureCollection(ctx context.Context) error {
	start := time.Now()
	err := s.inner.EnsureCollection(ctx)
	s.observe("ensure_collection", err, start)
	return err
}

func (s *instrumentedMediaIndex) Insert(ctx context.Context, mediaID string, image, text []float32) error {
	start := time.Now()
	err := s.inner.Insert(ctx, mediaID, image, text)
	s.observe("insert", err, start)
	return err
}

func (s *instrumentedMediaIndex) Search(ctx context.Context, vector []float32, field qdrant.Field, limit int) (qdrant.SearchResult, error) {
	start := time.Now()
	out, err := s.inner.Search(ctx, vector, field, limit)
	s.observe("search_"+string(field), err, start)
	return out, err
}

func (s *instrumentedMediaIndex) Hits(ctx context.Context, vector []float32, field qdrant.Field, limit int) ([]qdrant.Hit, error) {
	start := time.Now()
	out, err := s.inner.Hits(ctx, vector, field, limit)
	s.observe("hits_"+string(field), err, start)
	return out, err
}

func (s *instrumentedMediaIndex) GetByID(ctx context.Context, mediaID string) (qdrant.EmbeddingPair, error) {
	start := time.Now()
	out, err := s.inner.GetByID(ctx, mediaID)
	s.observe("get_by_id", err, start)
	return out, err
}

func (s *instrumentedMediaIndex) observe(operation string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorOperation(operation, status, time.Since(start))
}
