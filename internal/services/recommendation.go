package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mediahub-backend/internal/data/repos"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/platform/qdrant"
)

// VectorSource is the slice of the vector index recommendations need.
type VectorSource interface {
	GetByID(ctx context.Context, mediaID string) (qdrant.EmbeddingPair, error)
	Search(ctx context.Context, vector []float32, field qdrant.Field, limit int) (qdrant.SearchResult, error)
}

type RecommendationService interface {
	Recommend(ctx context.Context, userID string) ([]*types.Media, error)
}

type recommendationService struct {
	log      *logger.Logger
	activity repos.ActivityRepo
	vectors  VectorSource
	media    MediaService
	limit    int
}

func NewRecommendationService(log *logger.Logger, activity repos.ActivityRepo, vectors VectorSource, media MediaService, limit int) RecommendationService {
	if limit <= 0 {
		limit = qdrant.DefaultLimit
	}
	return &recommendationService{
		log:      log.With("service", "RecommendationService"),
		activity: activity,
		vectors:  vectors,
		media:    media,
		limit:    limit,
	}
}

// Recommend searches near the mean liked image vector shifted away from the mean
// disliked one. Seen, rated and own media are dropped.
func (s *recommendationService) Recommend(ctx context.Context, userID string) ([]*types.Media, error) {
	dbc := dbctx.Context{Ctx: ctx}
	liked, err := s.activity.PreferredMediaIDs(dbc, userID, domainmedia.Like)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, ErrNotFound
	}
	disliked, err := s.activity.PreferredMediaIDs(dbc, userID, domainmedia.Dislike)
	if err != nil {
		return nil, err
	}
	viewed, err := s.activity.ViewedMediaIDs(dbc, userID)
	if err != nil {
		return nil, err
	}

	likedMean, err := s.meanImageVector(ctx, liked)
	if err != nil {
		return nil, err
	}
	if likedMean == nil {
		return nil, ErrNotFound
	}
	query := likedMean
	dislikedMean, err := s.meanImageVector(ctx, disliked)
	if err != nil {
		return nil, err
	}
	if dislikedMean != nil && len(dislikedMean) == len(likedMean) {
		for i := range query {
			query[i] -= dislikedMean[i]
		}
	}

	res, err := s.vectors.Search(ctx, query, qdrant.FieldImage, s.limit)
	if err != nil {
		return nil, fmt.Errorf("recommend search: %w", err)
	}
	skip := make(map[string]bool, len(liked)+len(disliked)+len(viewed))
	for _, group := range [][]string{liked, disliked, viewed} {
		for _, id := range group {
			skip[id] = true
		}
	}
	candidates := make([]string, 0, len(res.Identical)+len(res.Similar))
	for _, id := range append(res.Identical, res.Similar...) {
		if !skip[id] {
			candidates = append(candidates, id)
		}
	}
	rows, err := s.media.VisibleMedia(ctx, userID, candidates)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, m := range rows {
		if m.OwnerUserID != userID {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// meanImageVector returns nil when none of ids has stored vectors.
func (s *recommendationService) meanImageVector(ctx context.Context, ids []string) ([]float32, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var (
		mu    sync.Mutex
		sum   []float64
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, id := range ids {
		g.Go(func() error {
			pair, err := s.vectors.GetByID(gctx, id)
			if errors.Is(err, qdrant.ErrNotFound) {
				s.log.Warn("Rated media has no stored vectors", "media_id", id)
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if sum == nil {
				sum = make([]float64, len(pair.Image))
			}
			if len(pair.Image) != len(sum) {
				return nil
			}
			for i, v := range pair.Image {
				sum[i] += float64(v)
			}
			count++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load rated vectors: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]float32, len(sum))
	for i, v := range sum {
		out[i] = float32(v / float64(count))
	}
	return out, nil
}
