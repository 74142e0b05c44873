package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/mediahub-backend/internal/data/repos"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type Classifier interface {
	Classify(ctx context.Context, raw []byte, labels []string, k int) ([]string, error)
}

type TagService interface {
	// Names is the classification vocabulary, served from cache when possible.
	Names(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]*types.Tag, error)
	Add(ctx context.Context, names []string) ([]*types.Tag, error)
	// Refresh loads a full vocabulary (the tag file) and reports how many names it held.
	Refresh(ctx context.Context, names []string) (int, error)
	Classify(ctx context.Context, raw []byte) ([]string, error)
}

type tagService struct {
	log        *logger.Logger
	tags       repos.TagRepo
	cache      TagCache
	classifier Classifier
}

// NewTagService accepts a nil cache and reads the vocabulary straight from the database.
func NewTagService(log *logger.Logger, tags repos.TagRepo, cache TagCache, classifier Classifier) TagService {
	return &tagService{
		log:        log.With("service", "TagService"),
		tags:       tags,
		cache:      cache,
		classifier: classifier,
	}
}

func (s *tagService) Names(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		names, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("Tag cache read failed", "error", err)
		} else if ok {
			return names, nil
		}
	}
	names, err := s.tags.ListNames(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, names); err != nil {
			s.log.Warn("Tag cache write failed", "error", err)
		}
	}
	return names, nil
}

func (s *tagService) List(ctx context.Context) ([]*types.Tag, error) {
	return s.tags.List(dbctx.Context{Ctx: ctx})
}

func (s *tagService) Add(ctx context.Context, names []string) ([]*types.Tag, error) {
	names = repos.CleanNames(names)
	if len(names) == 0 {
		return nil, invalid("no tags given")
	}
	for _, n := range names {
		if strings.ContainsAny(n, "[]") {
			return nil, invalid("tag %q contains brackets", n)
		}
	}
	rows, err := s.tags.EnsureNames(dbctx.Context{Ctx: ctx}, names)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return rows, nil
}

func (s *tagService) Refresh(ctx context.Context, names []string) (int, error) {
	names = repos.CleanNames(names)
	kept := names[:0]
	for _, n := range names {
		if strings.ContainsAny(n, "[]") {
			s.log.Warn("Skipping bracketed tag", "tag", n)
			continue
		}
		kept = append(kept, n)
	}
	if len(kept) == 0 {
		return 0, nil
	}
	if _, err := s.tags.EnsureNames(dbctx.Context{Ctx: ctx}, kept); err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.log.Info("Tag vocabulary refreshed", "count", len(kept))
	return len(kept), nil
}

func (s *tagService) Classify(ctx context.Context, raw []byte) ([]string, error) {
	if _, err := fingerprint.Decode(raw); err != nil {
		return nil, err
	}
	vocab, err := s.Names(ctx)
	if err != nil {
		return nil, err
	}
	if len(vocab) == 0 {
		return []string{}, nil
	}
	tags, err := s.classifier.Classify(ctx, raw, vocab, ingest.ClassifyTopK)
	if err != nil {
		return nil, fmt.Errorf("%w: classify: %v", ingest.ErrUpstream, err)
	}
	return tags, nil
}

func (s *tagService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("Tag cache invalidation failed", "error", err)
	}
}
