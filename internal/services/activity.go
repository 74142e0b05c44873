package services

import (
	"context"
	"strings"

	"github.com/yungbote/mediahub-backend/internal/data/repos"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type ActivityService interface {
	SetPreference(ctx context.Context, userID, mediaID, attr string) error
	RecordView(ctx context.Context, userID, mediaID string) error
}

type activityService struct {
	log      *logger.Logger
	activity repos.ActivityRepo
	media    MediaService
}

func NewActivityService(log *logger.Logger, activity repos.ActivityRepo, media MediaService) ActivityService {
	return &activityService{
		log:      log.With("service", "ActivityService"),
		activity: activity,
		media:    media,
	}
}

func (s *activityService) SetPreference(ctx context.Context, userID, mediaID, attr string) error {
	kind, ok := domainmedia.ParsePreference(strings.ToLower(strings.TrimSpace(attr)))
	if !ok {
		return invalid("attr must be like or dislike")
	}
	if err := s.mustSee(ctx, userID, mediaID); err != nil {
		return err
	}
	return s.activity.SetPreference(dbctx.Context{Ctx: ctx}, userID, mediaID, kind)
}

func (s *activityService) RecordView(ctx context.Context, userID, mediaID string) error {
	if err := s.mustSee(ctx, userID, mediaID); err != nil {
		return err
	}
	return s.activity.RecordView(dbctx.Context{Ctx: ctx}, userID, mediaID)
}

func (s *activityService) mustSee(ctx context.Context, userID, mediaID string) error {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return invalid("mid is required")
	}
	rows, err := s.media.VisibleMedia(ctx, userID, []string{mediaID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}
