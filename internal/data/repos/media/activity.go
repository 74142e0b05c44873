package media

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type ActivityRepo interface {
	// SetPreference records like/dislike; a second vote replaces the first.
	SetPreference(dbc dbctx.Context, userID, mediaID string, kind domainmedia.PreferenceKind) error
	PreferredMediaIDs(dbc dbctx.Context, userID string, kind domainmedia.PreferenceKind) ([]string, error)
	// RecordView is idempotent per (user, media).
	RecordView(dbc dbctx.Context, userID, mediaID string) error
	ViewedMediaIDs(dbc dbctx.Context, userID string) ([]string, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *activityRepo) SetPreference(dbc dbctx.Context, userID, mediaID string, kind domainmedia.PreferenceKind) error {
	row := &types.Preference{UserID: userID, MediaID: mediaID, Kind: kind}
	return r.tx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "media_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
	}).Create(row).Error
}

func (r *activityRepo) PreferredMediaIDs(dbc dbctx.Context, userID string, kind domainmedia.PreferenceKind) ([]string, error) {
	var out []string
	err := r.tx(dbc).
		Model(&types.Preference{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("updated_at DESC").
		Pluck("media_id", &out).Error
	return out, err
}

func (r *activityRepo) RecordView(dbc dbctx.Context, userID, mediaID string) error {
	row := &types.View{UserID: userID, MediaID: mediaID}
	return r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (r *activityRepo) ViewedMediaIDs(dbc dbctx.Context, userID string) ([]string, error) {
	var out []string
	err := r.tx(dbc).Model(&types.View{}).Where("user_id = ?", userID).Pluck("media_id", &out).Error
	return out, err
}
