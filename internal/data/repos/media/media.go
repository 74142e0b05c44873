package media

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type MediaRepo interface {
	Create(dbc dbctx.Context, row *types.Media) error
	GetByID(dbc dbctx.Context, id string) (*types.Media, error)
	GetByIDs(dbc dbctx.Context, ids []string) ([]*types.Media, error)
	GetByFingerprint(dbc dbctx.Context, fingerprint string) (*types.Media, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Media, error)

	AttachTags(dbc dbctx.Context, mediaID string, tagIDs []uint) error
	AttachCollections(dbc dbctx.Context, mediaID string, collectionIDs []uint) error
	TagNames(dbc dbctx.Context, mediaIDs []string) (map[string][]string, error)
	Collections(dbc dbctx.Context, mediaIDs []string) (map[string][]*types.Collection, error)

	SetSideEffectStates(dbc dbctx.Context, id string, vector, blob domainmedia.SideEffectState) error
	ListDegraded(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*types.Media, error)
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return &mediaRepo{db: db, log: baseLog.With("repo", "MediaRepo")}
}

func (r *mediaRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *mediaRepo) Create(dbc dbctx.Context, row *types.Media) error {
	return r.tx(dbc).Create(row).Error
}

func (r *mediaRepo) GetByID(dbc dbctx.Context, id string) (*types.Media, error) {
	if id == "" {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []string{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *mediaRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*types.Media, error) {
	var out []*types.Media
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaRepo) GetByFingerprint(dbc dbctx.Context, fingerprint string) (*types.Media, error) {
	var out []*types.Media
	if err := r.tx(dbc).Where("fingerprint = ?", fingerprint).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *mediaRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Media, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Media
	err := r.tx(dbc).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

func (r *mediaRepo) AttachTags(dbc dbctx.Context, mediaID string, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]types.MediaTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, types.MediaTag{MediaID: mediaID, TagID: id})
	}
	return r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *mediaRepo) AttachCollections(dbc dbctx.Context, mediaID string, collectionIDs []uint) error {
	if len(collectionIDs) == 0 {
		return nil
	}
	rows := make([]types.CollectionMedia, 0, len(collectionIDs))
	for _, id := range collectionIDs {
		rows = append(rows, types.CollectionMedia{CollectionID: id, MediaID: mediaID})
	}
	return r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *mediaRepo) TagNames(dbc dbctx.Context, mediaIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(mediaIDs))
	if len(mediaIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		MediaID string
		Name    string
	}
	err := r.tx(dbc).
		Table("media_tags").
		Select("media_tags.media_id AS media_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = media_tags.tag_id").
		Where("media_tags.media_id IN ?", mediaIDs).
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.MediaID] = append(out[row.MediaID], row.Name)
	}
	return out, nil
}

func (r *mediaRepo) Collections(dbc dbctx.Context, mediaIDs []string) (map[string][]*types.Collection, error) {
	out := make(map[string][]*types.Collection, len(mediaIDs))
	if len(mediaIDs) == 0 {
		return out, nil
	}
	var links []types.CollectionMedia
	if err := r.tx(dbc).Where("media_id IN ?", mediaIDs).Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.CollectionID)
	}
	var cols []*types.Collection
	if err := r.tx(dbc).Where("id IN ?", ids).Order("id").Find(&cols).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*types.Collection, len(cols))
	for _, c := range cols {
		byID[c.ID] = c
	}
	for _, l := range links {
		if c, ok := byID[l.CollectionID]; ok {
			out[l.MediaID] = append(out[l.MediaID], c)
		}
	}
	return out, nil
}

func (r *mediaRepo) SetSideEffectStates(dbc dbctx.Context, id string, vector, blob domainmedia.SideEffectState) error {
	updates := map[string]interface{}{}
	if vector != "" {
		updates["vector_state"] = vector
	}
	if blob != "" {
		updates["blob_state"] = blob
	}
	if len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).Model(&types.Media{}).Where("id = ?", id).Updates(updates).Error
}

func (r *mediaRepo) ListDegraded(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*types.Media, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Media
	err := r.tx(dbc).
		Where("(vector_state <> ? OR blob_state <> ?)", domainmedia.StateOK, domainmedia.StateOK).
		Where("created_at < ?", createdBefore).
		Order("created_at").
		Limit(limit).
		Find(&out).Error
	return out, err
}
