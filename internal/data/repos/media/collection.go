package media

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type CollectionRepo interface {
	Create(dbc dbctx.Context, row *types.Collection, tagIDs []uint) error
	GetByID(dbc dbctx.Context, id uint) (*types.Collection, error)
	GetByNames(dbc dbctx.Context, names []string) ([]*types.Collection, error)
	ListPublic(dbc dbctx.Context, ownerUserID string) ([]*types.Collection, error)
	TagNames(dbc dbctx.Context, ids []uint) (map[uint][]string, error)
	MediaIDs(dbc dbctx.Context, id uint) ([]string, error)

	HasAccess(dbc dbctx.Context, id uint, userID string) (bool, error)
	// AccessibleIDs filters ids down to the collections userID holds a grant on.
	AccessibleIDs(dbc dbctx.Context, userID string, ids []uint) (map[uint]bool, error)
	GrantAccess(dbc dbctx.Context, id uint, userIDs []string) error
	RequestAccess(dbc dbctx.Context, id uint, userID string) error
	PendingRequests(dbc dbctx.Context, id uint) ([]*types.CollectionAccessRequest, error)
}

type collectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollectionRepo(db *gorm.DB, baseLog *logger.Logger) CollectionRepo {
	return &collectionRepo{db: db, log: baseLog.With("repo", "CollectionRepo")}
}

func (r *collectionRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *collectionRepo) Create(dbc dbctx.Context, row *types.Collection, tagIDs []uint) error {
	if err := r.tx(dbc).Create(row).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]types.CollectionTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, types.CollectionTag{CollectionID: row.ID, TagID: id})
	}
	return r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func (r *collectionRepo) GetByID(dbc dbctx.Context, id uint) (*types.Collection, error) {
	var out []*types.Collection
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *collectionRepo) GetByNames(dbc dbctx.Context, names []string) ([]*types.Collection, error) {
	var out []*types.Collection
	names = CleanNames(names)
	if len(names) == 0 {
		return out, nil
	}
	err := r.tx(dbc).Where("name IN ?", names).Find(&out).Error
	return out, err
}

func (r *collectionRepo) ListPublic(dbc dbctx.Context, ownerUserID string) ([]*types.Collection, error) {
	q := r.tx(dbc).Where("scope = ?", domainmedia.ScopePublic)
	if ownerUserID != "" {
		q = q.Where("owner_user_id = ?", ownerUserID)
	}
	var out []*types.Collection
	err := q.Order("id").Find(&out).Error
	return out, err
}

func (r *collectionRepo) TagNames(dbc dbctx.Context, ids []uint) (map[uint][]string, error) {
	out := make(map[uint][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		CollectionID uint
		Name         string
	}
	err := r.tx(dbc).
		Table("collection_tags").
		Select("collection_tags.collection_id AS collection_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = collection_tags.tag_id").
		Where("collection_tags.collection_id IN ?", ids).
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CollectionID] = append(out[row.CollectionID], row.Name)
	}
	return out, nil
}

func (r *collectionRepo) MediaIDs(dbc dbctx.Context, id uint) ([]string, error) {
	var out []string
	err := r.tx(dbc).
		Model(&types.CollectionMedia{}).
		Where("collection_id = ?", id).
		Order("media_id").
		Pluck("media_id", &out).Error
	return out, err
}

func (r *collectionRepo) HasAccess(dbc dbctx.Context, id uint, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var n int64
	err := r.tx(dbc).
		Model(&types.CollectionAccess{}).
		Where("collection_id = ? AND user_id = ?", id, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *collectionRepo) AccessibleIDs(dbc dbctx.Context, userID string, ids []uint) (map[uint]bool, error) {
	out := map[uint]bool{}
	if userID == "" || len(ids) == 0 {
		return out, nil
	}
	var found []uint
	err := r.tx(dbc).
		Model(&types.CollectionAccess{}).
		Where("user_id = ? AND collection_id IN ?", userID, ids).
		Pluck("collection_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

func (r *collectionRepo) GrantAccess(dbc dbctx.Context, id uint, userIDs []string) error {
	userIDs = CleanNames(userIDs)
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]types.CollectionAccess, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, types.CollectionAccess{CollectionID: id, UserID: uid})
	}
	if err := r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return err
	}
	return r.tx(dbc).
		Where("collection_id = ? AND user_id IN ?", id, userIDs).
		Delete(&types.CollectionAccessRequest{}).Error
}

func (r *collectionRepo) RequestAccess(dbc dbctx.Context, id uint, userID string) error {
	row := &types.CollectionAccessRequest{CollectionID: id, UserID: userID}
	return r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (r *collectionRepo) PendingRequests(dbc dbctx.Context, id uint) ([]*types.CollectionAccessRequest, error) {
	var out []*types.CollectionAccessRequest
	err := r.tx(dbc).Where("collection_id = ?", id).Order("requested_at").Find(&out).Error
	return out, err
}
