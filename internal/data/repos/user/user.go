package user

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type UserRepo interface {
	// Ensure inserts the user if missing. Existing rows keep their username.
	Ensure(dbc dbctx.Context, id, username string) error
	GetByID(dbc dbctx.Context, id string) (*types.User, error)
	ExistingIDs(dbc dbctx.Context, ids []string) (map[string]bool, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *userRepo) Ensure(dbc dbctx.Context, id, username string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	row := &types.User{ID: id, Username: strings.TrimSpace(username)}
	return r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (r *userRepo) GetByID(dbc dbctx.Context, id string) (*types.User, error) {
	var out []*types.User
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *userRepo) ExistingIDs(dbc dbctx.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(ids) == 0 {
		return out, nil
	}
	var found []string
	if err := r.tx(dbc).Model(&types.User{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}
