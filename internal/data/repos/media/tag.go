package media

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type TagRepo interface {
	List(dbc dbctx.Context) ([]*types.Tag, error)
	ListNames(dbc dbctx.Context) ([]string, error)
	GetByNames(dbc dbctx.Context, names []string) ([]*types.Tag, error)
	// EnsureNames creates missing tags and returns every requested tag.
	EnsureNames(dbc dbctx.Context, names []string) ([]*types.Tag, error)
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{db: db, log: baseLog.With("repo", "TagRepo")}
}

func (r *tagRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *tagRepo) List(dbc dbctx.Context) ([]*types.Tag, error) {
	var out []*types.Tag
	err := r.tx(dbc).Order("id").Find(&out).Error
	return out, err
}

func (r *tagRepo) ListNames(dbc dbctx.Context) ([]string, error) {
	var out []string
	err := r.tx(dbc).Model(&types.Tag{}).Order("id").Pluck("name", &out).Error
	return out, err
}

func (r *tagRepo) GetByNames(dbc dbctx.Context, names []string) ([]*types.Tag, error) {
	var out []*types.Tag
	names = CleanNames(names)
	if len(names) == 0 {
		return out, nil
	}
	err := r.tx(dbc).Where("name IN ?", names).Find(&out).Error
	return out, err
}

func (r *tagRepo) EnsureNames(dbc dbctx.Context, names []string) ([]*types.Tag, error) {
	names = CleanNames(names)
	if len(names) == 0 {
		return []*types.Tag{}, nil
	}
	rows := make([]*types.Tag, 0, len(names))
	for _, n := range names {
		rows = append(rows, &types.Tag{Name: n})
	}
	if err := r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return nil, err
	}
	return r.GetByNames(dbc, names)
}

// CleanNames trims, drops empties and removes duplicates while keeping order.
func CleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
