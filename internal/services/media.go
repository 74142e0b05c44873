package services

import (
	"context"

	"github.com/yungbote/mediahub-backend/internal/data/repos"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	"github.com/yungbote/mediahub-backend/internal/platform/blob"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

// MediaView is a media row as one viewer is allowed to see it.
type MediaView struct {
	*types.Media
	PublicURL   string              `json:"public_url,omitempty"`
	Tags        []string            `json:"tags"`
	Collections []*types.Collection `json:"collections"`
}

type MediaService interface {
	// VisibleMedia keeps the rows of ids viewerID may see, in input order.
	VisibleMedia(ctx context.Context, viewerID string, ids []string) ([]*types.Media, error)
	GetForViewer(ctx context.Context, viewerID, mediaID string) (*MediaView, error)
	Describe(ctx context.Context, viewerID string, rows []*types.Media) ([]*MediaView, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*MediaView, error)
}

type mediaService struct {
	log         *logger.Logger
	media       repos.MediaRepo
	collections repos.CollectionRepo
	blobs       blob.Store
}

func NewMediaService(log *logger.Logger, media repos.MediaRepo, collections repos.CollectionRepo, blobs blob.Store) MediaService {
	return &mediaService{
		log:         log.With("service", "MediaService"),
		media:       media,
		collections: collections,
		blobs:       blobs,
	}
}

// access answers visibility questions for one viewer over a batch of media.
type access struct {
	viewerID    string
	memberships map[string][]*types.Collection
	granted     map[uint]bool
}

func (s *mediaService) loadAccess(dbc dbctx.Context, viewerID string, ids []string) (*access, error) {
	memberships, err := s.media.Collections(dbc, ids)
	if err != nil {
		return nil, err
	}
	a := &access{viewerID: viewerID, memberships: memberships, granted: map[uint]bool{}}
	if viewerID == "" {
		return a, nil
	}
	var private []uint
	for _, cols := range memberships {
		for _, c := range cols {
			if !c.IsPublic() && c.OwnerUserID != viewerID {
				private = append(private, c.ID)
			}
		}
	}
	if len(private) == 0 {
		return a, nil
	}
	a.granted, err = s.collections.AccessibleIDs(dbc, viewerID, private)
	return a, err
}

func (a *access) canSeeCollection(c *types.Collection) bool {
	if c.IsPublic() {
		return true
	}
	if a.viewerID == "" {
		return false
	}
	return c.OwnerUserID == a.viewerID || a.granted[c.ID]
}

// canSee: the asset is public, owned, or reachable through a public or granted
// collection. Uncollected private media stays with its owner.
func (a *access) canSee(m *types.Media) bool {
	if m.IsPublic() {
		return true
	}
	if a.viewerID != "" && m.OwnerUserID == a.viewerID {
		return true
	}
	for _, c := range a.memberships[m.ID] {
		if a.canSeeCollection(c) {
			return true
		}
	}
	return false
}

// visibleCollections hides private collections the viewer has no grant on.
func (a *access) visibleCollections(m *types.Media) []*types.Collection {
	out := []*types.Collection{}
	owner := a.viewerID != "" && m.OwnerUserID == a.viewerID
	for _, c := range a.memberships[m.ID] {
		if owner || a.canSeeCollection(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *mediaService) VisibleMedia(ctx context.Context, viewerID string, ids []string) ([]*types.Media, error) {
	out := []*types.Media{}
	if len(ids) == 0 {
		return out, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.media.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*types.Media, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	a, err := s.loadAccess(dbc, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		m, ok := byID[id]
		if !ok || !a.canSee(m) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *mediaService) GetForViewer(ctx context.Context, viewerID, mediaID string) (*MediaView, error) {
	rows, err := s.VisibleMedia(ctx, viewerID, []string{mediaID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	views, err := s.Describe(ctx, viewerID, rows)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *mediaService) Describe(ctx context.Context, viewerID string, rows []*types.Media) ([]*MediaView, error) {
	out := make([]*MediaView, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	dbc := dbctx.Context{Ctx: ctx}
	tags, err := s.media.TagNames(dbc, ids)
	if err != nil {
		return nil, err
	}
	a, err := s.loadAccess(dbc, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		v := &MediaView{
			Media:       r,
			Tags:        tags[r.ID],
			Collections: a.visibleCollections(r),
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		if s.blobs != nil {
			v.PublicURL = s.blobs.PublicURL(r.URL)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *mediaService) ListPublic(ctx context.Context, limit, offset int) ([]*MediaView, error) {
	rows, err := s.media.List(dbctx.Context{Ctx: ctx}, limit, offset)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	visible, err := s.VisibleMedia(ctx, "", ids)
	if err != nil {
		return nil, err
	}
	return s.Describe(ctx, "", visible)
}
