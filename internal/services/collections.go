package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/mediahub-backend/internal/data/aggregates"
	"github.com/yungbote/mediahub-backend/internal/data/repos"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type CollectionView struct {
	*types.Collection
	Tags []string `json:"tags"`
}

type CollectionDetail struct {
	CollectionView
	// Media is empty when the viewer may not open a private collection.
	Media []*types.Media `json:"media"`
}

type CreateCollectionInput struct {
	OwnerUserID string
	Name        string
	Description string
	Tags        []string
	Scope       string
}

type CollectionService interface {
	Create(ctx context.Context, in CreateCollectionInput) (*CollectionView, error)
	ListPublic(ctx context.Context, ownerUserID string) ([]*CollectionView, error)
	Get(ctx context.Context, viewerID string, id uint) (*CollectionDetail, error)
	Grant(ctx context.Context, ownerUserID string, id uint, userIDs []string) error
	RequestAccess(ctx context.Context, userID string, id uint) error
	PendingRequests(ctx context.Context, ownerUserID string, id uint) ([]*types.CollectionAccessRequest, error)
}

type collectionService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	users       repos.UserRepo
	tags        repos.TagRepo
	collections repos.CollectionRepo
	media       MediaService
}

func NewCollectionService(log *logger.Logger, tx aggregates.TxRunner, set repos.Set, media MediaService) CollectionService {
	return &collectionService{
		log:         log.With("service", "CollectionService"),
		tx:          tx,
		users:       set.Users,
		tags:        set.Tags,
		collections: set.Collections,
		media:       media,
	}
}

func (s *collectionService) Create(ctx context.Context, in CreateCollectionInput) (*CollectionView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("collection name is required")
	}
	scope, ok := domainmedia.ParseScope(strings.ToLower(strings.TrimSpace(in.Scope)))
	if !ok {
		return nil, invalid("unknown scope %q", in.Scope)
	}
	tagNames := repos.CleanNames(in.Tags)
	row := &types.Collection{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Scope:       scope,
		OwnerUserID: in.OwnerUserID,
	}

	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		found, err := s.tags.GetByNames(dbc, tagNames)
		if err != nil {
			return err
		}
		if len(found) != len(tagNames) {
			return invalid("unknown tags in %s", strings.Join(tagNames, ", "))
		}
		ids := make([]uint, 0, len(found))
		for _, t := range found {
			ids = append(ids, t.ID)
		}
		return s.collections.Create(dbc, row, ids)
	})
	if aggregates.IsUniqueViolationOn(err, "name") {
		return nil, fmt.Errorf("%w: collection %q already exists", ErrConflict, name)
	}
	if err != nil {
		return nil, err
	}
	return &CollectionView{Collection: row, Tags: tagNames}, nil
}

func (s *collectionService) ListPublic(ctx context.Context, ownerUserID string) ([]*CollectionView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.collections.ListPublic(dbc, strings.TrimSpace(ownerUserID))
	if err != nil {
		return nil, err
	}
	return s.views(dbc, rows)
}

func (s *collectionService) views(dbc dbctx.Context, rows []*types.Collection) ([]*CollectionView, error) {
	ids := make([]uint, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	tags, err := s.collections.TagNames(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*CollectionView, 0, len(rows))
	for _, c := range rows {
		v := &CollectionView{Collection: c, Tags: tags[c.ID]}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *collectionService) Get(ctx context.Context, viewerID string, id uint) (*CollectionDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(dbc, []*types.Collection{c})
	if err != nil {
		return nil, err
	}
	out := &CollectionDetail{CollectionView: *views[0], Media: []*types.Media{}}

	allowed := c.IsPublic() || (viewerID != "" && c.OwnerUserID == viewerID)
	if !allowed {
		if allowed, err = s.collections.HasAccess(dbc, id, viewerID); err != nil {
			return nil, err
		}
	}
	if !allowed {
		return out, nil
	}
	ids, err := s.collections.MediaIDs(dbc, id)
	if err != nil {
		return nil, err
	}
	if out.Media, err = s.media.VisibleMedia(ctx, viewerID, ids); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *collectionService) Grant(ctx context.Context, ownerUserID string, id uint, userIDs []string) error {
	userIDs = repos.CleanNames(userIDs)
	if len(userIDs) == 0 {
		return invalid("no users given")
	}
	for _, uid := range userIDs {
		if uid == ownerUserID {
			return invalid("cannot grant access to yourself")
		}
	}
	return s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		c, err := s.load(dbc, id)
		if err != nil {
			return err
		}
		if c.OwnerUserID != ownerUserID {
			return ErrForbidden
		}
		known, err := s.users.ExistingIDs(dbc, userIDs)
		if err != nil {
			return err
		}
		for _, uid := range userIDs {
			if !known[uid] {
				return invalid("unknown user %s", uid)
			}
		}
		return s.collections.GrantAccess(dbc, id, userIDs)
	})
}

func (s *collectionService) RequestAccess(ctx context.Context, userID string, id uint) error {
	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.load(dbc, id)
	if err != nil {
		return err
	}
	if c.OwnerUserID == userID {
		return invalid("cannot request access to your own collection")
	}
	return s.collections.RequestAccess(dbc, id, userID)
}

func (s *collectionService) PendingRequests(ctx context.Context, ownerUserID string, id uint) ([]*types.CollectionAccessRequest, error) {
	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerUserID != ownerUserID {
		return nil, ErrForbidden
	}
	return s.collections.PendingRequests(dbc, id)
}

func (s *collectionService) load(dbc dbctx.Context, id uint) (*types.Collection, error) {
	c, err := s.collections.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}
