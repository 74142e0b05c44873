package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username string) *types.User {
	tb.Helper()
	u := &types.User{ID: uuid.NewString(), Username: username}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedMedia inserts a fully settled private media row with a random id and
// fingerprint.
func SeedMedia(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID, title string) *types.Media {
	tb.Helper()
	return seedMedia(tb, ctx, tx, ownerID, title, domainmedia.ScopePrivate)
}

func SeedPublicMedia(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID, title string) *types.Media {
	tb.Helper()
	return seedMedia(tb, ctx, tx, ownerID, title, domainmedia.ScopePublic)
}

func seedMedia(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID, title string, scope domainmedia.Scope) *types.Media {
	tb.Helper()
	id := uuid.New()
	m := &types.Media{
		ID:          id.String()[:18],
		URL:         "images/" + id.String() + ".png",
		Title:       title,
		Fingerprint: id.String()[:16],
		Sources:     []string{},
		Score:       0.5,
		Color:       "#FFFFFF",
		Scope:       scope,
		OwnerUserID: ownerID,
		VectorState: domainmedia.StateOK,
		BlobState:   domainmedia.StateOK,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed media: %v", err)
	}
	return m
}

func SeedTag(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Tag {
	tb.Helper()
	t := &types.Tag{Name: name}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return t
}

func SeedCollection(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID, name string, scope domainmedia.Scope) *types.Collection {
	tb.Helper()
	c := &types.Collection{Name: name, Scope: scope, OwnerUserID: ownerID}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed collection: %v", err)
	}
	return c
}

func Link(tb testing.TB, ctx context.Context, tx *gorm.DB, collectionID uint, mediaID string) {
	tb.Helper()
	row := &types.CollectionMedia{CollectionID: collectionID, MediaID: mediaID}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("link media: %v", err)
	}
}
