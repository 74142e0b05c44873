package media

import (
	"context"
	"testing"

	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

func TestCollectionRepoCreateAndListPublic(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCollectionRepo(db, testutil.Logger(t))

	tag := testutil.SeedTag(t, ctx, tx, "cat")
	pub := &types.Collection{Name: "cats", Scope: domainmedia.ScopePublic, OwnerUserID: "u1"}
	if err := repo.Create(dbc, pub, []uint{tag.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	testutil.SeedCollection(t, ctx, tx, "u1", "hidden", domainmedia.ScopePrivate)
	testutil.SeedCollection(t, ctx, tx, "u2", "dogs", domainmedia.ScopePublic)

	all, err := repo.ListPublic(dbc, "")
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListPublic: want=2 got=%d", len(all))
	}
	mine, err := repo.ListPublic(dbc, "u1")
	if err != nil {
		t.Fatalf("ListPublic(owner): %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "cats" {
		t.Fatalf("ListPublic(owner): got=%v", mine)
	}

	tags, err := repo.TagNames(dbc, []uint{pub.ID})
	if err != nil {
		t.Fatalf("TagNames: %v", err)
	}
	if got := tags[pub.ID]; len(got) != 1 || got[0] != "cat" {
		t.Fatalf("TagNames: want=[cat] got=%v", got)
	}
}

func TestCollectionRepoGrantClearsRequests(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCollectionRepo(db, testutil.Logger(t))

	c := testutil.SeedCollection(t, ctx, tx, "owner", "secret", domainmedia.ScopePrivate)

	if err := repo.RequestAccess(dbc, c.ID, "guest"); err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if err := repo.RequestAccess(dbc, c.ID, "guest"); err != nil {
		t.Fatalf("RequestAccess twice: %v", err)
	}
	pending, err := repo.PendingRequests(dbc, c.ID)
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingRequests: want=1 got=%d err=%v", len(pending), err)
	}

	ok, err := repo.HasAccess(dbc, c.ID, "guest")
	if err != nil || ok {
		t.Fatalf("HasAccess before grant: want=false got=%v err=%v", ok, err)
	}
	if err := repo.GrantAccess(dbc, c.ID, []string{"guest"}); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	ok, err = repo.HasAccess(dbc, c.ID, "guest")
	if err != nil || !ok {
		t.Fatalf("HasAccess after grant: want=true got=%v err=%v", ok, err)
	}
	pending, err = repo.PendingRequests(dbc, c.ID)
	if err != nil || len(pending) != 0 {
		t.Fatalf("PendingRequests after grant: want=0 got=%d err=%v", len(pending), err)
	}

	granted, err := repo.AccessibleIDs(dbc, "guest", []uint{c.ID, c.ID + 100})
	if err != nil {
		t.Fatalf("AccessibleIDs: %v", err)
	}
	if !granted[c.ID] || granted[c.ID+100] {
		t.Fatalf("AccessibleIDs: got=%v", granted)
	}
}

func TestCollectionRepoMediaIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCollectionRepo(db, testutil.Logger(t))

	c := testutil.SeedCollection(t, ctx, tx, "owner", "c", domainmedia.ScopePublic)
	m := testutil.SeedMedia(t, ctx, tx, "owner", "m")
	testutil.Link(t, ctx, tx, c.ID, m.ID)

	ids, err := repo.MediaIDs(dbc, c.ID)
	if err != nil {
		t.Fatalf("MediaIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != m.ID {
		t.Fatalf("MediaIDs: want=[%s] got=%v", m.ID, ids)
	}
}
