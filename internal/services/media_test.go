package services

import (
	"errors"
	"testing"

	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

func TestVisibleMediaRules(t *testing.T) {
	f := newFixture(t)
	owner := testutil.SeedUser(t, f.ctx, f.db, "owner")
	member := testutil.SeedUser(t, f.ctx, f.db, "member")
	stranger := testutil.SeedUser(t, f.ctx, f.db, "stranger")

	loose := testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "no collection")
	open := testutil.SeedPublicMedia(t, f.ctx, f.db, owner.ID, "public, no collection")
	hidden := testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "private only")
	mixed := testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "public and private")

	private := testutil.SeedCollection(t, f.ctx, f.db, owner.ID, "private", domainmedia.ScopePrivate)
	public := testutil.SeedCollection(t, f.ctx, f.db, owner.ID, "public", domainmedia.ScopePublic)
	testutil.Link(t, f.ctx, f.db, private.ID, hidden.ID)
	testutil.Link(t, f.ctx, f.db, private.ID, mixed.ID)
	testutil.Link(t, f.ctx, f.db, public.ID, mixed.ID)
	if err := f.set.Collections.GrantAccess(dbctx.New(f.ctx), private.ID, []string{member.ID}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	all := []string{hidden.ID, "unknown", mixed.ID, loose.ID, open.ID}
	cases := []struct {
		name   string
		viewer string
		want   []string
	}{
		{"anonymous", "", []string{mixed.ID, open.ID}},
		{"stranger", stranger.ID, []string{mixed.ID, open.ID}},
		{"owner", owner.ID, []string{hidden.ID, mixed.ID, loose.ID, open.ID}},
		{"member", member.ID, []string{hidden.ID, mixed.ID, open.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := f.media.VisibleMedia(f.ctx, tc.viewer, all)
			if err != nil {
				t.Fatalf("VisibleMedia: %v", err)
			}
			got := mediaIDs(rows)
			if len(got) != len(tc.want) {
				t.Fatalf("ids: want=%v got=%v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("order: want=%v got=%v", tc.want, got)
				}
			}
		})
	}
}

func TestGetForViewerRedactsCollections(t *testing.T) {
	f := newFixture(t)
	owner := testutil.SeedUser(t, f.ctx, f.db, "owner")
	m := testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "mixed")
	private := testutil.SeedCollection(t, f.ctx, f.db, owner.ID, "private", domainmedia.ScopePrivate)
	public := testutil.SeedCollection(t, f.ctx, f.db, owner.ID, "public", domainmedia.ScopePublic)
	testutil.Link(t, f.ctx, f.db, private.ID, m.ID)
	testutil.Link(t, f.ctx, f.db, public.ID, m.ID)
	tag := testutil.SeedTag(t, f.ctx, f.db, "cat")
	if err := f.set.Media.AttachTags(dbctx.New(f.ctx), m.ID, []uint{tag.ID}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	view, err := f.media.GetForViewer(f.ctx, "", m.ID)
	if err != nil {
		t.Fatalf("anonymous: %v", err)
	}
	if len(view.Collections) != 1 || view.Collections[0].ID != public.ID {
		t.Fatalf("anonymous collections: got=%v", view.Collections)
	}
	if len(view.Tags) != 1 || view.Tags[0] != "cat" {
		t.Fatalf("tags: got=%v", view.Tags)
	}

	view, err = f.media.GetForViewer(f.ctx, owner.ID, m.ID)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if len(view.Collections) != 2 {
		t.Fatalf("owner collections: want=2 got=%d", len(view.Collections))
	}
}

func TestGetForViewerHidesPrivateMedia(t *testing.T) {
	f := newFixture(t)
	owner := testutil.SeedUser(t, f.ctx, f.db, "owner")
	m := testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "secret")
	c := testutil.SeedCollection(t, f.ctx, f.db, owner.ID, "private", domainmedia.ScopePrivate)
	testutil.Link(t, f.ctx, f.db, c.ID, m.ID)

	if _, err := f.media.GetForViewer(f.ctx, "someone", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("private media: want ErrNotFound got=%v", err)
	}
	if _, err := f.media.GetForViewer(f.ctx, "", "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown media: want ErrNotFound got=%v", err)
	}
}

func TestListPublicSkipsPrivateMedia(t *testing.T) {
	f := newFixture(t)
	owner := testutil.SeedUser(t, f.ctx, f.db, "owner")
	open := testutil.SeedPublicMedia(t, f.ctx, f.db, owner.ID, "open")
	closed := testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "closed")
	testutil.SeedMedia(t, f.ctx, f.db, owner.ID, "loose")
	c := testutil.SeedCollection(t, f.ctx, f.db, owner.ID, "private", domainmedia.ScopePrivate)
	testutil.Link(t, f.ctx, f.db, c.ID, closed.ID)

	views, err := f.media.ListPublic(f.ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(views) != 1 || views[0].ID != open.ID {
		t.Fatalf("public list: want [%s] got=%d items", open.ID, len(views))
	}
}
