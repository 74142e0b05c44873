package media

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/mediahub-backend/internal/data/aggregates"
	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

func TestMediaRepoCreateAndLookup(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMediaRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, "owner")
	row := &types.Media{
		ID:          "1234567890",
		URL:         "images/abc.png",
		Title:       "cat",
		Fingerprint: "c3c3c3c3c3c3c3c3",
		Sources:     []string{"https://example.com/cat"},
		OwnerUserID: owner.ID,
		VectorState: domainmedia.StatePending,
		BlobState:   domainmedia.StatePending,
	}
	if err := repo.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByFingerprint(dbc, "c3c3c3c3c3c3c3c3")
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if got == nil || got.ID != row.ID {
		t.Fatalf("GetByFingerprint: want=%s got=%v", row.ID, got)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "https://example.com/cat" {
		t.Fatalf("Sources: got=%v", got.Sources)
	}
	if !got.Degraded() {
		t.Fatalf("pending row should report degraded")
	}

	missing, err := repo.GetByFingerprint(dbc, "0000000000000000")
	if err != nil || missing != nil {
		t.Fatalf("missing fingerprint: want nil,nil got=%v,%v", missing, err)
	}
}

func TestMediaRepoFingerprintIsUnique(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMediaRepo(db, testutil.Logger(t))

	first := testutil.SeedMedia(t, ctx, tx, "u1", "first")
	dup := &types.Media{
		ID:          "999",
		URL:         "images/dup.png",
		Title:       "dup",
		Fingerprint: first.Fingerprint,
		OwnerUserID: "u2",
	}
	err := aggregates.MapError("create", repo.Create(dbc, dup))
	if err == nil {
		t.Fatalf("expected unique violation on fingerprint")
	}
	if !aggregates.IsUniqueViolationOn(err, "fingerprint") {
		t.Fatalf("IsUniqueViolationOn: want=true err=%v", err)
	}
}

func TestMediaRepoTagsCollectionsAndStates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMediaRepo(db, testutil.Logger(t))

	m := testutil.SeedMedia(t, ctx, tx, "u1", "m")
	cat := testutil.SeedTag(t, ctx, tx, "cat")
	animal := testutil.SeedTag(t, ctx, tx, "animal")
	pets := testutil.SeedCollection(t, ctx, tx, "u1", "pets", domainmedia.ScopePublic)

	if err := repo.AttachTags(dbc, m.ID, []uint{cat.ID, animal.ID, cat.ID}); err != nil {
		t.Fatalf("AttachTags: %v", err)
	}
	if err := repo.AttachCollections(dbc, m.ID, []uint{pets.ID}); err != nil {
		t.Fatalf("AttachCollections: %v", err)
	}

	names, err := repo.TagNames(dbc, []string{m.ID})
	if err != nil {
		t.Fatalf("TagNames: %v", err)
	}
	if got := names[m.ID]; len(got) != 2 || got[0] != "animal" || got[1] != "cat" {
		t.Fatalf("TagNames: want=[animal cat] got=%v", got)
	}

	cols, err := repo.Collections(dbc, []string{m.ID})
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if got := cols[m.ID]; len(got) != 1 || got[0].Name != "pets" {
		t.Fatalf("Collections: got=%v", got)
	}

	if err := repo.SetSideEffectStates(dbc, m.ID, domainmedia.StateFailed, ""); err != nil {
		t.Fatalf("SetSideEffectStates: %v", err)
	}
	degraded, err := repo.ListDegraded(dbc, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListDegraded: %v", err)
	}
	if len(degraded) != 1 || degraded[0].ID != m.ID {
		t.Fatalf("ListDegraded: want=[%s] got=%d rows", m.ID, len(degraded))
	}
	if degraded[0].BlobState != domainmedia.StateOK {
		t.Fatalf("blob state should be untouched: got=%s", degraded[0].BlobState)
	}
}
