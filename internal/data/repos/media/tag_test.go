package media

import (
	"context"
	"testing"

	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

func TestTagRepoEnsureNamesIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTagRepo(db, testutil.Logger(t))

	testutil.SeedTag(t, ctx, tx, "cat")

	got, err := repo.EnsureNames(dbc, []string{" cat ", "dog", "dog", ""})
	if err != nil {
		t.Fatalf("EnsureNames: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("EnsureNames: want=2 got=%d", len(got))
	}

	names, err := repo.ListNames(dbc)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	if len(names) != 2 || names[0] != "cat" || names[1] != "dog" {
		t.Fatalf("ListNames: want=[cat dog] got=%v", names)
	}

	partial, err := repo.GetByNames(dbc, []string{"dog", "unicorn"})
	if err != nil {
		t.Fatalf("GetByNames: %v", err)
	}
	if len(partial) != 1 || partial[0].Name != "dog" {
		t.Fatalf("GetByNames: got=%v", partial)
	}
}

func TestCleanNames(t *testing.T) {
	got := CleanNames([]string{"a", " a", "", "b ", "a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("CleanNames: want=[a b] got=%v", got)
	}
}
