package services

import (
	"context"
	"testing"

	"github.com/yungbote/mediahub-backend/internal/data/repos"
	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

type countingUsers struct {
	repos.UserRepo
	ensures int
}

func (c *countingUsers) Ensure(dbc dbctx.Context, id, username string) error {
	c.ensures++
	return c.UserRepo.Ensure(dbc, id, username)
}

func TestUserEnsureOncePerProcess(t *testing.T) {
	f := newFixture(t)
	users := &countingUsers{UserRepo: f.set.Users}
	svc := NewUserService(testutil.Logger(t), users)
	v := &ctxutil.Viewer{UserID: "u-1", Username: "ann"}

	for i := 0; i < 3; i++ {
		if err := svc.Ensure(context.Background(), v); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if users.ensures != 1 {
		t.Fatalf("repo calls: want=1 got=%d", users.ensures)
	}
	row, err := f.set.Users.GetByID(dbctx.New(f.ctx), "u-1")
	if err != nil || row == nil || row.Username != "ann" {
		t.Fatalf("row: got=%+v err=%v", row, err)
	}
	if err := svc.Ensure(context.Background(), nil); err != nil {
		t.Fatalf("anonymous: %v", err)
	}
}
