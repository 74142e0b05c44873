package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/mediahub-backend/internal/data/aggregates"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

// InjectedTxRunner runs the body without a database and lets tests fail
// begin or commit, or intercept the moment before commit.
type InjectedTxRunner struct {
	mu sync.Mutex

	FailBegin  error
	FailCommit error
	// BeforeCommit runs after a successful body; a non-nil return aborts the commit.
	BeforeCommit func(ctx context.Context) error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin, failCommit, before := r.FailBegin, r.FailCommit, r.BeforeCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if fn != nil {
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			r.rollback()
			return err
		}
	}
	if before != nil {
		if err := before(ctx); err != nil {
			r.rollback()
			return err
		}
	}
	if failCommit != nil {
		r.rollback()
		return failCommit
	}
	r.mu.Lock()
	r.CommitCalls++
	r.mu.Unlock()
	return nil
}

func (r *InjectedTxRunner) rollback() {
	r.mu.Lock()
	r.RollbackCalls++
	r.mu.Unlock()
}
