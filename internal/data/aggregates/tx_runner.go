package aggregates

import (
	"context"

	domainagg "github.com/yungbote/mediahub-backend/internal/domain/aggregates"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner runs fn inside one database transaction. A non-nil return rolls back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx maps driver failures (including commit-time constraint violations) through MapError.
func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "tx", "transaction runner has nil db", nil)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
	return MapError("tx", err)
}
