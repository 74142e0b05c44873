package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries a request context plus an optional open transaction.
// Repositories fall back to their own handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context { return Context{Ctx: ctx} }
