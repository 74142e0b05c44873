package services

import (
	"context"
	"strings"
	"sync"

	"github.com/yungbote/mediahub-backend/internal/data/repos"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

// UserService mirrors externally issued identities into the users table.
type UserService interface {
	Ensure(ctx context.Context, v *ctxutil.Viewer) error
}

type userService struct {
	log   *logger.Logger
	users repos.UserRepo
	seen  sync.Map
}

func NewUserService(log *logger.Logger, users repos.UserRepo) UserService {
	return &userService{log: log.With("service", "UserService"), users: users}
}

func (s *userService) Ensure(ctx context.Context, v *ctxutil.Viewer) error {
	if v == nil || strings.TrimSpace(v.UserID) == "" {
		return nil
	}
	if _, ok := s.seen.Load(v.UserID); ok {
		return nil
	}
	if err := s.users.Ensure(dbctx.Context{Ctx: ctx}, v.UserID, v.Username); err != nil {
		return err
	}
	s.seen.Store(v.UserID, struct{}{})
	s.log.Debug("User ensured", "user_id", v.UserID)
	return nil
}
