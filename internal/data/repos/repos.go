package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mediahub-backend/internal/data/repos/media"
	"github.com/yungbote/mediahub-backend/internal/data/repos/user"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type MediaRepo = media.MediaRepo
type TagRepo = media.TagRepo
type CollectionRepo = media.CollectionRepo
type ActivityRepo = media.ActivityRepo

// CleanNames trims, drops empties and dedupes names keeping first-seen order.
var CleanNames = media.CleanNames

type Set struct {
	Users       UserRepo
	Media       MediaRepo
	Tags        TagRepo
	Collections CollectionRepo
	Activity    ActivityRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:       user.NewUserRepo(db, log),
		Media:       media.NewMediaRepo(db, log),
		Tags:        media.NewTagRepo(db, log),
		Collections: media.NewCollectionRepo(db, log),
		Activity:    media.NewActivityRepo(db, log),
	}
}
