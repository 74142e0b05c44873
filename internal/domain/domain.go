package domain

import (
	"github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/domain/user"
)

type User = user.User

type Media = media.Media
type Tag = media.Tag
type MediaTag = media.MediaTag
type Collection = media.Collection
type CollectionTag = media.CollectionTag
type CollectionMedia = media.CollectionMedia
type CollectionAccess = media.CollectionAccess
type CollectionAccessRequest = media.CollectionAccessRequest
type CollectionFollower = media.CollectionFollower
type Preference = media.Preference
type View = media.View

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Media{},
		&Tag{},
		&MediaTag{},
		&Collection{},
		&CollectionTag{},
		&CollectionMedia{},
		&CollectionAccess{},
		&CollectionAccessRequest{},
		&CollectionFollower{},
		&Preference{},
		&View{},
	}
}
