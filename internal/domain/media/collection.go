package media

import "time"

type Scope string

const (
	ScopePublic  Scope = "public"
	ScopePrivate Scope = "private"
)

func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case "", ScopePublic:
		return ScopePublic, true
	case ScopePrivate:
		return ScopePrivate, true
	default:
		return "", false
	}
}

type Collection struct {
	ID          uint      `gorm:"primaryKey;autoIncrement;column:id" json:"cid"`
	Name        string    `gorm:"size:255;not null;uniqueIndex:idx_collections_name;column:name" json:"name"`
	Description string    `gorm:"type:text;column:description" json:"desc"`
	Scope       Scope     `gorm:"size:16;not null;default:public;column:scope" json:"scope"`
	OwnerUserID string    `gorm:"size:64;not null;column:owner_user_id;index" json:"uid"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Collection) TableName() string { return "collections" }

func (c *Collection) IsPublic() bool { return c.Scope != ScopePrivate }

type CollectionTag struct {
	CollectionID uint `gorm:"primaryKey;column:collection_id"`
	TagID        uint `gorm:"primaryKey;column:tag_id;index"`
}

func (CollectionTag) TableName() string { return "collection_tags" }

type CollectionMedia struct {
	CollectionID uint   `gorm:"primaryKey;column:collection_id"`
	MediaID      string `gorm:"primaryKey;size:32;column:media_id;index"`
}

func (CollectionMedia) TableName() string { return "collection_media" }

// CollectionAccess grants a user read access to a private collection.
type CollectionAccess struct {
	CollectionID uint   `gorm:"primaryKey;column:collection_id"`
	UserID       string `gorm:"primaryKey;size:64;column:user_id;index"`
}

func (CollectionAccess) TableName() string { return "collection_access_list" }

type CollectionAccessRequest struct {
	CollectionID uint      `gorm:"primaryKey;column:collection_id"`
	UserID       string    `gorm:"primaryKey;size:64;column:user_id"`
	RequestedAt  time.Time `gorm:"autoCreateTime;column:requested_at"`
}

func (CollectionAccessRequest) TableName() string { return "collection_access_request" }

type CollectionFollower struct {
	CollectionID uint   `gorm:"primaryKey;column:collection_id"`
	UserID       string `gorm:"primaryKey;size:64;column:user_id"`
}

func (CollectionFollower) TableName() string { return "collection_followers" }
