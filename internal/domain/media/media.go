package media

import (
	"time"

	"gorm.io/datatypes"
)

// SideEffectState tracks the post-commit steps of an ingestion run.
type SideEffectState string

const (
	StatePending SideEffectState = "pending"
	StateOK      SideEffectState = "ok"
	StateFailed  SideEffectState = "failed"
)

// Media is the canonical record of one uploaded image or GIF.
type Media struct {
	ID          string                      `gorm:"primaryKey;size:32;column:id" json:"mid"`
	URL         string                      `gorm:"size:255;not null;column:url" json:"url"`
	Title       string                      `gorm:"size:255;not null;column:title" json:"title"`
	Description string                      `gorm:"type:text;column:description" json:"desc"`
	Fingerprint string                      `gorm:"size:64;not null;column:fingerprint;uniqueIndex:idx_media_fingerprint" json:"hash"`
	Span        int                         `gorm:"not null;default:0;column:span" json:"span"`
	Sources     datatypes.JSONSlice[string] `gorm:"column:sources" json:"src"`
	Score       float64                     `gorm:"not null;default:0;column:score" json:"score"`
	Color       string                      `gorm:"size:32;column:color" json:"color"`
	IsNSFW      bool                        `gorm:"not null;default:false;column:is_nsfw" json:"isNSFW"`
	Scope       Scope                       `gorm:"size:16;not null;default:private;column:scope;index" json:"scope"`
	OwnerUserID string                      `gorm:"size:64;not null;column:owner_user_id;index:idx_media_owner" json:"uid"`

	VectorState SideEffectState `gorm:"size:16;not null;default:pending;column:vector_state;index" json:"-"`
	BlobState   SideEffectState `gorm:"size:16;not null;default:pending;column:blob_state;index" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Media) TableName() string { return "media" }

// IsPublic reports whether the asset itself is public, regardless of the
// collections it sits in.
func (m *Media) IsPublic() bool { return m.Scope == ScopePublic }

// ParseMediaScope is ParseScope with private as the default: an upload is
// owner-only until it says otherwise.
func ParseMediaScope(s string) (Scope, bool) {
	if s == "" {
		return ScopePrivate, true
	}
	return ParseScope(s)
}

// Degraded reports whether a post-commit step has not completed.
func (m *Media) Degraded() bool {
	return m.VectorState != StateOK || m.BlobState != StateOK
}
