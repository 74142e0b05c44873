package media

import "time"

type PreferenceKind string

const (
	Like    PreferenceKind = "like"
	Dislike PreferenceKind = "dislike"
)

func ParsePreference(s string) (PreferenceKind, bool) {
	switch PreferenceKind(s) {
	case Like, Dislike:
		return PreferenceKind(s), true
	default:
		return "", false
	}
}

// Preference holds one like/dislike per (user, media); re-voting overwrites.
type Preference struct {
	UserID    string         `gorm:"primaryKey;size:64;column:user_id"`
	MediaID   string         `gorm:"primaryKey;size:32;column:media_id;index"`
	Kind      PreferenceKind `gorm:"size:16;not null;column:kind"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Preference) TableName() string { return "preferences" }

type View struct {
	UserID   string    `gorm:"primaryKey;size:64;column:user_id"`
	MediaID  string    `gorm:"primaryKey;size:32;column:media_id;index"`
	ViewedAt time.Time `gorm:"autoCreateTime;column:viewed_at"`
}

func (View) TableName() string { return "activity" }
