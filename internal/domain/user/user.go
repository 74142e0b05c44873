package user

import "time"

// User mirrors the identity issued by the external auth service.
// Rows are created on first authenticated request.
type User struct {
	ID        string    `gorm:"primaryKey;size:64;column:id" json:"id"`
	Username  string    `gorm:"size:255;column:username;index" json:"username"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string { return "users" }
