package media

type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement;column:id" json:"tid"`
	Name string `gorm:"size:255;not null;uniqueIndex:idx_tags_name;column:name" json:"name"`
}

func (Tag) TableName() string { return "tags" }

type MediaTag struct {
	MediaID string `gorm:"primaryKey;size:32;column:media_id"`
	TagID   uint   `gorm:"primaryKey;column:tag_id;index"`
}

func (MediaTag) TableName() string { return "media_tags" }
