package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Post is the persisted content item. MediaIDs holds a JSON array of med_ ids.
type Post struct {
	ID        string         `gorm:"type:varchar(40);primaryKey"`
	UserID    string         `gorm:"type:varchar(40);index;not null"`
	Content   string         `gorm:"type:text;not null"`
	MediaIDs  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt time.Time      `gorm:"index;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Post) TableName() string {
	return "posts"
}
