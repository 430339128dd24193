package entities

import "time"

// MediaObject represents the persisted media metadata.
type MediaObject struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	PublicID     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	OriginalName string    `gorm:"type:varchar(255)"`
	MimeType     string    `gorm:"type:varchar(128);not null"`
	Bytes        int64     `gorm:"not null"`
	URL          string    `gorm:"type:text;not null"`
	UserID       string    `gorm:"type:varchar(40);index;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (MediaObject) TableName() string {
	return "media_objects"
}
