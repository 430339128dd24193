package entities

import "time"

// RefreshToken stores the hash of an opaque rotation token, never the token itself.
type RefreshToken struct {
	ID        string    `gorm:"type:varchar(40);primaryKey"`
	UserID    string    `gorm:"type:varchar(40);index;not null"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
