package entities

import "time"

// User is the persisted identity.
type User struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	Username     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(320);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
