package models

import (
	"time"
)

type User struct {
	Handle       string    `gorm:"primaryKey;size:64" json:"handle"`
	UserID       string    `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	ImageURL     string    `gorm:"column:image_url" json:"imageUrl"`
	Bio          string    `gorm:"size:200" json:"bio"`
	Website      string    `json:"website"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (User) TableName() string { return CollectionUsers }

func (u User) DocID() string { return u.Handle }
