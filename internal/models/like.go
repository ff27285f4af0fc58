package models

import (
	"time"
)

// Like is unique per (ScreamID, UserHandle). The service checks before
// inserting; the index catches the race between two concurrent likes.
type Like struct {
	ID         string    `gorm:"primaryKey;size:36" json:"likeId"`
	ScreamID   string    `gorm:"size:36;not null;index;uniqueIndex:idx_like_scream_user" json:"screamId"`
	UserHandle string    `gorm:"size:64;not null;index;uniqueIndex:idx_like_scream_user" json:"userHandle"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Like) TableName() string { return CollectionLikes }

func (l Like) DocID() string { return l.ID }
