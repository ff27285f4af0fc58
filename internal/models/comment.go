package models

import (
	"time"
)

type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"commentId"`
	ScreamID   string    `gorm:"size:36;not null;index" json:"screamId"`
	UserHandle string    `gorm:"size:64;not null" json:"userHandle"`
	UserImage  string    `json:"userImage"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	// Comments are never edited, so there is no UpdatedAt.
}

func (Comment) TableName() string { return CollectionComments }

func (c Comment) DocID() string { return c.ID }
