package models

import (
	"time"
)

// Collection names double as table names.
const (
	CollectionScreams       = "screams"
	CollectionComments      = "comments"
	CollectionLikes         = "likes"
	CollectionNotifications = "notifications"
	CollectionUsers         = "users"
)

// Column names used in store queries and partial updates.
const (
	FieldID           = "id"
	FieldHandle       = "handle"
	FieldScreamID     = "scream_id"
	FieldUserHandle   = "user_handle"
	FieldUserImage    = "user_image"
	FieldImageURL     = "image_url"
	FieldLikeCount    = "like_count"
	FieldCommentCount = "comment_count"
	FieldRecipient    = "recipient"
	FieldRead         = "read"
	FieldCreatedAt    = "created_at"
)

type Scream struct {
	ID           string    `gorm:"primaryKey;size:36" json:"screamId"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	UserHandle   string    `gorm:"size:64;not null;index" json:"userHandle"`
	UserImage    string    `json:"userImage"` // cached copy of the author's profile image
	ImageURL     string    `gorm:"column:image_url" json:"imageUrl"`
	LikeCount    int       `gorm:"not null;default:0" json:"likeCount"`
	CommentCount int       `gorm:"not null;default:0" json:"commentCount"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

func (Scream) TableName() string { return CollectionScreams }

func (s Scream) DocID() string { return s.ID }
