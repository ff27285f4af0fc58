package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeComment NotificationType = "comment"
)

// Notification ids are pinned to the Like or Comment that produced them, so
// an unlike can delete its notification without a lookup.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"notificationId"`
	Recipient string           `gorm:"size:64;not null;index" json:"recipient"`
	Sender    string           `gorm:"size:64;not null" json:"sender"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Read      bool             `gorm:"default:false;index" json:"read"`
	ScreamID  string           `gorm:"size:36;not null;index" json:"screamId"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (Notification) TableName() string { return CollectionNotifications }

func (n Notification) DocID() string { return n.ID }
