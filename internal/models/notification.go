package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentDocument NotificationType = "comment_document"
	NotificationTypeReplyComment    NotificationType = "reply_comment"
	NotificationTypeSystem          NotificationType = "system"
)

type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index" json:"user_id"` // Receiver
	ActorID    *uint            `gorm:"index" json:"actor_id"`         // Sender
	Actor      *User            `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	DocumentID *uint            `gorm:"index" json:"document_id"`
	CommentID  *uint            `gorm:"index" json:"comment_id"`
	Reason     string           `gorm:"type:text" json:"reason"`
	IsRead     bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
}
