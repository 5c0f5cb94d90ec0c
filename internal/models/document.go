package models

import (
	"time"
)

type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        *User     `json:"user,omitempty"`
	ObjectKey   string    `gorm:"size:255;uniqueIndex;not null" json:"-"` // 对象存储中的 key
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	Size        int64     `gorm:"not null" json:"size"`
	ContentType string    `gorm:"size:100;not null" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}
