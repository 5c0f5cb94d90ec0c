package models

import (
	"html/template"
	"time"
)

// DeletedUserName is shown for comments whose author no longer exists.
const DeletedUserName = "Deleted User"

// editedTolerance: updates within this window of creation don't count as edits.
const editedTolerance = time.Second

type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"` // 作者可能已被删除
	User       *User     `json:"-"`
	ParentID   *uint     `gorm:"index" json:"parent_id"` // nil 表示顶层评论
	MainID     *uint     `gorm:"index" json:"main_id"`   // 回复链的顶层评论
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	ContentHTML template.HTML `gorm:"-" json:"content_html,omitempty"`
	Author      *Author       `gorm:"-" json:"author,omitempty"`
	Edited      bool          `gorm:"-" json:"edited"`
}

// Author is the public face of a comment's user.
type Author struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Deleted  bool   `json:"deleted"`
}

// IsEdited compares UpdatedAt against CreatedAt with a one second tolerance.
func (c *Comment) IsEdited() bool {
	return c.UpdatedAt.Sub(c.CreatedAt) > editedTolerance
}

// AuthorInfo 作者已删除时返回 "Deleted User"
func (c *Comment) AuthorInfo() *Author {
	if c.User == nil || c.User.ID == 0 {
		return &Author{ID: c.UserID, Username: DeletedUserName, Deleted: true}
	}
	return &Author{ID: c.User.ID, Username: c.User.Username, Avatar: c.User.Avatar}
}

// IsRoot reports whether the comment starts a thread.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
