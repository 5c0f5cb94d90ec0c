package models

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RolePublic = "public"
)

// Role 角色及其能力开关
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name"`

	CreateDocument bool `gorm:"not null;default:false" json:"create_document"`
	ReadDocument   bool `gorm:"not null;default:false" json:"read_document"`
	UpdateDocument bool `gorm:"not null;default:false" json:"update_document"`
	DeleteDocument bool `gorm:"not null;default:false" json:"delete_document"`

	CreateComment bool `gorm:"not null;default:false" json:"create_comment"`
	ReadComment   bool `gorm:"not null;default:false" json:"read_comment"`
	UpdateComment bool `gorm:"not null;default:false" json:"update_comment"`
	DeleteComment bool `gorm:"not null;default:false" json:"delete_comment"`

	// Admin grants the back office and, combined with update/delete flags, the
	// right to act on other users' content.
	Admin bool `gorm:"not null;default:false" json:"admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsBuiltin 内置角色不可删除
func (r *Role) IsBuiltin() bool {
	return r.Name == RoleAdmin || r.Name == RoleUser || r.Name == RolePublic
}

// DefaultRoles 启动时写入的三个内置角色
func DefaultRoles() []Role {
	return []Role{
		{
			Name:           RoleAdmin,
			CreateDocument: true, ReadDocument: true, UpdateDocument: true, DeleteDocument: true,
			CreateComment: true, ReadComment: true, UpdateComment: true, DeleteComment: true,
			Admin: true,
		},
		{
			Name:           RoleUser,
			CreateDocument: true, ReadDocument: true, UpdateDocument: true, DeleteDocument: true,
			CreateComment: true, ReadComment: true, UpdateComment: true, DeleteComment: true,
		},
		{
			Name:         RolePublic,
			ReadDocument: true,
			ReadComment:  true,
		},
	}
}
