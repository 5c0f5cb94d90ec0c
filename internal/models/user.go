package models

import (
	"time"
)

const (
	UserStatusNormal = 0
	UserStatusMuted  = 1
	UserStatusBanned = 2
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"not null" json:"username"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Password      string     `gorm:"not null" json:"-"` // bcrypt hash
	Avatar        string     `gorm:"default:📄" json:"avatar"`
	RoleID        uint       `gorm:"not null;index" json:"role_id"`
	Role          Role       `json:"role"`
	Status        int        `gorm:"default:0" json:"status"` // 0:正常, 1:禁言, 2:封禁
	PunishExpires *time.Time `json:"punish_expires"`          // 惩罚到期时间, nil 表示永久
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsMuted 禁言中且未过期
func (u *User) IsMuted(now time.Time) bool {
	if u.Status != UserStatusMuted {
		return false
	}
	return u.PunishExpires == nil || now.Before(*u.PunishExpires)
}

// IsBanned 封禁中且未过期
func (u *User) IsBanned(now time.Time) bool {
	if u.Status != UserStatusBanned {
		return false
	}
	return u.PunishExpires == nil || now.Before(*u.PunishExpires)
}

// PunishmentExpired reports a mute/ban whose expiry has passed but is still recorded.
func (u *User) PunishmentExpired(now time.Time) bool {
	return u.Status != UserStatusNormal && u.PunishExpires != nil && !now.Before(*u.PunishExpires)
}
