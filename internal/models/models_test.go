package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommentIsEdited(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c := Comment{CreatedAt: created, UpdatedAt: created.Add(500 * time.Millisecond)}
	assert.False(t, c.IsEdited())

	c.UpdatedAt = created.Add(time.Second)
	assert.False(t, c.IsEdited())

	c.UpdatedAt = created.Add(2 * time.Second)
	assert.True(t, c.IsEdited())
}

func TestCommentAuthorInfo(t *testing.T) {
	c := Comment{UserID: 7}
	author := c.AuthorInfo()
	assert.Equal(t, DeletedUserName, author.Username)
	assert.True(t, author.Deleted)
	assert.Equal(t, uint(7), author.ID)

	c.User = &User{ID: 7, Username: "lin", Avatar: "🐼"}
	author = c.AuthorInfo()
	assert.Equal(t, "lin", author.Username)
	assert.False(t, author.Deleted)
}

func TestUserPunishment(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	u := User{Status: UserStatusMuted, PunishExpires: &future}
	assert.True(t, u.IsMuted(now))
	assert.False(t, u.IsBanned(now))
	assert.False(t, u.PunishmentExpired(now))

	u.PunishExpires = &past
	assert.False(t, u.IsMuted(now))
	assert.True(t, u.PunishmentExpired(now))

	u = User{Status: UserStatusBanned}
	assert.True(t, u.IsBanned(now))
	assert.False(t, u.PunishmentExpired(now))
}

func TestDefaultRoles(t *testing.T) {
	roles := DefaultRoles()
	byName := map[string]Role{}
	for _, r := range roles {
		byName[r.Name] = r
		assert.True(t, r.IsBuiltin())
	}
	assert.True(t, byName[RoleAdmin].Admin)
	assert.False(t, byName[RoleUser].Admin)
	assert.True(t, byName[RoleUser].CreateComment)
	assert.False(t, byName[RolePublic].CreateComment)
	assert.True(t, byName[RolePublic].ReadComment)
}
