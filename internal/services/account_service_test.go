package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyarchive/internal/apperr"
	"studyarchive/internal/db"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
)

func TestRegisterAndLogin(t *testing.T) {
	gdb := newDB(t)
	ctx := context.Background()
	accounts := NewAccountService(db.NewUserStore(gdb), db.NewRoleStore(gdb))

	u, err := accounts.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "ada", u.Username)
	assert.NotEqual(t, "secret1", u.Password)
	assert.Equal(t, models.RoleUser, u.Role.Name)

	_, err = accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "secret2"})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	_, err = accounts.Register(ctx, RegisterInput{Email: "not-an-email", Password: "secret1"})
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))

	_, err = accounts.Register(ctx, RegisterInput{Email: "b@example.com", Password: "123"})
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))

	logged, err := accounts.Login(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, err = accounts.Login(ctx, "ada@example.com", "wrong")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	_, err = accounts.Login(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
}

func TestBannedUsersLoseAccess(t *testing.T) {
	gdb := newDB(t)
	ctx := context.Background()
	users := db.NewUserStore(gdb)
	accounts := NewAccountService(users, db.NewRoleStore(gdb))

	u, err := accounts.Register(ctx, RegisterInput{Email: "eve@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, users.SetStatus(ctx, u.ID, models.UserStatusBanned, nil))

	_, err = accounts.Login(ctx, "eve@example.com", "secret1")
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	id, err := accounts.Identify(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, id, "banned session is dropped")

	id, err = accounts.Identify(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestExpiredMuteIsLifted(t *testing.T) {
	gdb := newDB(t)
	ctx := context.Background()
	users := db.NewUserStore(gdb)
	accounts := NewAccountService(users, db.NewRoleStore(gdb))

	u, err := accounts.Register(ctx, RegisterInput{Email: "mo@example.com", Password: "secret1"})
	require.NoError(t, err)

	until := time.Now().Add(time.Hour)
	require.NoError(t, users.SetStatus(ctx, u.ID, models.UserStatusMuted, &until))

	id, err := accounts.Identify(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, id.Muted)

	accounts.now = func() time.Time { return until.Add(time.Minute) }
	id, err = accounts.Identify(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, id.Muted)

	stored, err := users.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusNormal, stored.Status)
	assert.Nil(t, stored.PunishExpires)
}

func TestGuestUsesPublicRole(t *testing.T) {
	gdb := newDB(t)
	ctx := context.Background()
	roles := db.NewRoleStore(gdb)
	accounts := NewAccountService(db.NewUserStore(gdb), roles)

	g := accounts.Guest(ctx)
	assert.True(t, g.IsAnonymous())
	assert.True(t, rbac.CanRead(g, rbac.Comment(0)))

	public, err := roles.FindRoleByName(ctx, models.RolePublic)
	require.NoError(t, err)
	public.ReadComment = false
	require.NoError(t, roles.UpdateRole(ctx, public))

	assert.False(t, rbac.CanRead(accounts.Guest(ctx), rbac.Comment(0)))
}
