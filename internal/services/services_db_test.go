package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"studyarchive/internal/db"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Setup(db.SQLitePrefix + ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// register creates a user with the given role and returns its identity.
func register(t *testing.T, gdb *gorm.DB, name, role string) *rbac.Identity {
	t.Helper()
	ctx := context.Background()
	accounts := NewAccountService(db.NewUserStore(gdb), db.NewRoleStore(gdb))
	u, err := accounts.Register(ctx, RegisterInput{Email: name + "@example.com", Password: "secret1", Username: name})
	require.NoError(t, err)
	if role != models.RoleUser {
		r, err := db.NewRoleStore(gdb).FindRoleByName(ctx, role)
		require.NoError(t, err)
		require.NoError(t, db.NewUserStore(gdb).SetRole(ctx, u.ID, r.ID))
	}
	id, err := accounts.Identify(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, id)
	return id
}
