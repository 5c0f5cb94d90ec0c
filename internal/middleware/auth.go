package middleware

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"studyarchive/internal/apperr"
	"studyarchive/internal/logging"
	"studyarchive/internal/rbac"
)

const (
	// IdentityKey holds the *rbac.Identity of the request in the gin context.
	IdentityKey = "identity"
	// SessionUserKey is the session field with the logged in user id.
	SessionUserKey = "user_id"
)

// Identifier resolves session users. It returns a nil identity for users that no
// longer exist or are banned.
type Identifier interface {
	Identify(ctx context.Context, userID uint) (*rbac.Identity, error)
	Guest(ctx context.Context) *rbac.Identity
}

// LoadUser retrieves the user from the session and sets the identity on the context.
// Anonymous callers get the guest identity of the public role.
func LoadUser(accounts Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		session := sessions.Default(c)

		if userID, ok := session.Get(SessionUserKey).(uint); ok {
			id, err := accounts.Identify(ctx, userID)
			if err != nil {
				logging.Warn().Err(err).Uint("user", userID).Msg("load session user failed")
				Fail(c, err)
				return
			}
			if id != nil {
				c.Set(IdentityKey, id)
				c.Next()
				return
			}
			// 用户已删除或被封禁
			session.Delete(SessionUserKey)
			_ = session.Save()
		}

		c.Set(IdentityKey, accounts.Guest(ctx))
		c.Next()
	}
}

// CurrentIdentity returns the identity LoadUser stored, or nil.
func CurrentIdentity(c *gin.Context) *rbac.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(*rbac.Identity); ok {
			return id
		}
	}
	return nil
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c).IsAnonymous() {
			Fail(c, apperr.New(apperr.Unauthorized, "login required"))
			return
		}
		c.Next()
	}
}

// AdminRequired guards the back office.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		if id.IsAnonymous() {
			Fail(c, apperr.New(apperr.Unauthorized, "login required"))
			return
		}
		if !rbac.IsAdmin(id) {
			Fail(c, apperr.New(apperr.Forbidden, "admin only"))
			return
		}
		c.Next()
	}
}
