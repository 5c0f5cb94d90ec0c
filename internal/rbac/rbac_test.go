package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studyarchive/internal/apperr"
	"studyarchive/internal/models"
)

func roleIdentity(userID uint, name string) *Identity {
	for _, r := range models.DefaultRoles() {
		if r.Name == name {
			return &Identity{UserID: userID, Role: r.Name, Caps: CapabilitiesOf(r)}
		}
	}
	panic("unknown role " + name)
}

func TestDecide(t *testing.T) {
	alice := roleIdentity(1, models.RoleUser)
	bob := roleIdentity(2, models.RoleUser)
	admin := roleIdentity(3, models.RoleAdmin)
	muted := roleIdentity(4, models.RoleUser)
	muted.Muted = true
	visitor := roleIdentity(5, models.RolePublic)

	// admin role without the delete flag keeps back-office access but no override
	weakAdmin := roleIdentity(6, models.RoleAdmin)
	weakAdmin.Caps.DeleteComment = false

	cases := []struct {
		name   string
		id     *Identity
		action Action
		res    Resource
		want   apperr.Kind
	}{
		{"anonymous create comment", nil, ActionCreate, Comment(0), apperr.Unauthorized},
		{"user create comment", alice, ActionCreate, Comment(0), ""},
		{"muted create comment", muted, ActionCreate, Comment(0), apperr.Forbidden},
		{"public role create comment", visitor, ActionCreate, Comment(0), apperr.Forbidden},
		{"public role create document", visitor, ActionCreate, Document(0), apperr.Forbidden},
		{"anonymous read comment", nil, ActionRead, Comment(0), ""},
		{"anonymous read document", nil, ActionRead, Document(0), ""},
		{"owner edit", alice, ActionEdit, Comment(1), ""},
		{"owner delete", alice, ActionDelete, Comment(1), ""},
		{"other edit", bob, ActionEdit, Comment(1), apperr.Forbidden},
		{"other delete", bob, ActionDelete, Comment(1), apperr.Forbidden},
		{"anonymous delete", nil, ActionDelete, Comment(1), apperr.Unauthorized},
		{"admin edit", admin, ActionEdit, Comment(1), ""},
		{"admin delete", admin, ActionDelete, Comment(1), ""},
		{"admin delete document", admin, ActionDelete, Document(1), ""},
		{"admin without delete flag", weakAdmin, ActionDelete, Comment(1), apperr.Forbidden},
		{"muted owner can still delete", muted, ActionDelete, Comment(4), ""},
		{"unknown action", alice, Action("share"), Comment(1), apperr.Forbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Decide(tc.id, tc.action, tc.res)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.want, apperr.KindOf(err))
		})
	}
}

func TestCanEditOwnership(t *testing.T) {
	a := roleIdentity(10, models.RoleUser)
	b := roleIdentity(11, models.RoleUser)
	c := Comment(a.UserID)

	assert.True(t, CanEdit(a, c))
	assert.False(t, CanEdit(b, c))
	assert.True(t, CanDelete(a, c))
	assert.False(t, CanDelete(b, c))
}

func TestReadRequiresDocumentReadability(t *testing.T) {
	id := &Identity{UserID: 1, Caps: Capabilities{ReadComment: true}}
	assert.False(t, CanRead(id, Comment(0)))
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(Decide(id, ActionRead, Document(0))))
}

func TestGuestIdentity(t *testing.T) {
	g := Guest(PublicCapabilities)
	assert.True(t, g.IsAnonymous())
	assert.True(t, CanRead(g, Comment(0)))
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(Decide(g, ActionCreate, Comment(0))))
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(Decide(g, ActionDelete, Comment(0))))

	// a public role with reading switched off
	closed := Guest(Capabilities{})
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(Decide(closed, ActionRead, Document(0))))

	// even a guest carrying the admin flag gets no back office
	assert.False(t, IsAdmin(Guest(Capabilities{Admin: true})))
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAdmin(roleIdentity(1, models.RoleUser)))
	assert.True(t, IsAdmin(roleIdentity(1, models.RoleAdmin)))
}
