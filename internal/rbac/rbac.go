// Package rbac decides who may create, read, edit or delete documents and comments.
// Decisions are pure functions of the acting identity, its role capabilities and the
// ownership of the target.
package rbac

import (
	"studyarchive/internal/apperr"
	"studyarchive/internal/models"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

type ResourceKind string

const (
	KindDocument ResourceKind = "document"
	KindComment  ResourceKind = "comment"
)

// Capabilities mirrors the boolean flags of a models.Role.
type Capabilities struct {
	CreateDocument bool `json:"create_document"`
	ReadDocument   bool `json:"read_document"`
	UpdateDocument bool `json:"update_document"`
	DeleteDocument bool `json:"delete_document"`
	CreateComment  bool `json:"create_comment"`
	ReadComment    bool `json:"read_comment"`
	UpdateComment  bool `json:"update_comment"`
	DeleteComment  bool `json:"delete_comment"`
	Admin          bool `json:"admin"`
}

func CapabilitiesOf(r models.Role) Capabilities {
	return Capabilities{
		CreateDocument: r.CreateDocument,
		ReadDocument:   r.ReadDocument,
		UpdateDocument: r.UpdateDocument,
		DeleteDocument: r.DeleteDocument,
		CreateComment:  r.CreateComment,
		ReadComment:    r.ReadComment,
		UpdateComment:  r.UpdateComment,
		DeleteComment:  r.DeleteComment,
		Admin:          r.Admin,
	}
}

// PublicCapabilities apply to anonymous callers when no public role is configured.
var PublicCapabilities = Capabilities{ReadDocument: true, ReadComment: true}

// Identity is the acting user of one request. A nil *Identity, or one with Guest
// set, is anonymous.
type Identity struct {
	UserID   uint         `json:"id"`
	Username string       `json:"username"`
	Avatar   string       `json:"avatar"`
	Role     string       `json:"role"`
	Caps     Capabilities `json:"capabilities"`
	Muted    bool         `json:"muted"`
	Guest    bool         `json:"guest"`
}

// Guest is an anonymous caller that reads with the given (public role) capabilities.
func Guest(caps Capabilities) *Identity {
	return &Identity{Role: models.RolePublic, Caps: caps, Guest: true}
}

func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Guest
}

// Resource is the target of a decision. OwnerID is ignored for create and read.
type Resource struct {
	Kind    ResourceKind
	OwnerID uint
}

func Document(ownerID uint) Resource { return Resource{Kind: KindDocument, OwnerID: ownerID} }
func Comment(ownerID uint) Resource  { return Resource{Kind: KindComment, OwnerID: ownerID} }

// Decide returns nil when the action is allowed, or an *apperr.Error of kind
// Unauthorized (no identity) or Forbidden (identity lacks the right).
func Decide(id *Identity, action Action, res Resource) error {
	switch action {
	case ActionRead:
		caps := PublicCapabilities
		if id != nil {
			caps = id.Caps
		}
		if canRead(caps, res.Kind) {
			return nil
		}
		if id.IsAnonymous() {
			return apperr.New(apperr.Unauthorized, "login required")
		}
		return apperr.Newf(apperr.Forbidden, "your role cannot read %ss", res.Kind)

	case ActionCreate:
		if id.IsAnonymous() {
			return apperr.New(apperr.Unauthorized, "login required")
		}
		if id.Muted {
			return apperr.New(apperr.Forbidden, "your account is muted")
		}
		if !canCreate(id.Caps, res.Kind) {
			return apperr.Newf(apperr.Forbidden, "your role cannot create %ss", res.Kind)
		}
		return nil

	case ActionEdit, ActionDelete:
		if id.IsAnonymous() {
			return apperr.New(apperr.Unauthorized, "login required")
		}
		if id.UserID == res.OwnerID {
			return nil
		}
		if id.Caps.Admin && override(id.Caps, action, res.Kind) {
			return nil
		}
		return apperr.Newf(apperr.Forbidden, "only the author or an admin can %s this %s", action, res.Kind)
	}

	return apperr.Newf(apperr.Forbidden, "unknown action %q", action)
}

func canRead(caps Capabilities, kind ResourceKind) bool {
	if kind == KindComment {
		// comments are readable wherever their document is
		return caps.ReadComment && caps.ReadDocument
	}
	return caps.ReadDocument
}

func canCreate(caps Capabilities, kind ResourceKind) bool {
	if kind == KindComment {
		return caps.CreateComment
	}
	return caps.CreateDocument
}

func override(caps Capabilities, action Action, kind ResourceKind) bool {
	switch {
	case kind == KindComment && action == ActionEdit:
		return caps.UpdateComment
	case kind == KindComment && action == ActionDelete:
		return caps.DeleteComment
	case kind == KindDocument && action == ActionEdit:
		return caps.UpdateDocument
	case kind == KindDocument && action == ActionDelete:
		return caps.DeleteDocument
	}
	return false
}

func CanCreate(id *Identity, res Resource) bool { return Decide(id, ActionCreate, res) == nil }
func CanRead(id *Identity, res Resource) bool   { return Decide(id, ActionRead, res) == nil }
func CanEdit(id *Identity, res Resource) bool   { return Decide(id, ActionEdit, res) == nil }
func CanDelete(id *Identity, res Resource) bool { return Decide(id, ActionDelete, res) == nil }

// IsAdmin reports back-office access.
func IsAdmin(id *Identity) bool {
	return !id.IsAnonymous() && id.Caps.Admin
}
