package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studyarchive/internal/apperr"
	"studyarchive/internal/logging"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
)

// AdminService is the back office for users and roles. Documents and comments are
// moderated through their own services, which already honor the admin override.
type AdminService struct {
	users    UserStore
	roles    RoleStore
	comments CommentStore
	cache    TreeCache
	now      func() time.Time
	log      zerolog.Logger
}

// NewAdminService creates the back office. cache may be nil.
func NewAdminService(users UserStore, roles RoleStore, comments CommentStore, cache TreeCache) *AdminService {
	if cache == nil {
		cache = noTreeCache{}
	}
	return &AdminService{
		users:    users,
		roles:    roles,
		comments: comments,
		cache:    cache,
		now:      time.Now,
		log:      logging.With("admin"),
	}
}

func requireAdmin(id *rbac.Identity) error {
	if rbac.IsAdmin(id) {
		return nil
	}
	if id.IsAnonymous() {
		return apperr.New(apperr.Unauthorized, "login required")
	}
	return apperr.New(apperr.Forbidden, "admin only")
}

type UserPage struct {
	Items []models.User `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
}

func (s *AdminService) ListUsers(ctx context.Context, id *rbac.Identity, page, perPage int) (*UserPage, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	page, perPage = normalizePage(page, perPage)
	items, total, err := s.users.ListUsers(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return &UserPage{Items: items, Total: total, Page: page}, nil
}

func (s *AdminService) SetUserRole(ctx context.Context, id *rbac.Identity, userID, roleID uint) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if userID == id.UserID {
		return apperr.New(apperr.ValidationError, "you cannot change your own role")
	}
	if _, err := s.roles.FindRole(ctx, roleID); err != nil {
		return storeErr(err, "role")
	}
	if err := s.users.SetRole(ctx, userID, roleID); err != nil {
		return storeWriteErr(err, "user")
	}
	s.log.Info().Uint("user", userID).Uint("role", roleID).Uint("by", id.UserID).Msg("role changed")
	return nil
}

type PunishInput struct {
	Status int `json:"status" validate:"min=0,max=2"`
	// Days 0 means permanent. Ignored when Status is normal.
	Days int `json:"days" validate:"min=0,max=3650"`
}

// Punish mutes or bans a user, or lifts the punishment with status normal.
func (s *AdminService) Punish(ctx context.Context, id *rbac.Identity, userID uint, in PunishInput) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return err
	}
	if userID == id.UserID {
		return apperr.New(apperr.ValidationError, "you cannot punish yourself")
	}

	var expires *time.Time
	if in.Status != models.UserStatusNormal && in.Days > 0 {
		t := s.now().Add(time.Duration(in.Days) * 24 * time.Hour)
		expires = &t
	}
	if err := s.users.SetStatus(ctx, userID, in.Status, expires); err != nil {
		return storeWriteErr(err, "user")
	}
	s.log.Info().Uint("user", userID).Int("status", in.Status).Int("days", in.Days).Uint("by", id.UserID).Msg("user punished")
	return nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id *rbac.Identity, userID uint) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if userID == id.UserID {
		return apperr.New(apperr.ValidationError, "you cannot delete yourself")
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return storeWriteErr(err, "user")
	}
	s.log.Info().Uint("user", userID).Uint("by", id.UserID).Msg("user deleted")

	// 缓存的评论树里还存着作者信息
	docIDs, err := s.comments.DocumentIDsByUser(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user", userID).Msg("list commented documents failed, trees expire by ttl")
		return nil
	}
	for _, docID := range docIDs {
		s.cache.Invalidate(ctx, docID)
	}
	return nil
}

type RoleInput struct {
	Name string `json:"name" validate:"required,max=50"`
	rbac.Capabilities
}

func (in RoleInput) apply(r *models.Role) {
	r.Name = in.Name
	r.CreateDocument = in.CreateDocument
	r.ReadDocument = in.ReadDocument
	r.UpdateDocument = in.UpdateDocument
	r.DeleteDocument = in.DeleteDocument
	r.CreateComment = in.CreateComment
	r.ReadComment = in.ReadComment
	r.UpdateComment = in.UpdateComment
	r.DeleteComment = in.DeleteComment
	r.Admin = in.Admin
}

func (s *AdminService) ListRoles(ctx context.Context, id *rbac.Identity) ([]models.Role, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	roles, err := s.roles.ListRoles(ctx)
	return roles, storeErr(err, "roles")
}

func (s *AdminService) CreateRole(ctx context.Context, id *rbac.Identity, in RoleInput) (*models.Role, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	in.Name = strings.ToLower(strings.TrimSpace(in.Name))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	r := &models.Role{}
	in.apply(r)
	if err := s.roles.CreateRole(ctx, r); err != nil {
		return nil, storeWriteErr(err, "role")
	}
	return r, nil
}

// UpdateRole rewrites the flags of a role. Built-in roles keep their names.
func (s *AdminService) UpdateRole(ctx context.Context, id *rbac.Identity, roleID uint, in RoleInput) (*models.Role, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	in.Name = strings.ToLower(strings.TrimSpace(in.Name))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	r, err := s.roles.FindRole(ctx, roleID)
	if err != nil {
		return nil, storeErr(err, "role")
	}
	if r.IsBuiltin() && in.Name != r.Name {
		return nil, apperr.Newf(apperr.ValidationError, "built-in role %s cannot be renamed", r.Name)
	}
	if err := s.ensureNameFree(ctx, in.Name, r.ID); err != nil {
		return nil, err
	}

	in.apply(r)
	if err := s.roles.UpdateRole(ctx, r); err != nil {
		return nil, storeWriteErr(err, "role")
	}
	s.log.Info().Uint("role", r.ID).Uint("by", id.UserID).Msg("role updated")
	return r, nil
}

func (s *AdminService) DeleteRole(ctx context.Context, id *rbac.Identity, roleID uint) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	r, err := s.roles.FindRole(ctx, roleID)
	if err != nil {
		return storeErr(err, "role")
	}
	if r.IsBuiltin() {
		return apperr.Newf(apperr.Conflict, "built-in role %s cannot be deleted", r.Name)
	}
	inUse, err := s.users.CountUsersWithRole(ctx, r.ID)
	if err != nil {
		return storeErr(err, "users")
	}
	if inUse > 0 {
		return apperr.Newf(apperr.Conflict, "role %s is held by %d users", r.Name, inUse)
	}
	return storeWriteErr(s.roles.DeleteRole(ctx, r.ID), "role")
}

func (s *AdminService) ensureNameFree(ctx context.Context, name string, self uint) error {
	existing, err := s.roles.FindRoleByName(ctx, name)
	if err != nil {
		e := storeErr(err, "role")
		if apperr.Is(e, apperr.NotFound) {
			return nil
		}
		return e
	}
	if existing.ID != self {
		return apperr.Newf(apperr.Conflict, "role %s already exists", name)
	}
	return nil
}
