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
	"studyarchive/internal/utils"
)

type UserStore interface {
	UserFinder
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	SetStatus(ctx context.Context, id uint, status int, expires *time.Time) error
	SetRole(ctx context.Context, id, roleID uint) error
	DeleteUser(ctx context.Context, id uint) error
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	CountUsersWithRole(ctx context.Context, roleID uint) (int64, error)
}

type RoleStore interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	FindRole(ctx context.Context, id uint) (*models.Role, error)
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	CreateRole(ctx context.Context, r *models.Role) error
	UpdateRole(ctx context.Context, r *models.Role) error
	DeleteRole(ctx context.Context, id uint) error
}

type AccountService struct {
	users UserStore
	roles RoleStore
	now   func() time.Time
	log   zerolog.Logger
}

func NewAccountService(users UserStore, roles RoleStore) *AccountService {
	return &AccountService{users: users, roles: roles, now: time.Now, log: logging.With("accounts")}
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required" validate:"required,email,max=255"`
	Password string `json:"password" binding:"required" validate:"required,min=6,max=72"`
	Username string `json:"username" validate:"max=50"`
}

// Register creates an account with the default user role.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Username == "" {
		in.Username = utils.UsernameFromEmail(in.Email)
	}

	taken, err := s.users.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if taken {
		return nil, apperr.New(apperr.Conflict, "email is already registered")
	}

	role, err := s.roles.FindRoleByName(ctx, models.RoleUser)
	if err != nil {
		return nil, storeErr(err, "role")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	u := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(),
		RoleID:   role.ID,
		Role:     *role,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, storeWriteErr(err, "user")
	}
	s.log.Info().Uint("user", u.ID).Msg("user registered")
	return u, nil
}

// Login checks the credentials. Banned accounts are refused; an expired punishment is
// lifted on the way in.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(storeErr(err, "user"), apperr.NotFound) {
			return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
		}
		return nil, storeErr(err, "user")
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
	}

	now := s.now()
	if u.IsBanned(now) {
		return nil, apperr.New(apperr.Forbidden, "this account is banned")
	}
	s.liftExpired(ctx, u, now)
	return u, nil
}

// Identify resolves the user behind a session. A missing or banned user yields a nil
// identity, and the caller should drop the session.
func (s *AccountService) Identify(ctx context.Context, userID uint) (*rbac.Identity, error) {
	u, err := s.users.FindUser(ctx, userID)
	if err != nil {
		if e := storeErr(err, "user"); !apperr.Is(e, apperr.NotFound) {
			return nil, e
		}
		return nil, nil
	}
	now := s.now()
	if u.IsBanned(now) {
		return nil, nil
	}
	s.liftExpired(ctx, u, now)
	return IdentityOf(u, now), nil
}

// Guest returns the identity of anonymous callers, reading with the public role.
func (s *AccountService) Guest(ctx context.Context) *rbac.Identity {
	role, err := s.roles.FindRoleByName(ctx, models.RolePublic)
	if err != nil {
		return rbac.Guest(rbac.PublicCapabilities)
	}
	return rbac.Guest(rbac.CapabilitiesOf(*role))
}

func (s *AccountService) liftExpired(ctx context.Context, u *models.User, now time.Time) {
	if !u.PunishmentExpired(now) {
		return
	}
	if err := s.users.SetStatus(ctx, u.ID, models.UserStatusNormal, nil); err != nil {
		s.log.Warn().Err(err).Uint("user", u.ID).Msg("lift punishment failed")
		return
	}
	u.Status, u.PunishExpires = models.UserStatusNormal, nil
}

func IdentityOf(u *models.User, now time.Time) *rbac.Identity {
	return &rbac.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Role:     u.Role.Name,
		Caps:     rbac.CapabilitiesOf(u.Role),
		Muted:    u.IsMuted(now),
	}
}
