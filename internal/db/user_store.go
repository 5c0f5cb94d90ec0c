package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"studyarchive/internal/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(gdb *gorm.DB) *UserStore {
	return &UserStore{db: gdb}
}

func (s *UserStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Omit("Role").Create(u).Error
}

// SetStatus records a punishment. expires nil means permanent; status normal clears it.
func (s *UserStore) SetStatus(ctx context.Context, id uint, status int, expires *time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "punish_expires": expires})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *UserStore) SetRole(ctx context.Context, id, roleID uint) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role_id", roleID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes the account and its notifications. Documents and comments stay;
// comments then show a deleted author.
func (s *UserStore) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (s *UserStore) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.User
	err := s.db.WithContext(ctx).Preload("Role").Order("id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (s *UserStore) CountUsersWithRole(ctx context.Context, roleID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}
