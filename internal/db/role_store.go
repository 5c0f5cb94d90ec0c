package db

import (
	"context"

	"gorm.io/gorm"

	"studyarchive/internal/models"
)

type RoleStore struct {
	db *gorm.DB
}

func NewRoleStore(gdb *gorm.DB) *RoleStore {
	return &RoleStore{db: gdb}
}

func (s *RoleStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	var list []models.Role
	err := s.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (s *RoleStore) FindRole(ctx context.Context, id uint) (*models.Role, error) {
	var r models.Role
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoleStore) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoleStore) CreateRole(ctx context.Context, r *models.Role) error {
	return s.db.WithContext(ctx).Create(r).Error
}

// UpdateRole writes every column, false flags included.
func (s *RoleStore) UpdateRole(ctx context.Context, r *models.Role) error {
	res := s.db.WithContext(ctx).Model(r).Select("*").Omit("id", "created_at").Updates(r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *RoleStore) DeleteRole(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Role{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
