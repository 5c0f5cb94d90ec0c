package db

import (
	"context"

	"gorm.io/gorm"

	"studyarchive/internal/models"
)

type NotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(gdb *gorm.DB) *NotificationStore {
	return &NotificationStore{db: gdb}
}

func (s *NotificationStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Omit("Actor").Create(n).Error
}

func (s *NotificationStore) ListNotifications(ctx context.Context, userID uint, offset, limit int) ([]models.Notification, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Notification
	err := q.Preload("Actor").Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, id uint) error {
	var n models.Notification
	if err := s.db.WithContext(ctx).Select("id").Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true).Error
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *NotificationStore) DeleteNotification(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
