package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"studyarchive/internal/models"
)

type CommentStore struct {
	db *gorm.DB
}

func NewCommentStore(gdb *gorm.DB) *CommentStore {
	return &CommentStore{db: gdb}
}

// FindCommentsByDocument returns every comment of a document, unordered, with authors.
func (s *CommentStore) FindCommentsByDocument(ctx context.Context, documentID uint) ([]models.Comment, error) {
	var list []models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("document_id = ?", documentID).
		Find(&list).Error
	return list, err
}

func (s *CommentStore) FindComment(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CommentStore) CreateComment(ctx context.Context, c *models.Comment) error {
	return s.db.WithContext(ctx).Omit("User").Create(c).Error
}

func (s *CommentStore) UpdateComment(ctx context.Context, id uint, content string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteComment removes a comment, all transitive replies and the notifications pointing
// at them in one transaction. Descendants are collected breadth-first by parent_id.
func (s *CommentStore) DeleteComment(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.Select("id").First(&root, id).Error; err != nil {
			return err
		}

		all := []uint{root.ID}
		seen := map[uint]bool{root.ID: true}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			frontier = frontier[:0]
			for _, cid := range children {
				if !seen[cid] {
					seen[cid] = true
					all = append(all, cid)
					frontier = append(frontier, cid)
				}
			}
		}

		if err := tx.Where("comment_id IN ?", all).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", all).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DocumentIDsByUser lists the documents a user has commented on.
func (s *CommentStore) DocumentIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("document_id", &ids).Error
	return ids, err
}

// ListComments pages through all comments, newest first.
func (s *CommentStore) ListComments(ctx context.Context, offset, limit int) ([]models.Comment, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (s *CommentStore) CountByDocuments(ctx context.Context, documentIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(documentIDs))
	if len(documentIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		DocumentID uint
		N          int
	}
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("document_id, COUNT(*) AS n").
		Where("document_id IN ?", documentIDs).
		Group("document_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.DocumentID] = r.N
	}
	return out, nil
}
