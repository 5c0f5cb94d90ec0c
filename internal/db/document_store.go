package db

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"studyarchive/internal/models"
)

type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(gdb *gorm.DB) *DocumentStore {
	return &DocumentStore{db: gdb}
}

func (s *DocumentStore) FindDocument(ctx context.Context, id uint) (*models.Document, error) {
	var d models.Document
	if err := s.db.WithContext(ctx).Preload("User").First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// FindDocumentsByIDs keeps the order of ids and skips ids that no longer exist.
func (s *DocumentStore) FindDocumentsByIDs(ctx context.Context, ids []uint) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}
	var list []models.Document
	if err := s.db.WithContext(ctx).Preload("User").Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Document, len(list))
	for _, d := range list {
		byID[d.ID] = d
	}
	out := make([]models.Document, 0, len(list))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *DocumentStore) CreateDocument(ctx context.Context, d *models.Document) error {
	return s.db.WithContext(ctx).Omit("User").Create(d).Error
}

func (s *DocumentStore) UpdateDocument(ctx context.Context, id uint, title, description string) error {
	res := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "description": description})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteDocumentWithComments removes a document, its comments and its notifications in
// one transaction and returns the number of removed comments.
func (s *DocumentStore) DeleteDocumentWithComments(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		res := tx.Where("document_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		res = tx.Delete(&models.Document{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListDocuments pages through documents, newest first. userID 0 means everyone's.
func (s *DocumentStore) ListDocuments(ctx context.Context, userID uint, offset, limit int) ([]models.Document, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Document{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Document
	err := q.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchDocuments is the database fallback for full text search: a case-insensitive
// substring match on title and description.
func (s *DocumentStore) SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	var list []models.Document
	err := s.db.WithContext(ctx).
		Preload("User").
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
