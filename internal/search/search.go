// Package search finds documents by title and description. Meilisearch is used while it
// is reachable; otherwise the query falls back to a database substring match.
package search

import (
	"context"

	"studyarchive/internal/models"
)

// Record is what gets indexed for a document.
type Record struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FileName    string `json:"file_name"`
	UserID      uint   `json:"user_id"`
}

func RecordOf(d models.Document) Record {
	return Record{ID: d.ID, Title: d.Title, Description: d.Description, FileName: d.FileName, UserID: d.UserID}
}

// Engine is a full text index returning matching document ids, best match first.
type Engine interface {
	Search(ctx context.Context, query string, limit int) ([]uint, error)
	Index(ctx context.Context, r Record) error
	Delete(ctx context.Context, id uint) error
	Healthy() bool
}

// Fallback is the database side of search.
type Fallback interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error)
	FindDocumentsByIDs(ctx context.Context, ids []uint) ([]models.Document, error)
}
