package search

import (
	"context"

	"github.com/rs/zerolog"

	"studyarchive/internal/logging"
	"studyarchive/internal/models"
)

// Service tries the engine first and falls back to the database.
type Service struct {
	engine   Engine
	fallback Fallback
	log      zerolog.Logger
}

// NewService creates a search service. engine may be nil when Meilisearch is not
// configured.
func NewService(engine Engine, fallback Fallback) *Service {
	return &Service{engine: engine, fallback: fallback, log: logging.With("search")}
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Document, error) {
	if s.engine != nil && s.engine.Healthy() {
		ids, err := s.engine.Search(ctx, query, limit)
		if err == nil {
			return s.fallback.FindDocumentsByIDs(ctx, ids)
		}
		s.log.Warn().Err(err).Msg("engine search failed, falling back to database")
	}
	return s.fallback.SearchDocuments(ctx, query, limit)
}

// Index pushes a document to the engine in the background.
func (s *Service) Index(doc models.Document) {
	if s.engine == nil || !s.engine.Healthy() {
		return
	}
	r := RecordOf(doc)
	go func() {
		if err := s.engine.Index(context.Background(), r); err != nil {
			s.log.Warn().Err(err).Uint("document", r.ID).Msg("index document failed")
		}
	}()
}

// Remove drops a document from the engine in the background.
func (s *Service) Remove(id uint) {
	if s.engine == nil || !s.engine.Healthy() {
		return
	}
	go func() {
		if err := s.engine.Delete(context.Background(), id); err != nil {
			s.log.Warn().Err(err).Uint("document", id).Msg("remove document from index failed")
		}
	}()
}
