package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studyarchive/internal/apperr"
	"studyarchive/internal/logging"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
)

const (
	pdfMIME        = "application/pdf"
	sniffBytes     = 3072
	downloadTTL    = time.Hour
	searchMaxItems = 50
)

type DocumentStore interface {
	DocumentFinder
	FindDocumentsByIDs(ctx context.Context, ids []uint) ([]models.Document, error)
	CreateDocument(ctx context.Context, d *models.Document) error
	UpdateDocument(ctx context.Context, id uint, title, description string) error
	// DeleteDocumentWithComments removes the document, its comments and their
	// notifications atomically and returns the number of removed comments.
	DeleteDocumentWithComments(ctx context.Context, id uint) (int64, error)
	ListDocuments(ctx context.Context, userID uint, offset, limit int) ([]models.Document, int64, error)
	SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error)
}

// ObjectStore holds the uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

// DocumentIndex is the full text search side. Index and Remove run in the background.
type DocumentIndex interface {
	Search(ctx context.Context, query string, limit int) ([]models.Document, error)
	Index(doc models.Document)
	Remove(id uint)
}

type DocumentService struct {
	docs     DocumentStore
	comments CommentStore
	objects  ObjectStore
	index    DocumentIndex
	cache    TreeCache
	maxBytes int64
	retry    ReadRetry
	log      zerolog.Logger
}

func NewDocumentService(docs DocumentStore, comments CommentStore, objects ObjectStore, index DocumentIndex, cache TreeCache, maxBytes int64) *DocumentService {
	if cache == nil {
		cache = noTreeCache{}
	}
	return &DocumentService{
		docs:     docs,
		comments: comments,
		objects:  objects,
		index:    index,
		cache:    cache,
		maxBytes: maxBytes,
		retry:    DefaultReadRetry,
		log:      logging.With("documents"),
	}
}

type UploadInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	FileName    string    `json:"file_name" validate:"required,max=255"`
	Size        int64     `json:"size"`
	Body        io.Reader `json:"-" validate:"-"`
}

type UpdateDocumentInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type DocumentPage struct {
	Items []models.Document `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
}

// Upload stores a PDF and its metadata. The file must be a PDF both by extension and by
// content.
func (s *DocumentService) Upload(ctx context.Context, id *rbac.Identity, in UploadInput) (*models.Document, error) {
	if err := rbac.Decide(id, rbac.ActionCreate, rbac.Document(0)); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.FileName = filepath.Base(strings.TrimSpace(in.FileName))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Body == nil || in.Size <= 0 {
		return nil, apperr.New(apperr.ValidationError, "file is empty")
	}
	if in.Size > s.maxBytes {
		return nil, apperr.Newf(apperr.ValidationError, "file is larger than %d MB", s.maxBytes>>20)
	}
	if !strings.EqualFold(filepath.Ext(in.FileName), ".pdf") {
		return nil, apperr.New(apperr.ValidationError, "only PDF files can be uploaded")
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperr.Wrap(apperr.ValidationError, "could not read file", err)
	}
	head = head[:n]
	if !mimetype.Detect(head).Is(pdfMIME) {
		return nil, apperr.New(apperr.ValidationError, "file content is not a PDF")
	}
	body := io.MultiReader(bytes.NewReader(head), in.Body)

	key := "documents/" + uuid.NewString() + ".pdf"
	if err := s.objects.Put(ctx, key, body, in.Size, pdfMIME); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "store file", err)
	}

	doc := &models.Document{
		Title:       in.Title,
		Description: in.Description,
		UserID:      id.UserID,
		ObjectKey:   key,
		FileName:    in.FileName,
		Size:        in.Size,
		ContentType: pdfMIME,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		s.removeObject(key)
		return nil, storeWriteErr(err, "document")
	}

	s.log.Info().Uint("document", doc.ID).Uint("user", id.UserID).Int64("size", doc.Size).Msg("document uploaded")
	if s.index != nil {
		s.index.Index(*doc)
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id *rbac.Identity, documentID uint) (*models.Document, error) {
	if err := rbac.Decide(id, rbac.ActionRead, rbac.Document(0)); err != nil {
		return nil, err
	}
	doc, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}
	list := []models.Document{*doc}
	s.fillCommentCounts(ctx, list)
	return &list[0], nil
}

// List pages through documents, newest first. ownerID 0 lists everyone's.
func (s *DocumentService) List(ctx context.Context, id *rbac.Identity, ownerID uint, page, perPage int) (*DocumentPage, error) {
	if err := rbac.Decide(id, rbac.ActionRead, rbac.Document(0)); err != nil {
		return nil, err
	}
	page, perPage = normalizePage(page, perPage)

	var (
		items []models.Document
		total int64
	)
	err := s.retry.do(ctx, func() error {
		var err error
		items, total, err = s.docs.ListDocuments(ctx, ownerID, (page-1)*perPage, perPage)
		return storeErr(err, "documents")
	})
	if err != nil {
		return nil, err
	}
	s.fillCommentCounts(ctx, items)
	return &DocumentPage{Items: items, Total: total, Page: page}, nil
}

func (s *DocumentService) Search(ctx context.Context, id *rbac.Identity, query string) ([]models.Document, error) {
	if err := rbac.Decide(id, rbac.ActionRead, rbac.Document(0)); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.ValidationError, "query is required")
	}

	var items []models.Document
	err := s.retry.do(ctx, func() error {
		var err error
		if s.index != nil {
			items, err = s.index.Search(ctx, query, searchMaxItems)
		} else {
			items, err = s.docs.SearchDocuments(ctx, query, searchMaxItems)
		}
		return storeErr(err, "documents")
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Document{}
	}
	s.fillCommentCounts(ctx, items)
	return items, nil
}

// DownloadURL returns a presigned link valid for one hour.
func (s *DocumentService) DownloadURL(ctx context.Context, id *rbac.Identity, documentID uint) (string, error) {
	if err := rbac.Decide(id, rbac.ActionRead, rbac.Document(0)); err != nil {
		return "", err
	}
	doc, err := s.find(ctx, documentID)
	if err != nil {
		return "", err
	}
	u, err := s.objects.PresignedURL(ctx, doc.ObjectKey, doc.FileName, downloadTTL)
	if err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, "presign download", err)
	}
	return u, nil
}

func (s *DocumentService) Update(ctx context.Context, id *rbac.Identity, documentID uint, in UpdateDocumentInput) (*models.Document, error) {
	if id.IsAnonymous() {
		return nil, apperr.New(apperr.Unauthorized, "login required")
	}
	doc, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := rbac.Decide(id, rbac.ActionEdit, rbac.Document(doc.UserID)); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.docs.UpdateDocument(ctx, doc.ID, in.Title, in.Description); err != nil {
		return nil, storeWriteErr(err, "document")
	}

	doc.Title, doc.Description = in.Title, in.Description
	if s.index != nil {
		s.index.Index(*doc)
	}
	return doc, nil
}

// Delete removes a document, its comments, its file and its index entry.
func (s *DocumentService) Delete(ctx context.Context, id *rbac.Identity, documentID uint) error {
	if id.IsAnonymous() {
		return apperr.New(apperr.Unauthorized, "login required")
	}
	doc, err := s.find(ctx, documentID)
	if err != nil {
		return err
	}
	if err := rbac.Decide(id, rbac.ActionDelete, rbac.Document(doc.UserID)); err != nil {
		return err
	}

	removed, err := s.docs.DeleteDocumentWithComments(ctx, doc.ID)
	if err != nil {
		return storeWriteErr(err, "document")
	}
	s.cache.Invalidate(ctx, doc.ID)
	s.removeObject(doc.ObjectKey)
	if s.index != nil {
		s.index.Remove(doc.ID)
	}

	s.log.Info().Uint("document", doc.ID).Int64("comments", removed).Uint("user", id.UserID).Msg("document deleted")
	return nil
}

func (s *DocumentService) find(ctx context.Context, documentID uint) (*models.Document, error) {
	var doc *models.Document
	err := s.retry.do(ctx, func() error {
		var err error
		doc, err = s.docs.FindDocument(ctx, documentID)
		return storeErr(err, "document")
	})
	return doc, err
}

// fillCommentCounts is best effort; a failure leaves the counts at zero.
func (s *DocumentService) fillCommentCounts(ctx context.Context, items []models.Document) {
	if len(items) == 0 {
		return
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := s.comments.CountByDocuments(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("count comments failed")
		return
	}
	for i := range items {
		items[i].CommentCount = counts[items[i].ID]
	}
}

func (s *DocumentService) removeObject(key string) {
	go func() {
		if err := s.objects.Remove(context.Background(), key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("remove object failed")
		}
	}()
}
