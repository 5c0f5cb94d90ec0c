package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studyarchive/internal/apperr"
	"studyarchive/internal/cache"
	"studyarchive/internal/logging"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
	"studyarchive/internal/utils"
)

// MaxCommentLength is counted in characters, not bytes.
const MaxCommentLength = 10000

// CommentStore persists comment records. Implementations return gorm.ErrRecordNotFound
// for missing rows; any other error is treated as the store being unavailable.
type CommentStore interface {
	FindCommentsByDocument(ctx context.Context, documentID uint) ([]models.Comment, error)
	FindComment(ctx context.Context, id uint) (*models.Comment, error)
	CreateComment(ctx context.Context, c *models.Comment) error
	UpdateComment(ctx context.Context, id uint, content string, at time.Time) error
	// DeleteComment removes the comment and all its transitive replies and returns
	// the number of removed records.
	DeleteComment(ctx context.Context, id uint) (int64, error)
	// DocumentIDsByUser lists the documents the user has commented on.
	DocumentIDsByUser(ctx context.Context, userID uint) ([]uint, error)
	ListComments(ctx context.Context, offset, limit int) ([]models.Comment, int64, error)
	CountByDocuments(ctx context.Context, documentIDs []uint) (map[uint]int, error)
}

// DocumentFinder is the part of the document store the comment service needs.
type DocumentFinder interface {
	FindDocument(ctx context.Context, id uint) (*models.Document, error)
}

// TreeCache caches the rendered comment forest of a document. Every Invalidate bumps
// the document's generation; Set drops a forest loaded under an older generation.
type TreeCache interface {
	Get(ctx context.Context, documentID uint) ([]CommentNode, bool)
	Generation(documentID uint) uint64
	Set(ctx context.Context, documentID uint, gen uint64, forest []CommentNode)
	Invalidate(ctx context.Context, documentID uint)
}

// CommentEvent describes a freshly created comment.
type CommentEvent struct {
	Actor    rbac.Identity
	Document models.Document
	Comment  models.Comment
	Parent   *models.Comment
}

// Notifier is told about new comments. It runs detached from the request.
type Notifier interface {
	CommentCreated(ctx context.Context, ev CommentEvent)
}

type CommentService struct {
	comments  CommentStore
	documents DocumentFinder
	cache     TreeCache
	notifier  Notifier
	retry     ReadRetry
	now       func() time.Time
	log       zerolog.Logger
}

type CommentServiceOption func(*CommentService)

func WithNotifier(n Notifier) CommentServiceOption {
	return func(s *CommentService) { s.notifier = n }
}

func WithTreeCache(c TreeCache) CommentServiceOption {
	return func(s *CommentService) { s.cache = c }
}

func WithReadRetry(r ReadRetry) CommentServiceOption {
	return func(s *CommentService) { s.retry = r }
}

func NewCommentService(comments CommentStore, documents DocumentFinder, opts ...CommentServiceOption) *CommentService {
	s := &CommentService{
		comments:  comments,
		documents: documents,
		cache:     noTreeCache{},
		retry:     DefaultReadRetry,
		now:       time.Now,
		log:       logging.With("comments"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateCommentInput struct {
	DocumentID uint   `json:"document_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=10000"`
	ParentID   *uint  `json:"parent_id"`
	MainID     *uint  `json:"main_id"`
}

// CreateComment stores a new top-level comment or reply. The thread root (MainID) of a
// reply is always derived from its parent; a supplied MainID must agree with it.
func (s *CommentService) CreateComment(ctx context.Context, id *rbac.Identity, in CreateCommentInput) (*models.Comment, error) {
	if err := rbac.Decide(id, rbac.ActionCreate, rbac.Comment(0)); err != nil {
		return nil, err
	}

	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.MainID != nil && in.ParentID == nil {
		return nil, apperr.New(apperr.ValidationError, "main_id requires parent_id")
	}

	doc, err := s.findDocument(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	var mainID *uint
	if in.ParentID != nil {
		parent, err = s.findComment(ctx, *in.ParentID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return nil, apperr.New(apperr.NotFound, "parent comment not found")
			}
			return nil, err
		}
		if parent.DocumentID != in.DocumentID {
			return nil, apperr.New(apperr.ValidationError, "parent comment belongs to another document")
		}

		root := parent.ID
		if parent.MainID != nil {
			root = *parent.MainID
		}
		if in.MainID != nil && *in.MainID != root {
			return nil, apperr.Newf(apperr.ValidationError, "main_id %d does not match the thread root %d", *in.MainID, root)
		}
		mainID = &root
	}

	c := &models.Comment{
		Content:    in.Content,
		DocumentID: in.DocumentID,
		UserID:     id.UserID,
		ParentID:   in.ParentID,
		MainID:     mainID,
	}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, storeWriteErr(err, "comment")
	}

	s.cache.Invalidate(ctx, in.DocumentID)
	s.log.Info().Uint("comment", c.ID).Uint("document", c.DocumentID).Uint("user", id.UserID).Msg("comment created")

	c.Author = &models.Author{ID: id.UserID, Username: id.Username, Avatar: id.Avatar}
	decorate(c)

	if s.notifier != nil {
		ev := CommentEvent{Actor: *id, Document: *doc, Comment: *c, Parent: parent}
		go s.notifier.CommentCreated(context.WithoutCancel(ctx), ev)
	}
	return c, nil
}

// ListComments returns the comment forest of a document, newest first on every level.
func (s *CommentService) ListComments(ctx context.Context, id *rbac.Identity, documentID uint) ([]CommentNode, error) {
	if err := rbac.Decide(id, rbac.ActionRead, rbac.Comment(0)); err != nil {
		return nil, err
	}
	if forest, ok := s.cache.Get(ctx, documentID); ok {
		return forest, nil
	}
	gen := s.cache.Generation(documentID)

	if _, err := s.findDocument(ctx, documentID); err != nil {
		return nil, err
	}

	var records []models.Comment
	err := s.retry.do(ctx, func() error {
		var err error
		records, err = s.comments.FindCommentsByDocument(ctx, documentID)
		return storeErr(err, "comments")
	})
	if err != nil {
		s.log.Warn().Err(err).Uint("document", documentID).Msg("load comments failed")
		return nil, err
	}

	forest := BuildCommentTree(records)
	WalkTree(forest, func(n *CommentNode, _ int) {
		n.Author = n.AuthorInfo()
		decorate(&n.Comment)
	})

	s.cache.Set(ctx, documentID, gen, forest)
	return forest, nil
}

// GetComment loads a single rendered comment.
func (s *CommentService) GetComment(ctx context.Context, id *rbac.Identity, commentID uint) (*models.Comment, error) {
	if err := rbac.Decide(id, rbac.ActionRead, rbac.Comment(0)); err != nil {
		return nil, err
	}
	c, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	c.Author = c.AuthorInfo()
	decorate(c)
	return c, nil
}

// EditComment replaces the content of a comment. Concurrent edits: last write wins.
func (s *CommentService) EditComment(ctx context.Context, id *rbac.Identity, commentID uint, content string) (*models.Comment, error) {
	if id.IsAnonymous() {
		return nil, apperr.New(apperr.Unauthorized, "login required")
	}
	c, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := rbac.Decide(id, rbac.ActionEdit, rbac.Comment(c.UserID)); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if err := validateInput(struct {
		Content string `json:"content" validate:"required,max=10000"`
	}{content}); err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.comments.UpdateComment(ctx, c.ID, content, at); err != nil {
		return nil, storeWriteErr(err, "comment")
	}
	s.cache.Invalidate(ctx, c.DocumentID)
	s.log.Info().Uint("comment", c.ID).Uint("user", id.UserID).Msg("comment edited")

	c.Content = content
	c.UpdatedAt = at
	c.Author = c.AuthorInfo()
	decorate(c)
	return c, nil
}

// DeleteComment removes a comment together with every reply below it and returns
// how many records were removed.
func (s *CommentService) DeleteComment(ctx context.Context, id *rbac.Identity, commentID uint) (int64, error) {
	if id.IsAnonymous() {
		return 0, apperr.New(apperr.Unauthorized, "login required")
	}
	c, err := s.findComment(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if err := rbac.Decide(id, rbac.ActionDelete, rbac.Comment(c.UserID)); err != nil {
		return 0, err
	}

	removed, err := s.comments.DeleteComment(ctx, c.ID)
	if err != nil {
		return 0, storeWriteErr(err, "comment")
	}
	s.cache.Invalidate(ctx, c.DocumentID)
	s.log.Info().Uint("comment", c.ID).Int64("removed", removed).Uint("user", id.UserID).Msg("comment deleted")
	return removed, nil
}

// ListRecentComments pages through all comments, newest first. Back office only.
func (s *CommentService) ListRecentComments(ctx context.Context, id *rbac.Identity, page, perPage int) ([]models.Comment, int64, error) {
	if !rbac.IsAdmin(id) {
		if id.IsAnonymous() {
			return nil, 0, apperr.New(apperr.Unauthorized, "login required")
		}
		return nil, 0, apperr.New(apperr.Forbidden, "admin only")
	}
	page, perPage = normalizePage(page, perPage)

	var (
		list  []models.Comment
		total int64
	)
	err := s.retry.do(ctx, func() error {
		var err error
		list, total, err = s.comments.ListComments(ctx, (page-1)*perPage, perPage)
		return storeErr(err, "comments")
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].Author = list[i].AuthorInfo()
		decorate(&list[i])
	}
	return list, total, nil
}

func (s *CommentService) findDocument(ctx context.Context, documentID uint) (*models.Document, error) {
	var doc *models.Document
	err := s.retry.do(ctx, func() error {
		var err error
		doc, err = s.documents.FindDocument(ctx, documentID)
		return storeErr(err, "document")
	})
	return doc, err
}

func (s *CommentService) findComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	var c *models.Comment
	err := s.retry.do(ctx, func() error {
		var err error
		c, err = s.comments.FindComment(ctx, commentID)
		return storeErr(err, "comment")
	})
	return c, err
}

// storeWriteErr maps a failed write. Writes are not retried, a missing row means the
// record vanished between load and write.
func storeWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if e := storeErr(err, what); apperr.Is(e, apperr.NotFound) || apperr.Is(e, apperr.Conflict) {
		return e
	}
	return apperr.Wrap(apperr.StoreUnavailable, "write "+what, err)
}

func decorate(c *models.Comment) {
	c.ContentHTML = utils.RenderMarkdown(c.Content)
	c.Edited = c.IsEdited()
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

type noTreeCache struct{}

func (noTreeCache) Get(context.Context, uint) ([]CommentNode, bool)   { return nil, false }
func (noTreeCache) Generation(uint) uint64                            { return 0 }
func (noTreeCache) Set(context.Context, uint, uint64, []CommentNode) {}
func (noTreeCache) Invalidate(context.Context, uint)                  {}

// treeCache 的代数只在本进程内有效，多实例之间仍由 TTL 兜底
type treeCache struct {
	c   cache.Cache[[]CommentNode]
	ttl time.Duration

	mu   sync.Mutex
	gens map[uint]uint64
}

// NewTreeCache adapts a generic cache to document comment forests.
func NewTreeCache(c cache.Cache[[]CommentNode], ttl time.Duration) TreeCache {
	return &treeCache{c: c, ttl: ttl, gens: map[uint]uint64{}}
}

func treeKey(documentID uint) string {
	return fmt.Sprintf("comments:tree:%d", documentID)
}

func (t *treeCache) Get(ctx context.Context, documentID uint) ([]CommentNode, bool) {
	return t.c.Get(ctx, treeKey(documentID))
}

func (t *treeCache) Generation(documentID uint) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gens[documentID]
}

func (t *treeCache) Set(ctx context.Context, documentID uint, gen uint64, forest []CommentNode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens[documentID] != gen {
		return
	}
	t.c.Set(ctx, treeKey(documentID), forest, t.ttl)
}

func (t *treeCache) Invalidate(ctx context.Context, documentID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[documentID]++
	t.c.Delete(ctx, treeKey(documentID))
}
