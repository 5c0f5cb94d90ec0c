package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
)

var errStoreDown = errors.New("connection refused")

type memComments struct {
	mu     sync.Mutex
	rows   map[uint]models.Comment
	users  map[uint]*models.User
	nextID uint
	now    time.Time

	// failReads / failWrites make the next n calls fail with errStoreDown.
	failReads  int
	failWrites int
	reads      int
	writes     int
}

func newMemComments() *memComments {
	return &memComments{
		rows:   map[uint]models.Comment{},
		users:  map[uint]*models.User{},
		nextID: 1,
		now:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memComments) read() error {
	m.reads++
	if m.failReads > 0 {
		m.failReads--
		return errStoreDown
	}
	return nil
}

func (m *memComments) write() error {
	m.writes++
	if m.failWrites > 0 {
		m.failWrites--
		return errStoreDown
	}
	return nil
}

func (m *memComments) withUser(c models.Comment) models.Comment {
	c.User = m.users[c.UserID]
	return c
}

func (m *memComments) FindCommentsByDocument(_ context.Context, documentID uint) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(); err != nil {
		return nil, err
	}
	var out []models.Comment
	for _, c := range m.rows {
		if c.DocumentID == documentID {
			out = append(out, m.withUser(c))
		}
	}
	return out, nil
}

func (m *memComments) FindComment(_ context.Context, id uint) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(); err != nil {
		return nil, err
	}
	c, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c = m.withUser(c)
	return &c, nil
}

func (m *memComments) CreateComment(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write(); err != nil {
		return err
	}
	c.ID = m.nextID
	m.nextID++
	m.now = m.now.Add(time.Minute)
	c.CreatedAt, c.UpdatedAt = m.now, m.now
	m.rows[c.ID] = *c
	return nil
}

func (m *memComments) UpdateComment(_ context.Context, id uint, content string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write(); err != nil {
		return err
	}
	c, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Content, c.UpdatedAt = content, at
	m.rows[id] = c
	return nil
}

func (m *memComments) DeleteComment(_ context.Context, id uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write(); err != nil {
		return 0, err
	}
	if _, ok := m.rows[id]; !ok {
		return 0, gorm.ErrRecordNotFound
	}
	queue := []uint{id}
	var removed int64
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range m.rows {
			if c.ParentID != nil && *c.ParentID == cur {
				queue = append(queue, c.ID)
			}
		}
		delete(m.rows, cur)
		removed++
	}
	return removed, nil
}

func (m *memComments) DocumentIDsByUser(_ context.Context, userID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(); err != nil {
		return nil, err
	}
	seen := map[uint]bool{}
	var out []uint
	for _, c := range m.rows {
		if c.UserID == userID && !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			out = append(out, c.DocumentID)
		}
	}
	return out, nil
}

func (m *memComments) ListComments(_ context.Context, offset, limit int) ([]models.Comment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(); err != nil {
		return nil, 0, err
	}
	all := make([]models.Comment, 0, len(m.rows))
	for _, c := range m.rows {
		all = append(all, m.withUser(c))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.Comment{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (m *memComments) CountByDocuments(_ context.Context, documentIDs []uint) (map[uint]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(); err != nil {
		return nil, err
	}
	out := map[uint]int{}
	for _, c := range m.rows {
		for _, d := range documentIDs {
			if c.DocumentID == d {
				out[d]++
			}
		}
	}
	return out, nil
}

type memDocuments struct {
	mu   sync.Mutex
	rows map[uint]models.Document
	fail int
}

func newMemDocuments(docs ...models.Document) *memDocuments {
	m := &memDocuments{rows: map[uint]models.Document{}}
	for _, d := range docs {
		m.rows[d.ID] = d
	}
	return m
}

func (m *memDocuments) FindDocument(_ context.Context, id uint) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return nil, errStoreDown
	}
	d, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

type recordingCache struct {
	mu          sync.Mutex
	forests     map[uint][]CommentNode
	gens        map[uint]uint64
	invalidated []uint
}

func newRecordingCache() *recordingCache {
	return &recordingCache{forests: map[uint][]CommentNode{}, gens: map[uint]uint64{}}
}

func (c *recordingCache) Generation(documentID uint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[documentID]
}

func (c *recordingCache) Get(_ context.Context, documentID uint) ([]CommentNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.forests[documentID]
	return f, ok
}

func (c *recordingCache) Set(_ context.Context, documentID uint, gen uint64, forest []CommentNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[documentID] == gen {
		c.forests[documentID] = forest
	}
}

func (c *recordingCache) Invalidate(_ context.Context, documentID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.forests, documentID)
	c.gens[documentID]++
	c.invalidated = append(c.invalidated, documentID)
}

type chanNotifier chan CommentEvent

func (n chanNotifier) CommentCreated(_ context.Context, ev CommentEvent) { n <- ev }

func userIdentity(id uint, name string) *rbac.Identity {
	return &rbac.Identity{UserID: id, Username: name, Role: models.RoleUser, Caps: rbac.CapabilitiesOf(roleNamed(models.RoleUser))}
}

func adminIdentity(id uint) *rbac.Identity {
	return &rbac.Identity{UserID: id, Username: "admin", Role: models.RoleAdmin, Caps: rbac.CapabilitiesOf(roleNamed(models.RoleAdmin))}
}

func roleNamed(name string) models.Role {
	for _, r := range models.DefaultRoles() {
		if r.Name == name {
			return r
		}
	}
	panic("no role " + name)
}

var fastRetry = ReadRetry{MaxRetries: 2, InitialInterval: time.Millisecond}
