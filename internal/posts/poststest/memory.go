// Package poststest provides in-memory stand-ins for the post store and the
// search index.
package poststest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/models"
	"github.com/BorisDmv/blog-cms/internal/search"
)

// MemStore mirrors the Postgres store semantics, including sparse slug
// uniqueness, in memory.
type MemStore struct {
	mu    sync.Mutex
	posts map[string]models.Post
	clock time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		posts: map[string]models.Post{},
		clock: time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC),
	}
}

func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *MemStore) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.Slug != nil {
		for _, p := range m.posts {
			if p.Slug != nil && *p.Slug == *post.Slug {
				return nil, fmt.Errorf("create post: %w", &apperr.DuplicateSlugError{Slug: *post.Slug})
			}
		}
	}
	post.ID = uuid.NewString()
	post.CreatedAt = m.tick()
	post.UpdatedAt = post.CreatedAt
	if post.Tags == nil {
		post.Tags = []string{}
	}
	m.posts[post.ID] = post
	return &post, nil
}

func (m *MemStore) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, &apperr.NotFoundError{Resource: "post", ID: id}
	}
	return &p, nil
}

func (m *MemStore) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug != nil && *p.Slug == slug {
			return &p, nil
		}
	}
	return nil, &apperr.NotFoundError{Resource: "post", ID: slug}
}

func (m *MemStore) GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Post{}
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemStore) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, &apperr.NotFoundError{Resource: "post", ID: id}
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Author != nil {
		p.Author = *patch.Author
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.Image != nil {
		p.Image = patch.Image
	}
	if patch.ClearImage {
		p.Image = nil
	}
	p.UpdatedAt = m.tick()
	m.posts[id] = p
	return &p, nil
}

func (m *MemStore) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return &apperr.NotFoundError{Resource: "post", ID: id}
	}
	delete(m.posts, id)
	return nil
}

// MemIndex is a search index that matches on lowercase substrings. With
// down set every call fails the way an unreachable cluster does.
type MemIndex struct {
	mu   sync.Mutex
	docs map[string]models.SearchDocument
	seq  []string
	down bool
}

func NewMemIndex() *MemIndex {
	return &MemIndex{docs: map[string]models.SearchDocument{}}
}

func (m *MemIndex) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func (m *MemIndex) Put(ctx context.Context, id string, doc models.SearchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return fmt.Errorf("index document %s: %w", id, search.ErrUnavailable)
	}
	if _, ok := m.docs[id]; !ok {
		m.seq = append(m.seq, id)
	}
	m.docs[id] = doc
	return nil
}

func (m *MemIndex) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return fmt.Errorf("delete document %s: %w", id, search.ErrUnavailable)
	}
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("delete document %s: %w", id, search.ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}

func (m *MemIndex) Search(ctx context.Context, query string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, fmt.Errorf("search %q: %w", query, search.ErrUnavailable)
	}
	q := strings.ToLower(query)
	ids := []string{}
	for _, id := range m.seq {
		doc, ok := m.docs[id]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Title+" "+doc.Content+" "+doc.AuthorName), q) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Len reports how many posts are stored.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

// Doc returns the indexed document for id.
func (m *MemIndex) Doc(id string) (models.SearchDocument, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// Len reports how many documents are indexed.
func (m *MemIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Ping fails while the index is down.
func (m *MemIndex) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return search.ErrUnavailable
	}
	return nil
}
