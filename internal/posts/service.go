// Package posts orchestrates post persistence and its search projection.
// The record store decides the outcome of every operation; the search
// index is kept in step through the sync bridge on a best-effort basis.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/indexsync"
	"github.com/BorisDmv/blog-cms/internal/models"
	"github.com/BorisDmv/blog-cms/internal/slug"
)

// ErrSearchDisabled is returned by Search when no index is configured.
var ErrSearchDisabled = errors.New("search is not configured")

type Store interface {
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// Searcher is the query side of the search index.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

type Service struct {
	store    Store
	bridge   *indexsync.Bridge
	searcher Searcher
	log      *logrus.Entry
}

// NewService wires the service. searcher may be nil when search is disabled.
func NewService(store Store, bridge *indexsync.Bridge, searcher Searcher, log *logrus.Entry) *Service {
	return &Service{store: store, bridge: bridge, searcher: searcher, log: log}
}

type CreateInput struct {
	Title   string
	Slug    string
	Content string
	Author  string
	Tags    []string
	Image   string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Post, error) {
	post := models.Post{
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
		Author:  strings.TrimSpace(in.Author),
		Tags:    normalizeTags(in.Tags),
	}
	if err := validateRequired(post.Title, post.Content, post.Author); err != nil {
		return nil, err
	}
	if explicit := strings.TrimSpace(in.Slug); explicit != "" {
		post.Slug = &explicit
	} else if derived := slug.Make(post.Title); derived != "" {
		post.Slug = &derived
	}
	if image := strings.TrimSpace(in.Image); image != "" {
		post.Image = &image
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, err
	}

	if !s.bridge.Enabled() {
		return created, nil
	}
	// The post is visible from here on, so another request may already have
	// changed it. Propagate whatever the store holds under the post lock.
	unlock := s.bridge.Lock(created.ID)
	defer unlock()
	if _, err := s.syncCurrent(ctx, created.ID); err != nil {
		s.log.WithError(err).WithField("post_id", created.ID).Error("reload post for indexing")
	}
	return created, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.store.ListPosts(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.store.GetPostByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.store.GetPostBySlug(ctx, slug)
}

// Update applies patch and re-projects the post. The slug stays as it was
// set at creation even when the title changes.
func (s *Service) Update(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	unlock := s.bridge.Lock(id)
	defer unlock()

	var (
		updated *models.Post
		err     error
	)
	if patch.Empty() {
		updated, err = s.store.GetPostByID(ctx, id)
	} else {
		updated, err = s.store.UpdatePost(ctx, id, patch)
	}
	if err != nil {
		return nil, err
	}
	s.bridge.PostSaved(ctx, *updated)
	return updated, nil
}

// Delete removes the record, then its search document. A failure to clean
// the index does not undo or fail the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.bridge.Lock(id)
	defer unlock()

	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	s.bridge.PostDeleted(ctx, id)
	return nil
}

// Search resolves index hits against the record store, keeping relevance
// order. Ids whose record no longer exists are dropped.
func (s *Service) Search(ctx context.Context, query string) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Required("q")
	}
	if s.searcher == nil {
		return nil, ErrSearchDisabled
	}

	ids, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	if len(ids) == 0 {
		return []models.Post{}, nil
	}

	found, err := s.store.GetPostsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Post, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	if dropped := len(ids) - len(out); dropped > 0 {
		s.log.WithField("dropped", dropped).Debug("search returned ids without a record")
	}
	return out, nil
}

type ReindexReport struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Reindex pushes every stored post through the bridge again. It repairs
// documents that missed an earlier propagation; it does not remove stale
// documents for posts deleted while the index was down. Each post is re-read
// under its lock, so a concurrent update or delete is never overwritten by
// the listing snapshot.
func (s *Service) Reindex(ctx context.Context) (ReindexReport, error) {
	var report ReindexReport
	if !s.bridge.Enabled() {
		return report, ErrSearchDisabled
	}
	all, err := s.store.ListPosts(ctx, 0, 0)
	if err != nil {
		return report, err
	}
	for _, listed := range all {
		unlock := s.bridge.Lock(listed.ID)
		res, err := s.syncCurrent(ctx, listed.ID)
		unlock()
		switch {
		case err != nil:
			s.log.WithError(err).WithField("post_id", listed.ID).Error("reload post for reindex")
			report.Failed++
		case !res.OK():
			report.Failed++
		case res.Op == indexsync.OpDelete:
			report.Removed++
		default:
			report.Indexed++
		}
	}
	s.log.WithFields(logrus.Fields{
		"indexed": report.Indexed,
		"removed": report.Removed,
		"failed":  report.Failed,
	}).Info("reindex finished")
	return report, nil
}

// syncCurrent propagates the store's current state of id: its document when
// the post exists, a delete when it is gone. The caller holds the post lock.
func (s *Service) syncCurrent(ctx context.Context, id string) (indexsync.Result, error) {
	post, err := s.store.GetPostByID(ctx, id)
	switch {
	case apperr.IsNotFound(err):
		return s.bridge.PostDeleted(ctx, id), nil
	case err != nil:
		return indexsync.Result{}, err
	}
	return s.bridge.PostSaved(ctx, *post), nil
}

func validateRequired(title, content, author string) error {
	switch {
	case title == "":
		return apperr.Required("title")
	case strings.TrimSpace(content) == "":
		return apperr.Required("content")
	case author == "":
		return apperr.Required("author")
	}
	return nil
}

func validatePatch(patch *models.PostPatch) error {
	trim := func(field string, v *string) error {
		if v == nil {
			return nil
		}
		*v = strings.TrimSpace(*v)
		if *v == "" {
			return &apperr.ValidationError{Field: field, Message: "must not be empty"}
		}
		return nil
	}
	if err := trim("title", patch.Title); err != nil {
		return err
	}
	if err := trim("author", patch.Author); err != nil {
		return err
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return &apperr.ValidationError{Field: "content", Message: "must not be empty"}
	}
	if patch.Image != nil {
		if image := strings.TrimSpace(*patch.Image); image == "" {
			patch.Image = nil
		} else {
			patch.Image = &image
		}
	}
	if patch.Tags != nil {
		tags := normalizeTags(*patch.Tags)
		patch.Tags = &tags
	}
	return nil
}

// normalizeTags guarantees a non-nil list. Order and duplicates are kept.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
