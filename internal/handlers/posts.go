package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/models"
	"github.com/BorisDmv/blog-cms/internal/posts"
	"github.com/BorisDmv/blog-cms/internal/search"
)

const (
	maxBodyBytes = 1 << 20
	maxPageLimit = 100
	defaultLimit = 10
)

type PostsHandler struct {
	svc *posts.Service
	log *logrus.Entry
}

func NewPostsHandler(svc *posts.Service, log *logrus.Entry) *PostsHandler {
	return &PostsHandler{svc: svc, log: log}
}

type CreatePostRequest struct {
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Content string      `json:"content"`
	Author  string      `json:"author"`
	Tags    models.Tags `json:"tags"`
	Image   string      `json:"image"`
}

type UpdatePostRequest struct {
	Title   *string        `json:"title"`
	Content *string        `json:"content"`
	Author  *string        `json:"author"`
	Tags    *models.Tags   `json:"tags"`
	Image   optionalString `json:"image"`
}

// optionalString tells an absent field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// patch maps the request onto a PostPatch. "image": null clears the image;
// a blank image string leaves it unchanged.
func (req UpdatePostRequest) patch() models.PostPatch {
	patch := models.PostPatch{
		Title:      req.Title,
		Content:    req.Content,
		Author:     req.Author,
		Image:      req.Image.Value,
		ClearImage: req.Image.Set && req.Image.Value == nil,
	}
	if req.Tags != nil {
		tags := []string(*req.Tags)
		patch.Tags = &tags
	}
	return patch
}

func publicPosts(list []models.Post) []models.PublicPost {
	out := make([]models.PublicPost, 0, len(list))
	for _, p := range list {
		out = append(out, p.Public())
	}
	return out
}

// List answers every post newest first. page and limit are optional; without
// a limit the whole collection is returned.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 0)
	if limit == 0 && page > 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	list, err := h.svc.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		respondErr(w, h.log, err, "failed to load posts")
		return
	}
	respondJSON(w, http.StatusOK, publicPosts(list))
}

func (h *PostsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		query = r.URL.Query().Get("query")
	}

	found, err := h.svc.Search(r.Context(), query)
	switch {
	case errors.Is(err, posts.ErrSearchDisabled):
		respondError(w, http.StatusServiceUnavailable, "search is not available")
		return
	case errors.Is(err, search.ErrUnavailable):
		h.log.WithError(err).Warn("search query failed")
		respondError(w, http.StatusServiceUnavailable, "search is not available")
		return
	case err != nil:
		respondErr(w, h.log, err, "failed to search posts")
		return
	}
	respondJSON(w, http.StatusOK, publicPosts(found))
}

func (h *PostsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, h.log, err, "failed to load post")
		return
	}
	respondJSON(w, http.StatusOK, post.Public())
}

func (h *PostsHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "missing slug")
		return
	}
	post, err := h.svc.GetBySlug(r.Context(), slug)
	if err != nil {
		respondErr(w, h.log, err, "failed to load post")
		return
	}
	respondJSON(w, http.StatusOK, post.Public())
}

func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			respondError(w, http.StatusBadRequest, "invalid body")
			return
		}
		req = CreatePostRequest{
			Title:   r.FormValue("title"),
			Slug:    r.FormValue("slug"),
			Content: r.FormValue("content"),
			Author:  r.FormValue("author"),
			Tags:    formTags(r),
			Image:   r.FormValue("image"),
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	created, err := h.svc.Create(r.Context(), posts.CreateInput{
		Title:   req.Title,
		Slug:    req.Slug,
		Content: req.Content,
		Author:  req.Author,
		Tags:    req.Tags,
		Image:   req.Image,
	})
	if err != nil {
		respondErr(w, h.log, err, "failed to create post")
		return
	}
	respondJSON(w, http.StatusCreated, created.Public())
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePostRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			respondError(w, http.StatusBadRequest, "invalid body")
			return
		}
		req = UpdatePostRequest{
			Title:   formField(r, "title"),
			Content: formField(r, "content"),
			Author:  formField(r, "author"),
			Image:   optionalString{Value: formField(r, "image")},
		}
		if _, ok := r.Form["tags"]; ok {
			tags := formTags(r)
			req.Tags = &tags
		} else if _, ok := r.Form["tags[]"]; ok {
			tags := formTags(r)
			req.Tags = &tags
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		respondErr(w, h.log, err, "failed to update post")
		return
	}
	respondJSON(w, http.StatusOK, updated.Public())
}

func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, h.log, err, "failed to delete post")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

// Reindex pushes every stored post to the search index again.
func (h *PostsHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reindex(r.Context())
	if errors.Is(err, posts.ErrSearchDisabled) {
		respondError(w, http.StatusServiceUnavailable, "search is not available")
		return
	}
	if err != nil {
		respondErr(w, h.log, err, "failed to reindex posts")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded"
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

func formField(r *http.Request, key string) *string {
	values, ok := r.Form[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// formTags reads repeated tags or tags[] fields. A single field may hold a
// comma separated list.
func formTags(r *http.Request) models.Tags {
	values := append(append([]string{}, r.Form["tags"]...), r.Form["tags[]"]...)
	tags := make(models.Tags, 0, len(values))
	for _, v := range values {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return tags
}
