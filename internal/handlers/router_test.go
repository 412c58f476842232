package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BorisDmv/blog-cms/internal/auth"
	"github.com/BorisDmv/blog-cms/internal/auth/authtest"
	"github.com/BorisDmv/blog-cms/internal/indexsync"
	appmiddleware "github.com/BorisDmv/blog-cms/internal/middleware"
	"github.com/BorisDmv/blog-cms/internal/models"
	"github.com/BorisDmv/blog-cms/internal/posts"
	"github.com/BorisDmv/blog-cms/internal/posts/poststest"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	handler http.Handler
	index   *poststest.MemIndex
}

func newTestServer(t *testing.T, configure func(*RouterConfig)) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	index := poststest.NewMemIndex()
	bridge := indexsync.New(index, logger.WithField("component", "indexsync"), time.Second)
	limiter := appmiddleware.NewRateLimiter(5, time.Minute)
	t.Cleanup(limiter.Stop)

	cfg := RouterConfig{
		Logger:             logger,
		Posts:              posts.NewService(poststest.NewMemStore(), bridge, index, logger.WithField("component", "posts")),
		Auth:               auth.NewService(authtest.NewMemUsers(), "test-secret", time.Hour),
		Store:              pinger{},
		Search:             index,
		CorsAllowedOrigins: []string{"*"},
		AdminToken:         "admin-token",
		LoginLimiter:       limiter,
	}
	if configure != nil {
		configure(&cfg)
	}
	return &testServer{handler: NewRouter(cfg), index: index}
}

func (s *testServer) do(method, path, contentType, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, path, body string, header ...string) *httptest.ResponseRecorder {
	return s.do(method, path, "application/json", body, header...)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["message"]
}

const helloBody = `{"title":"Hello World","content":"first post","author":"Aulia Rahma","tags":["intro"]}`

func TestCreateAndFetchPost(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.doJSON(http.MethodPost, "/api/posts", helloBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.PublicPost](t, rec)
	assert.Equal(t, "hello-world", created.Slug)
	assert.Equal(t, []string{"intro"}, created.Tags)
	assert.Nil(t, created.Image)

	rec = s.doJSON(http.MethodGet, "/api/posts/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[models.PublicPost](t, rec).ID)

	rec = s.doJSON(http.MethodGet, "/api/posts/slug/hello-world", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[models.PublicPost](t, rec).ID)
}

func TestCreateWhileSearchDown(t *testing.T) {
	s := newTestServer(t, nil)
	s.index.SetDown(true)

	rec := s.doJSON(http.MethodPost, "/api/posts", helloBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.PublicPost](t, rec)

	rec = s.doJSON(http.MethodGet, "/api/posts/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.doJSON(http.MethodGet, "/api/posts/search?q=hello", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateRejectsDuplicateSlugAndMissingFields(t *testing.T) {
	s := newTestServer(t, nil)

	require.Equal(t, http.StatusCreated, s.doJSON(http.MethodPost, "/api/posts", helloBody).Code)
	rec := s.doJSON(http.MethodPost, "/api/posts", helloBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "hello-world")

	rec = s.doJSON(http.MethodPost, "/api/posts", `{"title":"No body","author":"a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "content: is required", message(t, rec))

	rec = s.doJSON(http.MethodPost, "/api/posts", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFromForm(t *testing.T) {
	s := newTestServer(t, nil)
	form := url.Values{
		"title":   {"Formulir Baru"},
		"content": {"isi"},
		"author":  {"Dimas"},
		"tags":    {"go,web"},
		"tags[]":  {"api"},
		"image":   {"https://img.test/a.jpg"},
	}

	rec := s.do(http.MethodPost, "/api/posts", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.PublicPost](t, rec)
	assert.Equal(t, "formulir-baru", created.Slug)
	assert.Equal(t, []string{"go", "web", "api"}, created.Tags)
	require.NotNil(t, created.Image)
	assert.Equal(t, "https://img.test/a.jpg", *created.Image)
}

func TestTagsAcceptSingleString(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.doJSON(http.MethodPost, "/api/posts", `{"title":"T","content":"c","author":"a","tags":"solo"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"solo"}, decode[models.PublicPost](t, rec).Tags)
}

func TestListNewestFirstWithPaging(t *testing.T) {
	s := newTestServer(t, nil)
	for _, title := range []string{"One", "Two", "Three"} {
		body := `{"title":"` + title + `","content":"c","author":"a"}`
		require.Equal(t, http.StatusCreated, s.doJSON(http.MethodPost, "/api/posts", body).Code)
	}

	rec := s.doJSON(http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]models.PublicPost](t, rec)
	require.Len(t, all, 3)
	assert.Equal(t, "Three", all[0].Title)
	assert.Equal(t, "One", all[2].Title)

	rec = s.doJSON(http.MethodGet, "/api/posts?page=2&limit=2", "")
	page := decode[[]models.PublicPost](t, rec)
	require.Len(t, page, 1)
	assert.Equal(t, "One", page[0].Title)
}

func TestListEmptyIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.doJSON(http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetMissingPost(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.doJSON(http.MethodGet, "/api/posts/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, message(t, rec))

	rec = s.doJSON(http.MethodGet, "/api/posts/slug/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateThenDelete(t *testing.T) {
	s := newTestServer(t, nil)
	created := decode[models.PublicPost](t, s.doJSON(http.MethodPost, "/api/posts", helloBody))

	rec := s.doJSON(http.MethodPut, "/api/posts/"+created.ID, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.PublicPost](t, rec)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "hello-world", updated.Slug)
	assert.Equal(t, "first post", updated.Content)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	rec = s.doJSON(http.MethodGet, "/api/posts/search?q=renamed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.PublicPost](t, rec), 1)

	rec = s.doJSON(http.MethodPut, "/api/posts/"+created.ID, `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.doJSON(http.MethodDelete, "/api/posts/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post deleted successfully", message(t, rec))

	rec = s.doJSON(http.MethodDelete, "/api/posts/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.doJSON(http.MethodPut, "/api/posts/"+created.ID, `{"title":"Gone"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.doJSON(http.MethodGet, "/api/posts/search?q=renamed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.PublicPost](t, rec))
}

func TestUpdateImageNullClearsBlankKeeps(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"title":"T","content":"c","author":"a","image":"https://img.test/a.jpg"}`
	created := decode[models.PublicPost](t, s.doJSON(http.MethodPost, "/api/posts", body))
	require.NotNil(t, created.Image)

	rec := s.doJSON(http.MethodPut, "/api/posts/"+created.ID, `{"image":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	kept := decode[models.PublicPost](t, rec)
	require.NotNil(t, kept.Image)
	assert.Equal(t, "https://img.test/a.jpg", *kept.Image)

	rec = s.doJSON(http.MethodPut, "/api/posts/"+created.ID, `{"title":"T2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[models.PublicPost](t, rec).Image)

	rec = s.doJSON(http.MethodPut, "/api/posts/"+created.ID, `{"image":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[models.PublicPost](t, rec).Image)
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.doJSON(http.MethodGet, "/api/posts/search?q=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchDisabled(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) {
		logger, _ := test.NewNullLogger()
		bridge := indexsync.New(nil, logger.WithField("component", "indexsync"), 0)
		cfg.Posts = posts.NewService(poststest.NewMemStore(), bridge, nil, logger.WithField("component", "posts"))
		cfg.Search = nil
	})

	rec := s.doJSON(http.MethodPost, "/api/posts", helloBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.doJSON(http.MethodGet, "/api/posts/search?q=hello", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.doJSON(http.MethodPost, "/api/admin/reindex", "", "Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.doJSON(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{Status: "ok", Search: "disabled"}, decode[HealthResponse](t, rec))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.doJSON(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{Status: "ok", Search: "ok"}, decode[HealthResponse](t, rec))

	s.index.SetDown(true)
	rec = s.doJSON(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unavailable", decode[HealthResponse](t, rec).Search)

	down := newTestServer(t, func(cfg *RouterConfig) { cfg.Store = pinger{err: errors.New("connection refused")} })
	rec = down.doJSON(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReindexRequiresAdminToken(t *testing.T) {
	s := newTestServer(t, nil)
	s.index.SetDown(true)
	require.Equal(t, http.StatusCreated, s.doJSON(http.MethodPost, "/api/posts", helloBody).Code)
	s.index.SetDown(false)

	rec := s.doJSON(http.MethodPost, "/api/admin/reindex", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.doJSON(http.MethodPost, "/api/admin/reindex", "", "Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, posts.ReindexReport{Indexed: 1}, decode[posts.ReindexReport](t, rec))

	rec = s.doJSON(http.MethodGet, "/api/posts/search?q=hello", "")
	assert.Len(t, decode[[]models.PublicPost](t, rec), 1)

	unmounted := newTestServer(t, func(cfg *RouterConfig) { cfg.AdminToken = "" })
	rec = unmounted.doJSON(http.MethodPost, "/api/admin/reindex", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)
	creds := `{"email":"admin@blog.test","password":"admin123","username":"adminaja"}`

	rec := s.doJSON(http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[models.PublicUser](t, rec)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotContains(t, rec.Body.String(), "admin123")

	rec = s.doJSON(http.MethodPost, "/api/auth/register", creds)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.doJSON(http.MethodPost, "/api/auth/login", `{"email":"admin@blog.test","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[LoginResponse](t, rec)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, user.ID, login.User.ID)

	rec = s.doJSON(http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.Email, decode[models.PublicUser](t, rec).Email)
	assert.Equal(t, http.StatusUnauthorized, s.doJSON(http.MethodGet, "/api/auth/me", "").Code)

	rec = s.doJSON(http.MethodPost, "/api/auth/login", `{"email":"admin@blog.test","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", message(t, rec))
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"email":"nobody@blog.test","password":"x"}`

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.doJSON(http.MethodPost, "/api/auth/login", body).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, s.doJSON(http.MethodPost, "/api/auth/login", body).Code)
}

func TestPostsRequireAuth(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.PostsRequireAuth = true })

	rec := s.doJSON(http.MethodPost, "/api/posts", helloBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusCreated, s.doJSON(http.MethodPost, "/api/auth/register", `{"email":"a@blog.test","password":"pw","username":"a"}`).Code)
	login := decode[LoginResponse](t, s.doJSON(http.MethodPost, "/api/auth/login", `{"email":"a@blog.test","password":"pw"}`))

	rec = s.doJSON(http.MethodPost, "/api/posts", helloBody, "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads stay public.
	assert.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/api/posts", "").Code)
}
