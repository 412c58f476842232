// Package search keeps the full-text projection of posts in Elasticsearch.
// The index is derived data: it answers queries with post ids only and the
// record store stays the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/BorisDmv/blog-cms/internal/models"
)

var (
	// ErrUnavailable wraps transport failures and 5xx answers from the
	// cluster. It is distinct from a query that matched nothing.
	ErrUnavailable = errors.New("search index unavailable")
	// ErrNotFound is returned by Delete when the document is absent.
	ErrNotFound = errors.New("search document not found")
)

// ResponseError is a non-2xx answer that is not an availability problem.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("search index responded %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type Index struct {
	client *elasticsearch.Client
	name   string
}

func New(cfg Config) (*Index, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("search: no addresses configured")
	}
	name := cfg.Index
	if name == "" {
		name = "posts"
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}
	return &Index{client: client, name: name}, nil
}

func (i *Index) Name() string {
	return i.name
}

// Ping checks cluster health. A red cluster counts as unavailable.
func (i *Index) Ping(ctx context.Context) error {
	res, err := i.client.Cluster.Health(i.client.Cluster.Health.WithContext(ctx))
	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	defer res.Body.Close()

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode cluster health: %w", err)
	}
	if health.Status == "red" {
		return fmt.Errorf("cluster health is red: %w", ErrUnavailable)
	}
	return nil
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "title":       {"type": "text"},
      "content":     {"type": "text"},
      "author_name": {"type": "text"}
    }
  }
}`

// EnsureIndex creates the index with its text mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) (created bool, err error) {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("index exists: %w", errors.Join(ErrUnavailable, err))
	}
	switch res.StatusCode {
	case http.StatusOK:
		res.Body.Close()
		return false, nil
	case http.StatusNotFound:
		res.Body.Close()
	default:
		defer res.Body.Close()
		return false, fmt.Errorf("index exists: %w", statusError(res))
	}

	res, err = i.client.Indices.Create(
		i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err := checkResponse(res, err); err != nil {
		return false, fmt.Errorf("create index %s: %w", i.name, err)
	}
	res.Body.Close()
	return true, nil
}

// Put creates or replaces the document for id and refreshes the index so
// the document is searchable once Put returns.
func (i *Index) Put(ctx context.Context, id string, doc models.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	res, err := i.client.Index(
		i.name,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(id),
		i.client.Index.WithRefresh("true"),
		i.client.Index.WithContext(ctx),
	)
	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	res.Body.Close()
	return nil
}

// Delete removes the document for id. It returns ErrNotFound when there is
// nothing to remove.
func (i *Index) Delete(ctx context.Context, id string) error {
	res, err := i.client.Delete(
		i.name,
		id,
		i.client.Delete.WithRefresh("true"),
		i.client.Delete.WithContext(ctx),
	)
	if err == nil && res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return fmt.Errorf("delete document %s: %w", id, ErrNotFound)
	}
	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	res.Body.Close()
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a fuzzy multi-field match and returns document ids ordered by
// descending relevance. No match yields an empty slice and a nil error.
func (i *Index) Search(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title", "content", "author_name"},
				"fuzziness": "AUTO",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithSource("false"),
	)
	if err := checkResponse(res, err); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer res.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// checkResponse folds a transport error or an error status into one error.
// On success the caller owns res.Body.
func checkResponse(res *esapi.Response, err error) error {
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if res.IsError() {
		defer res.Body.Close()
		return statusError(res)
	}
	return nil
}

func statusError(res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("status %d: %w", res.StatusCode, ErrUnavailable)
	}
	return &ResponseError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(raw))}
}
