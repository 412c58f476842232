package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Post is the authoritative record kept in the store. Slug is nil when the
// post has none; only non-nil slugs take part in the uniqueness constraint.
type Post struct {
	ID        string
	Title     string
	Slug      *string
	Content   string
	Author    string
	Tags      []string
	Image     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostPatch carries the fields of an update. Nil fields are left untouched.
type PostPatch struct {
	Title   *string
	Content *string
	Author  *string
	Tags    *[]string
	Image   *string

	// ClearImage removes the image. It wins over Image.
	ClearImage bool
}

func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Author == nil && p.Tags == nil && p.Image == nil && !p.ClearImage
}

// PublicPost is the JSON shape handed to API clients.
type PublicPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Post) Public() PublicPost {
	out := PublicPost{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    p.Author,
		Tags:      p.Tags,
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Slug != nil {
		out.Slug = *p.Slug
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// SearchDocument is the denormalized projection of a post stored in the
// search index, keyed by the post id.
type SearchDocument struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	AuthorName string `json:"author_name"`
}

func (p Post) SearchDocument() SearchDocument {
	return SearchDocument{
		Title:      p.Title,
		Content:    p.Content,
		AuthorName: p.Author,
	}
}

// Tags decodes either a JSON array of strings or a single string. A null
// or empty value decodes to an empty list.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*t = Tags{}
	case string:
		if v == "" {
			*t = Tags{}
		} else {
			*t = Tags{v}
		}
	case []interface{}:
		out := make(Tags, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("tags: expected string, got %T", item)
			}
			out = append(out, s)
		}
		*t = out
	default:
		return fmt.Errorf("tags: expected string or array, got %T", raw)
	}
	return nil
}
