package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BorisDmv/blog-cms/internal/models"
)

const postColumns = `
	id::text,
	title,
	slug,
	content,
	author,
	COALESCE(tags, '{}'::text[]),
	image,
	created_at,
	updated_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Content,
		&post.Author,
		&post.Tags,
		&post.Image,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	defer rows.Close()
	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return posts, nil
}

// ListPosts returns posts newest first. A limit of zero returns every post.
func (s *Store) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	query := `SELECT ` + postColumns + `
		FROM posts
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, query, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, postNotFound(id)
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postNotFound(id)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`
	post, err := scanPost(s.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postNotFound(slug)
		}
		return nil, fmt.Errorf("get post by slug: %w", err)
	}
	return post, nil
}

// GetPostsByIDs returns the posts that exist among ids, in no particular
// order. Unknown and malformed ids are skipped.
func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []models.Post{}, nil
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE id::text = ANY($1::text[])`
	rows, err := s.pool.Query(ctx, query, valid)
	if err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}
	return collectPosts(rows)
}

func (s *Store) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO posts (title, slug, content, author, tags, image)
		VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::text[]), $6)
		RETURNING ` + postColumns

	created, err := scanPost(s.pool.QueryRow(
		ctx,
		query,
		post.Title,
		post.Slug,
		post.Content,
		post.Author,
		post.Tags,
		post.Image,
	))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", classifyPostWrite(err, post.Slug))
	}
	return created, nil
}

// UpdatePost applies the non-nil fields of patch and refreshes updated_at.
// The slug is never touched.
func (s *Store) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, postNotFound(id)
	}
	query := `
		UPDATE posts SET
			title = COALESCE($2, title),
			content = COALESCE($3, content),
			author = COALESCE($4, author),
			tags = COALESCE($5, tags),
			image = CASE WHEN $7 THEN NULL ELSE COALESCE($6, image) END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + postColumns

	updated, err := scanPost(s.pool.QueryRow(
		ctx,
		query,
		id,
		patch.Title,
		patch.Content,
		patch.Author,
		patch.Tags,
		patch.Image,
		patch.ClearImage,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postNotFound(id)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return updated, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := s.checkPool(); err != nil {
		return err
	}
	if !isUUID(id) {
		return postNotFound(id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return postNotFound(id)
	}
	return nil
}
