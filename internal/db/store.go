package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BorisDmv/blog-cms/internal/apperr"
)

const (
	postsSlugConstraint  = "posts_slug_key"
	usersEmailConstraint = "users_email_key"
)

type Store struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying pgxpool.Pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkPool(); err != nil {
		return err
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// isUUID guards id lookups: a malformed id cannot name a row, and passing it
// to Postgres would fail the cast instead of finding nothing.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// uniqueViolation returns the violated constraint name, if err is one.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// classifyPostWrite turns store failures into service errors where they
// have a meaning for callers.
func classifyPostWrite(err error, slug *string) error {
	if constraint, ok := uniqueViolation(err); ok && constraint == postsSlugConstraint {
		dup := &apperr.DuplicateSlugError{}
		if slug != nil {
			dup.Slug = *slug
		}
		return dup
	}
	return err
}

func postNotFound(id string) error {
	return &apperr.NotFoundError{Resource: "post", ID: id}
}

func userNotFound(id string) error {
	return &apperr.NotFoundError{Resource: "user", ID: id}
}

func (s *Store) checkPool() error {
	if s.pool == nil {
		return errors.New("db not initialized")
	}
	return nil
}
