package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/models"
)

const userColumns = `id::text, username, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// User persistence
func (s *Store) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'user'))
		RETURNING ` + userColumns

	created, err := scanUser(s.pool.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role))
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == usersEmailConstraint {
			return nil, &apperr.DuplicateEmailError{Email: user.Email}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userNotFound(email)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := s.checkPool(); err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, userNotFound(id)
	}
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userNotFound(id)
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}
