// Package authtest provides an in-memory user store.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/models"
)

// MemUsers keys users by email, which is unique like in Postgres.
type MemUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewMemUsers() *MemUsers {
	return &MemUsers{users: map[string]models.User{}}
}

func (m *MemUsers) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return nil, &apperr.DuplicateEmailError{Email: u.Email}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	m.users[u.Email] = u
	return &u, nil
}

func (m *MemUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, &apperr.NotFoundError{Resource: "user", ID: email}
	}
	return &u, nil
}

func (m *MemUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, &apperr.NotFoundError{Resource: "user", ID: id}
}

// Get returns the stored user without going through the service.
func (m *MemUsers) Get(email string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	return u, ok
}
