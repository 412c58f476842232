package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Claims is the payload of the bearer tokens issued at login.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewService(users UserStore, secret string, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

// EnsureAdmin creates an admin account unless one already exists for the
// email. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, in RegisterInput) (bool, error) {
	_, err := s.create(ctx, in, models.RoleAdmin)
	var dup *apperr.DuplicateEmailError
	if errors.As(err, &dup) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) create(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	switch {
	case email == "":
		return nil, apperr.Required("email")
	case in.Password == "":
		return nil, apperr.Required("password")
	case username == "":
		return nil, apperr.Required("username")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &apperr.ValidationError{Field: "email", Message: "is not a valid address"}
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, &apperr.DuplicateEmailError{Email: email}
	case err != nil && !apperr.IsNotFound(err):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Login checks the credentials and issues a signed token. Unknown email and
// wrong password fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, "", apperr.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return user, signed, nil
}

// User returns the account a token subject refers to.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// ParseToken validates an HS256 token issued by Login.
func (s *Service) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
