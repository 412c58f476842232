package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/auth"
	appmiddleware "github.com/BorisDmv/blog-cms/internal/middleware"
	"github.com/BorisDmv/blog-cms/internal/models"
)

type AuthHandler struct {
	svc *auth.Service
	log *logrus.Entry
}

func NewAuthHandler(svc *auth.Service, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	user, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		respondErr(w, h.log, err, "failed to register user")
		return
	}
	h.log.WithField("user_id", user.ID).Info("user registered")
	respondJSON(w, http.StatusCreated, user.Public())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password required")
		return
	}
	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, h.log, err, "failed to log in")
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{Token: token, User: user.Public()})
}

// Me answers the account behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := appmiddleware.ClaimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.svc.User(r.Context(), claims.Subject)
	if err != nil {
		respondErr(w, h.log, err, "failed to load user")
		return
	}
	respondJSON(w, http.StatusOK, user.Public())
}
