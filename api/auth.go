package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

const minPasswordLength = 8

type AuthHandler struct {
	userRepo      repository.UserRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type registerRequest struct {
	Name                 string  `json:"name"`
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	Department           *string `json:"department"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

func (req *registerRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case req.Name == "":
		return apperr.Validation("name is required")
	case len(req.Name) > 255:
		return apperr.Validation("name is too long")
	case req.Email == "":
		return apperr.Validation("email is required")
	case len(req.Password) < minPasswordLength:
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	case req.Password != req.PasswordConfirmation:
		return apperr.Validation("password confirmation does not match")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperr.Validation("email is invalid")
	}
	if req.Department != nil {
		d := strings.TrimSpace(*req.Department)
		if d == "" {
			req.Department = nil
		} else {
			req.Department = &d
		}
	}

	return nil
}

// Register creates an employee account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	existing, err := h.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, r, fmt.Errorf("lookup email: %w", err))
		return
	}
	if existing != nil {
		writeError(w, r, apperr.Validation("email has already been taken"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, fmt.Errorf("hash password: %w", err))
		return
	}

	// self-registration never grants admin
	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleEmployee,
		Department:   req.Department,
	}
	id, err := h.userRepo.CreateUser(ctx, &user)
	if err != nil {
		writeError(w, r, fmt.Errorf("create user: %w", err))
		return
	}

	created, err := h.userRepo.GetUserByID(ctx, id)
	if err != nil {
		writeError(w, r, fmt.Errorf("reload user %d: %w", id, err))
		return
	}
	if created == nil {
		writeError(w, r, fmt.Errorf("reload user %d: not found after insert", id))
		return
	}

	logger.Info("user registered", slog.Int64("user_id", id))
	h.issue(w, r, created)
}

// Login signs in an employee.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleEmployee)
}

// AdminLogin signs in an administrator.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleAdmin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role string) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("email and password are required"))
		return
	}

	user, err := h.userRepo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, fmt.Errorf("lookup user: %w", err))
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, r, apperr.Unauthenticated("invalid credentials"))
		return
	}
	if user.Role != role {
		writeError(w, r, apperr.Authorization("account is not an %s account", role))
		return
	}

	h.issue(w, r, user)
}

// Refresh issues a new token for the authenticated caller.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated("no identity"))
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, fmt.Errorf("lookup user: %w", err))
		return
	}
	if user == nil {
		writeError(w, r, apperr.Unauthenticated("user no longer exists"))
		return
	}

	tokenStr, err := h.sign(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, authResponse{Token: tokenStr}, http.StatusOK)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user *models.User) {
	tokenStr, err := h.sign(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, authResponse{Token: tokenStr, User: user}, http.StatusOK)
}

func (h *AuthHandler) sign(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenStr, nil
}
