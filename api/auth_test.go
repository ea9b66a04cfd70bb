package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/wellbeing/api"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository/mock"
)

type authBody struct {
	Token string `json:"token"`
	User  *struct {
		ID           int64   `json:"id"`
		Email        string  `json:"email"`
		Role         string  `json:"role"`
		Department   *string `json:"department"`
		PasswordHash string  `json:"password_hash"`
	} `json:"user"`
}

func claimsOf(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	return parsed.Claims.(jwt.MapClaims)
}

func TestAuthHandlers(t *testing.T) {
	register := func(overrides map[string]any) map[string]any {
		body := map[string]any{
			"name":                  "Alice",
			"email":                 "alice@example.com",
			"password":              "s3cretpass",
			"password_confirmation": "s3cretpass",
		}
		for k, v := range overrides {
			if v == nil {
				delete(body, k)
				continue
			}
			body[k] = v
		}
		return body
	}

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		check      func(t *testing.T, env *testEnv, b authBody)
	}{
		{
			name:       "Register_InvalidJSON",
			path:       "/auth/register",
			body:       "not a json",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Register_MissingName",
			path:       "/auth/register",
			body:       register(map[string]any{"name": nil}),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Register_BadEmail",
			path:       "/auth/register",
			body:       register(map[string]any{"email": "not-an-email"}),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Register_ShortPassword",
			path:       "/auth/register",
			body:       register(map[string]any{"password": "short", "password_confirmation": "short"}),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Register_ConfirmationMismatch",
			path:       "/auth/register",
			body:       register(map[string]any{"password_confirmation": "different1"}),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Register_DuplicateEmail",
			path:       "/auth/register",
			body:       register(map[string]any{"email": "EMP@example.com"}),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Register_Success",
			path:       "/auth/register",
			body:       register(map[string]any{"department": "Sales", "role": "admin"}),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, env *testEnv, b authBody) {
				if b.User == nil || b.User.Role != models.RoleEmployee {
					t.Fatalf("expected an employee user, got %+v", b.User)
				}
				if b.User.PasswordHash != "" {
					t.Fatalf("password hash leaked")
				}
				if b.User.Department == nil || *b.User.Department != "Sales" {
					t.Fatalf("department not stored: %+v", b.User.Department)
				}
				claims := claimsOf(t, b.Token)
				if claims["role"] != models.RoleEmployee || int64(claims["user_id"].(float64)) != b.User.ID {
					t.Fatalf("unexpected claims %v", claims)
				}
				u, _ := env.store.GetUserByEmail(context.Background(), "alice@example.com")
				if u == nil || u.PasswordHash == "s3cretpass" {
					t.Fatalf("expected a hashed password to be stored")
				}
			},
		},
		{
			name:       "Login_MissingFields",
			path:       "/auth/login",
			body:       map[string]string{"email": "emp@example.com"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Login_UnknownEmail",
			path:       "/auth/login",
			body:       map[string]string{"email": "nobody@example.com", "password": testPassword},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Login_WrongPassword",
			path:       "/auth/login",
			body:       map[string]string{"email": "emp@example.com", "password": "wrongpass"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Login_AdminAccountRejected",
			path:       "/auth/login",
			body:       map[string]string{"email": "admin@example.com", "password": testPassword},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "Login_Success",
			path:       "/auth/login",
			body:       map[string]string{"email": "emp@example.com", "password": testPassword},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, env *testEnv, b authBody) {
				claims := claimsOf(t, b.Token)
				if int64(claims["user_id"].(float64)) != env.employee || claims["role"] != models.RoleEmployee {
					t.Fatalf("unexpected claims %v", claims)
				}
				if _, ok := claims["exp"]; !ok {
					t.Fatalf("token has no expiry")
				}
			},
		},
		{
			name:       "AdminLogin_EmployeeRejected",
			path:       "/admin/login",
			body:       map[string]string{"email": "emp@example.com", "password": testPassword},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "AdminLogin_WrongPassword",
			path:       "/admin/login",
			body:       map[string]string{"email": "admin@example.com", "password": "nope-nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "AdminLogin_Success",
			path:       "/admin/login",
			body:       map[string]string{"email": "admin@example.com", "password": testPassword},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, env *testEnv, b authBody) {
				if claimsOf(t, b.Token)["role"] != models.RoleAdmin {
					t.Fatalf("expected admin token")
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t)
			w := env.do(t, http.MethodPost, tc.path, "", tc.body)
			wantStatus(t, w, tc.wantStatus)

			if tc.wantStatus != http.StatusOK {
				body := decode[map[string]string](t, w)
				if body["error"] == "" {
					t.Fatalf("expected an error message, got %v", body)
				}
				return
			}
			if tc.check != nil {
				tc.check(t, env, decode[authBody](t, w))
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/auth/refresh", "", nil)
	wantStatus(t, w, http.StatusUnauthorized)

	w = env.do(t, http.MethodPost, "/auth/refresh", env.employeeToken(t), nil)
	wantStatus(t, w, http.StatusOK)
	b := decode[authBody](t, w)
	if int64(claimsOf(t, b.Token)["user_id"].(float64)) != env.employee {
		t.Fatalf("refreshed token is for the wrong user")
	}

	// token for a user that no longer exists
	ghost := signToken(t, 9999, models.RoleEmployee, time.Now().Add(time.Hour))
	w = env.do(t, http.MethodPost, "/auth/refresh", ghost, nil)
	wantStatus(t, w, http.StatusUnauthorized)
}

// reloadFailingUsers stores users but fails or forgets them on reload.
type reloadFailingUsers struct {
	*mock.Store
	err error
}

func (u *reloadFailingUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return nil, u.err
}

func TestRegister_ReloadFailure(t *testing.T) {
	body := `{"name":"Bob","email":"bob@example.com","password":"s3cretpass","password_confirmation":"s3cretpass"}`

	for name, reloadErr := range map[string]error{
		"StoreError": errors.New("disk I/O error"),
		"Missing":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			users := &reloadFailingUsers{Store: mock.NewStore(), err: reloadErr}
			h := api.NewAuthHandler(users, testSecret, time.Hour)

			w := httptest.NewRecorder()
			h.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body)))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "disk") {
				t.Fatalf("store error leaked: %s", w.Body.String())
			}
		})
	}
}
