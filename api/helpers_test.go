package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/wellbeing/api"
	"github.com/garnizeh/wellbeing/internal/analysis"
	"github.com/garnizeh/wellbeing/internal/config"
	"github.com/garnizeh/wellbeing/internal/stats"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
	"github.com/garnizeh/wellbeing/pkg/repository/mock"
)

const (
	testSecret   = "testsecret"
	testPassword = "password1"
	validResult  = `{"stress_score":40,"motivation_score":70,"satisfaction_score":65,"global_score":62,"risk_level":"medium","recommendations":["take breaks"],"summary":"Moderate stress."}`
)

type stubScorer struct {
	reply string
	err   error
}

func (s *stubScorer) Score(ctx context.Context, transcript string) (string, error) {
	return s.reply, s.err
}

type testEnv struct {
	router    *mux.Router
	store     *mock.Store
	stats     *mock.Stats
	scorer    *stubScorer
	employee  int64
	other     int64
	admin     int64
	questions []int64
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := mock.NewStore()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	dept := "Engineering"
	mustUser := func(email, role string) int64 {
		id, err := store.CreateUser(ctx, &models.User{Name: email, Email: email, PasswordHash: string(hash), Role: role, Department: &dept})
		if err != nil {
			t.Fatalf("create user %s: %v", email, err)
		}
		return id
	}

	env := &testEnv{
		store:    store,
		stats:    &mock.Stats{Summary: repository.GlobalSummary{Count: 2, Average: ptr(65.0)}, Risk: map[string]int64{"low": 2}},
		scorer:   &stubScorer{reply: validResult},
		employee: mustUser("emp@example.com", models.RoleEmployee),
		other:    mustUser("other@example.com", models.RoleEmployee),
		admin:    mustUser("admin@example.com", models.RoleAdmin),
	}

	for _, q := range []models.Question{
		{Text: "How stressed are you?", Category: models.CategoryStress, Type: models.QuestionTypeLikert, Active: true},
		{Text: "Do you feel motivated?", Category: models.CategoryMotivation, Type: models.QuestionTypeYesNo, Active: true},
		{Text: "Retired question", Category: models.CategorySatisfaction, Type: models.QuestionTypeText, Active: false},
	} {
		id, err := store.CreateQuestion(ctx, &q)
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
		env.questions = append(env.questions, id)
	}

	validator, err := analysis.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	cfg := &config.Config{JWTSecret: testSecret, TokenDuration: time.Hour}
	env.router = api.SetupRoutes(cfg, "test", "now", api.Dependencies{
		Users:     store,
		Questions: store,
		Responses: store,
		Analyzer:  analysis.NewCoordinator(store, store, env.scorer, validator, nil),
		Stats:     stats.NewAggregator(env.stats, nil),
	})

	return env
}

func ptr[T any](v T) *T { return &v }

func signToken(t *testing.T, userID int64, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     exp.Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func futureHour() time.Time { return time.Now().Add(time.Hour) }

func (e *testEnv) employeeToken(t *testing.T) string {
	return signToken(t, e.employee, models.RoleEmployee, time.Now().Add(time.Hour))
}

func (e *testEnv) adminToken(t *testing.T) string {
	return signToken(t, e.admin, models.RoleAdmin, time.Now().Add(time.Hour))
}

// do sends body (marshalled unless it is a string) through the router.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}
