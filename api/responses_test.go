package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/pkg/models"
)

type submitBody struct {
	ResponseID      int64    `json:"response_id"`
	PreparedAnswers []string `json:"prepared_answers"`
	models.AnalysisResult
}

func (e *testEnv) submitBody() map[string]any {
	return map[string]any{"answers": []map[string]any{
		{"question_id": e.questions[0], "answer_value": 4},
		{"question_id": e.questions[1], "answer_value": "yes"},
	}}
}

func TestListQuestions(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/questions", "", nil)
	wantStatus(t, w, http.StatusUnauthorized)

	for _, token := range []string{env.employeeToken(t), env.adminToken(t)} {
		w = env.do(t, http.MethodGet, "/questions", token, nil)
		wantStatus(t, w, http.StatusOK)
		qs := decode[[]models.Question](t, w)
		require.Len(t, qs, 2, "inactive questions must be hidden")
		assert.Equal(t, "How stressed are you?", qs[0].Text)
	}
}

func TestSubmitResponse(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), env.submitBody())
	wantStatus(t, w, http.StatusCreated)

	got := decode[submitBody](t, w)
	assert.NotZero(t, got.ResponseID)
	assert.Equal(t, 62, got.GlobalScore)
	assert.Equal(t, models.RiskMedium, got.RiskLevel)
	assert.Equal(t, []string{"take breaks"}, got.Recommendations)
	assert.Equal(t, []string{
		"Q: How stressed are you? (Category: stress, Type: likert)\nA: 4",
		"Q: Do you feel motivated? (Category: motivation, Type: yes_no)\nA: yes",
	}, got.PreparedAnswers)

	stored, err := env.store.GetResponse(context.Background(), got.ResponseID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, env.employee, stored.UserID)
	assert.True(t, stored.Scored())
}

func TestSubmitResponse_Failures(t *testing.T) {
	tests := []struct {
		name       string
		admin      bool
		body       any
		prepare    func(env *testEnv)
		wantStatus int
		wantError  string
	}{
		{
			name:       "InvalidJSON",
			body:       "{",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "NoAnswers",
			body:       map[string]any{"answers": []any{}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "UnknownQuestion",
			body:       map[string]any{"answers": []map[string]any{{"question_id": 4242, "answer_value": "x"}}},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "4242",
		},
		{
			name:       "MissingValue",
			body:       map[string]any{"answers": []map[string]any{{"question_id": 4}}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "AdminCannotSubmit",
			admin:      true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "ScoringUnavailable",
			prepare:    func(env *testEnv) { env.scorer.err = fmt.Errorf("%w: gemini returned 503: quota body", apperr.ErrScoringUnavailable) },
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "MalformedOutput",
			prepare:    func(env *testEnv) { env.scorer.reply = "I am not JSON" },
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "SchemaViolation",
			prepare:    func(env *testEnv) { env.scorer.reply = `{"stress_score":400}` },
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t)
			if tc.prepare != nil {
				tc.prepare(env)
			}
			body := tc.body
			if body == nil {
				body = env.submitBody()
			}
			token := env.employeeToken(t)
			if tc.admin {
				token = env.adminToken(t)
			}

			w := env.do(t, http.MethodPost, "/responses", token, body)
			wantStatus(t, w, tc.wantStatus)

			msg := decode[map[string]string](t, w)["error"]
			require.NotEmpty(t, msg)
			if tc.wantError != "" {
				assert.Contains(t, msg, tc.wantError)
			}
			if tc.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, msg, "quota body")
				assert.NotContains(t, msg, "I am not JSON")
			}
		})
	}
}

func TestSubmitResponse_ScoringFailureKeepsDraft(t *testing.T) {
	env := newEnv(t)
	env.scorer.err = apperr.ErrScoringUnavailable

	w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), env.submitBody())
	wantStatus(t, w, http.StatusInternalServerError)

	w = env.do(t, http.MethodGet, "/responses/history", env.employeeToken(t), nil)
	wantStatus(t, w, http.StatusOK)
	history := decode[[]models.Response](t, w)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].GlobalScore)
	assert.Nil(t, history[0].Summary)
}

func TestAnalyzeResponse(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), env.submitBody())
	wantStatus(t, w, http.StatusCreated)
	sub := decode[submitBody](t, w)

	env.scorer.reply = `{"stress_score":90,"motivation_score":10,"satisfaction_score":20,"global_score":15,"risk_level":"high","recommendations":["talk to someone"],"summary":"High stress."}`
	body := map[string]any{"response_id": sub.ResponseID, "prepared_answers": sub.PreparedAnswers}

	tests := []struct {
		name       string
		token      string
		body       any
		wantStatus int
	}{
		{"NoToken", "", body, http.StatusUnauthorized},
		{"MissingResponseID", env.employeeToken(t), map[string]any{"prepared_answers": sub.PreparedAnswers}, http.StatusUnprocessableEntity},
		{"MissingAnswers", env.employeeToken(t), map[string]any{"response_id": sub.ResponseID}, http.StatusUnprocessableEntity},
		{"UnknownResponse", env.employeeToken(t), map[string]any{"response_id": 999999, "prepared_answers": sub.PreparedAnswers}, http.StatusNotFound},
		{"NotOwner", signToken(t, env.other, models.RoleEmployee, futureHour()), body, http.StatusForbidden},
		{"Owner", env.employeeToken(t), body, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/responses/analyze", tc.token, tc.body)
			wantStatus(t, w, tc.wantStatus)
		})
	}

	stored, _ := env.store.GetResponse(context.Background(), sub.ResponseID)
	require.NotNil(t, stored.GlobalScore)
	assert.Equal(t, 15, *stored.GlobalScore)
	assert.Equal(t, models.RiskHigh, *stored.Risk)
}

func TestAnalyzeResponse_Conflict(t *testing.T) {
	env := newEnv(t)
	w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), env.submitBody())
	wantStatus(t, w, http.StatusCreated)
	sub := decode[submitBody](t, w)

	env.store.ApplyErr = fmt.Errorf("%w: response %d", apperr.ErrConcurrentModification, sub.ResponseID)
	w = env.do(t, http.MethodPost, "/responses/analyze", env.employeeToken(t), map[string]any{
		"response_id": sub.ResponseID, "prepared_answers": sub.PreparedAnswers,
	})
	wantStatus(t, w, http.StatusConflict)
}

func TestHistoryAndShow(t *testing.T) {
	env := newEnv(t)
	for range 2 {
		w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), env.submitBody())
		wantStatus(t, w, http.StatusCreated)
	}

	w := env.do(t, http.MethodGet, "/responses/history", env.employeeToken(t), nil)
	wantStatus(t, w, http.StatusOK)
	history := decode[[]models.Response](t, w)
	require.Len(t, history, 2)
	assert.Greater(t, history[0].ID, history[1].ID, "newest first")

	// another employee sees an empty history, not null
	w = env.do(t, http.MethodGet, "/responses/history", signToken(t, env.other, models.RoleEmployee, futureHour()), nil)
	wantStatus(t, w, http.StatusOK)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	path := fmt.Sprintf("/responses/%d", history[0].ID)
	w = env.do(t, http.MethodGet, path, env.employeeToken(t), nil)
	wantStatus(t, w, http.StatusOK)
	detail := decode[struct {
		ID            int64                       `json:"id"`
		GlobalScore   *int                        `json:"global_score"`
		ResponseItems []models.ResponseItemDetail `json:"response_items"`
	}](t, w)
	assert.Equal(t, history[0].ID, detail.ID)
	require.Len(t, detail.ResponseItems, 2)
	require.NotNil(t, detail.ResponseItems[0].Question)
	assert.Equal(t, "4", detail.ResponseItems[0].AnswerValue)

	w = env.do(t, http.MethodGet, path, signToken(t, env.other, models.RoleEmployee, futureHour()), nil)
	wantStatus(t, w, http.StatusForbidden)

	w = env.do(t, http.MethodGet, "/responses/987654", env.employeeToken(t), nil)
	wantStatus(t, w, http.StatusNotFound)

	w = env.do(t, http.MethodGet, "/responses/abc", env.employeeToken(t), nil)
	wantStatus(t, w, http.StatusNotFound)
}

func TestStatusMapping(t *testing.T) {
	env := newEnv(t)
	env.store.CreateResponseErr = errors.New("database is locked")

	w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), env.submitBody())
	wantStatus(t, w, http.StatusInternalServerError)
	assert.NotContains(t, w.Body.String(), "locked")
}

func TestSubmitResponse_OversizedBody(t *testing.T) {
	env := newEnv(t)

	body := map[string]any{"answers": []map[string]any{
		{"question_id": env.questions[0], "answer_value": strings.Repeat("a", 2<<20)},
	}}
	w := env.do(t, http.MethodPost, "/responses", env.employeeToken(t), body)
	wantStatus(t, w, http.StatusUnprocessableEntity)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "exceeds")

	history, err := env.store.ListResponsesByUser(context.Background(), env.employee)
	require.NoError(t, err)
	assert.Empty(t, history)
}
