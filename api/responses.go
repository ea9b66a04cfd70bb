package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/wellbeing/internal/analysis"
	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// Analyzer runs the submission pipeline.
type Analyzer interface {
	Submit(ctx context.Context, caller models.Identity, answers []models.Answer) (*analysis.Submission, error)
	Analyze(ctx context.Context, caller models.Identity, responseID int64, lines []string) (*models.AnalysisResult, error)
}

type ResponsesHandler struct {
	analyzer     Analyzer
	responseRepo repository.ResponseRepo
}

func NewResponsesHandler(a Analyzer, rr repository.ResponseRepo) *ResponsesHandler {
	return &ResponsesHandler{analyzer: a, responseRepo: rr}
}

// answerValue accepts a JSON string, number or boolean and keeps its text.
type answerValue string

func (v *answerValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = answerValue(s)
		return nil
	}
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*v = answerValue(b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("answer_value must be a string, number or boolean")
		}
		*v = answerValue(n.String())
	}
	return nil
}

type submitRequest struct {
	Answers []struct {
		QuestionID  int64       `json:"question_id"`
		AnswerValue answerValue `json:"answer_value"`
	} `json:"answers"`
}

type submitResponse struct {
	ResponseID      int64    `json:"response_id"`
	PreparedAnswers []string `json:"prepared_answers"`
	*models.AnalysisResult
}

type analyzeRequest struct {
	ResponseID      int64    `json:"response_id"`
	PreparedAnswers []string `json:"prepared_answers"`
}

type responseDetail struct {
	models.Response
	ResponseItems []models.ResponseItemDetail `json:"response_items"`
}

// Submit stores the caller's answers and returns the analysis.
func (h *ResponsesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated("no identity"))
		return
	}

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	answers := make([]models.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, models.Answer{QuestionID: a.QuestionID, Value: string(a.AnswerValue)})
	}

	sub, err := h.analyzer.Submit(r.Context(), caller, answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, submitResponse{
		ResponseID:      sub.ResponseID,
		PreparedAnswers: sub.PreparedAnswers,
		AnalysisResult:  sub.Result,
	}, http.StatusCreated)
}

// Analyze re-runs scoring for one of the caller's responses.
func (h *ResponsesHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated("no identity"))
		return
	}

	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), caller, req.ResponseID, req.PreparedAnswers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, result, http.StatusOK)
}

// History lists the caller's responses, newest first.
func (h *ResponsesHandler) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated("no identity"))
		return
	}

	list, err := h.responseRepo.ListResponsesByUser(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, fmt.Errorf("list responses: %w", err))
		return
	}
	if list == nil {
		list = []models.Response{}
	}

	writeJSON(w, list, http.StatusOK)
}

// Show returns one of the caller's responses with its items.
func (h *ResponsesHandler) Show(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated("no identity"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.responseRepo.GetResponse(r.Context(), id)
	if err != nil {
		writeError(w, r, fmt.Errorf("get response %d: %w", id, err))
		return
	}
	if resp == nil {
		writeError(w, r, apperr.NotFound("response %d", id))
		return
	}
	if resp.UserID != caller.UserID {
		writeError(w, r, apperr.Authorization("response %d belongs to another user", id))
		return
	}

	items, err := h.responseRepo.ListResponseItems(r.Context(), id)
	if err != nil {
		writeError(w, r, fmt.Errorf("list items of %d: %w", id, err))
		return
	}

	writeJSON(w, responseDetail{Response: *resp, ResponseItems: items}, http.StatusOK)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("no such id %q", mux.Vars(r)["id"])
	}
	return id, nil
}
