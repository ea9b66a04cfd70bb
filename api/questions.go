package api

import (
	"fmt"
	"net/http"

	"github.com/garnizeh/wellbeing/pkg/repository"
)

type QuestionsHandler struct {
	questionRepo repository.QuestionRepo
}

func NewQuestionsHandler(qr repository.QuestionRepo) *QuestionsHandler {
	return &QuestionsHandler{questionRepo: qr}
}

// ListQuestions returns the active survey questions.
func (h *QuestionsHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questionRepo.ListActiveQuestions(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("list questions: %w", err))
		return
	}

	writeJSON(w, qs, http.StatusOK)
}
