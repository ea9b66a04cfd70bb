package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/stats"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// StatisticsComputer computes the admin statistics.
type StatisticsComputer interface {
	Compute(ctx context.Context, caller models.Identity, filter models.StatisticsFilter) (*models.Statistics, error)
}

type AdminHandler struct {
	responseRepo repository.ResponseRepo
	userRepo     repository.UserRepo
	stats        StatisticsComputer
}

func NewAdminHandler(rr repository.ResponseRepo, ur repository.UserRepo, sc StatisticsComputer) *AdminHandler {
	return &AdminHandler{responseRepo: rr, userRepo: ur, stats: sc}
}

type adminResponseDetail struct {
	models.Response
	User          *models.UserSummary         `json:"user"`
	ResponseItems []models.ResponseItemDetail `json:"response_items"`
}

// ListResponses returns every scored response with its owner.
func (h *AdminHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	list, err := h.responseRepo.ListScoredResponses(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("list scored responses: %w", err))
		return
	}
	if list == nil {
		list = []models.ResponseWithUser{}
	}

	writeJSON(w, list, http.StatusOK)
}

// ShowResponse returns any response with its owner and items.
func (h *AdminHandler) ShowResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	resp, err := h.responseRepo.GetResponse(ctx, id)
	if err != nil {
		writeError(w, r, fmt.Errorf("get response %d: %w", id, err))
		return
	}
	if resp == nil {
		writeError(w, r, apperr.NotFound("response %d", id))
		return
	}

	out := adminResponseDetail{Response: *resp}

	owner, err := h.userRepo.GetUserByID(ctx, resp.UserID)
	if err != nil {
		writeError(w, r, fmt.Errorf("get owner of %d: %w", id, err))
		return
	}
	if owner != nil {
		out.User = &models.UserSummary{ID: owner.ID, Name: owner.Name, Email: owner.Email, Role: owner.Role, Department: owner.Department}
	}

	if out.ResponseItems, err = h.responseRepo.ListResponseItems(ctx, id); err != nil {
		writeError(w, r, fmt.Errorf("list items of %d: %w", id, err))
		return
	}

	writeJSON(w, out, http.StatusOK)
}

// Statistics reads department, start_date and end_date from the query.
func (h *AdminHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated("no identity"))
		return
	}

	q := r.URL.Query()
	filter, err := stats.ParseFilter(q.Get("department"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.stats.Compute(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, out, http.StatusOK)
}
