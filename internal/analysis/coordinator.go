// Package analysis runs the survey analysis pipeline: it stores a
// submission, asks the scoring capability for an assessment, validates the
// reply and applies it to the stored response.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/metrics"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
	"github.com/garnizeh/wellbeing/pkg/scoring"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by the analysis pipeline. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Invalidator drops derived data that depends on scored responses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Submission is what a successful Submit returns. PreparedAnswers can be
// sent back to Analyze to re-score the same response.
type Submission struct {
	ResponseID      int64
	PreparedAnswers []string
	Result          *models.AnalysisResult
}

type Coordinator struct {
	questions repository.QuestionRepo
	responses repository.ResponseRepo
	scorer    scoring.Scorer
	validator *Validator
	cache     Invalidator
}

// NewCoordinator wires the pipeline. cache may be nil.
func NewCoordinator(questions repository.QuestionRepo, responses repository.ResponseRepo, scorer scoring.Scorer, validator *Validator, cache Invalidator) *Coordinator {
	return &Coordinator{questions: questions, responses: responses, scorer: scorer, validator: validator, cache: cache}
}

// Submit stores an employee's answers as an unscored response and scores it.
// When scoring fails the response stays stored without analysis.
func (c *Coordinator) Submit(ctx context.Context, caller models.Identity, answers []models.Answer) (*Submission, error) {
	if caller.Role != models.RoleEmployee {
		return nil, apperr.Authorization("only employees can submit responses")
	}
	if len(answers) == 0 {
		return nil, apperr.Validation("at least one answer is required")
	}
	for i, a := range answers {
		if a.QuestionID <= 0 {
			return nil, apperr.Validation("answers[%d]: question_id must be positive", i)
		}
		if strings.TrimSpace(a.Value) == "" {
			return nil, apperr.Validation("answers[%d]: answer_value is required", i)
		}
	}

	ids := questionIDs(answers)
	known, err := c.questions.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("unknown question ids: %s", strings.Join(missing, ", "))
	}

	resp, err := c.responses.CreateResponseWithItems(ctx, caller.UserID, answers)
	if err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}
	logger.Info("response stored", "response_id", resp.ID, "user_id", caller.UserID, "answers", len(answers))

	// questions may have been removed since validation
	current, err := c.questions.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("reload questions: %w", err)
	}
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		q, ok := current[a.QuestionID]
		if !ok {
			logger.Warn("question vanished before analysis", "response_id", resp.ID, "question_id", a.QuestionID)
			lines = append(lines, FormatAnswer(nil, a))
			continue
		}
		lines = append(lines, FormatAnswer(&q, a))
	}

	result, err := c.run(ctx, resp.ID, resp.Version, lines)
	if err != nil {
		return nil, err
	}

	return &Submission{ResponseID: resp.ID, PreparedAnswers: lines, Result: result}, nil
}

// Analyze re-scores an existing response owned by the caller using the
// caller-supplied answer lines.
func (c *Coordinator) Analyze(ctx context.Context, caller models.Identity, responseID int64, lines []string) (*models.AnalysisResult, error) {
	if responseID <= 0 {
		return nil, apperr.Validation("response_id must be positive")
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("prepared_answers must not be empty")
	}

	resp, err := c.responses.GetResponse(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("load response %d: %w", responseID, err)
	}
	if resp == nil {
		return nil, apperr.NotFound("response %d", responseID)
	}
	if resp.UserID != caller.UserID {
		return nil, apperr.Authorization("response %d belongs to another user", responseID)
	}

	return c.run(ctx, resp.ID, resp.Version, lines)
}

// run scores the transcript, validates the reply and applies it to the
// response if it is still at version.
func (c *Coordinator) run(ctx context.Context, responseID, version int64, lines []string) (*models.AnalysisResult, error) {
	transcript := strings.Join(lines, "\n")

	raw, err := c.scorer.Score(ctx, transcript)
	if err != nil {
		metrics.Analysis("scoring_failed")
		logger.Error("scoring failed", "response_id", responseID, "err", err)
		return nil, err
	}

	result, err := c.validator.Parse(ctx, raw)
	if err != nil {
		metrics.Analysis("invalid_output")
		logger.Error("scoring output rejected", "response_id", responseID, "err", err, "raw", raw)
		return nil, err
	}

	if err := c.responses.ApplyAnalysis(ctx, responseID, version, *result); err != nil {
		if errors.Is(err, apperr.ErrConcurrentModification) {
			metrics.Analysis("conflict")
		} else {
			metrics.Analysis("store_failed")
		}
		logger.Error("apply analysis failed", "response_id", responseID, "version", version, "err", err)
		return nil, err
	}
	metrics.Analysis("applied")
	logger.Info("analysis applied", "response_id", responseID, "global_score", result.GlobalScore, "risk", result.RiskLevel)

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx); err != nil {
			logger.Warn("statistics cache invalidation failed", "err", err)
		}
	}

	return result, nil
}

// FormatAnswer renders one transcript line. q is nil when the question no
// longer exists.
func FormatAnswer(q *models.Question, a models.Answer) string {
	if q == nil {
		return fmt.Sprintf("Q: Unknown Question (ID: %d)\nA: %s", a.QuestionID, a.Value)
	}
	return fmt.Sprintf("Q: %s (Category: %s, Type: %s)\nA: %s", q.Text, q.Category, q.Type, a.Value)
}

func questionIDs(answers []models.Answer) []int64 {
	seen := make(map[int64]struct{}, len(answers))
	ids := make([]int64, 0, len(answers))
	for _, a := range answers {
		if _, ok := seen[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		ids = append(ids, a.QuestionID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
