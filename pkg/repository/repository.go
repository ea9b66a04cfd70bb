package repository

import (
	"context"

	"github.com/garnizeh/wellbeing/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Lookups return (nil, nil) when the row does not exist.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type QuestionRepo interface {
	CreateQuestion(ctx context.Context, q *models.Question) (int64, error)
	ListActiveQuestions(ctx context.Context) ([]models.Question, error)
	// GetQuestionsByIDs returns the questions that exist, keyed by id.
	GetQuestionsByIDs(ctx context.Context, ids []int64) (map[int64]models.Question, error)
}

// ResponseRepo is the response store: the only writer of Response and
// ResponseItem rows.
type ResponseRepo interface {
	// CreateResponseWithItems persists an unscored response and its items
	// atomically.
	CreateResponseWithItems(ctx context.Context, userID int64, answers []models.Answer) (*models.Response, error)
	// ApplyAnalysis writes every analysis field in one update, provided the
	// row is still at expectedVersion.
	ApplyAnalysis(ctx context.Context, responseID, expectedVersion int64, result models.AnalysisResult) error
	GetResponse(ctx context.Context, id int64) (*models.Response, error)
	ListResponseItems(ctx context.Context, responseID int64) ([]models.ResponseItemDetail, error)
	ListResponsesByUser(ctx context.Context, userID int64) ([]models.Response, error)
	ListScoredResponses(ctx context.Context) ([]models.ResponseWithUser, error)
}

// GlobalSummary is the count and raw mean of global scores.
type GlobalSummary struct {
	Count   int64
	Average *float64
}

// RawCategoryAverages are unrounded category means; nil when no row contributes.
type RawCategoryAverages struct {
	Stress       *float64
	Motivation   *float64
	Satisfaction *float64
}

// StatisticsRepo runs the independent aggregate sub-queries. Every method
// applies the same base filter (global score present plus the filter).
type StatisticsRepo interface {
	GlobalSummary(ctx context.Context, f models.StatisticsFilter) (GlobalSummary, error)
	RiskDistribution(ctx context.Context, f models.StatisticsFilter) (map[string]int64, error)
	CategoryAverages(ctx context.Context, f models.StatisticsFilter) (RawCategoryAverages, error)
	GlobalScoreTrend(ctx context.Context, f models.StatisticsFilter) ([]models.TrendPoint, error)
}
