package models

import "time"

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

const (
	CategoryStress       = "stress"
	CategoryMotivation   = "motivation"
	CategorySatisfaction = "satisfaction"
)

const (
	QuestionTypeLikert = "likert"
	QuestionTypeYesNo  = "yes_no"
	QuestionTypeText   = "text"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Identity is the authenticated caller, passed explicitly into the core.
type Identity struct {
	UserID int64
	Role   string
}

type User struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Email        string  `json:"email" db:"email"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Role         string  `json:"role" db:"role"`
	Department   *string `json:"department,omitempty" db:"department"`
	Created      int64   `json:"created" db:"created"`
	Updated      int64   `json:"updated" db:"updated"`
}

type Question struct {
	ID       int64  `json:"id" db:"id"`
	Text     string `json:"question_text" db:"question_text"`
	Category string `json:"category" db:"category"`
	Type     string `json:"type" db:"type"`
	Active   bool   `json:"is_active" db:"is_active"`
	Created  int64  `json:"created" db:"created"`
	Updated  int64  `json:"updated" db:"updated"`
}

// Response is one survey submission. The analysis fields are either all nil
// (unscored) or all set (scored).
type Response struct {
	ID                int64    `json:"id" db:"id"`
	UserID            int64    `json:"user_id" db:"user_id"`
	StressScore       *int     `json:"stress_score" db:"stress_score"`
	MotivationScore   *int     `json:"motivation_score" db:"motivation_score"`
	SatisfactionScore *int     `json:"satisfaction_score" db:"satisfaction_score"`
	GlobalScore       *int     `json:"global_score" db:"global_score"`
	Risk              *string  `json:"risk" db:"risk"`
	Recommendations   []string `json:"recommendations" db:"recommendations"`
	Summary           *string  `json:"summary" db:"summary"`
	Version           int64    `json:"-" db:"version"`
	Created           int64    `json:"created" db:"created"`
	Updated           int64    `json:"updated" db:"updated"`
}

// Scored reports whether an analysis has been applied.
func (r *Response) Scored() bool {
	return r.GlobalScore != nil
}

type ResponseItem struct {
	ID          int64  `json:"id" db:"id"`
	ResponseID  int64  `json:"response_id" db:"response_id"`
	QuestionID  int64  `json:"question_id" db:"question_id"`
	AnswerValue string `json:"answer_value" db:"answer_value"`
	Created     int64  `json:"created" db:"created"`
}

// ResponseItemDetail is an item joined with its question. Question is nil
// when the question has been deleted since the answer was recorded.
type ResponseItemDetail struct {
	ResponseItem
	Question *Question `json:"question"`
}

// UserSummary is the owner projection attached to admin listings.
type UserSummary struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	Department *string `json:"department"`
}

type ResponseWithUser struct {
	Response
	User UserSummary `json:"user"`
}

// Answer is one submitted answer before persistence.
type Answer struct {
	QuestionID int64
	Value      string
}

// AnalysisResult is the validated output of the scoring capability.
type AnalysisResult struct {
	StressScore       int      `json:"stress_score"`
	MotivationScore   int      `json:"motivation_score"`
	SatisfactionScore int      `json:"satisfaction_score"`
	GlobalScore       int      `json:"global_score"`
	RiskLevel         string   `json:"risk_level"`
	Recommendations   []string `json:"recommendations"`
	Summary           string   `json:"summary"`
}

// StatisticsFilter restricts the population used by the statistics
// aggregator. Start and End are both set or both zero; both are inclusive.
type StatisticsFilter struct {
	Department string
	Start      time.Time
	End        time.Time
}

// HasDateRange reports whether a date range is set.
func (f StatisticsFilter) HasDateRange() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

type TrendPoint struct {
	Date         string  `json:"date"`
	AverageScore float64 `json:"average_score"`
}

type CategoryAverages struct {
	Stress       *float64 `json:"stress"`
	Motivation   *float64 `json:"motivation"`
	Satisfaction *float64 `json:"satisfaction"`
}

type Statistics struct {
	TotalResponses     int64            `json:"total_responses"`
	AverageGlobalScore *float64         `json:"average_global_score"`
	RiskDistribution   map[string]int64 `json:"risk_distribution"`
	CategoryAverages   CategoryAverages `json:"category_averages"`
	GlobalScoreTrend   []TrendPoint     `json:"global_score_trend"`
}
