// Package stats computes the administrator statistics over scored responses.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mstats "github.com/montanaflynn/stats"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/metrics"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// AllDepartments means no department filter.
const AllDepartments = "All"

const dateLayout = "2006-01-02"

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by the aggregator. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Cache stores computed statistics. Get returns a nil value on a miss and a
// key that Put must be called with.
type Cache interface {
	Get(ctx context.Context, f models.StatisticsFilter) (*models.Statistics, string, error)
	Put(ctx context.Context, key string, s *models.Statistics) error
}

type Aggregator struct {
	repo  repository.StatisticsRepo
	cache Cache
}

// NewAggregator creates an aggregator. cache may be nil.
func NewAggregator(repo repository.StatisticsRepo, cache Cache) *Aggregator {
	return &Aggregator{repo: repo, cache: cache}
}

// ParseFilter builds a filter from query values. Dates are YYYY-MM-DD or
// RFC 3339; a date-only end covers that whole day.
func ParseFilter(department, start, end string) (models.StatisticsFilter, error) {
	f := models.StatisticsFilter{Department: strings.TrimSpace(department)}

	var err error
	if start != "" {
		if f.Start, err = parseBound(start, false); err != nil {
			return f, apperr.Validation("start_date: %v", err)
		}
	}
	if end != "" {
		if f.End, err = parseBound(end, true); err != nil {
			return f, apperr.Validation("end_date: %v", err)
		}
	}
	return f, nil
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

// Compute returns the statistics for filter. Only administrators may call it.
func (a *Aggregator) Compute(ctx context.Context, caller models.Identity, filter models.StatisticsFilter) (*models.Statistics, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperr.Authorization("statistics require the admin role")
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	key := ""
	if a.cache != nil {
		cached, k, err := a.cache.Get(ctx, f)
		switch {
		case err != nil:
			metrics.StatisticsCache("error")
			logger.Warn("statistics cache read failed", "err", err)
		case cached != nil:
			metrics.StatisticsCache("hit")
			return cached, nil
		default:
			metrics.StatisticsCache("miss")
			key = k
		}
	}

	out, err := a.compute(ctx, f)
	if err != nil {
		return nil, err
	}

	if a.cache != nil && key != "" {
		if err := a.cache.Put(ctx, key, out); err != nil {
			logger.Warn("statistics cache write failed", "err", err)
		}
	}

	return out, nil
}

func normalize(f models.StatisticsFilter) (models.StatisticsFilter, error) {
	if strings.EqualFold(f.Department, AllDepartments) {
		f.Department = ""
	}
	if f.Start.IsZero() != f.End.IsZero() {
		return f, apperr.Validation("start_date and end_date must be given together")
	}
	if f.HasDateRange() && f.Start.After(f.End) {
		return f, apperr.Validation("start_date must not be after end_date")
	}
	return f, nil
}

func (a *Aggregator) compute(ctx context.Context, f models.StatisticsFilter) (*models.Statistics, error) {
	summary, err := a.repo.GlobalSummary(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("global summary: %w", err)
	}
	risk, err := a.repo.RiskDistribution(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("risk distribution: %w", err)
	}
	cats, err := a.repo.CategoryAverages(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("category averages: %w", err)
	}
	trend, err := a.repo.GlobalScoreTrend(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("global score trend: %w", err)
	}

	if risk == nil {
		risk = map[string]int64{}
	}
	if trend == nil {
		trend = []models.TrendPoint{}
	}

	return &models.Statistics{
		TotalResponses:     summary.Count,
		AverageGlobalScore: round2(summary.Average),
		RiskDistribution:   risk,
		CategoryAverages: models.CategoryAverages{
			Stress:       round2(cats.Stress),
			Motivation:   round2(cats.Motivation),
			Satisfaction: round2(cats.Satisfaction),
		},
		GlobalScoreTrend: trend,
	}, nil
}

func round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r, err := mstats.Round(*v, 2)
	if err != nil {
		r = *v
	}
	return &r
}
