package analysis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/pkg/models"
)

//go:embed schema.json
var analysisSchema []byte

// Validator turns raw scoring output into a typed AnalysisResult.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(analysisSchema, rs); err != nil {
		return nil, fmt.Errorf("compile analysis schema: %w", err)
	}
	return &Validator{schema: rs}, nil
}

// Parse decodes raw, checks it against the analysis schema and extracts the
// typed result. Undecodable text is apperr.ErrScoringMalformed; any contract
// violation is apperr.ErrScoringSchema.
func (v *Validator) Parse(ctx context.Context, raw string) (*models.AnalysisResult, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrScoringMalformed, err)
	}

	verrs, err := v.schema.ValidateBytes(ctx, []byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrScoringSchema, err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, strings.TrimSpace(e.PropertyPath+" "+e.Message))
		}
		return nil, fmt.Errorf("%w: %s", apperr.ErrScoringSchema, strings.Join(msgs, "; "))
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not an object", apperr.ErrScoringSchema)
	}

	return extract(obj)
}

func extract(obj map[string]any) (*models.AnalysisResult, error) {
	var res models.AnalysisResult
	var err error

	scores := []struct {
		key string
		dst *int
	}{
		{"stress_score", &res.StressScore},
		{"motivation_score", &res.MotivationScore},
		{"satisfaction_score", &res.SatisfactionScore},
		{"global_score", &res.GlobalScore},
	}
	for _, s := range scores {
		if *s.dst, err = score(obj, s.key); err != nil {
			return nil, err
		}
	}

	risk, ok := obj["risk_level"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: risk_level must be a string", apperr.ErrScoringSchema)
	}
	switch risk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
		res.RiskLevel = risk
	default:
		return nil, fmt.Errorf("%w: risk_level %q is not low, medium or high", apperr.ErrScoringSchema, risk)
	}

	list, ok := obj["recommendations"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: recommendations must be an array", apperr.ErrScoringSchema)
	}
	res.Recommendations = make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: recommendations[%d] must be a string", apperr.ErrScoringSchema, i)
		}
		res.Recommendations = append(res.Recommendations, s)
	}

	if res.Summary, ok = obj["summary"].(string); !ok {
		return nil, fmt.Errorf("%w: summary must be a string", apperr.ErrScoringSchema)
	}

	return &res, nil
}

// score reads an integral number in [0, 100]. JSON numbers decode as float64,
// so 50.0 is accepted and 50.5 is not.
func score(obj map[string]any, key string) (int, error) {
	f, ok := obj[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", apperr.ErrScoringSchema, key)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", apperr.ErrScoringSchema, key, f)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("%w: %s must be between 0 and 100, got %v", apperr.ErrScoringSchema, key, f)
	}
	return int(f), nil
}
