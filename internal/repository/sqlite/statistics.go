package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// baseFilter renders the FROM/WHERE shared by every statistics sub-query:
// scored responses, optionally restricted to the owner's department and an
// inclusive created range. extra conditions are ANDed on.
func baseFilter(f models.StatisticsFilter, extra ...string) (string, []any) {
	var sb strings.Builder
	sb.WriteString(" FROM responses r")

	conds := []string{"r.global_score IS NOT NULL"}
	var args []any

	if f.Department != "" {
		sb.WriteString(" JOIN users u ON u.id = r.user_id")
		conds = append(conds, "u.department = ?")
		args = append(args, f.Department)
	}
	if f.HasDateRange() {
		conds = append(conds, "r.created BETWEEN ? AND ?")
		args = append(args, f.Start.UTC().UnixMilli(), f.End.UTC().UnixMilli())
	}
	conds = append(conds, extra...)

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(conds, " AND "))
	return sb.String(), args
}

func (r *SQLiteRepo) GlobalSummary(ctx context.Context, f models.StatisticsFilter) (repository.GlobalSummary, error) {
	where, args := baseFilter(f)

	var out repository.GlobalSummary
	var avg sql.NullFloat64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*), AVG(r.global_score)`+where, args...).Scan(&out.Count, &avg); err != nil {
		return out, err
	}
	if avg.Valid {
		v := avg.Float64
		out.Average = &v
	}

	return out, nil
}

func (r *SQLiteRepo) RiskDistribution(ctx context.Context, f models.StatisticsFilter) (map[string]int64, error) {
	where, args := baseFilter(f, "r.risk IS NOT NULL")

	rows, err := r.conn.QueryRows(ctx, `SELECT r.risk, COUNT(*)`+where+` GROUP BY r.risk`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var risk string
		var n int64
		if err := rows.Scan(&risk, &n); err != nil {
			return nil, err
		}
		out[risk] = n
	}

	return out, rows.Err()
}

// CategoryAverages runs one sub-query per category so that a missing score
// only removes the row from its own average.
func (r *SQLiteRepo) CategoryAverages(ctx context.Context, f models.StatisticsFilter) (repository.RawCategoryAverages, error) {
	var out repository.RawCategoryAverages
	targets := []struct {
		column string
		dst    **float64
	}{
		{"stress_score", &out.Stress},
		{"motivation_score", &out.Motivation},
		{"satisfaction_score", &out.Satisfaction},
	}

	for _, t := range targets {
		where, args := baseFilter(f, "r."+t.column+" IS NOT NULL")
		var avg sql.NullFloat64
		if err := r.conn.QueryRow(ctx, `SELECT AVG(r.`+t.column+`)`+where, args...).Scan(&avg); err != nil {
			return out, err
		}
		if avg.Valid {
			v := avg.Float64
			*t.dst = &v
		}
	}

	return out, nil
}

// GlobalScoreTrend groups by the UTC calendar date of creation, ascending.
func (r *SQLiteRepo) GlobalScoreTrend(ctx context.Context, f models.StatisticsFilter) ([]models.TrendPoint, error) {
	where, args := baseFilter(f)

	rows, err := r.conn.QueryRows(ctx, `SELECT date(r.created / 1000, 'unixepoch') AS day, AVG(r.global_score)`+where+` GROUP BY day ORDER BY day ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TrendPoint{}
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Date, &p.AverageScore); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}
