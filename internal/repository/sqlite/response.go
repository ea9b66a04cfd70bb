package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/pkg/models"
)

const responseColumns = `r.id, r.user_id, r.stress_score, r.motivation_score, r.satisfaction_score, r.global_score, r.risk, r.recommendations, r.summary, r.version, r.created, r.updated`

type scanner interface {
	Scan(dest ...any) error
}

// CreateResponseWithItems inserts the unscored response and one item per
// answer in a single transaction.
func (r *SQLiteRepo) CreateResponseWithItems(ctx context.Context, userID int64, answers []models.Answer) (*models.Response, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers to store")
	}

	ts := r.now()
	resp := &models.Response{UserID: userID, Created: ts, Updated: ts}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO responses (user_id, version, created, updated) VALUES (?, 0, ?, ?)`, userID, ts, ts)
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		if resp.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, a := range answers {
			if _, err := tx.ExecContext(ctx, `INSERT INTO response_items (response_id, question_id, answer_value, created) VALUES (?, ?, ?, ?)`, resp.ID, a.QuestionID, a.Value, ts); err != nil {
				return fmt.Errorf("insert response item for question %d: %w", a.QuestionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ApplyAnalysis overwrites every analysis column in one statement. The
// version guard turns a lost update into apperr.ErrConcurrentModification.
func (r *SQLiteRepo) ApplyAnalysis(ctx context.Context, responseID, expectedVersion int64, result models.AnalysisResult) error {
	recs := result.Recommendations
	if recs == nil {
		recs = []string{}
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}

	res, err := r.conn.Exec(ctx, `UPDATE responses SET stress_score = ?, motivation_score = ?, satisfaction_score = ?, global_score = ?, risk = ?, recommendations = ?, summary = ?, version = version + 1, updated = ? WHERE id = ? AND version = ?`,
		result.StressScore, result.MotivationScore, result.SatisfactionScore, result.GlobalScore,
		result.RiskLevel, string(recsJSON), result.Summary, r.now(), responseID, expectedVersion)
	if err != nil {
		return fmt.Errorf("apply analysis to response %d: %w", responseID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM responses WHERE id = ?`, responseID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return apperr.NotFound("response %d", responseID)
	}

	return fmt.Errorf("%w: response %d changed since version %d", apperr.ErrConcurrentModification, responseID, expectedVersion)
}

func (r *SQLiteRepo) GetResponse(ctx context.Context, id int64) (*models.Response, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+responseColumns+` FROM responses r WHERE r.id = ?`, id)
	resp, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return resp, nil
}

func (r *SQLiteRepo) ListResponseItems(ctx context.Context, responseID int64) ([]models.ResponseItemDetail, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT i.id, i.response_id, i.question_id, i.answer_value, i.created,
		q.id, q.question_text, q.category, q.type, q.is_active, q.created, q.updated
		FROM response_items i LEFT JOIN questions q ON q.id = i.question_id
		WHERE i.response_id = ? ORDER BY i.id`, responseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ResponseItemDetail{}
	for rows.Next() {
		var d models.ResponseItemDetail
		var qID, qCreated, qUpdated sql.NullInt64
		var qText, qCategory, qType sql.NullString
		var qActive sql.NullBool
		if err := rows.Scan(&d.ID, &d.ResponseID, &d.QuestionID, &d.AnswerValue, &d.Created,
			&qID, &qText, &qCategory, &qType, &qActive, &qCreated, &qUpdated); err != nil {
			return nil, err
		}
		if qID.Valid {
			d.Question = &models.Question{
				ID:       qID.Int64,
				Text:     qText.String,
				Category: qCategory.String,
				Type:     qType.String,
				Active:   qActive.Bool,
				Created:  qCreated.Int64,
				Updated:  qUpdated.Int64,
			}
		}
		out = append(out, d)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListResponsesByUser(ctx context.Context, userID int64) ([]models.Response, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+responseColumns+` FROM responses r WHERE r.user_id = ? ORDER BY r.created DESC, r.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Response{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListScoredResponses(ctx context.Context) ([]models.ResponseWithUser, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+responseColumns+`, u.id, u.name, u.email, u.role, u.department
		FROM responses r JOIN users u ON u.id = r.user_id
		WHERE r.global_score IS NOT NULL
		ORDER BY r.created DESC, r.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ResponseWithUser{}
	for rows.Next() {
		var rr responseRow
		var u models.UserSummary
		var dept sql.NullString
		dest := append(rr.dest(), &u.ID, &u.Name, &u.Email, &u.Role, &dept)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		resp, err := rr.model()
		if err != nil {
			return nil, err
		}
		if dept.Valid {
			d := dept.String
			u.Department = &d
		}
		out = append(out, models.ResponseWithUser{Response: *resp, User: u})
	}

	return out, rows.Err()
}

// responseRow holds the nullable analysis columns while scanning responseColumns.
type responseRow struct {
	resp                                     models.Response
	stress, motivation, satisfaction, global sql.NullInt64
	risk, recommendations, summary           sql.NullString
}

func (rr *responseRow) dest() []any {
	return []any{
		&rr.resp.ID, &rr.resp.UserID,
		&rr.stress, &rr.motivation, &rr.satisfaction, &rr.global,
		&rr.risk, &rr.recommendations, &rr.summary,
		&rr.resp.Version, &rr.resp.Created, &rr.resp.Updated,
	}
}

func (rr *responseRow) model() (*models.Response, error) {
	resp := rr.resp
	resp.StressScore = nullInt(rr.stress)
	resp.MotivationScore = nullInt(rr.motivation)
	resp.SatisfactionScore = nullInt(rr.satisfaction)
	resp.GlobalScore = nullInt(rr.global)
	resp.Risk = nullString(rr.risk)
	resp.Summary = nullString(rr.summary)

	if rr.recommendations.Valid {
		list := []string{}
		if err := json.Unmarshal([]byte(rr.recommendations.String), &list); err != nil {
			return nil, fmt.Errorf("decode recommendations of response %d: %w", resp.ID, err)
		}
		if list == nil {
			list = []string{}
		}
		resp.Recommendations = list
	}

	return &resp, nil
}

func scanResponse(s scanner) (*models.Response, error) {
	var rr responseRow
	if err := s.Scan(rr.dest()...); err != nil {
		return nil, err
	}
	return rr.model()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
