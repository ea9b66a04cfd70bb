package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/garnizeh/wellbeing/pkg/models"
)

func (r *SQLiteRepo) CreateQuestion(ctx context.Context, q *models.Question) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("question is nil")
	}

	ts := r.now()
	res, err := r.conn.Exec(ctx, `INSERT INTO questions (question_text, category, type, is_active, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		q.Text, q.Category, q.Type, q.Active, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListActiveQuestions(ctx context.Context) ([]models.Question, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, question_text, category, type, is_active, created, updated FROM questions WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Category, &q.Type, &q.Active, &q.Created, &q.Updated); err != nil {
			return nil, err
		}
		out = append(out, q)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetQuestionsByIDs(ctx context.Context, ids []int64) (map[int64]models.Question, error) {
	out := make(map[int64]models.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, question_text, category, type, is_active, created, updated FROM questions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Category, &q.Type, &q.Active, &q.Created, &q.Updated); err != nil {
			return nil, err
		}
		out[q.ID] = q
	}

	return out, rows.Err()
}
