package sqlite

import (
	"time"

	"log/slog"

	"github.com/garnizeh/wellbeing/internal/db"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
	clock  func() time.Time
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.QuestionRepo = (*SQLiteRepo)(nil)
var _ repository.ResponseRepo = (*SQLiteRepo)(nil)
var _ repository.StatisticsRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger, clock: time.Now}
}

// SetClock replaces the time source used for created/updated columns.
func (r *SQLiteRepo) SetClock(clock func() time.Time) {
	if clock != nil {
		r.clock = clock
	}
}

func (r *SQLiteRepo) now() int64 {
	return r.clock().UTC().UnixMilli()
}
