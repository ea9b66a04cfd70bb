package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// seedQuestions is the layout of seed/questions.yaml.
type seedQuestions struct {
	Questions []struct {
		Text     string `yaml:"text"`
		Category string `yaml:"category"`
		Type     string `yaml:"type"`
	} `yaml:"questions"`
}

// Migrate applies migrations and optional seed files.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files in `migrations/` that have not yet been recorded. The default
// questions in `seed/questions.yaml` are inserted only while the questions
// table is empty.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}

		err = d.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(b)); err != nil {
				return fmt.Errorf("exec migration %s: %w", fname, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
				return fmt.Errorf("record migration %s: %w", fname, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		d.logger.Info("migration applied", "version", version)
	}

	if seedFS == nil {
		return nil
	}
	return seedDefaultQuestions(ctx, d, seedFS)
}

func seedDefaultQuestions(ctx context.Context, d *DB, seedFS fs.FS) error {
	b, err := fs.ReadFile(seedFS, path.Join("seed", "questions.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read question seed: %w", err)
	}

	var existing int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM questions`).Scan(&existing); err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if existing > 0 {
		return nil
	}

	var seed seedQuestions
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("decode question seed: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		for _, q := range seed.Questions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO questions (question_text, category, type, is_active, created, updated) VALUES (?, ?, ?, 1, ?, ?)`, q.Text, q.Category, q.Type, now, now); err != nil {
				return fmt.Errorf("seed question %q: %w", q.Text, err)
			}
		}
		d.logger.Info("seeded default questions", "count", len(seed.Questions))
		return nil
	})
}
