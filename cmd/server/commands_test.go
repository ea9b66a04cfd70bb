package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/wellbeing/db"
	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/db"
	"github.com/garnizeh/wellbeing/internal/repository/sqlite"
	"github.com/garnizeh/wellbeing/pkg/models"
)

// useConfig points loadConfig at a development setup and restores the flag
// afterwards.
func useConfig(t *testing.T, yaml string) {
	t.Helper()
	t.Setenv("WELLBEING_ENV", "development")
	t.Setenv("WELLBEING_JWT_SECRET", "")
	t.Setenv("WELLBEING_LOG_LEVEL", "error")

	prev := configPath
	t.Cleanup(func() { configPath = prev })
	configPath = ""
	if yaml != "" {
		configPath = filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))
	}
}

// run executes c with stdin and args and returns what it printed.
func run(t *testing.T, ctx context.Context, c *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c.SetArgs(append([]string{}, args...))
	c.SetIn(strings.NewReader(stdin))
	c.SetOut(&out)
	c.SetErr(&errOut)
	err := c.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func geminiServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScoreCommand(t *testing.T) {
	const reply = `{"stress_score":40,"motivation_score":70,"satisfaction_score":65,"global_score":62,"risk_level":"medium","recommendations":["take breaks"],"summary":"fine"}`
	srv := geminiServer(t, "```json\n"+reply+"\n```")
	t.Setenv("GOOGLE_API_KEY", "test-key")
	useConfig(t, "scoring:\n  base_url: \""+srv.URL+"\"\n")

	out, _, err := run(t, context.Background(), NewScoreCommand(), "Q: How stressed are you?\nA: 4\n")
	require.NoError(t, err)

	var got models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 62, got.GlobalScore)
	assert.Equal(t, models.RiskMedium, got.RiskLevel)
	assert.Equal(t, []string{"take breaks"}, got.Recommendations)
}

func TestScoreCommand_Failures(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	t.Run("EmptyTranscript", func(t *testing.T) {
		useConfig(t, "")
		_, _, err := run(t, context.Background(), NewScoreCommand(), "  \n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("MalformedReplyPrintedToStderr", func(t *testing.T) {
		srv := geminiServer(t, "this is not json")
		useConfig(t, "scoring:\n  base_url: \""+srv.URL+"\"\n")

		out, errOut, err := run(t, context.Background(), NewScoreCommand(), "Q: x\nA: y")
		require.True(t, errors.Is(err, apperr.ErrScoringMalformed), "got %v", err)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "this is not json")
	})

	t.Run("MissingFile", func(t *testing.T) {
		useConfig(t, "")
		_, _, err := run(t, context.Background(), NewScoreCommand(), "", "--file", filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
	})
}

func TestBackupAndRestoreCommands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	live := filepath.Join(dir, "live.db")

	d, err := db.New(ctx, live, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, d, dbfs.Migrations, nil))
	_, err = sqlite.New(d, nil).CreateUser(ctx, &models.User{Name: "Keep", Email: "keep@example.com", PasswordHash: "h", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	useConfig(t, "")
	t.Setenv("WELLBEING_DATABASE_PATH", live)

	backup := filepath.Join(dir, "snapshot.bak")
	out, _, err := run(t, ctx, NewBackupCommand(), "", "-o", backup)
	require.NoError(t, err)
	assert.Contains(t, out, backup)

	// restore into a different location
	target := filepath.Join(dir, "restored.db")
	t.Setenv("WELLBEING_DATABASE_PATH", target)
	out, _, err = run(t, ctx, NewRestoreCommand(), "", backup)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	r, err := db.New(ctx, target, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	u, err := sqlite.New(r, nil).GetUserByEmail(ctx, "keep@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Keep", u.Name)
}

func TestRestoreCommand_Errors(t *testing.T) {
	useConfig(t, "")
	t.Setenv("WELLBEING_DATABASE_PATH", filepath.Join(t.TempDir(), "target.db"))

	_, _, err := run(t, context.Background(), NewRestoreCommand(), "")
	require.Error(t, err, "a backup path is required")

	_, _, err = run(t, context.Background(), NewRestoreCommand(), "", filepath.Join(t.TempDir(), "missing.bak"))
	require.Error(t, err)
}
