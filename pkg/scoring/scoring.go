// Package scoring talks to the external language-model capability that turns
// an answer transcript into a JSON analysis. It renders the prompt, calls the
// configured provider under a retry policy and returns the model text with
// code fences removed. Parsing the text is left to the caller.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/garnizeh/wellbeing/internal/config"
)

// Scorer produces the raw analysis text for a transcript.
type Scorer interface {
	Score(ctx context.Context, transcript string) (string, error)
}

// package-level logger for pkg/scoring; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/scoring. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// New builds the provider selected by cfg.Provider. httpClient may be nil.
func New(cfg config.ScoringConfig, httpClient *http.Client) (Scorer, error) {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	policy := PolicyFromConfig(cfg.Retry)

	switch cfg.Provider {
	case "", "gemini":
		return NewGemini(GeminiOptions{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
			Policy:      policy,
		}, httpClient), nil
	case "ollama":
		return NewOllama(OllamaOptions{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Policy:      policy,
		}, httpClient)
	default:
		return nil, fmt.Errorf("unknown scoring provider %q", cfg.Provider)
	}
}

// defaultHTTPClient leaves request deadlines to the per-attempt context.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// closeIdle releases idle transport connections held by c.
func closeIdle(c *http.Client) {
	if c == nil || c.Transport == nil {
		return
	}
	if tr, ok := c.Transport.(interface{ CloseIdleConnections() }); ok {
		tr.CloseIdleConnections()
	}
}
