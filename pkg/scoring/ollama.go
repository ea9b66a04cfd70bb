package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/metrics"
)

const providerOllama = "ollama"

type OllamaOptions struct {
	BaseURL     string
	Model       string
	Temperature float64
	Policy      RetryPolicy
}

// OllamaClient scores transcripts with a locally hosted Ollama model.
type OllamaClient struct {
	api    *api.Client
	opts   OllamaOptions
	client *http.Client
}

var _ Scorer = (*OllamaClient)(nil)

func NewOllama(opts OllamaOptions, httpClient *http.Client) (*OllamaClient, error) {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}

	u, err := url.ParseRequestURI(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	logger.Info("ollama scoring client created", "base_url", opts.BaseURL, "model", opts.Model)
	return &OllamaClient{api: api.NewClient(u, httpClient), opts: opts, client: httpClient}, nil
}

func (o *OllamaClient) Score(ctx context.Context, transcript string) (string, error) {
	p, err := BuildPrompt(transcript)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %w", apperr.ErrScoringUnavailable, err)
	}

	text, err := o.opts.Policy.Do(ctx, func(actx context.Context) (string, error) {
		start := time.Now()
		out, err := o.generate(actx, p)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ScoringAttempt(providerOllama, outcome, time.Since(start))
		return out, err
	})
	if err != nil {
		logger.Error("ollama scoring failed", "model", o.opts.Model, "err", err)
		return "", err
	}

	return StripFences(text), nil
}

func (o *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   o.opts.Model,
		Prompt:  prompt,
		Format:  json.RawMessage(`"json"`),
		Stream:  &stream,
		Options: map[string]any{"temperature": o.opts.Temperature},
	}

	var sb strings.Builder
	err := o.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		return nil
	})
	if err != nil {
		var se api.StatusError
		if errors.As(err, &se) {
			return "", &StatusError{StatusCode: se.StatusCode, Body: se.ErrorMessage}
		}
		return "", err
	}

	return sb.String(), nil
}

// Close releases idle connections.
func (o *OllamaClient) Close() error {
	closeIdle(o.client)
	return nil
}
