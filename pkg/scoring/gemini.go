package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/metrics"
)

const (
	providerGemini = "gemini"
	// maxErrorBody caps how much of a failed reply is kept for logs.
	maxErrorBody = 2048
	// maxReplyBody caps how much of a reply is read at all.
	maxReplyBody = 4 << 20
)

type GeminiOptions struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Policy      RetryPolicy
}

// GeminiClient calls the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	opts   GeminiOptions
	client *http.Client
}

var _ Scorer = (*GeminiClient)(nil)

func NewGemini(opts GeminiOptions, httpClient *http.Client) *GeminiClient {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &GeminiClient{opts: opts, client: httpClient}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"response_mime_type"`
	Temperature      float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// Score renders the prompt, posts it and returns the generated text.
// A missing API key fails before any request is made.
func (g *GeminiClient) Score(ctx context.Context, transcript string) (string, error) {
	if g.opts.APIKey == "" {
		return "", fmt.Errorf("%w: gemini api key is not configured", apperr.ErrScoringUnavailable)
	}

	p, err := BuildPrompt(transcript)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %w", apperr.ErrScoringUnavailable, err)
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: p}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			Temperature:      g.opts.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", apperr.ErrScoringUnavailable, err)
	}

	text, err := g.opts.Policy.Do(ctx, func(actx context.Context) (string, error) {
		start := time.Now()
		out, err := g.generate(actx, body)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ScoringAttempt(providerGemini, outcome, time.Since(start))
		return out, err
	})
	if err != nil {
		logger.Error("gemini scoring failed", "model", g.opts.Model, "err", err)
		return "", err
	}

	return StripFences(text), nil
}

func (g *GeminiClient) generate(ctx context.Context, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.opts.BaseURL, g.opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.opts.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody+1))
	if err != nil {
		return "", err
	}
	if len(raw) > maxReplyBody {
		return "", permanent(fmt.Errorf("reply exceeds %d bytes", maxReplyBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	text := gjson.GetBytes(raw, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.Type != gjson.String {
		logger.Error("gemini reply has no generated text", "body", string(raw))
		return "", permanent(fmt.Errorf("reply has no candidates[0].content.parts[0].text"))
	}

	return text.String(), nil
}

// Close releases idle connections.
func (g *GeminiClient) Close() error {
	closeIdle(g.client)
	return nil
}
