package docai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL points at the LandingAI agentic document extraction
	// parse endpoint.
	DefaultBaseURL = "https://api.va.landing.ai/v1/ade/parse"
	// DefaultModel is the parse model revision.
	DefaultModel = "dpt-2-latest"
)

// Config holds parse client settings. Zero values fall back to defaults.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration

	// Breaker tuning. Consecutive transport or 5xx failures open the
	// circuit; 4xx answers other than 429 are caller errors and do not
	// count.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// ParseClient calls the hosted parse endpoint with a circuit breaker in
// front of it, so a flapping service fails fast instead of stalling every
// document in a batch.
type ParseClient struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	apiKey  string
	model   string
	baseURL string
	lg      zerolog.Logger
}

// NewParseClient builds a ParseClient. The API key is required.
func NewParseClient(cfg Config, lg zerolog.Logger) (*ParseClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("docai: api key is required")
	}
	cfg = cfg.withDefaults()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "docai-parse",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var pe *ParseError
			if errors.As(err, &pe) {
				return pe.Status < 500 && pe.Status != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("parse breaker state change")
		},
	})

	return &ParseClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		lg:      lg,
	}, nil
}

// Parse uploads one document and returns the markdown rendering.
func (c *ParseClient) Parse(ctx context.Context, filename string, doc io.Reader) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, filename, doc)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}
	md := out.(string)
	if strings.TrimSpace(md) == "" {
		return "", ErrNoMarkdown
	}
	c.lg.Debug().
		Str("file", filename).
		Str("model", c.model).
		Int("markdown_chars", len(md)).
		Msg("parsed document")
	return md, nil
}

type parseResp struct {
	Markdown string `json:"markdown"`
}

func (c *ParseClient) post(ctx context.Context, filename string, doc io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, doc); err != nil {
		return "", fmt.Errorf("docai: read document: %w", err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		return "", &ParseError{Status: resp.StatusCode, Body: string(body)}
	}
	var out parseResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("docai: decode parse response: %w", err)
	}
	return out.Markdown, nil
}
