package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/zhouzirui/law-agent/backend/internal/config"
)

// Generator produces a completion for a system and user prompt. A false
// second return means no usable text was produced, whatever the cause.
type Generator interface {
	Query(ctx context.Context, system, prompt string) (string, bool)
}

// Client talks to a local Ollama server. It never returns an error to the
// caller; every failure is logged and reported as a false result.
type Client struct {
	httpClient *http.Client
	cfg        config.InferenceConfig
	seed       func() int
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSeedSource overrides the per-request seed generator.
func WithSeedSource(seed func() int) ClientOption {
	return func(c *Client) {
		c.seed = seed
	}
}

// NewClient creates an inference client for the configured server and model.
func NewClient(cfg config.InferenceConfig, opts ...ClientOption) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultInferenceConfig().Timeout
	}

	c := &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		seed:       func() int { return rand.IntN(math.MaxInt32) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Query sends one non-streaming generate request bounded by the configured timeout.
func (c *Client) Query(ctx context.Context, system, prompt string) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ai] unexpected panic during generate: %v", r)
			text, ok = "", false
		}
	}()

	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil || base.Host == "" {
		log.Printf("[ai] invalid inference base url %q: %v", c.cfg.BaseURL, err)
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	var (
		result   api.GenerateResponse
		received bool
	)
	err = api.NewClient(base, c.httpClient).Generate(ctx, c.buildRequest(system, prompt), func(resp api.GenerateResponse) error {
		result = resp
		received = true
		return nil
	})
	if err != nil {
		var status api.StatusError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			log.Printf("[ai] generate timed out after %s (model=%s)", c.cfg.Timeout, c.cfg.Model)
		case errors.As(err, &status):
			log.Printf("[ai] generate returned status %d: %s", status.StatusCode, status.ErrorMessage)
		default:
			log.Printf("[ai] generate failed at %s: %v", c.cfg.BaseURL, err)
		}
		return "", false
	}

	if !received {
		log.Printf("[ai] generate returned no response body (model=%s)", c.cfg.Model)
		return "", false
	}
	if !result.Done {
		log.Printf("[ai] generate incomplete (done=false), discarding %d bytes", len(result.Response))
		return "", false
	}

	log.Printf("[ai] generated response model=%s length=%d elapsed=%s", c.cfg.Model, len(result.Response), time.Since(started).Round(time.Millisecond))
	return result.Response, true
}

func (c *Client) buildRequest(system, prompt string) *api.GenerateRequest {
	options := map[string]any{
		"temperature":    c.cfg.Temperature,
		"top_p":          c.cfg.TopP,
		"num_predict":    c.cfg.NumPredict,
		"num_ctx":        c.cfg.NumCtx,
		"repeat_penalty": c.cfg.RepeatPenalty,
	}
	if len(c.cfg.Stop) > 0 {
		options["stop"] = append([]string(nil), c.cfg.Stop...)
	}
	if c.cfg.RandomSeed && c.seed != nil {
		options["seed"] = c.seed()
	}

	stream := false
	return &api.GenerateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		System:  system,
		Stream:  &stream,
		Options: options,
	}
}

// String implements fmt.Stringer for log lines.
func (c *Client) String() string {
	return fmt.Sprintf("ollama(%s @ %s)", c.cfg.Model, c.cfg.BaseURL)
}
