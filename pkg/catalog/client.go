// Package catalog provides a client for a remote mashnote ingredient catalog,
// for setups where several brewers share one serve-mode instance. It
// implements the same matching and creation contract as the local stores, so
// the import pipeline cannot tell them apart.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"

	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/resilience"
)

// Client talks to a remote catalog over HTTP. Lookups retry on transient
// failures; the batch creation call does not retry at the transport level,
// the session layer owns that (client refs make the replay idempotent).
type Client struct {
	http          *resty.Client
	minConfidence float64
	retry         resilience.RetryConfig
}

// Option configures the catalog client.
type Option func(*Client)

// WithMinConfidence overrides the match threshold the client reports to the
// pipeline.
func WithMinConfidence(confidence float64) Option {
	return func(c *Client) {
		if confidence > 0 {
			c.minConfidence = confidence
		}
	}
}

// WithRetryConfig overrides the lookup retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// New creates a catalog client for the given base URL. The API key is
// optional; serve-mode instances without auth ignore it.
func New(baseURL, apiKey string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		rc.SetHeader("Authorization", "Bearer "+apiKey)
	}

	c := &Client{
		http:          rc,
		minConfidence: 0.85,
		retry:         resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinMatchConfidence reports the threshold the pipeline applies to this
// catalog's candidates.
func (c *Client) MinMatchConfidence() float64 {
	return c.minConfidence
}

type matchRequest struct {
	Ingredients []model.NormalizedIngredient `json:"ingredients"`
}

type matchResponse struct {
	Results []model.MatchResult `json:"results"`
}

type batchCreateRequest struct {
	Drafts []model.IngredientDraft `json:"drafts"`
}

type batchCreateResponse struct {
	Ingredients []model.Ingredient `json:"ingredients"`
}

type searchResponse struct {
	Ingredients []model.Ingredient `json:"ingredients"`
}

// MatchIngredients runs the batched similarity lookup remotely. The call is
// read-only and retries on transient failures.
func (c *Client) MatchIngredients(ctx context.Context, imported []model.NormalizedIngredient) ([]model.MatchResult, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("catalog", "match_ingredients")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.MatchResult, error) {
		var out matchResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(matchRequest{Ingredients: imported}).
			SetResult(&out).
			Post("/api/ingredients/match")
		if err != nil {
			return nil, eris.Wrap(err, "catalog: match ingredients")
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, statusError("match ingredients", resp)
		}
		return out.Results, nil
	})
}

// CreateIngredients sends the batch creation exactly once. The server upserts
// on each draft's client ref, so the caller may safely resubmit the same
// batch after a failure.
func (c *Client) CreateIngredients(ctx context.Context, drafts []model.IngredientDraft) ([]model.Ingredient, error) {
	var out batchCreateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(batchCreateRequest{Drafts: drafts}).
		SetResult(&out).
		Post("/api/ingredients/batch")
	if err != nil {
		return nil, eris.Wrap(err, "catalog: create ingredients")
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, statusError("create ingredients", resp)
	}
	return out.Ingredients, nil
}

// SearchIngredients lists catalog rows matching a name fragment and optional
// type, with transient-failure retries.
func (c *Client) SearchIngredients(ctx context.Context, query string, typ model.IngredientType) ([]model.Ingredient, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("catalog", "search_ingredients")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.Ingredient, error) {
		var out searchResponse
		req := c.http.R().
			SetContext(ctx).
			SetResult(&out)
		if query != "" {
			req.SetQueryParam("q", query)
		}
		if typ != "" {
			req.SetQueryParam("type", string(typ))
		}
		resp, err := req.Get("/api/ingredients")
		if err != nil {
			return nil, eris.Wrap(err, "catalog: search ingredients")
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, statusError("search ingredients", resp)
		}
		return out.Ingredients, nil
	})
}

// Health pings the remote instance.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return eris.Wrap(err, "catalog: health")
	}
	if resp.StatusCode() != http.StatusOK {
		return statusError("health", resp)
	}
	return nil
}

// statusError converts a non-2xx response into an error, tagging retryable
// statuses as transient.
func statusError(operation string, resp *resty.Response) error {
	err := eris.Errorf("catalog: %s: status %d: %s", operation, resp.StatusCode(), truncate(resp.String(), 200))
	if resilience.IsTransientHTTPStatus(resp.StatusCode()) {
		return resilience.NewTransientError(err, resp.StatusCode())
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
