// Package census requests tract-level ACS variables from the Census data API.
package census

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"commareas/internal/catalog"
	"commareas/internal/types"
)

// Default request settings.
const (
	DefaultBaseURL  = "https://api.census.gov/data/"
	DefaultYear     = "2014"
	DefaultDataset  = "/acs5"
	DefaultTimeout  = 60 * time.Second
	DefaultRetryMax = 3

	// maxErrorBody bounds how much of an error response is quoted back.
	maxErrorBody = 512
)

var (
	// ErrUnexpectedStatus is returned for any non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected status from census api")
	// ErrEmptyBatch is returned when asked to fetch no variables.
	ErrEmptyBatch = errors.New("batch has no variables")
)

// Fetcher returns one payload per batch of variable codes.
type Fetcher interface {
	Fetch(ctx context.Context, batch []types.VariableCode) (types.Payload, error)
}

// Cache stores raw response bodies between runs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Config holds the API endpoint and geography of a request.
type Config struct {
	BaseURL  string
	Year     string
	Dataset  string
	State    string
	County   string
	Key      string
	Timeout  time.Duration
	RetryMax int
}

// Client is a Fetcher backed by the Census data API.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	cache  Cache
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache serves repeated batches from c.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithLogger sets the client logger; retry attempts are logged through it too.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithHTTPClient replaces the underlying retrying client.
func WithHTTPClient(h *retryablehttp.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// NewClient returns a client for cfg, filling in defaults for empty fields.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Year == "" {
		cfg.Year = DefaultYear
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	c := &Client{cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		h := retryablehttp.NewClient()
		h.RetryMax = cfg.RetryMax
		h.HTTPClient.Timeout = cfg.Timeout
		h.Logger = leveledLogger{c.logger}
		c.http = h
	}
	return c
}

// RequestURL builds the API request for a batch: NAME plus the batch's
// variables for every tract in the configured state and county.
func (c *Client) RequestURL(batch []types.VariableCode) string {
	u := c.baseRequest(batch)
	if c.cfg.Key != "" {
		u += "&key=" + c.cfg.Key
	}
	return u
}

// baseRequest is the request without the API key; it doubles as the cache key.
func (c *Client) baseRequest(batch []types.VariableCode) string {
	var b strings.Builder
	b.WriteString(c.cfg.BaseURL)
	b.WriteString(c.cfg.Year)
	b.WriteString(c.cfg.Dataset)
	b.WriteString("?get=NAME,")
	b.WriteString(catalog.Join(batch))
	b.WriteString("&for=tract:*&in=state:")
	b.WriteString(c.cfg.State)
	b.WriteString("+county:")
	b.WriteString(c.cfg.County)
	return b.String()
}

// Fetch requests one batch and decodes the JSON table.
func (c *Client) Fetch(ctx context.Context, batch []types.VariableCode) (types.Payload, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	key := c.baseRequest(batch)
	if c.cache != nil {
		body, err := c.cache.Get(ctx, key)
		if err == nil {
			c.logger.Debug().Str("request", key).Msg("payload served from cache")
			return Decode(bytes.NewReader(body))
		}
		c.logger.Debug().Err(err).Str("request", key).Msg("cache miss")
	}

	c.logger.Info().Str("request", key).Int("variables", len(batch)).Msg("requesting")
	body, err := c.get(ctx, c.RequestURL(batch))
	if err != nil {
		return nil, err
	}

	payload, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, body); err != nil {
			c.logger.Warn().Err(err).Msg("could not cache payload")
		}
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request census api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// Decode parses the API's array-of-arrays JSON. Strings and numbers become
// cell text; null stays nil.
func Decode(r io.Reader) (types.Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw [][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	payload := make(types.Payload, len(raw))
	for i, row := range raw {
		cells := make([]*string, len(row))
		for j, v := range row {
			switch v := v.(type) {
			case nil:
			case string:
				cells[j] = &v
			case json.Number:
				s := v.String()
				cells[j] = &s
			default:
				s := fmt.Sprint(v)
				cells[j] = &s
			}
		}
		payload[i] = cells
	}
	return payload, nil
}
