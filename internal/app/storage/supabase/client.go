// Package supabase implements the storage interfaces over the Supabase
// PostgREST API, one table per entity.
package supabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/estatelink/tre-backend/internal/app/metrics"
	"github.com/estatelink/tre-backend/internal/errors"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB

	// preferRepresentation asks PostgREST to echo affected rows back.
	preferRepresentation = "return=representation"
	// acceptSingleObject makes PostgREST return one object or a 406.
	acceptSingleObject = "application/vnd.pgrst.object+json"

	// pgUniqueViolation is the Postgres error code for a uniqueness conflict.
	pgUniqueViolation = "23505"
)

// Config holds Supabase connection configuration.
type Config struct {
	URL        string
	ServiceKey string
}

// Client is a thin PostgREST HTTP client with retry on transient failures.
type Client struct {
	url        string
	serviceKey string
	httpClient *http.Client
	retry      RetryConfig
}

// NewClient creates a client; URL and service key are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase URL and service key are required")
	}

	transport := http.DefaultTransport
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		cloned := base.Clone()
		if cloned.TLSClientConfig == nil {
			cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		} else if cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
			cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
			cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
		}
		transport = cloned
	}

	return &Client{
		url:        cfg.URL,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		retry: DefaultRetryConfig(),
	}, nil
}

// requestOpts tweak a single PostgREST request.
type requestOpts struct {
	prefer       string
	singleObject bool
}

// request performs one PostgREST call and returns the raw response body.
// 406 responses (single-object read with no row) surface as a not-found
// ServiceError; unique violations surface as a conflict.
func (c *Client) request(ctx context.Context, method, table, rawQuery string, body any, opts requestOpts) (data []byte, err error) {
	defer func() { metrics.RecordStoreRequest(table, method, err) }()

	url := fmt.Sprintf("%s/rest/v1/%s", c.url, table)
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Internal("marshal request body", err)
		}
	}

	resp, err := c.do(ctx, method, url, payload, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotAcceptable {
		return nil, errors.NotFound("record not found")
	}
	if resp.StatusCode >= 400 {
		return nil, c.mapError(resp)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Internal("read supabase response", err)
	}
	return data, nil
}

// do performs the HTTP exchange, retrying transient failures with
// exponential backoff. The request is rebuilt per attempt so the body can be
// resent.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, opts requestOpts) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Internal("supabase request cancelled", ctx.Err())
			case <-time.After(c.retry.backoff(attempt - 1)):
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, errors.Internal("create request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", c.serviceKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		if opts.prefer != "" {
			req.Header.Set("Prefer", opts.prefer)
		}
		if opts.singleObject {
			req.Header.Set("Accept", acceptSingleObject)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Internal("supabase request cancelled", ctx.Err())
			}
			lastErr = err
			continue
		}
		if retryableStatus(resp.StatusCode) && attempt < c.retry.MaxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("supabase status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, errors.Internal("supabase request failed", lastErr)
}

// mapError converts a PostgREST error payload into a ServiceError.
func (c *Client) mapError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	code := gjson.GetBytes(body, "code").String()
	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = fmt.Sprintf("supabase error: status %d", resp.StatusCode)
	}

	switch {
	case code == pgUniqueViolation || resp.StatusCode == http.StatusConflict:
		return errors.Conflict(message)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound(message)
	case resp.StatusCode == http.StatusBadRequest:
		return errors.Validation(message)
	default:
		return errors.Internal(message, fmt.Errorf("supabase status %d: %s", resp.StatusCode, body))
	}
}

// Health verifies the REST endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.request(ctx, http.MethodGet, "users", "select=id&limit=1", nil, requestOpts{})
	return err
}
