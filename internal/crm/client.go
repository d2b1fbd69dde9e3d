package crm

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNotConfigured = errors.New("crm webhook url is not configured")

// Error is a failure reported by Bitrix24 itself ({"error": ..., "error_description": ...}).
type Error struct {
	Method      string
	Code        string
	Description string
	Status      int
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("crm %s: %s: %s", e.Method, e.Code, e.Description)
	}
	return fmt.Sprintf("crm %s: %s", e.Method, e.Code)
}

// Observer receives one sample per remote call.
type Observer interface {
	ObserveCRM(method, result string, took time.Duration)
}

type Client struct {
	baseURL      string
	http         *http.Client
	obs          Observer
	tracer       trace.Tracer
	contactPages int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(obs Observer) Option {
	return func(c *Client) { c.obs = obs }
}

// WithContactPages caps how many 50-item pages ListContacts walks.
func WithContactPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.contactPages = n
		}
	}
}

func New(webhookURL string, timeout time.Duration, opts ...Option) *Client {
	base := strings.TrimSpace(webhookURL)
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &Client{
		baseURL:      base,
		http:         &http.Client{Timeout: timeout},
		tracer:       otel.Tracer("github.com/geocoder89/autocabinet/internal/crm"),
		contactPages: 10,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type envelope struct {
	Result           json.RawMessage `json:"result"`
	Next             *int            `json:"next,omitempty"`
	Total            int             `json:"total,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
}

// Call invokes a REST method and decodes "result" into out (when out is non-nil).
// It returns the "next" offset of list methods, nil when there is no further page.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) (next *int, err error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	ctx, span := c.tracer.Start(ctx, "crm."+method, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("crm.method", method))
	defer span.End()

	start := time.Now()
	result := "ok"

	defer func() {
		if c.obs != nil {
			c.obs.ObserveCRM(method, result, time.Since(start))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
	}()

	if params == nil {
		params = struct{}{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		result = "encode_error"
		return nil, fmt.Errorf("crm %s: encode params: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(body))
	if err != nil {
		result = "transport_error"
		return nil, fmt.Errorf("crm %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		result = "transport_error"
		return nil, fmt.Errorf("crm %s: %w", method, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		result = "transport_error"
		return nil, fmt.Errorf("crm %s: read body: %w", method, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	// Bitrix24 answers errors with 4xx plus a JSON body, so look at the body first.
	if decodeErr == nil && env.Error != "" {
		result = "remote_error"
		return nil, &Error{Method: method, Code: env.Error, Description: env.ErrorDescription, Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result = "http_error"
		return nil, fmt.Errorf("crm %s: http status %d", method, resp.StatusCode)
	}

	if decodeErr != nil {
		result = "decode_error"
		return nil, fmt.Errorf("crm %s: decode response: %w", method, decodeErr)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			result = "decode_error"
			return nil, fmt.Errorf("crm %s: decode result: %w", method, err)
		}
	}

	return env.Next, nil
}
