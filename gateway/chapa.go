// Package gateway talks to the Chapa hosted-checkout API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"checkout-relay/models"
	"checkout-relay/monitoring"
)

const (
	initializePath = "/v1/transaction/initialize"
	verifyPath     = "/v1/transaction/verify/"

	// maxErrorBody caps how much of an upstream error body is kept for logs.
	maxErrorBody = 4 << 10
)

// ErrMalformedResponse is returned when a 2xx reply lacks the expected fields.
var ErrMalformedResponse = errors.New("malformed gateway response")

// StatusError is returned for non-2xx gateway replies. Body holds the
// (truncated) upstream payload for server-side logging.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway returned status %d: %s", e.StatusCode, e.Body)
}

// Client is a Chapa API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewClient creates a client for baseURL authenticated with the secret key.
// A nil httpClient gets an otelhttp-instrumented default.
func NewClient(baseURL, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		httpClient: httpClient,
	}
}

// Initialize creates a hosted checkout and returns its URL.
func (c *Client) Initialize(ctx context.Context, req *models.InitializeRequest) (string, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "chapa"),
		attribute.String("payment.tx_ref", req.TxRef),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var resp models.InitializeResponse
	if err := c.do(ctx, "initialize", http.MethodPost, c.baseURL+initializePath, body, &resp); err != nil {
		return "", err
	}
	if resp.Data == nil || resp.Data.CheckoutURL == "" {
		return "", fmt.Errorf("%w: no checkout_url (status=%q message=%q)", ErrMalformedResponse, resp.Status, resp.Message)
	}

	span.SetAttributes(attribute.String("external.status", "success"))
	return resp.Data.CheckoutURL, nil
}

// Verify looks up the outcome of the transaction identified by txRef.
func (c *Client) Verify(ctx context.Context, txRef string) (*models.VerifyResponse, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("external.service", "chapa"),
		attribute.String("payment.tx_ref", txRef),
	)

	var resp models.VerifyResponse
	if err := c.do(ctx, "verify", http.MethodGet, c.baseURL+verifyPath+url.PathEscape(txRef), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: no data (status=%q message=%q)", ErrMalformedResponse, resp.Status, resp.Message)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(ctx, operation, "error", start)
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(ctx, operation, "failed", start)
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("external.status_code", resp.StatusCode),
			attribute.String("external.status", "failed"),
		)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.record(ctx, operation, "malformed", start)
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.record(ctx, operation, "success", start)
	return nil
}

func (c *Client) record(ctx context.Context, operation, status string, start time.Time) {
	monitoring.GatewayCallDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}
