package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/safar/storefront/internal/config"
	"github.com/shopspring/decimal"
)

func init() {
	// the remote API reads and writes money as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Credentials supplies the bearer token for each request. An empty token
// sends the request unauthenticated.
type Credentials interface {
	Token() string
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials Credentials
}

func NewClient(cfg *config.APIConfig, credentials Credentials) *Client {
	dialer := &net.Dialer{
		Timeout: cfg.ConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}
	return NewClientWithHTTP(cfg.BaseURL, &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, credentials)
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client, credentials Credentials) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		credentials: credentials,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Token() string {
	if c.credentials == nil {
		return ""
	}
	return c.credentials.Token()
}

func Get[R any](ctx context.Context, c *Client, path string) (R, error) {
	return Do[R](ctx, c, http.MethodGet, path, nil)
}

func Post[R any](ctx context.Context, c *Client, path string, body any) (R, error) {
	return Do[R](ctx, c, http.MethodPost, path, body)
}

func Put[R any](ctx context.Context, c *Client, path string, body any) (R, error) {
	return Do[R](ctx, c, http.MethodPut, path, body)
}

func Patch[R any](ctx context.Context, c *Client, path string, body any) (R, error) {
	return Do[R](ctx, c, http.MethodPatch, path, body)
}

func Delete[R any](ctx context.Context, c *Client, path string) (R, error) {
	return Do[R](ctx, c, http.MethodDelete, path, nil)
}

// Do performs one request and decodes a 2xx JSON body into R. Nothing is
// retried.
func Do[R any](ctx context.Context, c *Client, method, path string, body any) (R, error) {
	var result R

	var reader io.Reader
	if body != nil {
		requestBodyBytes, err := json.Marshal(body)
		if err != nil {
			return result, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(requestBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return result, fmt.Errorf("build %s %s: %w", method, path, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	start := time.Now()
	r, err := c.httpClient.Do(req)
	if err != nil {
		return result, &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)
	glog.V(2).Infof("[api]%s %s -> %d (%s)", method, path, r.StatusCode, time.Since(start))
	if err != nil {
		return result, &Error{Kind: KindTransport, Method: method, Path: path, Status: r.StatusCode, Err: err}
	}

	if r.StatusCode < 200 || r.StatusCode >= 300 {
		return result, &Error{
			Kind:    KindServer,
			Method:  method,
			Path:    path,
			Status:  r.StatusCode,
			Message: errorMessage(responseBodyBytes),
		}
	}

	if len(bytes.TrimSpace(responseBodyBytes)) == 0 {
		return result, nil
	}

	if err := json.Unmarshal(responseBodyBytes, &result); err != nil {
		return result, &Error{Kind: KindServer, Method: method, Path: path, Status: r.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return result, nil
}

func errorMessage(body []byte) string {
	var envelope struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch m := envelope.Message.(type) {
		case string:
			if m != "" {
				return m
			}
		case []any:
			parts := make([]string, 0, len(m))
			for _, p := range m {
				parts = append(parts, fmt.Sprint(p))
			}
			return strings.Join(parts, "; ")
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}
