package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Execute performs a single HTTP request attempt. It never retries: a
// failed attempt is returned to the caller to classify and record as an
// Observation, not hidden behind a retry loop (spec.md §4.4 "the executor
// does not retry"). ctx binds the underlying *http.Request so a caller can
// force an in-flight attempt to abort — the Concurrent Executor uses this to
// enforce its SIGINT grace period instead of only relying on req.Timeout.
func Execute(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if req.Method == "" {
		return nil, fmt.Errorf("HTTP method is required")
	}
	if req.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}

	var httpReq *http.Request
	var err error

	switch req.Method {
	case "GET", "HEAD", "OPTIONS", "DELETE":
		httpReq, err = buildSimpleRequest(ctx, req)
	case "POST", "PUT", "PATCH":
		httpReq, err = buildBodyRequest(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", req.Method)
	}
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{Timeout: timeout}

	var transport http.Transport
	transportConfigured := false
	if req.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transportConfigured = true
	}
	if req.Proxy != "" {
		proxyURL, err := url.Parse(req.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		transportConfigured = true
	}
	if transportConfigured {
		client.Transport = &transport
	}

	if !req.FollowRedirect {
		client.CheckRedirect = func(httpReq *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if req.MaxRedirects > 0 {
		maxRedirects := req.MaxRedirects
		client.CheckRedirect = func(httpReq *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    make(map[string]string),
		Body:       body,
		BodyString: string(body),
		Duration:   time.Since(startTime),
	}

	for key, values := range httpResp.Header {
		if len(values) > 0 {
			resp.Headers[key] = values[0]
		}
	}

	if !resp.IsSuccess() {
		return resp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return resp, nil
}

func buildSimpleRequest(ctx context.Context, req *Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	return httpReq, nil
}

func buildBodyRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	var contentType string

	switch {
	case req.JSONBody != "":
		body = strings.NewReader(req.JSONBody)
		contentType = "application/json"
	case req.RawBody != nil:
		body = bytes.NewReader(req.RawBody)
		contentType = "application/octet-stream"
	default:
		return nil, fmt.Errorf("%s request requires a body (JSON or raw bytes)", req.Method)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", contentType)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	return httpReq, nil
}
