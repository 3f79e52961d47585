// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/clock"
	"github.com/bureau-foundation/staticrel/lib/version"
)

// githubAPIVersion is the GitHub REST API version header. Pinning the
// version ensures consistent behavior as GitHub evolves the API.
const githubAPIVersion = "2022-11-28"

const (
	defaultBaseURL       = "https://api.github.com"
	defaultUploadBaseURL = "https://uploads.github.com"
)

// maxResponseSize bounds how much of a JSON response body is read.
// Release and tag listings are paginated, so no legitimate page comes
// close to this.
const maxResponseSize = 16 << 20

// Config holds configuration for creating a GitHub API Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// "https://api.github.com". Must use HTTPS.
	BaseURL string

	// UploadBaseURL is the root URL for release asset uploads.
	// Defaults to "https://uploads.github.com", or to BaseURL when
	// BaseURL is set (GitHub Enterprise and test servers serve both
	// from one host). Must use HTTPS.
	UploadBaseURL string

	// Token is a personal access token or fine-grained token. Empty
	// means anonymous access, which only works for reads against
	// public repositories.
	Token string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed GitHub REST API client with authentication, rate
// limiting, pagination, ETag caching, and structured error handling.
// Safe for concurrent use.
type Client struct {
	baseURL       string
	uploadBaseURL string
	authorization string
	httpClient    *http.Client
	rateLimit     *rateLimitTracker
	etagCache     *etagCache
	clock         clock.Clock
	logger        *slog.Logger
}

// NewClient creates a GitHub API client from the given configuration.
// Returns an error if either base URL is not HTTPS.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	uploadBaseURL := strings.TrimRight(config.UploadBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
		if uploadBaseURL == "" {
			uploadBaseURL = defaultUploadBaseURL
		}
	}
	if uploadBaseURL == "" {
		uploadBaseURL = baseURL
	}

	for _, candidate := range []string{baseURL, uploadBaseURL} {
		if !strings.HasPrefix(candidate, "https://") {
			return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", candidate)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var authorization string
	if config.Token != "" {
		authorization = "Bearer " + config.Token
	}

	return &Client{
		baseURL:       baseURL,
		uploadBaseURL: uploadBaseURL,
		authorization: authorization,
		httpClient:    httpClient,
		rateLimit:     newRateLimitTracker(clk),
		etagCache:     newETagCache(),
		clock:         clk,
		logger:        logger,
	}, nil
}

// Authenticated reports whether the client was configured with a token.
func (client *Client) Authenticated() bool {
	return client.authorization != ""
}

// apiRequest describes one HTTP exchange. The body is seekable so a
// rate-limited request can be replayed from the start.
type apiRequest struct {
	method        string
	url           string
	body          io.ReadSeeker
	contentType   string
	contentLength int64
}

// jsonRequest builds an apiRequest against the API host with an
// optional JSON-encoded body.
func (client *Client) jsonRequest(method, path string, requestBody any) (apiRequest, error) {
	request := apiRequest{method: method, url: client.baseURL + path}
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return apiRequest{}, fmt.Errorf("github: encoding request body: %w", err)
		}
		request.body = bytes.NewReader(encoded)
		request.contentType = "application/json"
		request.contentLength = int64(len(encoded))
	}
	return request, nil
}

// do executes an API request and returns the response body. GET
// responses participate in the ETag cache. Non-2xx responses become
// *APIError. A rate-limited request is retried once after the backoff
// GitHub advertises.
func (client *Client) do(ctx context.Context, request apiRequest) ([]byte, http.Header, error) {
	for attempt := 0; ; attempt++ {
		if request.body != nil {
			if _, err := request.body.Seek(0, io.SeekStart); err != nil {
				return nil, nil, fmt.Errorf("github: rewinding request body: %w", err)
			}
		}

		response, err := client.doRaw(ctx, request)
		if err != nil {
			return nil, nil, err
		}
		body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
		response.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("github: reading response body: %w", err)
		}

		if response.StatusCode == http.StatusNotModified {
			if cached := client.etagCache.body(request.url); cached != nil {
				return cached, response.Header, nil
			}
		}

		if response.StatusCode >= 200 && response.StatusCode < 300 {
			if request.method == http.MethodGet {
				client.etagCache.put(request.url, response.Header.Get("ETag"), body)
			}
			return body, response.Header, nil
		}

		rateLimited := response.StatusCode == http.StatusTooManyRequests ||
			(response.StatusCode == http.StatusForbidden && isRateLimitMessage(string(body)))
		if attempt > 0 || !rateLimited {
			return nil, nil, parseAPIErrorFromBody(response.StatusCode, body)
		}

		backoff := client.rateLimit.retryAfter(response.Header)
		if backoff <= 0 {
			return nil, nil, parseAPIErrorFromBody(response.StatusCode, body)
		}
		client.logger.Info("rate limited, backing off",
			"duration", backoff,
			"method", request.method,
			"url", request.url,
		)
		select {
		case <-client.clock.After(backoff):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// doRaw sends one HTTP request with authentication, standard GitHub
// headers, and conditional-GET headers, after waiting out an exhausted
// rate limit window. The caller closes the response body.
func (client *Client) doRaw(ctx context.Context, request apiRequest) (*http.Response, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if request.body != nil {
		body = request.body
	}
	httpRequest, err := http.NewRequestWithContext(ctx, request.method, request.url, body)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	if request.body != nil {
		httpRequest.ContentLength = request.contentLength
	}

	if client.authorization != "" {
		httpRequest.Header.Set("Authorization", client.authorization)
	}
	httpRequest.Header.Set("Accept", "application/vnd.github+json")
	httpRequest.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	httpRequest.Header.Set("User-Agent", version.UserAgent())
	if request.contentType != "" {
		httpRequest.Header.Set("Content-Type", request.contentType)
	}
	if request.method == http.MethodGet {
		if etag := client.etagCache.get(request.url); etag != "" {
			httpRequest.Header.Set("If-None-Match", etag)
		}
	}

	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", request.method, request.url, err)
	}
	client.rateLimit.update(response.Header)
	return response, nil
}

// get issues a GET against the API host and decodes the JSON response
// into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	request, err := client.jsonRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	body, _, err := client.do(ctx, request)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// post issues a POST with a JSON body and decodes the response into
// result when result is non-nil.
func (client *Client) post(ctx context.Context, path string, requestBody, result any) error {
	request, err := client.jsonRequest(http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}
	body, _, err := client.do(ctx, request)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(body, result)
}

// delete issues a DELETE against the API host.
func (client *Client) delete(ctx context.Context, path string) error {
	request, err := client.jsonRequest(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	_, _, err = client.do(ctx, request)
	return err
}

// parseAPIErrorFromBody parses a GitHub API error from a status code
// and response body. Bodies that are not GitHub's JSON error shape are
// kept verbatim as the message.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
		apiError.Errors = wireError.Errors
	} else {
		apiError.Message = strings.TrimSpace(string(body))
	}
	return apiError
}
