// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/staticrel/lib/clock"
)

var testRepo = Repo{Owner: "owner", Name: "repo"}

// newTestClient creates a Client backed by the given httptest.Server.
// Both the API and upload hosts point at the server.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Clock:      clock.Real(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_HTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{
		BaseURL: "http://api.github.com",
		Token:   "test",
	})
	if err == nil {
		t.Fatal("expected error for HTTP URL")
	}
	if got := err.Error(); got != `github: API client requires HTTPS (got "http://api.github.com")` {
		t.Errorf("unexpected error: %s", got)
	}

	_, err = NewClient(Config{UploadBaseURL: "http://uploads.example", Token: "test"})
	if err == nil {
		t.Fatal("expected error for HTTP upload URL")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.baseURL != defaultBaseURL || client.uploadBaseURL != defaultUploadBaseURL {
		t.Errorf("base URLs = %q, %q", client.baseURL, client.uploadBaseURL)
	}
	if client.Authenticated() {
		t.Error("client without token should be anonymous")
	}

	client, err = NewClient(Config{BaseURL: "https://ghe.example/api/v3/", Token: "x"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.uploadBaseURL != "https://ghe.example/api/v3" {
		t.Errorf("upload URL should follow a custom base URL, got %q", client.uploadBaseURL)
	}
}

func TestClient_Headers(t *testing.T) {
	var receivedAuth, receivedAccept, receivedVersion, receivedAgent string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedAuth = request.Header.Get("Authorization")
		receivedAccept = request.Header.Get("Accept")
		receivedVersion = request.Header.Get("X-GitHub-Api-Version")
		receivedAgent = request.Header.Get("User-Agent")
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"ref":"refs/tags/v1","object":{"sha":"abc","type":"commit"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.GetTagRef(context.Background(), testRepo, "v1"); err != nil {
		t.Fatalf("GetTagRef: %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if receivedAccept != "application/vnd.github+json" {
		t.Errorf("Accept = %q", receivedAccept)
	}
	if receivedVersion != "2022-11-28" {
		t.Errorf("X-GitHub-Api-Version = %q", receivedVersion)
	}
	if !strings.HasPrefix(receivedAgent, "staticrel/") {
		t.Errorf("User-Agent = %q", receivedAgent)
	}
}

func TestClient_AnonymousOmitsAuthorization(t *testing.T) {
	var sawAuthorization atomic.Bool
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if _, present := request.Header["Authorization"]; present {
			sawAuthorization.Store(true)
		}
		writer.Write([]byte(`[]`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ListTags(testRepo).Collect(context.Background()); err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if sawAuthorization.Load() {
		t.Error("anonymous client sent an Authorization header")
	}
}

func TestClient_RateLimitBackoff(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	var requestCount atomic.Int32
	resetTime := fakeClock.Now().Add(30 * time.Second)

	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if requestCount.Add(1) == 1 {
			writer.Header().Set("X-RateLimit-Remaining", "0")
			writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
			writer.Header().Set("Retry-After", "30")
			writer.WriteHeader(http.StatusForbidden)
			json.NewEncoder(writer).Encode(map[string]string{
				"message": "API rate limit exceeded",
			})
			return
		}
		writer.Header().Set("X-RateLimit-Remaining", "4999")
		writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Add(time.Hour).Unix(), 10))
		writer.Write([]byte(`{"id":7,"tag_name":"v1"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Clock:      fakeClock,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	done := make(chan error, 1)
	var release *Release
	go func() {
		var requestErr error
		release, requestErr = client.GetReleaseByTag(context.Background(), testRepo, "v1")
		done <- requestErr
	}()

	// The backoff blocks on clock.After; advance past the retry window.
	fakeClock.WaitForWaiters(1)
	fakeClock.Advance(31 * time.Second)

	if err := <-done; err != nil {
		t.Fatalf("GetReleaseByTag: %v", err)
	}
	if got := requestCount.Load(); got != 2 {
		t.Errorf("expected 2 requests (rate limited + retry), got %d", got)
	}
	if release == nil || release.ID != 7 {
		t.Errorf("expected release 7, got %+v", release)
	}
}

func TestClient_ETagCaching(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		if request.Header.Get("If-None-Match") == `"etag-123"` {
			writer.WriteHeader(http.StatusNotModified)
			return
		}
		writer.Header().Set("ETag", `"etag-123"`)
		writer.Write([]byte(`{"id":1,"tag_name":"v1","name":"Cached"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	for attempt := range 2 {
		release, err := client.GetReleaseByTag(ctx, testRepo, "v1")
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if release.Name != "Cached" {
			t.Errorf("attempt %d: name = %q, want %q", attempt, release.Name, "Cached")
		}
	}
	if got := requestCount.Load(); got != 2 {
		t.Errorf("expected 2 HTTP requests, got %d", got)
	}
}

func TestClient_ErrorParsing(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		json.NewEncoder(writer).Encode(map[string]any{
			"message":           "Not Found",
			"documentation_url": "https://docs.github.com/rest",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetReleaseByTag(context.Background(), testRepo, "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got: %v", err)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("upstream unavailable\n"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetTagRef(context.Background(), testRepo, "v1")
	if err == nil || !strings.Contains(err.Error(), "HTTP 502: upstream unavailable") {
		t.Fatalf("err = %v", err)
	}
}
