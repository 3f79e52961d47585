// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLinkNext(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "next and last",
			header:   `<https://api.github.com/repos/owner/repo/issues?page=2>; rel="next", <https://api.github.com/repos/owner/repo/issues?page=5>; rel="last"`,
			expected: "https://api.github.com/repos/owner/repo/issues?page=2",
		},
		{
			name:     "only last",
			header:   `<https://api.github.com/repos/owner/repo/issues?page=1>; rel="last"`,
			expected: "",
		},
		{
			name:     "next only",
			header:   `<https://api.github.com/repos/owner/repo/issues?page=3>; rel="next"`,
			expected: "https://api.github.com/repos/owner/repo/issues?page=3",
		},
		{
			name:     "full four-link header",
			header:   `<https://api.github.com/repos/owner/repo/issues?page=1>; rel="prev", <https://api.github.com/repos/owner/repo/issues?page=3>; rel="next", <https://api.github.com/repos/owner/repo/issues?page=5>; rel="last", <https://api.github.com/repos/owner/repo/issues?page=1>; rel="first"`,
			expected: "https://api.github.com/repos/owner/repo/issues?page=3",
		},
		{
			name:     "url with query parameters",
			header:   `<https://api.github.com/repos/owner/repo/issues?state=open&per_page=30&page=2>; rel="next"`,
			expected: "https://api.github.com/repos/owner/repo/issues?state=open&per_page=30&page=2",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := parseLinkNext(test.header)
			if got != test.expected {
				t.Errorf("got %q, want %q", got, test.expected)
			}
		})
	}
}

func TestPageIterator(t *testing.T) {
	var serverURL string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Query().Get("per_page") != "100" {
			t.Errorf("per_page = %q, want 100", request.URL.Query().Get("per_page"))
		}
		switch request.URL.Query().Get("page") {
		case "":
			writer.Header().Set("Link", `<`+serverURL+`/repos/owner/repo/tags?per_page=100&page=2>; rel="next"`)
			writer.Write([]byte(`[{"name":"v1"},{"name":"v2"}]`))
		case "2":
			writer.Write([]byte(`[{"name":"v3"}]`))
		default:
			t.Errorf("unexpected page %q", request.URL.Query().Get("page"))
		}
	}))
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(t, server)
	names, err := RepoTags{Client: client, Repo: testRepo}.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if strings.Join(names, ",") != "v1,v2,v3" {
		t.Errorf("names = %v", names)
	}
}

func TestPageIterator_Error(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writer.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListTags(testRepo).Collect(context.Background())
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound, got %v", err)
	}
}
