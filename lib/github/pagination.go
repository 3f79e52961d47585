// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// defaultPerPage is the page size requested from list endpoints.
// GitHub's maximum; tag and asset listings are walked to the end, so
// fewer round trips is strictly better.
const defaultPerPage = 100

// PageIterator lazily walks a paginated GitHub list endpoint, following
// the Link rel="next" header. Not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
}

// list returns an iterator starting at path on the API host.
func list[T any](client *Client, path string) *PageIterator[T] {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path + separator + "per_page=" + strconv.Itoa(defaultPerPage),
	}
}

// Next fetches the next page. Returns nil, nil once every page has been
// consumed.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.nextURL == "" {
		return nil, nil
	}

	response, err := iterator.client.doRaw(ctx, apiRequest{method: http.MethodGet, url: iterator.nextURL})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
		return nil, parseAPIErrorFromBody(response.StatusCode, body)
	}

	items := []T{}
	if err := json.NewDecoder(response.Body).Decode(&items); err != nil {
		return nil, err
	}
	iterator.nextURL = parseLinkNext(response.Header.Get("Link"))
	return items, nil
}

// Collect walks every remaining page and returns all items. On error
// it returns the items gathered so far alongside the error.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}

// parseLinkNext extracts the rel="next" URL from an RFC 5988 Link
// header, or "" when there is none.
//
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		target, params, found := strings.Cut(strings.TrimSpace(part), ";")
		if !found || !strings.Contains(params, `rel="next"`) {
			continue
		}
		target = strings.TrimSpace(target)
		if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
			return target[1 : len(target)-1]
		}
	}
	return ""
}
