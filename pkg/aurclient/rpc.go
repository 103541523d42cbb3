// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package aurclient implements the external collaborators the scoring
// engine treats as interfaces: the package index RPC API, the recipe
// repository's VCS surface, and the upstream code-host star lookup.
package aurclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/traur/pkg/aurctx"
)

const (
	aurRPCBase  = "https://aur.archlinux.org/rpc/v5"
	httpTimeout = 10 * time.Second
)

// RPCClient talks to the package index's info/search endpoints.
type RPCClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRPCClient returns an RPCClient with a 10-second HTTP timeout.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    aurRPCBase,
	}
}

type infoResponse struct {
	ResultCount int          `json:"resultcount"`
	Results     []infoResult `json:"results"`
}

type infoResult struct {
	Name           string   `json:"Name"`
	PackageBase    string   `json:"PackageBase"`
	URL            string   `json:"URL"`
	NumVotes       int      `json:"NumVotes"`
	Popularity     float64  `json:"Popularity"`
	OutOfDate      *int64   `json:"OutOfDate"`
	Maintainer     string   `json:"Maintainer"`
	Submitter      string   `json:"Submitter"`
	FirstSubmitted int64    `json:"FirstSubmitted"`
	LastModified   int64    `json:"LastModified"`
	License        []string `json:"License"`
}

func (r infoResult) toMetadata() aurctx.Metadata {
	return aurctx.Metadata{
		Name:           r.Name,
		PackageBase:    r.PackageBase,
		URL:            r.URL,
		NumVotes:       r.NumVotes,
		Popularity:     r.Popularity,
		OutOfDate:      r.OutOfDate,
		Maintainer:     r.Maintainer,
		Submitter:      r.Submitter,
		FirstSubmitted: r.FirstSubmitted,
		LastModified:   r.LastModified,
		License:        r.License,
	}
}

// FetchPackageInfo fetches metadata for a single package name. Returns
// (nil, nil) when the index has no record for name.
func (c *RPCClient) FetchPackageInfo(ctx context.Context, name string) (*aurctx.Metadata, error) {
	results, err := c.FetchPackagesInfo(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	m := results[0]
	return &m, nil
}

// FetchPackagesInfo fetches metadata for multiple package names in a
// single request. The index does not guarantee the response preserves
// request order or includes every requested name.
func (c *RPCClient) FetchPackagesInfo(ctx context.Context, names []string) ([]aurctx.Metadata, error) {
	if len(names) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("v", "5")
	q.Set("type", "info")
	for _, n := range names {
		q.Add("arg[]", n)
	}

	u := c.baseURL + "/info?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch package info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch package info: unexpected status %d", resp.StatusCode)
	}

	var parsed infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse package info: %w", err)
	}

	out := make([]aurctx.Metadata, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, r.toMetadata())
	}
	return out, nil
}

// FetchMaintainerPackages returns every package currently maintained by
// maintainer.
func (c *RPCClient) FetchMaintainerPackages(ctx context.Context, maintainer string) ([]aurctx.Metadata, error) {
	q := url.Values{}
	q.Set("v", "5")
	q.Set("by", "maintainer")

	u := c.baseURL + "/search/" + url.PathEscape(maintainer) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch maintainer packages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch maintainer packages: unexpected status %d", resp.StatusCode)
	}

	var parsed infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse maintainer packages: %w", err)
	}

	out := make([]aurctx.Metadata, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, r.toMetadata())
	}
	return out, nil
}

var (
	commentRE = regexp.MustCompile(`(?s)<div class="article-content"[^>]*>(.*?)</div>`)
	htmlTagRE = regexp.MustCompile(`<[^>]+>`)
)

// FetchComments returns up to ten recent comment strings for name, HTML
// stripped. The comment feed is not part of the RPC API; it is scraped from
// the package page, so any failure degrades to an empty slice rather than
// an error, matching every other optional fact in the context.
func (c *RPCClient) FetchComments(ctx context.Context, name string) []string {
	u := "https://aur.archlinux.org/packages/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	return extractComments(string(body))
}

func extractComments(html string) []string {
	matches := commentRE.FindAllStringSubmatch(html, -1)
	comments := make([]string, 0, len(matches))
	for _, m := range matches {
		text := htmlTagRE.ReplaceAllString(m[1], " ")
		text = decodeHTMLEntities(text)
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		comments = append(comments, text)
		if len(comments) == 10 {
			break
		}
	}
	return comments
}

func decodeHTMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return replacer.Replace(s)
}
