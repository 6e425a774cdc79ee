// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.duckduckgo.com/"
	instantSource  = "DuckDuckGo Instant Answer"
	fallbackSource = "Web Search"

	maxBodyBytes = 1 << 20
)

var ErrEmptyQuestion = errors.New("question is required")

// Suggestion is a candidate answer. It is never applied automatically.
type Suggestion struct {
	Answer string
	Source string
}

// Client queries an instant-answer endpoint speaking the DuckDuckGo JSON
// format.
type Client struct {
	baseURL     string
	querySuffix string
	httpClient  *http.Client
}

type Option func(*Client)

// WithQuerySuffix appends words to every lookup, e.g. "result winner" to
// steer the search toward outcomes.
func WithQuerySuffix(suffix string) Option {
	return func(c *Client) { c.querySuffix = strings.TrimSpace(suffix) }
}

func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	c := &Client{baseURL: baseURL, httpClient: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveAnswer looks up question. ok is false when the endpoint has no
// usable answer; err is only set for transport or protocol failures.
func (c *Client) ResolveAnswer(ctx context.Context, question string) (Suggestion, bool, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Suggestion{}, false, ErrEmptyQuestion
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Suggestion{}, false, fmt.Errorf("invalid oracle url: %w", err)
	}
	query := question
	if c.querySuffix != "" {
		query += " " + c.querySuffix
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Suggestion{}, false, fmt.Errorf("failed to build oracle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, false, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, false, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Suggestion{}, false, fmt.Errorf("failed to read oracle response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Suggestion{}, false, errors.New("oracle returned invalid JSON")
	}

	s, ok := extract(body)
	return s, ok, nil
}

// extract prefers the direct Answer, then the first sentence of the
// abstract.
func extract(body []byte) (Suggestion, bool) {
	res := gjson.GetManyBytes(body, "Answer", "AbstractText", "AbstractSource")

	if answer := strings.TrimSpace(res[0].String()); answer != "" {
		return Suggestion{Answer: answer, Source: instantSource}, true
	}

	abstract := strings.TrimSpace(res[1].String())
	if abstract == "" {
		return Suggestion{}, false
	}
	sentence, _, _ := strings.Cut(abstract, ".")
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return Suggestion{}, false
	}

	source := strings.TrimSpace(res[2].String())
	if source == "" {
		source = fallbackSource
	}
	return Suggestion{Answer: sentence, Source: source}, true
}
