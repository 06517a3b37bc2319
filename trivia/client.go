/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package trivia is a client for a jService-style trivia API: random clues,
// and full categories by id.
package trivia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/jeopardy/games/jeopardy"
)

const DefaultBaseURL = "http://jservice.io/api"

var ErrStatus = errors.New("unexpected response status")

// Error describes a failed request to the trivia service.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("trivia %s %s: %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("trivia %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type randomClue struct {
	CategoryID int `json:"category_id"`
}

type category struct {
	Title string `json:"title"`
	Clues []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"clues"`
}

type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// New returns a client for the service rooted at baseURL. A zero timeout
// leaves requests bounded only by their context.
func New(baseURL string, timeout time.Duration, userAgent string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid trivia api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid trivia api url (must be http or https): %s", baseURL)
	}

	return &Client{
		base:      base,
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, op, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Op: op, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, URL: endpoint, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &Error{Op: op, URL: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}

// FetchRandomCategoryIDs asks for count random clues and returns the
// category id of each, in the order received. Duplicates are kept.
func (c *Client) FetchRandomCategoryIDs(ctx context.Context, count int) ([]int, error) {
	var clues []randomClue

	endpoint := c.endpoint("/random", url.Values{"count": {strconv.Itoa(count)}})
	if err := c.get(ctx, "random", endpoint, &clues); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(clues))
	for _, clue := range clues {
		ids = append(ids, clue.CategoryID)
	}

	return ids, nil
}

// FetchCategory returns the category with the given id, every clue hidden.
func (c *Client) FetchCategory(ctx context.Context, id int) (*jeopardy.Category, error) {
	var resp category

	endpoint := c.endpoint("/category", url.Values{"id": {strconv.Itoa(id)}})
	if err := c.get(ctx, "category", endpoint, &resp); err != nil {
		return nil, err
	}

	cat := &jeopardy.Category{
		Title: resp.Title,
		Clues: make([]*jeopardy.Clue, 0, len(resp.Clues)),
	}
	for _, clue := range resp.Clues {
		cat.Clues = append(cat.Clues, &jeopardy.Clue{
			Question: clue.Question,
			Answer:   clue.Answer,
			Showing:  jeopardy.Hidden,
		})
	}

	return cat, nil
}
