// Package places talks to the upstream places provider: nearby search pages,
// continuation tokens and place details.
package places

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/observability"
)

var (
	ErrUpstream = errors.New("places upstream failure")
	// ErrStaleToken wraps ErrUpstream.
	ErrStaleToken = fmt.Errorf("%w: continuation token rejected", ErrUpstream)
	ErrNotFound   = errors.New("place not found")
)

const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusInvalidRequest = "INVALID_REQUEST"
	statusNotFound       = "NOT_FOUND"
)

type RawLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type RawPlace struct {
	ID       string   `json:"id"`
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Rating   *float64 `json:"rating"`
	Types    []string `json:"types"`
	Geometry struct {
		Location RawLocation `json:"location"`
	} `json:"geometry"`
}

// Params selects either a fresh query or a resumption. A non-empty PageToken
// wins and every other field is ignored.
type Params struct {
	Origin    *model.LatLng
	Text      string
	Sort      model.SortMode
	PageToken string
}

type Page struct {
	Results       []RawPlace
	NextPageToken string
}

type searchResponse struct {
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message"`
	NextPageToken string     `json:"next_page_token"`
	Results       []RawPlace `json:"results"`
}

type detailsResponse struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Result       RawPlace `json:"result"`
}

type Client struct {
	baseURL *url.URL
	key     string
	radius  int
	http    *http.Client
	breaker *breaker
	details *lru.Cache[string, model.Place]
	logger  *slog.Logger
}

func New(cfg config.PlacesCfg, logger *slog.Logger, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse places base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("places base url %q must be absolute", cfg.BaseURL)
	}
	size := cfg.DetailsCache
	if size <= 0 {
		size = 1
	}
	details, err := lru.New[string, model.Place](size)
	if err != nil {
		return nil, fmt.Errorf("details cache: %w", err)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: u,
		key:     cfg.APIKey,
		radius:  cfg.Radius,
		http:    hc,
		breaker: newBreaker("places-api", logger),
		details: details,
		logger:  logger,
	}, nil
}

// searchQuery renders the nearbysearch parameters: {pagetoken,key} when
// resuming, otherwise location plus either radius or rankby.
func (c *Client) searchQuery(p Params) url.Values {
	q := url.Values{}
	q.Set("key", c.key)
	if p.PageToken != "" {
		q.Set("pagetoken", p.PageToken)
		return q
	}
	if p.Origin != nil {
		q.Set("location", formatLocation(*p.Origin))
	}
	if p.Text != "" {
		q.Set("name", p.Text)
	}
	if s := p.Sort.String(); s != "" {
		q.Set("rankby", s)
	} else {
		q.Set("radius", strconv.Itoa(c.radius))
	}
	return q
}

func (c *Client) FetchPage(ctx context.Context, p Params) (Page, error) {
	q := c.searchQuery(p)
	c.logger.DebugContext(ctx, "finding places", "relay", p.PageToken != "", "rankby", q.Get("rankby"))

	var resp searchResponse
	if err := c.getJSON(ctx, "nearbysearch", q, &resp); err != nil {
		return Page{}, err
	}
	switch resp.Status {
	case statusOK, statusZeroResults, "":
	case statusInvalidRequest:
		if p.PageToken != "" {
			return Page{}, ErrStaleToken
		}
		return Page{}, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	default:
		return Page{}, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}
	c.logger.DebugContext(ctx, "places found", "count", len(resp.Results), "has_next", resp.NextPageToken != "")
	return Page{Results: resp.Results, NextPageToken: resp.NextPageToken}, nil
}

// Details resolves a single place by provider id. Results are kept in an
// in-process LRU.
func (c *Client) Details(ctx context.Context, placeID string) (model.Place, error) {
	if p, ok := c.details.Get(placeID); ok {
		return p, nil
	}
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("key", c.key)

	var resp detailsResponse
	if err := c.getJSON(ctx, "details", q, &resp); err != nil {
		return model.Place{}, err
	}
	switch resp.Status {
	case statusOK, "":
	case statusNotFound, statusZeroResults, statusInvalidRequest:
		return model.Place{}, fmt.Errorf("%w: %s", ErrNotFound, placeID)
	default:
		return model.Place{}, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}
	p := Normalize(nil, []RawPlace{resp.Result})[0]
	if p.ID == "" {
		p.ID = placeID
	}
	c.details.Add(placeID, p)
	return p, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	u := *c.baseURL
	u.Path = u.Path + "/" + endpoint + "/json"
	u.RawQuery = q.Encode()

	start := time.Now()
	body, err := c.breaker.do(func() ([]byte, error) {
		return c.get(ctx, u.String())
	})
	observability.ObserveUpstreamLatency(endpoint, err, time.Since(start).Seconds())
	if err != nil {
		c.logger.ErrorContext(ctx, "places request failed", "endpoint", endpoint, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrUpstream, endpoint, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUpstream, endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func formatLocation(ll model.LatLng) string {
	return strconv.FormatFloat(ll.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(ll.Longitude, 'f', -1, 64)
}
