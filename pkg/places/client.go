// Package places provides a client for the Google Maps Places API
// (legacy Text Search and Place Details endpoints).
package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Client performs Places API operations.
type Client interface {
	// TextSearch runs a text query and returns the first result page.
	TextSearch(ctx context.Context, query string, radiusMeters int) (*SearchPage, error)
	// NextPage redeems a pagination token returned by a previous page.
	// Tokens take a couple of seconds to become valid after issue.
	NextPage(ctx context.Context, token string) (*SearchPage, error)
	// Details fetches contact fields for a single place.
	Details(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// SearchPage is one page of Text Search results.
type SearchPage struct {
	Results       []PlaceResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
}

// PlaceResult is a single place summary from Text Search.
type PlaceResult struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
}

// PlaceDetails holds the contact fields resolved per place.
type PlaceDetails struct {
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Website              string `json:"website"`
	URL                  string `json:"url"`
}

type detailsEnvelope struct {
	Result PlaceDetails `json:"result"`
	Status string       `json:"status"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, query string, radiusMeters int) (*SearchPage, error) {
	params := url.Values{
		"query":  {query},
		"radius": {strconv.Itoa(radiusMeters)},
		"key":    {c.apiKey},
	}
	return c.searchPage(ctx, params)
}

func (c *httpClient) NextPage(ctx context.Context, token string) (*SearchPage, error) {
	params := url.Values{
		"pagetoken": {token},
		"key":       {c.apiKey},
	}
	return c.searchPage(ctx, params)
}

func (c *httpClient) searchPage(ctx context.Context, params url.Values) (*SearchPage, error) {
	body, err := c.get(ctx, "/textsearch/json", params)
	if err != nil {
		return nil, err
	}

	var page SearchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal search response")
	}
	if page.Status != "OK" && page.Status != "ZERO_RESULTS" {
		return nil, eris.Errorf("places: search status %s", page.Status)
	}
	return &page, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {"formatted_phone_number,website,opening_hours,url"},
		"key":      {c.apiKey},
	}

	body, err := c.get(ctx, "/details/json", params)
	if err != nil {
		return nil, err
	}

	var env detailsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal details response")
	}
	if env.Status != "OK" && env.Status != "ZERO_RESULTS" && env.Status != "NOT_FOUND" {
		return nil, eris.Errorf("places: details status %s", env.Status)
	}
	return &env.Result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
