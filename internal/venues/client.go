package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spotsync/discovery/internal/discovery"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/observability"
)

// searchFeature is one raw venue from the upstream places search.
type searchFeature struct {
	Properties struct {
		PlaceID    string   `json:"place_id"`
		Name       string   `json:"name"`
		Categories []string `json:"categories"`
	} `json:"properties"`
	Geometry struct {
		// Coordinates are upstream-ordered: longitude first, latitude second.
		Coordinates [2]float64 `json:"coordinates"`
	} `json:"geometry"`
}

type searchResponse struct {
	Features []searchFeature `json:"features"`
}

// placeDetails carries the enrichment payload for one venue.
type placeDetails struct {
	AddressLine2 string   `json:"address_line2"`
	OpeningHours string   `json:"opening_hours"`
	Description  string   `json:"description"`
	Rating       *float64 `json:"rating"`
	PriceRange   string   `json:"price_range"`
	Contact      struct {
		Phone string `json:"phone"`
	} `json:"contact"`
	Datasource struct {
		Raw map[string]string `json:"raw"`
	} `json:"datasource"`
}

type detailsResponse struct {
	Features []struct {
		Properties placeDetails `json:"properties"`
	} `json:"features"`
}

// Client issues raw requests against the Geoapify Places API. Rate
// limiting, caching, and retries live in the Searcher; the client only
// shapes requests and classifies failures.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *observability.Metrics
}

// NewClient creates a places API client.
func NewClient(baseURL, apiKey string, httpClient *http.Client, metrics *observability.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
		metrics: metrics,
	}
}

// Search performs one places search. The radius is given in meters as
// the upstream circle filter requires.
func (c *Client) Search(ctx context.Context, center geo.Point, radiusMeters float64, categories string, limit int) ([]searchFeature, error) {
	params := url.Values{}
	params.Set("filter", fmt.Sprintf("circle:%s,%s,%s",
		strconv.FormatFloat(center.Lon, 'f', -1, 64),
		strconv.FormatFloat(center.Lat, 'f', -1, 64),
		strconv.FormatFloat(radiusMeters, 'f', -1, 64)))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("categories", categories)
	params.Set("apiKey", c.apiKey)

	var body searchResponse
	if err := c.get(ctx, "search", c.baseURL+"/places?"+params.Encode(), &body); err != nil {
		return nil, err
	}
	return body.Features, nil
}

// Details fetches the enrichment payload for one place id. A place with
// no detail feature returns nil without error.
func (c *Client) Details(ctx context.Context, placeID string) (*placeDetails, error) {
	params := url.Values{}
	params.Set("id", placeID)
	params.Set("features", "details,details.population,details.names")
	params.Set("apiKey", c.apiKey)

	var body detailsResponse
	if err := c.get(ctx, "details", c.baseURL+"/place-details?"+params.Encode(), &body); err != nil {
		return nil, err
	}
	if len(body.Features) == 0 {
		return nil, nil
	}
	return &body.Features[0].Properties, nil
}

// get performs one GET request and decodes the JSON response, mapping
// upstream status codes onto the transient/permanent error split.
func (c *Client) get(ctx context.Context, operation, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	op := "places: " + operation

	if err != nil {
		c.metrics.RecordUpstreamCall(ctx, "geoapify", operation, "error", duration)
		return &discovery.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamCall(ctx, "geoapify", operation, strconv.Itoa(resp.StatusCode), duration)

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("status code %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &discovery.TransientError{Op: op, Err: statusErr}
		}
		return &discovery.PermanentError{Op: op, Err: statusErr}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &discovery.PermanentError{Op: op + ": decode", Err: err}
	}
	return nil
}
