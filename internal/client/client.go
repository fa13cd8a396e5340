package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/pkg/requestid"
	"github.com/pkg/errors"
)

// HarvesterClient is an HTTP client for the harvester API.
type HarvesterClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHarvesterClient builds a client for baseURL. Scrapes take minutes, so a
// zero timeout means no timeout rather than a short default.
func NewHarvesterClient(baseURL string, timeout time.Duration) *HarvesterClient {
	return &HarvesterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("harvester service returned status %d: %s", e.StatusCode, e.Message)
}

func (c *HarvesterClient) Scrape(ctx context.Context, query string, limit int) (api.PlaceList, error) {
	body, err := json.Marshal(api.ScrapeRequest{Query: query, Cap: limit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	var places api.PlaceList
	if err := c.do(ctx, http.MethodPost, "/api/v1/scrape", nil, body, http.StatusCreated, &places); err != nil {
		return nil, err
	}
	return places, nil
}

func (c *HarvesterClient) ListPlaces(ctx context.Context, params api.PlacesParams) (*api.PlacePage, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.MinRating != nil {
		q.Set("minRating", strconv.FormatFloat(*params.MinRating, 'f', -1, 64))
	}
	if params.SearchCriteria != "" {
		q.Set("searchCriteria", params.SearchCriteria)
	}

	var page api.PlacePage
	if err := c.do(ctx, http.MethodGet, "/api/v1/places", q, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HarvesterClient) ListScrapeLogs(ctx context.Context, status string) (api.ScrapeLogList, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}

	var logs api.ScrapeLogList
	if err := c.do(ctx, http.MethodGet, "/api/v1/scrape-logs", q, nil, http.StatusOK, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *HarvesterClient) HealthCheck(ctx context.Context) error {
	var status api.Status
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, http.StatusOK, &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return errors.Errorf("harvester service is unhealthy: %s", status.Status)
	}
	return nil
}

func (c *HarvesterClient) do(ctx context.Context, method, path string, query url.Values, body []byte, expected int, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestid.Propagate(ctx, httpReq.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "failed to call harvester service")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != expected {
		var apiErr api.Error
		message := strings.TrimSpace(string(bodyBytes))
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
