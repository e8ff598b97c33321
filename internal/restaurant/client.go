// Package restaurant talks to the restaurant-details service: the bulk
// lookup used to decorate reservations and the single lookup used to
// check who owns a restaurant.
package restaurant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/model"
)

// ErrRestaurantNotFound is returned when the restaurant service does not
// know the requested restaurant.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// Client implements the bulk details lookup and the ownership lookup
// against the restaurant service.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewClient creates a restaurant service client.  A nil httpClient gets a
// fresh one; a zero timeout means 5 seconds.  A non-zero timeout is
// installed on the given client.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, log logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
		log:     log,
	}
}

// do sends a JSON request to path under the base URL.  The caller closes
// the response body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// BulkDetails posts the identifier set to /restaurants/bulk in a single
// request, as {"<field>": [ids...]}, and returns the decoded detail
// objects.  Any non-2xx status is an error.
func (c *Client) BulkDetails(ctx context.Context, field string, ids []uint64) ([]model.RestaurantDetails, error) {
	body, err := json.Marshal(map[string][]uint64{field: ids})
	if err != nil {
		return nil, fmt.Errorf("encode bulk request: %w", err)
	}
	res, err := c.do(ctx, http.MethodPost, "/restaurants/bulk", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bulk restaurant request failed: %w", err)
	}
	defer res.Body.Close()

	c.log.WithFields(logrus.Fields{"status": res.StatusCode, "ids": len(ids)}).Debug("bulk restaurant response")

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("unexpected bulk restaurant response %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out []model.RestaurantDetails
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode bulk restaurants: %w", err)
	}
	return out, nil
}

// OwnerOf fetches /restaurants/:id and returns its owner_id.
func (c *Client) OwnerOf(ctx context.Context, restaurantID uint64) (uint64, error) {
	res, err := c.do(ctx, http.MethodGet, "/restaurants/"+strconv.FormatUint(restaurantID, 10), nil)
	if err != nil {
		return 0, fmt.Errorf("restaurant request failed: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return 0, ErrRestaurantNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		return 0, fmt.Errorf("unexpected restaurant response %d", res.StatusCode)
	}

	var details model.RestaurantDetails
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&details); err != nil {
		return 0, fmt.Errorf("decode restaurant: %w", err)
	}
	owner, ok := IDField(details, "owner_id")
	if !ok {
		return 0, fmt.Errorf("restaurant %d has no owner_id", restaurantID)
	}
	return owner, nil
}

// IDField reads a numeric identifier from a details object.  The service
// may encode ids as JSON numbers or as decimal strings.
func IDField(details model.RestaurantDetails, key string) (uint64, bool) {
	switch v := details[key].(type) {
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		return n, err == nil
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}
