package calendarapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
)

const (
	dayPath  = "/api/time/getzdday.php"
	hourPath = "/api/time/getzddayh.php"
)

type almanacClient struct {
	resolver   ports.EndpointResolver
	httpClient *http.Client
	apiID      string
	apiKey     string
	logger     *logrus.Logger
}

// NewAlmanacClient creates the remote-call wrapper for the two almanac
// fetch operations. It holds no state beyond the resolver's memoized
// address: no caching, no retry, no rate limiting.
func NewAlmanacClient(resolver ports.EndpointResolver, apiID, apiKey string, timeout time.Duration, logger *logrus.Logger) ports.AlmanacClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &almanacClient{
		resolver:   resolver,
		httpClient: &http.Client{Timeout: timeout},
		apiID:      apiID,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// FetchDay retrieves the day-level almanac record for the date.
func (c *almanacClient) FetchDay(ctx context.Context, date almanac.Date) (almanac.DayRecord, error) {
	body, err := c.fetch(ctx, almanac.DimensionDay, dayPath, date)
	if err != nil {
		return nil, err
	}
	return almanac.DayRecord(body), nil
}

// FetchHour retrieves the twelve-period hour record for the date.
func (c *almanacClient) FetchHour(ctx context.Context, date almanac.Date) (almanac.HourRecord, error) {
	body, err := c.fetch(ctx, almanac.DimensionHour, hourPath, date)
	if err != nil {
		return nil, err
	}
	return almanac.HourRecord(body), nil
}

func (c *almanacClient) fetch(ctx context.Context, dimension almanac.Dimension, path string, date almanac.Date) (map[string]any, error) {
	address, err := c.resolver.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.request(ctx, address, path, date)
	if err != nil {
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"dimension": dimension,
				"date":      date.String(),
				"address":   address,
			}).WithError(err).Error("almanac fetch failed")
		}
		return nil, &almanac.FetchError{Dimension: dimension, Err: err}
	}
	return body, nil
}

func (c *almanacClient) request(ctx context.Context, address, path string, date almanac.Date) (map[string]any, error) {
	params := url.Values{}
	params.Set("id", c.apiID)
	params.Set("key", c.apiKey)
	params.Set("nian", strconv.Itoa(date.Year))
	params.Set("yue", strconv.Itoa(date.Month))
	params.Set("ri", strconv.Itoa(date.Day))

	requestURL := fmt.Sprintf("http://%s%s?%s", address, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}

	// The envelope carries its status in a numeric code field; the rest
	// of the body is the record itself and is returned verbatim.
	code, ok := body["code"].(float64)
	if !ok || int(code) != 200 {
		return nil, fmt.Errorf("upstream returned non-success envelope: %v", body)
	}

	return body, nil
}
