package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/httpserver"
	"github.com/cardcaptor/almanac-service/test/mocks"
)

func newTestServer(svc ports.AlmanacService) *httpserver.Server {
	return httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0"}, nil, httpserver.ServerDeps{
		AlmanacService: svc,
	})
}

func doRequest(srv *httpserver.Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestGetAlmanac_ReturnsCombinedPayload(t *testing.T) {
	svc := &mocks.AlmanacServiceMock{
		GetAlmanacInfoFn: func(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
			require.Equal(t, "2025-01-01", date.String())
			require.False(t, forceRefresh)
			return &almanac.Info{
				Date:     date.String(),
				DayInfo:  almanac.DayRecord{"yi": "祭祀"},
				HourInfo: almanac.HourRecord{"zi": "吉"},
			}, nil
		},
	}

	rec := doRequest(newTestServer(svc), "/api/v1/almanac/2025-01-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-01-01", body["date"])
	assert.Contains(t, body, "day_info")
	assert.Contains(t, body, "hour_info")
}

func TestGetAlmanac_RefreshFlagIsForwarded(t *testing.T) {
	var sawRefresh bool
	svc := &mocks.AlmanacServiceMock{
		GetAlmanacInfoFn: func(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
			sawRefresh = forceRefresh
			return &almanac.Info{Date: date.String()}, nil
		},
	}

	rec := doRequest(newTestServer(svc), "/api/v1/almanac/2025-01-01?refresh=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawRefresh)
}

func TestGetAlmanac_InvalidDate(t *testing.T) {
	rec := doRequest(newTestServer(&mocks.AlmanacServiceMock{}), "/api/v1/almanac/not-a-date")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAlmanac_FetchFailureNamesDimension(t *testing.T) {
	svc := &mocks.AlmanacServiceMock{
		GetAlmanacInfoFn: func(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
			return nil, &almanac.RetrievalError{
				Date: date.String(),
				Err:  &almanac.FetchError{Dimension: almanac.DimensionHour, Err: errors.New("timeout")},
			}
		},
	}

	rec := doRequest(newTestServer(svc), "/api/v1/almanac/2025-01-01")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "hour")
}

func TestGetAlmanac_ResolutionFailureIsBadGateway(t *testing.T) {
	svc := &mocks.AlmanacServiceMock{
		GetAlmanacInfoFn: func(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
			return nil, &almanac.RetrievalError{
				Date: date.String(),
				Err:  &almanac.ResolutionError{Err: errors.New("discovery down")},
			}
		},
	}

	rec := doRequest(newTestServer(svc), "/api/v1/almanac/2025-01-01")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetAlmanac_StoreFailureIsInternal(t *testing.T) {
	svc := &mocks.AlmanacServiceMock{
		GetAlmanacInfoFn: func(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
			return nil, &almanac.RetrievalError{
				Date: date.String(),
				Err:  &almanac.WriteError{Dimension: almanac.DimensionDay, Date: date.String(), Err: errors.New("disk full")},
			}
		},
	}

	rec := doRequest(newTestServer(svc), "/api/v1/almanac/2025-01-01")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
