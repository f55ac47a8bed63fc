package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cardcaptor/almanac-service/configs"
	"github.com/cardcaptor/almanac-service/internal/application/services"
	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/calendarapi"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/db"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/discovery"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/repositories"
)

// fakeUpstream plays both the discovery endpoint and the almanac API.
type fakeUpstream struct {
	mu          sync.Mutex
	dayFetches  int
	hourFetches int
	dayPayload  map[string]any
	hourPayload map[string]any

	apiSrv       *httptest.Server
	discoverySrv *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{
		dayPayload:  map[string]any{"code": 200, "yi": "祭祀 出行", "chongsha": "冲鼠"},
		hourPayload: map[string]any{"code": 200, "zi": map[string]any{"luck": "吉"}},
	}

	u.apiSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		var payload map[string]any
		switch r.URL.Path {
		case "/api/time/getzdday.php":
			u.dayFetches++
			payload = u.dayPayload
		case "/api/time/getzddayh.php":
			u.hourFetches++
			payload = u.hourPayload
		default:
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(u.apiSrv.Close)

	u.discoverySrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"code": 200, "api": "%s/"}`, u.apiSrv.URL)
	}))
	t.Cleanup(u.discoverySrv.Close)

	return u
}

func (u *fakeUpstream) counts() (int, int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.dayFetches, u.hourFetches
}

func (u *fakeUpstream) alterPayloads() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dayPayload = map[string]any{"code": 200, "yi": "嫁娶 安床", "chongsha": "冲牛"}
	u.hourPayload = map[string]any{"code": 200, "zi": map[string]any{"luck": "凶"}}
}

func newStack(t *testing.T, u *fakeUpstream) (ports.AlmanacService, *db.Database) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "almanac.db")
	database, err := db.NewDatabaseWithConfig(&configs.DatabaseConfig{
		Path: path,
		DSN:  fmt.Sprintf("file:%s?_busy_timeout=5000", path),
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	resolver := discovery.NewEndpointResolver(u.discoverySrv.URL, 2*time.Second, nil)
	client := calendarapi.NewAlmanacClient(resolver, "it-id", "it-key", 2*time.Second, nil)
	repo, err := repositories.NewAlmanacRepository(database, nil)
	require.NoError(t, err)

	return services.NewAlmanacService(client, repo, nil), database
}

func rowTimestamps(t *testing.T, database *db.Database, table, date string) (string, string) {
	t.Helper()
	var row struct {
		CreateTime string `db:"create_time"`
		UpdateTime string `db:"update_time"`
	}
	query := fmt.Sprintf("SELECT create_time, update_time FROM %s WHERE date = ?", table)
	require.NoError(t, database.DB.GetContext(context.Background(), &row, query, date))
	return row.CreateTime, row.UpdateTime
}

func TestAlmanacFlow(t *testing.T) {
	upstream := newFakeUpstream(t)
	svc, database := newStack(t, upstream)
	ctx := context.Background()
	date, err := almanac.NewDate(2025, 1, 1)
	require.NoError(t, err)

	// Empty cache: one fetch per dimension, both rows written with
	// equal first-write timestamps.
	first, err := svc.GetAlmanacInfo(ctx, date, false)
	require.NoError(t, err)
	require.Equal(t, "祭祀 出行", first.DayInfo["yi"])
	require.Contains(t, first.HourInfo, "zi")

	dayFetches, hourFetches := upstream.counts()
	require.Equal(t, 1, dayFetches)
	require.Equal(t, 1, hourFetches)

	for _, table := range []string{"day_calendar", "hour_calendar"} {
		created, updated := rowTimestamps(t, database, table, "2025-01-01")
		require.Equal(t, created, updated)
	}

	// Repeat: pure cache hit, zero additional fetches, identical result.
	second, err := svc.GetAlmanacInfo(ctx, date, false)
	require.NoError(t, err)
	dayFetches, hourFetches = upstream.counts()
	require.Equal(t, 1, dayFetches)
	require.Equal(t, 1, hourFetches)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(firstJSON), string(secondJSON))

	// Force refresh with altered upstream payloads: one fetch per
	// dimension again, and the cache reflects the new data.
	upstream.alterPayloads()

	// Age the rows so the refreshed update_time is observably newer
	// even within the store's one-second timestamp resolution.
	const aged = "2020-06-15 08:00:00"
	for _, table := range []string{"day_calendar", "hour_calendar"} {
		query := fmt.Sprintf("UPDATE %s SET create_time = ?, update_time = ?", table)
		_, err := database.DB.ExecContext(ctx, query, aged, aged)
		require.NoError(t, err)
	}

	third, err := svc.GetAlmanacInfo(ctx, date, true)
	require.NoError(t, err)
	require.Equal(t, "嫁娶 安床", third.DayInfo["yi"])

	dayFetches, hourFetches = upstream.counts()
	require.Equal(t, 2, dayFetches)
	require.Equal(t, 2, hourFetches)

	for _, table := range []string{"day_calendar", "hour_calendar"} {
		created, updated := rowTimestamps(t, database, table, "2025-01-01")
		require.Equal(t, aged, created, "%s create_time must survive the refresh", table)
		require.Greater(t, updated, created, "%s update_time must move forward", table)
	}

	// The post-refresh read serves the new payload from cache.
	fourth, err := svc.GetAlmanacInfo(ctx, date, false)
	require.NoError(t, err)
	require.Equal(t, "嫁娶 安床", fourth.DayInfo["yi"])
	dayFetches, hourFetches = upstream.counts()
	require.Equal(t, 2, dayFetches)
	require.Equal(t, 2, hourFetches)
}

func TestAlmanacFlow_PartialMiss(t *testing.T) {
	upstream := newFakeUpstream(t)
	svc, database := newStack(t, upstream)
	ctx := context.Background()
	date, err := almanac.NewDate(2025, 2, 14)
	require.NoError(t, err)

	// Warm both rows, then drop the day row to simulate a partial miss.
	_, err = svc.GetAlmanacInfo(ctx, date, false)
	require.NoError(t, err)
	_, err = database.DB.ExecContext(ctx, "DELETE FROM day_calendar WHERE date = ?", "2025-02-14")
	require.NoError(t, err)

	before, _ := upstream.counts()
	info, err := svc.GetAlmanacInfo(ctx, date, false)
	require.NoError(t, err)
	require.Contains(t, info.HourInfo, "zi")

	dayAfter, hourAfter := upstream.counts()
	require.Equal(t, before+1, dayAfter, "missing day row must be refetched")
	require.Equal(t, 1, hourAfter, "cached hour row must not be refetched")
}

func TestAlmanacFlow_DiscoveryHappensOncePerClient(t *testing.T) {
	upstream := newFakeUpstream(t)

	var discoveryHits int
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		discoveryHits++
		fmt.Fprintf(w, `{"code": 200, "api": "%s/"}`, upstream.apiSrv.URL)
	}))
	defer counting.Close()

	path := filepath.Join(t.TempDir(), "almanac.db")
	database, err := db.NewDatabaseWithConfig(&configs.DatabaseConfig{
		Path: path,
		DSN:  fmt.Sprintf("file:%s?_busy_timeout=5000", path),
	})
	require.NoError(t, err)
	defer database.Close()

	resolver := discovery.NewEndpointResolver(counting.URL, 2*time.Second, nil)
	client := calendarapi.NewAlmanacClient(resolver, "", "", 2*time.Second, nil)
	repo, err := repositories.NewAlmanacRepository(database, nil)
	require.NoError(t, err)
	svc := services.NewAlmanacService(client, repo, nil)

	ctx := context.Background()
	for _, day := range []int{1, 2, 3} {
		date, err := almanac.NewDate(2025, 3, day)
		require.NoError(t, err)
		_, err = svc.GetAlmanacInfo(ctx, date, false)
		require.NoError(t, err)
	}

	require.Equal(t, 1, discoveryHits, "the resolved address is memoized for the client's lifetime")
}
