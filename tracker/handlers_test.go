package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer wires a real store and a fake geolocation API behind an
// Echo instance, the same shape the server runs in production.
func setupTestServer(t *testing.T, trackLimit int) (*echo.Echo, *Store) {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "test_tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"countryCode":"US"}`))
	}))
	t.Cleanup(geoSrv.Close)

	e := echo.New()
	NewHandler(store, NewGeolocator(geoSrv.URL), trackLimit).RegisterRoutes(e)
	return e, store
}

func doRequest(e *echo.Echo, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTrackVisit(t *testing.T) {
	e, store := setupTestServer(t, 60)

	rec := doRequest(e, http.MethodPost, "/api/track/DWALL", map[string]string{
		"X-Forwarded-For": "1.2.3.4",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Visit tracked successfully", resp.Message)

	visits, err := store.RecentVisits(context.Background(), ProjectDwall, 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "1.2.3.4", visits[0].IPAddress)
	require.NotNil(t, visits[0].Country)
	assert.Equal(t, "US", *visits[0].Country)
}

func TestTrackVisitLocalIP(t *testing.T) {
	e, store := setupTestServer(t, 60)

	rec := doRequest(e, http.MethodPost, "/api/track/lsar", map[string]string{
		"X-Real-IP": "192.168.1.10",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	visits, err := store.RecentVisits(context.Background(), ProjectLsar, 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	require.NotNil(t, visits[0].Country)
	assert.Equal(t, "Local", *visits[0].Country)
}

func TestTrackVisitNoIPHeaders(t *testing.T) {
	e, store := setupTestServer(t, 60)

	rec := doRequest(e, http.MethodPost, "/api/track/UP2B", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	visits, err := store.RecentVisits(context.Background(), ProjectUp2b, 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "unknown", visits[0].IPAddress)
	require.NotNil(t, visits[0].Country)
	assert.Equal(t, "Local", *visits[0].Country)
}

func TestTrackUnknownProject(t *testing.T) {
	e, _ := setupTestServer(t, 60)

	rec := doRequest(e, http.MethodPost, "/api/track/NOPE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTrackRateLimited(t *testing.T) {
	e, _ := setupTestServer(t, 2)
	headers := map[string]string{"X-Forwarded-For": "1.2.3.4"}

	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/api/track/DWALL", headers).Code)
	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/api/track/DWALL", headers).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, http.MethodPost, "/api/track/DWALL", headers).Code)
}

func TestProjectStatsDetailed(t *testing.T) {
	e, store := setupTestServer(t, 60)
	seedVisit(t, store, ProjectDwall, "1.2.3.4", strPtr("US"), "2025-06-10 08:00:00")
	seedVisit(t, store, ProjectDwall, "1.2.3.4", strPtr("US"), "2025-06-10 09:00:00")

	rec := doRequest(e, http.MethodGet, "/api/stats/DWALL", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ProjectDetailedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ProjectDwall, resp.Project)
	assert.Equal(t, "https://github.com/dwall-rs/dwall", resp.Repository)
	assert.NotEmpty(t, resp.Icon)
	assert.NotEmpty(t, resp.Description)
	assert.Equal(t, int64(2), resp.TotalVisits)
	assert.Equal(t, int64(1), resp.UniqueVisitors)
	require.Len(t, resp.CountryStats, 1)
	assert.Equal(t, int64(2), resp.CountryStats[0].VisitCount)
	assert.Len(t, resp.RecentVisits, 2)
}

func TestAllStats(t *testing.T) {
	e, store := setupTestServer(t, 60)
	seedVisit(t, store, ProjectDwall, "1.1.1.1", strPtr("US"), "2025-06-10 08:00:00")
	seedVisit(t, store, ProjectDwall, "2.2.2.2", strPtr("DE"), "2025-06-11 08:00:00")
	seedVisit(t, store, ProjectLsar, "3.3.3.3", strPtr("FR"), "2025-06-12 08:00:00")

	rec := doRequest(e, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Projects []ProjectStats `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Projects, 2)
	assert.Equal(t, ProjectDwall, resp.Projects[0].Project)
	assert.Equal(t, int64(2), resp.Projects[0].TotalVisits)
}

func TestProjectStatsByTimeScoped(t *testing.T) {
	e, store := setupTestServer(t, 60)
	seedVisit(t, store, ProjectDwall, "1.1.1.1", strPtr("US"), "2025-06-10 08:00:00")
	seedVisit(t, store, ProjectDwall, "2.2.2.2", strPtr("US"), "2025-06-11 08:00:00")

	rec := doRequest(e, http.MethodGet, "/api/stats/DWALL/time?date=2025-06-10", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Scoped responses carry only the scalar totals: no country breakdown,
	// no recent visits.
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "total_visits")
	assert.NotContains(t, resp, "country_stats")
	assert.NotContains(t, resp, "recent_visits")

	var stats ProjectStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalVisits)
}

func TestProjectStatsByTimeUnscopedIsDetailed(t *testing.T) {
	e, store := setupTestServer(t, 60)
	seedVisit(t, store, ProjectDwall, "1.1.1.1", strPtr("US"), "2025-06-10 08:00:00")

	rec := doRequest(e, http.MethodGet, "/api/stats/DWALL/time", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "repository")
	assert.Contains(t, resp, "country_stats")
	assert.Contains(t, resp, "recent_visits")
}

func TestProjectStatsByTimeRange(t *testing.T) {
	e, store := setupTestServer(t, 60)
	seedVisit(t, store, ProjectDwall, "1.1.1.1", strPtr("US"), "2025-06-10 08:00:00")
	seedVisit(t, store, ProjectDwall, "2.2.2.2", strPtr("US"), "2025-06-20 08:00:00")
	seedVisit(t, store, ProjectDwall, "3.3.3.3", strPtr("US"), "2025-07-01 08:00:00")

	rec := doRequest(e, http.MethodGet, "/api/stats/DWALL/time?start_date=2025-06-01&end_date=2025-06-30", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats ProjectStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalVisits)
}

func TestProjectStatsByTimeMalformed(t *testing.T) {
	e, _ := setupTestServer(t, 60)

	for _, target := range []string{
		"/api/stats/DWALL/time?date=notadate",
		"/api/stats/DWALL/time?month=202506",
		"/api/stats/DWALL/time?start_date=2025-06-01",
	} {
		rec := doRequest(e, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestAllStatsByTime(t *testing.T) {
	e, store := setupTestServer(t, 60)
	day := "2025-06-10"
	seedVisit(t, store, ProjectDwall, "1.1.1.1", strPtr("US"), day+" 08:00:00")
	seedVisit(t, store, ProjectDwall, "2.2.2.2", strPtr("US"), day+" 09:00:00")
	seedVisit(t, store, ProjectLsar, "3.3.3.3", strPtr("FR"), day+" 10:00:00")
	seedVisit(t, store, ProjectUp2b, "4.4.4.4", strPtr("DE"), "2025-06-11 08:00:00")

	rec := doRequest(e, http.MethodGet, "/api/stats/time?date="+day, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Projects []ProjectStats `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Projects, 2)
	assert.Equal(t, ProjectDwall, resp.Projects[0].Project)
	assert.Equal(t, ProjectLsar, resp.Projects[1].Project)
}

func TestAllStatsByTimeRejectsRange(t *testing.T) {
	e, _ := setupTestServer(t, 60)

	rec := doRequest(e, http.MethodGet, "/api/stats/time?start_date=2025-06-01&end_date=2025-06-30", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	r.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "1.2.3.4", clientIP(r))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "5.6.7.8", clientIP(r))

	r.Header.Del("X-Real-IP")
	assert.Equal(t, "unknown", clientIP(r))
}
