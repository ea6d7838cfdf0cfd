package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakerank/stakerank/internal/cache"
	"github.com/stakerank/stakerank/internal/report"
	"github.com/stakerank/stakerank/internal/rpcpool"
	"github.com/stakerank/stakerank/internal/types"
)

type mockReports struct {
	entry cache.Entry
	err   error
}

func (m *mockReports) Get(context.Context) (cache.Entry, error) {
	return m.entry, m.err
}

func (m *mockReports) LastUpdated() time.Time {
	return m.entry.FetchedAt
}

type mockPool struct {
	status rpcpool.HealthStatus
}

func (m *mockPool) HealthStatus() *rpcpool.HealthStatus {
	s := m.status
	return &s
}

var fetchedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReport() *report.Report {
	agg := report.Aggregates{
		Active: map[types.Account]*report.ValidatorAggregate{
			"V1": {Name: "Alice", Nominators: 2, TotalBondedBalance: math.NewInt(300)},
			"V2": {Name: "Bob/node", Nominators: 5, TotalBondedBalance: math.NewInt(900)},
			"V3": {Name: "V3", Nominators: 1, TotalBondedBalance: math.NewInt(100)},
		},
		Waiting: map[types.Account]*report.ValidatorAggregate{
			"W1": {Name: "W1", Nominators: 1, TotalBondedBalance: math.NewInt(50)},
		},
	}
	rep := report.Rank(agg)
	rep.GeneratedAt = fetchedAt
	return &rep
}

func setupServer(t *testing.T, reports ReportSource, pool PoolStatus) http.Handler {
	t.Helper()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return NewServer(zerolog.New(zerolog.NewTestWriter(t)), 0, reports, pool, metrics).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSection(t *testing.T, body []byte) report.Section {
	t.Helper()
	var resp struct {
		Data        report.Section `json:"data"`
		LastFetched time.Time      `json:"last_fetched"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.LastFetched.Equal(fetchedAt))
	return resp.Data
}

func validators(s report.Section) []types.Account {
	out := make([]types.Account, len(s))
	for i, e := range s {
		out[i] = e.Validator
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	reports := &mockReports{entry: cache.Entry{Report: sampleReport(), FetchedAt: fetchedAt}}

	t.Run("healthy pool", func(t *testing.T) {
		pool := &mockPool{status: rpcpool.HealthStatus{Network: "ternoa", TotalEndpoints: 1, HealthyCount: 1}}
		w := do(t, setupServer(t, reports, pool), http.MethodGet, "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.LastFetched.Equal(fetchedAt))
		require.NotNil(t, resp.Pool)
		assert.Equal(t, 1, resp.Pool.HealthyCount)
	})

	t.Run("no usable endpoint", func(t *testing.T) {
		pool := &mockPool{status: rpcpool.HealthStatus{Network: "ternoa", TotalEndpoints: 2, ExcludedCount: 2}}
		w := do(t, setupServer(t, reports, pool), http.MethodGet, "/health")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"unavailable"`)
	})

	t.Run("without pool", func(t *testing.T) {
		w := do(t, setupServer(t, reports, nil), http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), `"pool"`)
	})
}

func TestHandleReport(t *testing.T) {
	h := setupServer(t, &mockReports{entry: cache.Entry{Report: sampleReport(), FetchedAt: fetchedAt}}, nil)
	w := do(t, h, http.MethodGet, "/api/v1/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Data struct {
			Active  report.Section `json:"active"`
			Waiting report.Section `json:"waiting"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []types.Account{"V2", "V1", "V3"}, validators(resp.Data.Active))
	assert.Equal(t, []types.Account{"W1"}, validators(resp.Data.Waiting))

	// active keys appear in rank order in the raw body
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `"V2"`), strings.Index(body, `"V1"`))
	assert.Less(t, strings.Index(body, `"V1"`), strings.Index(body, `"V3"`))
}

func TestHandleSection(t *testing.T) {
	h := setupServer(t, &mockReports{entry: cache.Entry{Report: sampleReport(), FetchedAt: fetchedAt}}, nil)

	testCases := []struct {
		name     string
		path     string
		code     int
		expected []types.Account
	}{
		{name: "active", path: "/api/v1/report/active", code: http.StatusOK, expected: []types.Account{"V2", "V1", "V3"}},
		{name: "limited", path: "/api/v1/report/active?limit=2", code: http.StatusOK, expected: []types.Account{"V2", "V1"}},
		{name: "zero limit means all", path: "/api/v1/report/active?limit=0", code: http.StatusOK, expected: []types.Account{"V2", "V1", "V3"}},
		{name: "waiting", path: "/api/v1/report/waiting?limit=10", code: http.StatusOK, expected: []types.Account{"W1"}},
		{name: "unknown section", path: "/api/v1/report/inactive", code: http.StatusNotFound},
		{name: "bad limit", path: "/api/v1/report/active?limit=abc", code: http.StatusBadRequest},
		{name: "negative limit", path: "/api/v1/report/active?limit=-1", code: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tc.path)
			require.Equal(t, tc.code, w.Code, w.Body.String())

			if tc.code != http.StatusOK {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Error)
				return
			}
			assert.Equal(t, tc.expected, validators(decodeSection(t, w.Body.Bytes())))
		})
	}
}

func TestHandleValidator(t *testing.T) {
	h := setupServer(t, &mockReports{entry: cache.Entry{Report: sampleReport(), FetchedAt: fetchedAt}}, nil)

	t.Run("found", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/validators/V1")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data ValidatorResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, types.Account("V1"), resp.Data.Validator)
		assert.Equal(t, report.SectionActive, resp.Data.Section)
		assert.Equal(t, 2, resp.Data.Rank)
		assert.Equal(t, "Alice", resp.Data.Name)
		assert.Equal(t, 2, resp.Data.Nominators)
		assert.True(t, resp.Data.TotalBondedBalance.Equal(math.NewInt(300)))
	})

	t.Run("waiting", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/validators/W1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"section":"waiting"`)
		assert.Contains(t, w.Body.String(), `"rank":1`)
	})

	t.Run("not found", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/validators/unknown")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReportUnavailable(t *testing.T) {
	h := setupServer(t, &mockReports{err: errors.New("nominators: connection refused")}, nil)

	for _, path := range []string{"/api/v1/report", "/api/v1/report/active", "/api/v1/validators/V1"} {
		w := do(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Contains(t, w.Body.String(), "connection refused", path)
	}
}

func TestSetupRoutes(t *testing.T) {
	h := setupServer(t, &mockReports{entry: cache.Entry{Report: sampleReport(), FetchedAt: fetchedAt}}, nil)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "Metrics endpoint", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "Non-existent endpoint", method: http.MethodGet, path: "/api/v1/non-existent", expectedStatus: http.StatusNotFound},
		{name: "Wrong method", method: http.MethodPost, path: "/api/v1/report", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, tc.path)
			assert.Equal(t, tc.expectedStatus, w.Code)
		})
	}
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(zerolog.Nop(), 0, &mockReports{}, nil, nil)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
