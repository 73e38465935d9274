package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/modules", "200"))
	ObserveRequest("GET", "/api/modules", http.StatusOK, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/modules", "200")))

	unmatched := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "unmatched", "404"))
	ObserveRequest("GET", "", http.StatusNotFound, time.Millisecond)
	assert.Equal(t, unmatched+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestRegisterPoolStatsTwice(t *testing.T) {
	// pools connect lazily, nothing listens on this address
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/x")
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, RegisterPoolStats(pool.Stat))
	require.NoError(t, RegisterPoolStats(pool.Stat))
	assert.Equal(t, int32(0), pool.Stat().TotalConns())
}

func TestHandlerExposesCollectors(t *testing.T) {
	ModuleCompletions.WithLabelValues("complete").Inc()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bildungsfortschritt_module_completions_total")
}
