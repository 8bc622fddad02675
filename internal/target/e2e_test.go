package target_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/engine"
	"github.com/wesleyorama2/vuload/internal/target"
)

// A full run against the bundled users API.
func TestRunAgainstTarget(t *testing.T) {
	srv := target.New(target.Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.Default()
	cfg.BaseURL = ts.URL
	cfg.VUs = 1
	cfg.Duration = config.Duration(time.Second)
	cfg.Thresholds.Checks = []string{"rate > 0.99"}
	cfg.Thresholds.HTTPReqFailed = []string{"rate < 0.01"}

	eng, err := engine.NewEngine(cfg)
	require.NoError(t, err)

	start := time.Now()
	summary, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, 5, srv.Store().Len(), "seeded users are stored")
	assert.Equal(t, 5, summary.Setup.Seeded)
	assert.Equal(t, "1", summary.Setup.Users[0].ID)

	require.Len(t, summary.Checks, 1)
	assert.GreaterOrEqual(t, summary.Checks[0].Passes, int64(1))
	assert.Equal(t, int64(0), summary.Checks[0].Fails)
	assert.True(t, summary.Passed)
}
