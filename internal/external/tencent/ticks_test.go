package tencent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/config"
	"github.com/qlab/tickscan/pkg/httputil"
	"github.com/qlab/tickscan/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Providers.RequestTimeout = 5 * time.Second
	cfg.Providers.RequestsPerSec = 1000
	httpClient := httputil.New(cfg, logger.Nop()).DisableRetry()
	return NewClient(httpClient, baseURL, logger.Nop())
}

func TestFetchTicksParsesDetailPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "detail", r.URL.Query().Get("appn"))
		require.Equal(t, "sh600000", r.URL.Query().Get("c"))

		switch r.URL.Query().Get("p") {
		case "0":
			w.Write([]byte(`v_detail_data_sh600000=["sh600000","0/09:30:00/10.00/0.00/100/100000/B|1/09:30:03/10.01/0.01/200/202000/S|2/09:30:05/10.01/0.00/50/50500/M|3/09:30:06/10.01/0.00/0/0/B"]`))
		default:
			w.Write([]byte(`v_detail_data_sh600000=["sh600000",""]`))
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	series, err := c.FetchTicks(context.Background(), "SH600000")
	require.NoError(t, err)

	// Neutral and zero-volume fills dropped.
	require.Len(t, series, 2)

	assert.Equal(t, contracts.SideBuy, series[0].Side)
	assert.Equal(t, 10.00, series[0].Price)
	assert.Equal(t, int64(100), series[0].Volume)
	assert.Equal(t, 9, series[0].Time.Hour())
	assert.Equal(t, 30, series[0].Time.Minute())

	assert.Equal(t, contracts.SideSell, series[1].Side)
	assert.InDelta(t, 0.01, series[1].PriceDelta, 1e-12)
}

func TestFetchTicksEmptySession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`v_detail_data_sh600000=["sh600000",""]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.FetchTicks(context.Background(), "sh600000")
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestFetchTicksServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.FetchTicks(context.Background(), "sh600000")
	assert.ErrorIs(t, err, contracts.ErrProviderUnavailable)
}

func TestFetchTicksMultiplePages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("p") {
		case "0":
			w.Write([]byte(`["sh600000","0/09:30:00/10.00/0.00/100/100000/B"]`))
		case "1":
			w.Write([]byte(`["sh600000","1/09:30:10/10.02/0.02/300/303000/B"]`))
		default:
			w.Write([]byte(`["sh600000",""]`))
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	series, err := c.FetchTicks(context.Background(), "sh600000")
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.True(t, series[1].Time.After(series[0].Time))
}
