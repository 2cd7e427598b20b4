package eastmoney

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCandidatesJoinsQuotes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stockrank/getAllCurrentList", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"data":[{"sc":"SH600000","rk":1},{"sc":"SZ000001","rk":2}]}`)
	})
	mux.HandleFunc("/api/qt/ulist.np/get", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Query().Get("secids"), "1.600000")
		require.Contains(t, r.URL.Query().Get("secids"), "0.000001")
		fmt.Fprint(w, `{"data":{"diff":[
			{"f2":1250,"f3":210,"f12":"600000","f14":"浦发银行"},
			{"f2":1100,"f3":-150,"f12":"000001","f14":"平安银行"}
		]}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)

	candidates, err := c.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "SH600000", candidates[0].Code)
	assert.Equal(t, "浦发银行", candidates[0].Name)
	assert.InDelta(t, 12.50, candidates[0].Price, 1e-9)
	assert.InDelta(t, 2.10, candidates[0].ChangePct, 1e-9)

	assert.Equal(t, "SZ000001", candidates[1].Code)
	assert.InDelta(t, -1.50, candidates[1].ChangePct, 1e-9)
}

func TestFetchCandidatesFallsBackToBoard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stockrank/getAllCurrentList", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/rank/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table class="rank-table"><tbody>
			<tr><td>sh600000</td><td>浦发银行</td><td>12.50</td><td>2.10%</td></tr>
			<tr><td>sz000001</td><td>平安银行</td><td>11.00</td><td>-1.50%</td></tr>
			<tr><td>sh600999</td><td>坏行情</td><td>--</td><td>--</td></tr>
		</tbody></table></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)

	candidates, err := c.FetchCandidates(context.Background())
	require.NoError(t, err)

	// The unparseable row is skipped.
	require.Len(t, candidates, 2)
	assert.Equal(t, "SH600000", candidates[0].Code)
	assert.InDelta(t, 12.50, candidates[0].Price, 1e-9)
	assert.Equal(t, "SZ000001", candidates[1].Code)
}

func TestFetchCandidatesBothSourcesDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.FetchCandidates(context.Background())
	assert.Error(t, err)
}
