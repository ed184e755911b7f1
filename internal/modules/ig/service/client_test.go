package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"alert_bot/internal/modules/config"
	"alert_bot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testClient(serverURL string) *Client {
	cfg := &config.Config{}
	cfg.IG.Username = "user"
	cfg.IG.Password = "pass"
	cfg.IG.APIKey = "key"
	cfg.IG.AccountType = "DEMO"

	c := NewClient(cfg)
	c.baseURL = serverURL
	return c
}

func TestLoginCapturesSessionTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/session", r.URL.Path)
		require.Equal(t, "key", r.Header.Get("X-IG-API-KEY"))
		require.Equal(t, "2", r.Header.Get("Version"))

		w.Header().Set("CST", "cst-token")
		w.Header().Set("X-SECURITY-TOKEN", "sec-token")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	require.NoError(t, c.Login(context.Background()))

	cst, sec := c.tokens()
	assert.Equal(t, "cst-token", cst)
	assert.Equal(t, "sec-token", sec)
}

func TestLoginMissingTokensFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	require.Error(t, c.Login(context.Background()))
}

func TestDoRetriesOnceOnExpiredSession(t *testing.T) {
	var searches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session":
			w.Header().Set("CST", "fresh-cst")
			w.Header().Set("X-SECURITY-TOKEN", "fresh-sec")
			_, _ = w.Write([]byte(`{}`))
		case "/markets":
			searches++
			if r.Header.Get("CST") == "stale" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"errorCode":"error.security.client-token-invalid"}`))
				return
			}
			_, _ = w.Write([]byte(`{"markets":[{"epic":"CS.D.PML.DAILY.IP"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.setTokens("stale", "stale")

	markets, err := c.SearchMarkets(context.Background(), "PML")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "CS.D.PML.DAILY.IP", markets[0].Epic)
	assert.Equal(t, 2, searches, "one failed call, one retry after relogin")
}

func TestDoSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			w.Header().Set("CST", "c")
			w.Header().Set("X-SECURITY-TOKEN", "s")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorCode":"error.market.not-found"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GetMarketDetails(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error.market.not-found")
}

func TestGetMarketDetailsPoints(t *testing.T) {
	srv := httptest.NewServer(marketDetailsServer(t, `{
		"instrument": {"epic":"CS.D.PML.DAILY.IP","name":"PML Petra Diamonds","type":"SHARES","lotSize":0.01},
		"dealingRules": {
			"minDealSize":{"unit":"POINTS","value":0.5},
			"maxDealSize":{"unit":"POINTS","value":500},
			"minNormalStopOrLimitDistance":{"unit":"POINTS","value":2}
		},
		"snapshot": {"bid":7.65,"offer":7.67,"marketStatus":"TRADEABLE"}
	}`))
	defer srv.Close()

	c := testClient(srv.URL)
	d, err := c.GetMarketDetails(context.Background(), "CS.D.PML.DAILY.IP")
	require.NoError(t, err)

	assert.Equal(t, "CS.D.PML.DAILY.IP", d.Epic)
	assert.True(t, d.Tradeable())
	assert.InDelta(t, 7.66, d.Mid(), 1e-9)
	assert.InDelta(t, 2.0, d.MinStopDistance, 1e-9)
	assert.InDelta(t, 0.5, d.MinDealSize, 1e-9)
	assert.InDelta(t, 0.01, d.SizeIncrement, 1e-9)
}

func TestGetMarketDetailsPercentageConvertedToPoints(t *testing.T) {
	srv := httptest.NewServer(marketDetailsServer(t, `{
		"instrument": {"epic":"CS.D.PML.DAILY.IP","name":"PML","type":"SHARES","lotSize":0},
		"dealingRules": {
			"minDealSize":{"unit":"POINTS","value":0.5},
			"maxDealSize":{"unit":"POINTS","value":500},
			"minNormalStopOrLimitDistance":{"unit":"PERCENTAGE","value":10}
		},
		"snapshot": {"bid":100,"offer":102,"marketStatus":"CLOSED"}
	}`))
	defer srv.Close()

	c := testClient(srv.URL)
	d, err := c.GetMarketDetails(context.Background(), "CS.D.PML.DAILY.IP")
	require.NoError(t, err)

	assert.False(t, d.Tradeable())
	assert.InDelta(t, 10.1, d.MinStopDistance, 1e-9) // 10% of mid 101
	assert.InDelta(t, 0.01, d.SizeIncrement, 1e-9)   // zero lot size falls back
}

func marketDetailsServer(t *testing.T, payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			w.Header().Set("CST", "c")
			w.Header().Set("X-SECURITY-TOKEN", "s")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		require.Equal(t, "3", r.Header.Get("Version"))
		_, _ = w.Write([]byte(payload))
	}
}

func TestRecentDealForSkipsRejectedActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			w.Header().Set("CST", "c")
			w.Header().Set("X-SECURITY-TOKEN", "s")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		require.Equal(t, "/history/activity", r.URL.Path)
		_, _ = w.Write([]byte(`{"activities":[
			{"epic":"CS.D.PML.DAILY.IP","status":"REJECTED","details":{"dealReference":"REJREF"}},
			{"epic":"UA.D.VOD.DAILY.IP","status":"ACCEPTED","details":{"dealReference":"OTHERREF"}},
			{"epic":"CS.D.PML.DAILY.IP","status":"ACCEPTED","details":{"dealReference":"GOODREF"}}
		]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ref, found, err := c.RecentDealFor(context.Background(), "CS.D.PML.DAILY.IP", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "GOODREF", ref, "a rejected submission is not evidence of a fill")
}

func TestRecentDealForNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			w.Header().Set("CST", "c")
			w.Header().Set("X-SECURITY-TOKEN", "s")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"activities":[
			{"epic":"CS.D.PML.DAILY.IP","status":"REJECTED","details":{"dealReference":"REJREF"}}
		]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, found, err := c.RecentDealFor(context.Background(), "CS.D.PML.DAILY.IP", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseIGTime(t *testing.T) {
	ts := parseIGTime("2026-08-27T14:30:00")
	assert.Equal(t, time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC), ts)
	assert.True(t, parseIGTime("garbage").IsZero())
}

func TestAPIErrorString(t *testing.T) {
	e := &APIError{StatusCode: 400, Code: "error.invalid.order", Reason: "MARKET_CLOSED"}
	assert.Equal(t, "ig: http 400: error.invalid.order: MARKET_CLOSED", e.Error())

	e = &APIError{StatusCode: 401, Code: "error.security.client-token-invalid"}
	assert.Equal(t, "ig: http 401: error.security.client-token-invalid", e.Error())
}
