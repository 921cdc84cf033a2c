package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"alphaSeeker/internal/cache"
	"alphaSeeker/internal/fallback"
	"alphaSeeker/internal/model"
	"alphaSeeker/internal/service"
	"alphaSeeker/internal/stocks"
	"alphaSeeker/internal/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// offlineUpstream 模拟上游完全不可达。
type offlineUpstream struct {
	calls int
}

var errOffline = errors.New("dial tcp: network is unreachable")

func (o *offlineUpstream) RealtimeQuote(context.Context, string) (*model.Quote, error) {
	o.calls++
	return nil, errOffline
}

func (o *offlineUpstream) HisKlines(context.Context, string, string, int) ([]model.KlineBar, error) {
	o.calls++
	return nil, errOffline
}

func (o *offlineUpstream) News(context.Context, string, int) ([]model.NewsItem, error) {
	o.calls++
	return nil, errOffline
}

func (o *offlineUpstream) MarketIndex(context.Context, string) (*model.IndexQuote, error) {
	o.calls++
	return nil, errOffline
}

func newOfflineRouter() (*gin.Engine, *offlineUpstream) {
	up := &offlineUpstream{}
	m := service.NewMarket(service.Config{}, up, cache.New(), fallback.New())
	return NewRouter(New(m)), up
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: status %d body=%s", method, path, w.Code, w.Body.String())
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newOfflineRouter()
	var got map[string]string
	decode(t, do(t, r, http.MethodGet, "/api/health", ""), &got)
	if got["status"] != "ok" || got["api"] == "" {
		t.Fatalf("unexpected health %v", got)
	}
	if _, err := time.Parse(time.RFC3339, got["time"]); err != nil {
		t.Fatalf("time not ISO-8601: %v", err)
	}
}

func TestStocksAndSearch(t *testing.T) {
	r, _ := newOfflineRouter()

	var all []model.StockListing
	decode(t, do(t, r, http.MethodGet, "/api/stocks", ""), &all)
	if len(all) != len(stocks.All()) {
		t.Fatalf("expected full list, got %d", len(all))
	}

	var hits []model.StockListing
	decode(t, do(t, r, http.MethodGet, "/api/stocks/search?q="+url.QueryEscape("贵州"), ""), &hits)
	if len(hits) != 1 || hits[0].Symbol != "600519" {
		t.Fatalf("expected only 600519, got %+v", hits)
	}

	var empty []model.StockListing
	decode(t, do(t, r, http.MethodGet, "/api/stocks/search", ""), &empty)
	if len(empty) != len(all) {
		t.Fatalf("empty q should return full list, got %d", len(empty))
	}

	var bySymbol []model.StockListing
	decode(t, do(t, r, http.MethodGet, "/api/stocks/search?q=6005", ""), &bySymbol)
	if len(bySymbol) != 1 || bySymbol[0].Name != "贵州茅台" {
		t.Fatalf("unexpected symbol search %+v", bySymbol)
	}
}

func TestQuote_OfflineAlwaysHasPrice(t *testing.T) {
	r, _ := newOfflineRouter()
	for _, s := range stocks.All() {
		var got map[string]any
		decode(t, do(t, r, http.MethodGet, "/api/stocks/"+s.Symbol+"/quote", ""), &got)
		price, ok := got["price"].(float64)
		if !ok {
			t.Fatalf("%s: price missing or not numeric: %v", s.Symbol, got["price"])
		}
		base := fallback.QuoteBasePrice(s.Symbol)
		if price < base*0.95-0.005 || price > base*1.05+0.005 {
			t.Fatalf("%s: fallback price %.2f outside base range", s.Symbol, price)
		}
		if got["symbol"] != s.Symbol || got["name"] != s.Name {
			t.Fatalf("%s: unexpected identity %v", s.Symbol, got)
		}
	}
}

func TestKline_OfflineAlways30(t *testing.T) {
	r, _ := newOfflineRouter()
	for _, path := range []string{
		"/api/stocks/600519/kline",
		"/api/stocks/600519/kline?period=weekly",
		"/api/stocks/123456/kline?period=bogus",
	} {
		var bars []model.KlineBar
		decode(t, do(t, r, http.MethodGet, path, ""), &bars)
		if len(bars) != 30 {
			t.Fatalf("%s: expected 30 bars, got %d", path, len(bars))
		}
	}
}

func TestNews_OfflineCanned(t *testing.T) {
	r, _ := newOfflineRouter()
	var items []map[string]any
	decode(t, do(t, r, http.MethodGet, "/api/news", ""), &items)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	known := map[string]bool{"财经网": true, "新浪财经": true, "东方财富": true}
	for _, it := range items {
		if !known[it["source"].(string)] || it["title"].(string) == "" {
			t.Fatalf("unexpected item %v", it)
		}
		if v, present := it["symbol"]; !present || v != nil {
			t.Fatalf("expected symbol null, got %v (present=%v)", v, present)
		}
	}
}

func TestMarket_OfflineDefault(t *testing.T) {
	r, _ := newOfflineRouter()
	var got map[string]map[string]any
	decode(t, do(t, r, http.MethodGet, "/api/market", ""), &got)
	sh := got["sh"]
	if sh["name"] != "上证指数" || sh["price"] != float64(0) || sh["change"] != float64(0) {
		t.Fatalf("unexpected market %v", got)
	}
}

func TestAnalyze_StubNoNetwork(t *testing.T) {
	r, up := newOfflineRouter()
	for _, body := range []string{`{"symbol":"600519"}`, `not json`, ""} {
		var got struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			Data    struct {
				Suggestion string `json:"suggestion"`
			} `json:"data"`
		}
		decode(t, do(t, r, http.MethodPost, "/api/analyze", body), &got)
		if !got.Success || got.Message == "" || got.Data.Suggestion == "" {
			t.Fatalf("body %q: unexpected %+v", body, got)
		}
	}
	if up.calls != 0 {
		t.Fatalf("analyze must not call upstream, got %d calls", up.calls)
	}
}

func TestCORSAndTraceHeaders(t *testing.T) {
	r, _ := newOfflineRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set(trace.HeaderName, "abc12345")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected open CORS, got %q", got)
	}
	if got := w.Header().Get(trace.HeaderName); got != "abc12345" {
		t.Fatalf("expected trace id echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if got := w.Header().Get(trace.HeaderName); len(got) != 8 {
		t.Fatalf("expected generated trace id, got %q", got)
	}
}

// stubMarket 固定返回真实形态的数据，验证序列化字段名。
type stubMarket struct{}

func (stubMarket) Quote(context.Context, string) any {
	return model.Quote{Symbol: "600519", Name: "贵州茅台", Price: 1688.5, Turnover: 0.25}
}
func (stubMarket) Klines(context.Context, string, string) []model.KlineBar { return nil }
func (stubMarket) News(context.Context, string) []model.NewsItem           { return nil }
func (stubMarket) Index(context.Context) model.MarketSnapshot              { return model.MarketSnapshot{} }

func TestQuote_RealShapeFieldNames(t *testing.T) {
	r := NewRouter(New(stubMarket{}))
	var got map[string]any
	decode(t, do(t, r, http.MethodGet, "/api/stocks/600519/quote", ""), &got)
	for _, k := range []string{"symbol", "name", "price", "change", "changePercent", "volume", "amount",
		"amplitude", "high", "low", "open", "close", "turnover"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing field %q in %v", k, got)
		}
	}
}
