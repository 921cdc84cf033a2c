// Package service 组合缓存、上游客户端与模拟数据：先查缓存，未命中拉上游，失败则降级。
//
// 数据接口对调用方永不报错，降级只记日志。
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"alphaSeeker/internal/cache"
	"alphaSeeker/internal/fallback"
	"alphaSeeker/internal/model"
	"alphaSeeker/internal/trace"
)

// 上证指数代码与固定展示名
const (
	benchmarkIndexCode = "000001"
	benchmarkIndexName = "上证指数"
)

const (
	klineBarCount = fallback.KlineBars
	newsLimit     = 10
	newsTimeFmt   = "2006-01-02 15:04"
	DefaultPeriod = "daily"
)

// errShortHistory 上游 K 线不足 30 根时按失败处理。
var errShortHistory = errors.New("kline history shorter than 30 bars")

var (
	errEmptyQuote = errors.New("empty quote")
	errEmptyIndex = errors.New("empty index quote")
)

// 上游不可用时的兜底新闻
var cannedNews = []struct{ title, source string }{
	{"A股市场今日震荡上行，板块轮动明显", "财经网"},
	{"北向资金持续净流入，市场情绪回暖", "新浪财经"},
	{"政策暖风频吹，行业发展迎新机遇", "东方财富"},
}

// Upstream 上游行情能力，*api.Client 实现此接口。
type Upstream interface {
	RealtimeQuote(ctx context.Context, symbol string) (*model.Quote, error)
	HisKlines(ctx context.Context, symbol, period string, count int) ([]model.KlineBar, error)
	News(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error)
	MarketIndex(ctx context.Context, code string) (*model.IndexQuote, error)
}

// Config 缓存与超时；零值字段使用默认：报价 60s、K 线 300s、上游 15s。
type Config struct {
	QuoteTTL        time.Duration
	KlineTTL        time.Duration
	UpstreamTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = 60 * time.Second
	}
	if c.KlineTTL <= 0 {
		c.KlineTTL = 5 * c.QuoteTTL
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 15 * time.Second
	}
	return c
}

type Market struct {
	cfg      Config
	upstream Upstream
	cache    *cache.Cache
	gen      *fallback.Generator
	now      func() time.Time
}

func NewMarket(cfg Config, upstream Upstream, c *cache.Cache, gen *fallback.Generator) *Market {
	if upstream == nil {
		panic("service: upstream must not be nil")
	}
	if c == nil {
		c = cache.New()
	}
	if gen == nil {
		gen = fallback.New()
	}
	return &Market{
		cfg:      cfg.withDefaults(),
		upstream: upstream,
		cache:    c,
		gen:      gen,
		now:      time.Now,
	}
}

func QuoteKey(symbol string) string { return "realtime_" + symbol }

func KlineKey(symbol, period string) string { return "kline_" + symbol + "_" + period }

func (m *Market) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.UpstreamTimeout)
}

// sharedTimeout 合并加载用：保留 ctx 中的 trace 值，不随发起方取消。
func (m *Market) sharedTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.cfg.UpstreamTimeout)
}

// Quote 返回 model.Quote（真实）或 model.FallbackQuote（模拟，不缓存）。
func (m *Market) Quote(ctx context.Context, symbol string) any {
	v, err := m.cache.Load(QuoteKey(symbol), m.cfg.QuoteTTL, func() (any, error) {
		ctx, cancel := m.sharedTimeout(ctx)
		defer cancel()
		q, err := m.upstream.RealtimeQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if q == nil {
			return nil, errEmptyQuote
		}
		return *q, nil
	})
	if err != nil {
		trace.Log(ctx, "service: quote %s 降级为模拟数据 err=%v", symbol, err)
		return m.gen.Quote(symbol)
	}
	return v.(model.Quote)
}

// Klines 固定返回 30 根。
func (m *Market) Klines(ctx context.Context, symbol, period string) []model.KlineBar {
	if period == "" {
		period = DefaultPeriod
	}
	v, err := m.cache.Load(KlineKey(symbol, period), m.cfg.KlineTTL, func() (any, error) {
		ctx, cancel := m.sharedTimeout(ctx)
		defer cancel()
		bars, err := m.upstream.HisKlines(ctx, symbol, period, klineBarCount)
		if err != nil {
			return nil, err
		}
		if len(bars) < klineBarCount {
			return nil, errShortHistory
		}
		return bars[len(bars)-klineBarCount:], nil
	})
	if err != nil {
		trace.Log(ctx, "service: kline %s %s 降级为模拟数据 err=%v", symbol, period, err)
		return m.gen.Klines(symbol)
	}
	return v.([]model.KlineBar)
}

// News 不缓存；失败或为空时返回 3 条兜底新闻，时间为当前时刻。
func (m *Market) News(ctx context.Context, symbol string) []model.NewsItem {
	tctx, cancel := m.withTimeout(ctx)
	items, err := m.upstream.News(tctx, symbol, newsLimit)
	cancel()
	if err == nil && len(items) > 0 {
		if len(items) > newsLimit {
			items = items[:newsLimit]
		}
		return items
	}
	trace.Log(ctx, "service: news %q 使用兜底新闻 err=%v", symbol, err)
	return m.cannedNews(symbol)
}

func (m *Market) cannedNews(symbol string) []model.NewsItem {
	var sym *string
	if symbol != "" {
		sym = &symbol
	}
	ts := m.now().Format(newsTimeFmt)
	out := make([]model.NewsItem, 0, len(cannedNews))
	for i, n := range cannedNews {
		out = append(out, model.NewsItem{
			ID:     strconv.Itoa(i + 1),
			Title:  n.title,
			Source: n.source,
			Time:   ts,
			Symbol: sym,
		})
	}
	return out
}

// Index 上证指数快照，失败时各数值为 0。名称固定为上证指数。
func (m *Market) Index(ctx context.Context) model.MarketSnapshot {
	tctx, cancel := m.withTimeout(ctx)
	q, err := m.upstream.MarketIndex(tctx, benchmarkIndexCode)
	cancel()
	if err == nil && q == nil {
		err = errEmptyIndex
	}
	if err != nil {
		trace.Log(ctx, "service: market index 使用默认值 err=%v", err)
		return model.MarketSnapshot{SH: model.IndexQuote{Name: benchmarkIndexName}}
	}
	return model.MarketSnapshot{SH: model.IndexQuote{
		Name:   benchmarkIndexName,
		Price:  q.Price,
		Change: q.Change,
	}}
}
