// Package fallback 在上游行情不可用时生成模拟报价与 K 线。
package fallback

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"alphaSeeker/internal/model"
	"alphaSeeker/internal/stocks"
)

// 未收录代码的基准价
const defaultBasePrice = 100

// KlineBars 模拟 K 线根数
const KlineBars = 30

// 随机区间：涨跌幅(%)、高低价外扩(%)、成交量、成交额、总市值
const (
	maxChangePct    = 5.0
	maxWickPct      = 2.0
	minQuoteVolume  = 1_000_000
	maxQuoteVolume  = 50_000_000
	minQuoteAmount  = 100_000_000
	maxQuoteAmount  = 10_000_000_000
	minMarketCap    = 10_000_000_000
	maxMarketCap    = 500_000_000_000
	minKlineVolume  = 10_000_000
	maxKlineVolume  = 50_000_000
	klineDateFormat = "01-02"
)

// 报价基准价
var quoteBase = map[string]float64{
	"600519": 1850, "000858": 168.5, "600036": 38.92, "601318": 48.30,
	"600900": 23.15, "300750": 178.60, "002594": 256.80, "000001": 11.25,
	"601888": 68.50, "600276": 52.30,
}

// K 线起始价，与报价基准略有不同
var klineBase = map[string]float64{
	"600519": 1800, "000858": 165, "600036": 38, "601318": 47,
	"600900": 23, "300750": 175, "002594": 250, "000001": 11,
	"601888": 67, "600276": 51,
}

// QuoteBasePrice 报价基准价，未收录为 100。
func QuoteBasePrice(symbol string) float64 {
	if p, ok := quoteBase[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

func KlineBasePrice(symbol string) float64 {
	if p, ok := klineBase[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// Generator 并发安全；rand.Rand 本身非并发安全，故加锁。
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

type Option func(*Generator)

// WithSource 指定随机源，测试可用固定种子得到确定输出。
func WithSource(src rand.Source) Option {
	return func(g *Generator) {
		if src != nil {
			g.rnd = rand.New(src)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// New 默认使用按启动时间播种的随机源与本地时钟。
func New(opts ...Option) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Quote 基准价上随机 ±5% 的模拟报价，名称优先取静态列表。
func (g *Generator) Quote(symbol string) model.FallbackQuote {
	g.mu.Lock()
	defer g.mu.Unlock()
	change := g.uniform(-maxChangePct, maxChangePct)
	price := QuoteBasePrice(symbol) * (1 + change/100)
	return model.FallbackQuote{
		Symbol:        symbol,
		Name:          stocks.Name(symbol),
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(change),
		Volume:        g.randInt(minQuoteVolume, maxQuoteVolume),
		Amount:        g.randInt(minQuoteAmount, maxQuoteAmount),
		MarketCap:     g.randInt(minMarketCap, maxMarketCap),
	}
}

// Klines 生成 30 根日 K，由旧到新，每根开盘价为上一根收盘价。
//
// 日期取本月 max(1, 今日-i) 日，不跨月回退：月初时前面若干根日期都是 1 日。
func (g *Generator) Klines(symbol string) []model.KlineBar {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	price := KlineBasePrice(symbol)
	out := make([]model.KlineBar, 0, KlineBars)
	for i := KlineBars; i > 0; i-- {
		day := now.Day() - i
		if day < 1 {
			day = 1
		}
		date := time.Date(now.Year(), now.Month(), day, now.Hour(), now.Minute(), now.Second(), 0, now.Location())

		change := g.uniform(-maxChangePct, maxChangePct)
		open := price
		closePrice := price * (1 + change/100)
		high := math.Max(open, closePrice) * (1 + g.uniform(0, maxWickPct)/100)
		low := math.Min(open, closePrice) * (1 - g.uniform(0, maxWickPct)/100)

		out = append(out, model.KlineBar{
			Date:   date.Format(klineDateFormat),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(closePrice),
			Volume: g.randInt(minKlineVolume, maxKlineVolume),
		})
		price = closePrice
	}
	return out
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rnd.Float64()
}

// randInt 闭区间 [lo, hi]。
func (g *Generator) randInt(lo, hi int64) int64 {
	return lo + g.rnd.Int63n(hi-lo+1)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
