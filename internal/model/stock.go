// Package model 定义行情、K 线、新闻、指数等对外 JSON 结构。
package model

// StockListing 静态股票列表单条：代码、名称、板块。
type StockListing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Quote 实时行情：来自全市场快照表中对应代码的一行，缺失或无效数值一律为 0。
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	Amount        float64 `json:"amount"`
	Amplitude     float64 `json:"amplitude"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"` // 昨收
	Turnover      float64 `json:"turnover"`
}

// FallbackQuote 上游不可用时生成的模拟行情，字段较 Quote 精简，另带总市值。
type FallbackQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	Amount        int64   `json:"amount"`
	MarketCap     int64   `json:"marketCap"`
}

// KlineBar 单根 K：日期为 MM-DD。
type KlineBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// NewsItem 财经新闻；Symbol 为 nil 时序列化为 null（请求未指定代码）。
type NewsItem struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Source string  `json:"source"`
	Time   string  `json:"time"`
	URL    string  `json:"url,omitempty"`
	Symbol *string `json:"symbol"`
}

// IndexQuote 指数快照：名称、现价、涨跌幅(%)。
type IndexQuote struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// MarketSnapshot 大盘概览，目前只有上证指数。
type MarketSnapshot struct {
	SH IndexQuote `json:"sh"`
}
