package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"alphaSeeker/internal/model"
	"alphaSeeker/internal/trace"
	"alphaSeeker/internal/worker"
)

// 东方财富接口地址
const (
	EastMoneySpotURL  = "https://82.push2.eastmoney.com/api/qt/clist/get"
	EastMoneyKLineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	EastMoneyIndexURL = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	EastMoneyNewsURL  = "https://search-api-web.eastmoney.com/search/jsonp"
)

// 沪深京 A 股全市场
const spotMarkets = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"

// 快照字段：f2 现价 f3 涨跌幅 f5 成交量 f6 成交额 f7 振幅 f8 换手率 f12 代码 f14 名称 f15 最高 f16 最低 f17 今开 f18 昨收
const spotFields = "f2,f3,f5,f6,f7,f8,f12,f14,f15,f16,f17,f18"

// 指数字段：代码、名称、现价、涨跌幅
const indexFields = "f12,f14,f2,f3"

// 分页；整表拉取的总时限
const (
	spotPageSize     = 500
	spotFetchTimeout = 30 * time.Second
)

// K 线接口参数：fields2 依次为 日期,开,收,高,低,量；fqt=1 前复权
const (
	klineFields1 = "f1,f2,f3,f4,f5,f6"
	klineFields2 = "f51,f52,f53,f54,f55,f56"
	klineFqtQFQ  = 1
	maxKlineRows = 1000
)

// 新闻搜索：未指定代码时按通用关键词检索
const (
	newsCallback       = "jQuery35108753462440698840_1668256937995"
	newsGeneralKeyword = "A股"
	newsArticleURLFmt  = "http://finance.eastmoney.com/a/%s.html"
	newsTimeLen        = 16
)

// periodKLT 周期到东方财富 klt。
var periodKLT = map[string]int{
	"daily":   101,
	"weekly":  102,
	"monthly": 103,
}

// SpotTable 拉取全市场实时快照。第一页串行取 total，其余页并发；并发调用共享同一次拉取。
// 共享拉取不随任何一个调用方取消，各调用方只按自己的 ctx 放弃等待。
func (c *Client) SpotTable(ctx context.Context) ([]model.Quote, error) {
	ch := c.sf.DoChan("spot", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), spotFetchTimeout)
		defer cancel()
		return c.fetchSpotTable(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, fetchErr("spot", "", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fetchErr("spot", "", res.Err)
		}
		return res.Val.([]model.Quote), nil
	}
}

func (c *Client) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return spotPageSize
}

func (c *Client) fetchSpotTable(ctx context.Context) ([]model.Quote, error) {
	trace.Log(ctx, "api: SpotTable start")
	first, total, err := c.fetchSpotPage(ctx, 1)
	if err != nil {
		return nil, err
	}
	size := c.pageSize()
	pages := (total + size - 1) / size
	if len(first) < size || pages <= 1 {
		trace.Log(ctx, "api: SpotTable done len=%d", len(first))
		return first, nil
	}
	rest := make([][]model.Quote, pages+1)
	jobs := make([]int, 0, pages-1)
	for p := 2; p <= pages; p++ {
		jobs = append(jobs, p)
	}
	pool := worker.NewPool[int](worker.Config{Concurrency: c.maxConcurrent()})
	err = pool.Run(ctx, jobs, func(ctx context.Context, page int) error {
		rows, _, err := c.fetchSpotPage(ctx, page)
		if err != nil {
			return err
		}
		rest[page] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := first
	for _, rows := range rest {
		out = append(out, rows...)
	}
	trace.Log(ctx, "api: SpotTable done len=%d total=%d", len(out), total)
	return out, nil
}

func (c *Client) fetchSpotPage(ctx context.Context, page int) ([]model.Quote, int, error) {
	u := fmt.Sprintf("%s?pn=%d&pz=%d&po=1&np=1&fltt=2&invt=2&fid=f3&fs=%s&fields=%s",
		c.SpotURL, page, c.pageSize(), spotMarkets, spotFields)
	body, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, 0, err
	}
	return parseSpotGJSON(body)
}

// parseSpotGJSON 解析 data.total 与 data.diff；diff 可能是数组，也可能是 "0","1",... 为键的对象。
func parseSpotGJSON(body []byte) ([]model.Quote, int, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, 0, ErrNoData
	}
	total := int(data.Get("total").Int())
	diff := data.Get("diff")
	out := make([]model.Quote, 0, len(diff.Array()))
	diff.ForEach(func(_, v gjson.Result) bool {
		code := strings.TrimSpace(v.Get("f12").String())
		if code == "" {
			return true
		}
		changePct := num(v.Get("f3"))
		out = append(out, model.Quote{
			Symbol:        code,
			Name:          strings.TrimSpace(v.Get("f14").String()),
			Price:         num(v.Get("f2")),
			Change:        changePct,
			ChangePercent: changePct,
			Volume:        intNum(v.Get("f5")),
			Amount:        num(v.Get("f6")),
			Amplitude:     num(v.Get("f7")),
			High:          num(v.Get("f15")),
			Low:           num(v.Get("f16")),
			Open:          num(v.Get("f17")),
			Close:         num(v.Get("f18")),
			Turnover:      num(v.Get("f8")),
		})
		return true
	})
	return out, total, nil
}

// RealtimeQuote 在全市场快照中查找 symbol。
func (c *Client) RealtimeQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	table, err := c.SpotTable(ctx)
	if err != nil {
		return nil, fetchErr("quote", symbol, err)
	}
	for i := range table {
		if table[i].Symbol == symbol {
			q := table[i]
			return &q, nil
		}
	}
	return nil, fetchErr("quote", symbol, ErrNotFound)
}

// HisKlines 拉取前复权历史 K 线，保留最近 count 根，日期转为 MM-DD。
func (c *Client) HisKlines(ctx context.Context, symbol, period string, count int) ([]model.KlineBar, error) {
	klt, ok := periodKLT[period]
	if !ok {
		return nil, fetchErr("kline", symbol, fmt.Errorf("%w: %q", ErrUnsupportedPeriod, period))
	}
	if !ValidSymbol(symbol) {
		return nil, fetchErr("kline", symbol, ErrInvalidSymbol)
	}
	if count <= 0 {
		return nil, fetchErr("kline", symbol, fmt.Errorf("invalid count %d", count))
	}
	if count > maxKlineRows {
		count = maxKlineRows
	}
	q := url.Values{}
	q.Set("secid", FormatCode(symbol))
	q.Set("fields1", klineFields1)
	q.Set("fields2", klineFields2)
	q.Set("klt", strconv.Itoa(klt))
	q.Set("fqt", strconv.Itoa(klineFqtQFQ))
	q.Set("beg", "0")
	q.Set("end", "20500101")
	q.Set("lmt", strconv.Itoa(count))
	body, err := c.getWithRetry(ctx, c.KLineURL+"?"+q.Encode())
	if err != nil {
		return nil, fetchErr("kline", symbol, err)
	}
	bars, err := parseKlinesGJSON(body, count)
	if err != nil {
		return nil, fetchErr("kline", symbol, err)
	}
	return bars, nil
}

func parseKlinesGJSON(body []byte, count int) ([]model.KlineBar, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, ErrNoData
	}
	arr := klines.Array()
	if len(arr) > count {
		arr = arr[len(arr)-count:]
	}
	out := make([]model.KlineBar, 0, len(arr))
	for _, v := range arr {
		s := strings.TrimSpace(v.String())
		if s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		if len(parts) < 6 {
			continue
		}
		out = append(out, model.KlineBar{
			Date:   shortDate(parts[0]),
			Open:   parseNum(parts[1]),
			Close:  parseNum(parts[2]),
			High:   parseNum(parts[3]),
			Low:    parseNum(parts[4]),
			Volume: int64(parseNum(parts[5])),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// shortDate 2024-01-02 -> 01-02；不足 6 位原样返回。
func shortDate(s string) string {
	if len(s) > 10 {
		s = s[:10]
	}
	if len(s) > 5 {
		return s[5:]
	}
	return s
}

// News 按代码搜索最新资讯，symbol 为空时检索通用 A 股资讯。
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error) {
	keyword := symbol
	if keyword == "" {
		keyword = newsGeneralKeyword
	}
	param, err := json.Marshal(map[string]any{
		"uid":           "",
		"keyword":       keyword,
		"type":          []string{"cmsArticleWebOld"},
		"client":        "web",
		"clientType":    "web",
		"clientVersion": "curr",
		"param": map[string]any{
			"cmsArticleWebOld": map[string]any{
				"searchScope": "default",
				"sort":        "default",
				"pageIndex":   1,
				"pageSize":    limit,
				"preTag":      "<em>",
				"postTag":     "</em>",
			},
		},
	})
	if err != nil {
		return nil, fetchErr("news", symbol, err)
	}
	q := url.Values{}
	q.Set("cb", newsCallback)
	q.Set("param", string(param))
	q.Set("_", strconv.FormatInt(time.Now().UnixMilli(), 10))
	body, err := c.getWithRetry(ctx, c.NewsURL+"?"+q.Encode())
	if err != nil {
		return nil, fetchErr("news", symbol, err)
	}
	items, err := parseNewsGJSON(body, symbol, limit)
	if err != nil {
		return nil, fetchErr("news", symbol, err)
	}
	return items, nil
}

// stripJSONP 去掉 cb(...) 外壳，非 JSONP 时原样返回。
func stripJSONP(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && (body[0] == '{' || body[0] == '[') {
		return body
	}
	i := bytes.IndexByte(body, '(')
	j := bytes.LastIndexByte(body, ')')
	if i < 0 || j <= i {
		return body
	}
	return body[i+1 : j]
}

var highlightReplacer = strings.NewReplacer("<em>", "", "</em>", "", "　", "", "\r\n", " ", "\n", " ")

func parseNewsGJSON(body []byte, symbol string, limit int) ([]model.NewsItem, error) {
	rows := gjson.GetBytes(stripJSONP(body), "result.cmsArticleWebOld")
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrNoData
	}
	var sym *string
	if symbol != "" {
		sym = &symbol
	}
	arr := rows.Array()
	if limit > 0 && len(arr) > limit {
		arr = arr[:limit]
	}
	out := make([]model.NewsItem, 0, len(arr))
	for i, v := range arr {
		link := strings.TrimSpace(v.Get("url").String())
		if link == "" {
			if code := strings.TrimSpace(v.Get("code").String()); code != "" {
				link = fmt.Sprintf(newsArticleURLFmt, code)
			}
		}
		t := strings.TrimSpace(v.Get("date").String())
		if len(t) > newsTimeLen {
			t = t[:newsTimeLen]
		}
		out = append(out, model.NewsItem{
			ID:     strconv.Itoa(i),
			Title:  strings.TrimSpace(highlightReplacer.Replace(v.Get("title").String())),
			Source: strings.TrimSpace(v.Get("mediaName").String()),
			Time:   t,
			URL:    link,
			Symbol: sym,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// MarketIndex 获取指数快照，code 如 000001（上证指数）、399001（深证成指）。
func (c *Client) MarketIndex(ctx context.Context, code string) (*model.IndexQuote, error) {
	u := fmt.Sprintf("%s?fltt=2&secids=%s&fields=%s", c.IndexURL, IndexSecID(code), indexFields)
	body, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, fetchErr("index", code, err)
	}
	q, err := parseIndexGJSON(body, code)
	if err != nil {
		return nil, fetchErr("index", code, err)
	}
	return q, nil
}

func parseIndexGJSON(body []byte, code string) (*model.IndexQuote, error) {
	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() {
		return nil, ErrNoData
	}
	var found *model.IndexQuote
	diff.ForEach(func(_, v gjson.Result) bool {
		if strings.TrimSpace(v.Get("f12").String()) != code {
			return true
		}
		found = &model.IndexQuote{
			Name:   strings.TrimSpace(v.Get("f14").String()),
			Price:  num(v.Get("f2")),
			Change: num(v.Get("f3")),
		}
		return false
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// ValidSymbol A 股代码为 6 位数字。
func ValidSymbol(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// FormatCode 转为东方财富个股 secid：上海 1.600519，深圳/北京 0.000001
func FormatCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "0.000000"
	}
	if code[0] == '6' || code[0] == '5' || code[0] == '9' {
		return "1." + code
	}
	return "0." + code
}

// IndexSecID 指数 secid：深证 399 开头为 0.，其余按上证 1.
func IndexSecID(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "399") {
		return "0." + code
	}
	return "1." + code
}
