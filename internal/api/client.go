// Package api 封装东方财富行情、K 线、新闻与指数接口，含请求节流、重试与 trace 日志。
package api

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"alphaSeeker/internal/trace"
)

// 环境变量名（API 节流与并发，可选覆盖）
const (
	envAPIDelayMS       = "ALPHASEEKER_API_DELAY_MS"
	envAPIJitterMS      = "ALPHASEEKER_API_JITTER_MS"
	envAPIMaxConcurrent = "ALPHASEEKER_API_MAX_CONCURRENT"
)

// 请求超时与重试
const (
	defaultHTTPTimeout = 5 * time.Second
	maxRetries         = 3
	retryDelay         = 500 * time.Millisecond
	retryDelay429      = 5 * time.Second
)

// 防封：请求间隔、抖动、并发上限
const (
	maxRespLogLen        = 1200
	defaultRequestGap    = 200 * time.Millisecond
	defaultRequestJitter = 150
	defaultMaxConcurrent = 4
	maxConcurrentCap     = 20
)

// 请求头（模拟浏览器）
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer        = "https://quote.eastmoney.com/"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Client 东方财富客户端。各 URL 字段可替换，便于测试指向 httptest。
type Client struct {
	HTTPClient *http.Client

	SpotURL  string
	KLineURL string
	IndexURL string
	NewsURL  string

	// RequestGap 与 RequestJitter(毫秒) 控制相邻请求最小间隔，均为 0 时不节流。
	RequestGap    time.Duration
	RequestJitter int
	PageSize      int

	sem       chan struct{}
	lastReq   time.Time
	lastReqMu sync.Mutex
	sf        singleflight.Group
}

// NewClient 使用默认地址，节流参数可由环境变量覆盖。
func NewClient() *Client {
	gap := defaultRequestGap
	if s := os.Getenv(envAPIDelayMS); s != "" {
		if ms, err := strconv.Atoi(s); err == nil && ms >= 0 {
			gap = time.Duration(ms) * time.Millisecond
		}
	}
	jitter := defaultRequestJitter
	if s := os.Getenv(envAPIJitterMS); s != "" {
		if ms, err := strconv.Atoi(s); err == nil && ms >= 0 {
			jitter = ms
		}
	}
	n := defaultMaxConcurrent
	if s := os.Getenv(envAPIMaxConcurrent); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			n = v
			if n > maxConcurrentCap {
				n = maxConcurrentCap
			}
		}
	}
	return &Client{
		HTTPClient:    &http.Client{Timeout: defaultHTTPTimeout},
		SpotURL:       EastMoneySpotURL,
		KLineURL:      EastMoneyKLineURL,
		IndexURL:      EastMoneyIndexURL,
		NewsURL:       EastMoneyNewsURL,
		RequestGap:    gap,
		RequestJitter: jitter,
		PageSize:      spotPageSize,
		sem:           make(chan struct{}, n),
	}
}

// maxConcurrent 即信号量容量，未经 NewClient 构造时为默认值。
func (c *Client) maxConcurrent() int {
	if c.sem == nil {
		return defaultMaxConcurrent
	}
	return cap(c.sem)
}

func (c *Client) paceRequest(ctx context.Context) {
	gap := c.RequestGap
	jitter := c.RequestJitter
	if gap <= 0 && jitter <= 0 {
		return
	}
	c.lastReqMu.Lock()
	elapsed := time.Since(c.lastReq)
	c.lastReqMu.Unlock()
	d := gap - elapsed
	if jitter > 0 {
		d += time.Duration(rand.Intn(jitter+1)) * time.Millisecond
	}
	if d > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}
	c.lastReqMu.Lock()
	c.lastReq = time.Now()
	c.lastReqMu.Unlock()
}

func (c *Client) acquire(ctx context.Context) error {
	if c.sem == nil {
		return nil
	}
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.sem != nil {
		<-c.sem
	}
}

// getWithRetry GET url，非 200 或网络错误最多重试 maxRetries 次，返回完整响应体。
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryDelay
			if lastStatus == http.StatusTooManyRequests {
				backoff = retryDelay429
				trace.Log(ctx, "api: 429 限流，等待 %s 后重试", backoff)
			} else {
				trace.Log(ctx, "api: retry %d/%d %s", attempt, maxRetries, url)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		c.paceRequest(ctx)
		if err := c.acquire(ctx); err != nil {
			return nil, err
		}
		body, status, err := c.do(ctx, client, url)
		c.release()
		lastStatus = status
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return body, nil
	}
	trace.Log(ctx, "api: getWithRetry fail url=%s err=%v", url, lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", acceptLanguage)
	trace.Log(ctx, "api: req GET %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	trace.Log(ctx, "api: resp status=%d len=%d body=%s", resp.StatusCode, len(body), truncateForLog(body))
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func truncateForLog(b []byte) string {
	s := string(b)
	if len(b) > maxRespLogLen {
		s = s[:maxRespLogLen] + "..."
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
