// Package handler 注册 /api 路由，把行情服务结果序列化为 JSON。
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"alphaSeeker/internal/model"
	"alphaSeeker/internal/service"
	"alphaSeeker/internal/stocks"
	"alphaSeeker/internal/trace"
)

const apiName = "AlphaSeeker AI Backend (Go + EastMoney)"

// 分析接口固定文案：分析在前端完成
const (
	analyzeMessage    = "请使用前端的DeepSeek API进行AI分析"
	analyzeSuggestion = "该接口仅提供数据，AI分析请使用前端服务"
)

// MarketData 行情服务，*service.Market 实现此接口。
type MarketData interface {
	Quote(ctx context.Context, symbol string) any
	Klines(ctx context.Context, symbol, period string) []model.KlineBar
	News(ctx context.Context, symbol string) []model.NewsItem
	Index(ctx context.Context) model.MarketSnapshot
}

type Handler struct {
	market MarketData
	now    func() time.Time
}

func New(market MarketData) *Handler {
	if market == nil {
		panic("handler: market must not be nil")
	}
	return &Handler{market: market, now: time.Now}
}

// NewRouter gin 引擎：recovery、全开放 CORS、trace ID，再挂 /api 路由。
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", trace.HeaderName},
		ExposeHeaders:   []string{"Content-Length", trace.HeaderName},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(Trace())
	h.RegisterRoutes(r)
	return r
}

// Trace 每个请求一个 trace ID：优先沿用请求头，并回写到响应头。
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(trace.HeaderName))
		if id == "" {
			id = trace.NewTraceID()
		}
		ctx := trace.WithTraceID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName, id)
		start := time.Now()
		c.Next()
		trace.Log(ctx, "http: %s %s status=%d cost=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/stocks", h.ListStocks)
		api.GET("/stocks/search", h.SearchStocks)
		api.GET("/stocks/:symbol/quote", h.GetQuote)
		api.GET("/stocks/:symbol/kline", h.GetKline)
		api.GET("/news", h.GetNews)
		api.GET("/market", h.GetMarket)
		api.POST("/analyze", h.Analyze)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   h.now().Format(time.RFC3339),
		"api":    apiName,
	})
}

func (h *Handler) ListStocks(c *gin.Context) {
	c.JSON(http.StatusOK, stocks.All())
}

func (h *Handler) SearchStocks(c *gin.Context) {
	c.JSON(http.StatusOK, stocks.Search(c.Query("q")))
}

func (h *Handler) GetQuote(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.Quote(c.Request.Context(), c.Param("symbol")))
}

func (h *Handler) GetKline(c *gin.Context) {
	period := c.DefaultQuery("period", service.DefaultPeriod)
	c.JSON(http.StatusOK, h.market.Klines(c.Request.Context(), c.Param("symbol"), period))
}

func (h *Handler) GetNews(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.News(c.Request.Context(), c.Query("symbol")))
}

func (h *Handler) GetMarket(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.Index(c.Request.Context()))
}

type analyzeRequest struct {
	Symbol string `json:"symbol"`
}

// Analyze 占位接口：不做任何分析也不访问网络，请求体无法解析时同样返回成功。
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		trace.Log(c.Request.Context(), "handler: analyze body ignored err=%v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": analyzeMessage,
		"data": gin.H{
			"suggestion": analyzeSuggestion,
		},
	})
}
