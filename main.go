// Package main 是 AlphaSeeker 行情后端入口：加载配置，组装东方财富客户端、缓存与模拟数据，启动 HTTP 服务。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"alphaSeeker/internal/api"
	"alphaSeeker/internal/cache"
	"alphaSeeker/internal/config"
	"alphaSeeker/internal/fallback"
	"alphaSeeker/internal/handler"
	"alphaSeeker/internal/service"
	"alphaSeeker/internal/trace"
)

// HTTP 服务超时
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	market := service.NewMarket(service.Config{
		QuoteTTL:        cfg.QuoteTTL(),
		KlineTTL:        cfg.KlineTTL(),
		UpstreamTimeout: cfg.UpstreamTimeout(),
	}, api.NewClient(), cache.New(), fallback.New())
	router := handler.NewRouter(handler.New(market))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx := trace.WithTraceID(context.Background(), trace.NewTraceID())
	go func() {
		trace.Log(ctx, "main: listening on %s quoteTTL=%s klineTTL=%s upstreamTimeout=%s",
			cfg.Addr, cfg.QuoteTTL(), cfg.KlineTTL(), cfg.UpstreamTimeout())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	trace.Log(ctx, "main: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		trace.Log(ctx, "main: shutdown err=%v", err)
	}
	trace.Log(ctx, "main: end")
}
