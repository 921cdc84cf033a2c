// Package config 从文件或环境变量加载服务配置。
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// 配置路径与环境变量名
const (
	defaultConfigPath  = "config.json"
	envConfigPath      = "CONFIG_PATH"
	envAddr            = "ALPHASEEKER_ADDR"
	envPort            = "PORT"
	envQuoteTTL        = "ALPHASEEKER_QUOTE_TTL"
	envKlineTTL        = "ALPHASEEKER_KLINE_TTL"
	envUpstreamTimeout = "ALPHASEEKER_UPSTREAM_TIMEOUT"
	envGinMode         = "GIN_MODE"
)

// 默认值：实时行情缓存 60 秒，K 线为其 5 倍
const (
	defaultAddr            = ":5001"
	defaultQuoteTTL        = 60
	defaultKlineTTL        = defaultQuoteTTL * 5
	defaultUpstreamTimeout = 15
	defaultGinMode         = "release"
)

type Server struct {
	Addr                   string `json:"addr"`
	QuoteTTLSeconds        int    `json:"quote_ttl_seconds"`
	KlineTTLSeconds        int    `json:"kline_ttl_seconds"`
	UpstreamTimeoutSeconds int    `json:"upstream_timeout_seconds"`
	GinMode                string `json:"gin_mode"`
}

// Load 先读 envConfigPath 指定文件（默认 config.json），再被环境变量覆盖，最后补默认值。
func Load() *Server {
	cfg := &Server{}
	configPath := os.Getenv(envConfigPath)
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if b, err := os.ReadFile(configPath); err == nil {
		_ = json.Unmarshal(b, cfg)
	}
	if v := os.Getenv(envPort); v != "" {
		cfg.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv(envAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(envQuoteTTL); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QuoteTTLSeconds = n
		}
	}
	if v := os.Getenv(envKlineTTL); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KlineTTLSeconds = n
		}
	}
	if v := os.Getenv(envUpstreamTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UpstreamTimeoutSeconds = n
		}
	}
	if v := os.Getenv(envGinMode); v != "" {
		cfg.GinMode = v
	}
	cfg.applyDefaults()
	return cfg
}

func (s *Server) applyDefaults() {
	if strings.TrimSpace(s.Addr) == "" {
		s.Addr = defaultAddr
	}
	if s.QuoteTTLSeconds <= 0 {
		s.QuoteTTLSeconds = defaultQuoteTTL
	}
	if s.KlineTTLSeconds <= 0 {
		s.KlineTTLSeconds = defaultKlineTTL
	}
	if s.UpstreamTimeoutSeconds <= 0 {
		s.UpstreamTimeoutSeconds = defaultUpstreamTimeout
	}
	if s.GinMode == "" {
		s.GinMode = defaultGinMode
	}
}

func (s *Server) QuoteTTL() time.Duration {
	return time.Duration(s.QuoteTTLSeconds) * time.Second
}

func (s *Server) KlineTTL() time.Duration {
	return time.Duration(s.KlineTTLSeconds) * time.Second
}

func (s *Server) UpstreamTimeout() time.Duration {
	return time.Duration(s.UpstreamTimeoutSeconds) * time.Second
}
