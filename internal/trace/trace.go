// Package trace 在 context 中传递 trace ID，Log 时每行带 TRACE=id 便于排查。
package trace

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type ctxKey int

const traceIDKey ctxKey = 0

// HeaderName 请求/响应头中携带 trace ID 的字段名。
const HeaderName = "X-Trace-Id"

const traceIDLen = 8

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// NewTraceID 取 uuid 前 8 位十六进制，足够在单机日志里区分请求。
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:traceIDLen]
}

var logMu sync.Mutex

// Log 打日志，每行开头固定为 TRACE=id，便于一眼看到 trace 并 grep
func Log(ctx context.Context, format string, args ...interface{}) {
	id := TraceID(ctx)
	if id == "" {
		id = "-"
	}
	logMu.Lock()
	msg := fmt.Sprintf(format, args...)
	_ = log.Output(2, fmt.Sprintf("TRACE=%s | %s", id, msg))
	logMu.Unlock()
}
