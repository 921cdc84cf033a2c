package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 上游结果中没有目标代码。
	ErrNotFound = errors.New("symbol not found")
	// ErrNoData 上游返回为空或没有可用行。
	ErrNoData = errors.New("no data")
	// ErrUnsupportedPeriod K 线周期不是 daily/weekly/monthly。
	ErrUnsupportedPeriod = errors.New("unsupported period")
	// ErrInvalidSymbol 代码不是 6 位数字。
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// FetchError 记录失败的上游操作及代码，Err 为根因。
type FetchError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("api: %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Op: op, Symbol: symbol, Err: err}
}
