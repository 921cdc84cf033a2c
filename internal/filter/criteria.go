// Package filter 定义股票列表的筛选条件（Criterion）与组合方式（And/Or）。
package filter

import (
	"strings"

	"alphaSeeker/internal/model"
)

// Criterion 单条条件：入参为列表项，返回是否通过。
type Criterion func(*model.StockListing) bool

func And(cs ...Criterion) Criterion {
	return func(s *model.StockListing) bool {
		if s == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if !c(s) {
				return false
			}
		}
		return true
	}
}

func Or(cs ...Criterion) Criterion {
	return func(s *model.StockListing) bool {
		if s == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if c(s) {
				return true
			}
		}
		return false
	}
}

// SymbolContains 代码包含 sub（区分大小写，A 股代码均为数字）。
func SymbolContains(sub string) Criterion {
	return func(s *model.StockListing) bool {
		return strings.Contains(s.Symbol, sub)
	}
}

func NameContains(sub string) Criterion {
	return func(s *model.StockListing) bool {
		return strings.Contains(s.Name, sub)
	}
}

// Keyword 搜索框语义：代码或名称包含关键词。
func Keyword(q string) Criterion {
	return Or(SymbolContains(q), NameContains(q))
}

// Apply 返回 list 中满足 c 的项，保持原顺序。
func Apply(list []model.StockListing, c Criterion) []model.StockListing {
	out := make([]model.StockListing, 0, len(list))
	for i := range list {
		if c(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}
