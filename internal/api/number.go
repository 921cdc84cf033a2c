package api

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// num 取数值字段：NaN/Inf、停牌时的 "-"、空串或无法解析均视为 0。
func num(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		return finiteOrZero(v.Num)
	case gjson.String:
		return parseNum(v.Str)
	default:
		return 0
	}
}

func intNum(v gjson.Result) int64 {
	return int64(num(v))
}

func parseNum(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(f)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
