// Package stocks 持有进程内只读的 A 股静态列表。
package stocks

import (
	"alphaSeeker/internal/filter"
	"alphaSeeker/internal/model"
)

var listing = []model.StockListing{
	{Symbol: "600519", Name: "贵州茅台", Sector: "白酒"},
	{Symbol: "000858", Name: "五粮液", Sector: "白酒"},
	{Symbol: "600036", Name: "招商银行", Sector: "银行"},
	{Symbol: "601318", Name: "中国平安", Sector: "保险"},
	{Symbol: "600900", Name: "长江电力", Sector: "电力"},
	{Symbol: "300750", Name: "宁德时代", Sector: "新能源"},
	{Symbol: "002594", Name: "比亚迪", Sector: "新能源车"},
	{Symbol: "000001", Name: "平安银行", Sector: "银行"},
	{Symbol: "601888", Name: "中国中免", Sector: "免税店"},
	{Symbol: "600276", Name: "恒瑞医药", Sector: "医药"},
}

// All 返回列表副本，调用方修改不影响原数据。
func All() []model.StockListing {
	out := make([]model.StockListing, len(listing))
	copy(out, listing)
	return out
}

// Name 按代码查名称，未收录时返回代码本身。
func Name(symbol string) string {
	for i := range listing {
		if listing[i].Symbol == symbol {
			return listing[i].Name
		}
	}
	return symbol
}

// Search q 为空返回全表，否则返回代码或名称包含 q 的项。
func Search(q string) []model.StockListing {
	if q == "" {
		return All()
	}
	return filter.Apply(listing, filter.Keyword(q))
}
