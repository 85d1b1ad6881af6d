// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"menu-search-api/internal/application/search"
)

// QueryItemsRequest 菜单项检索请求
type QueryItemsRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit,omitempty" binding:"omitempty,gt=0,lte=50"`
}

// QueryModifiersRequest 修饰项检索请求，parent 限定修饰项归属的菜单项
type QueryModifiersRequest struct {
	Query  string `json:"query" binding:"required"`
	Parent string `json:"parent" binding:"required"`
	Limit  int    `json:"limit,omitempty" binding:"omitempty,gt=0,lte=50"`
}

// QueryResponse 检索结果
type QueryResponse struct {
	Results []search.Result `json:"results"`
	Count   int             `json:"count"`
}

// NewQueryResponse 构建检索结果响应
func NewQueryResponse(results []search.Result) QueryResponse {
	if results == nil {
		results = []search.Result{}
	}
	return QueryResponse{
		Results: results,
		Count:   len(results),
	}
}
