// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"menu-search-api/internal/application/search"
	"menu-search-api/internal/interfaces/http/dto"
	"menu-search-api/pkg/errors"
	"menu-search-api/pkg/logger"
)

// SearchHandler 语义检索处理器
type SearchHandler struct {
	service *search.Service
}

// NewSearchHandler 创建语义检索处理器
func NewSearchHandler(service *search.Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// QueryItems 检索菜单项
// @Summary 检索菜单项
// @Description 在菜单项集合中做语义近邻检索
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.QueryItemsRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.QueryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/query/items [post]
func (h *SearchHandler) QueryItems(c *gin.Context) {
	var req dto.QueryItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	results, err := h.service.QueryItems(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.NewQueryResponse(results))
}

// QueryModifiers 检索修饰项
// @Summary 检索修饰项
// @Description 在指定菜单项的修饰项子树内做语义近邻检索
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.QueryModifiersRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.QueryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/query/modifiers [post]
func (h *SearchHandler) QueryModifiers(c *gin.Context) {
	var req dto.QueryModifiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	results, err := h.service.QueryModifiers(c.Request.Context(), req.Query, req.Parent, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.NewQueryResponse(results))
}

// respondError 将应用错误映射为 HTTP 响应
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "request failed", err,
			"path", c.Request.URL.Path,
		)
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}
