// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"menu-search-api/internal/application/search"
	"menu-search-api/internal/domain/catalog"
	"menu-search-api/internal/interfaces/http/dto"
)

// MenuHandler 菜单快照处理器
type MenuHandler struct {
	service *search.Service
}

// NewMenuHandler 创建菜单快照处理器
func NewMenuHandler(service *search.Service) *MenuHandler {
	return &MenuHandler{
		service: service,
	}
}

// Menu 返回启动时装配的菜单快照
// @Summary 获取菜单
// @Description 返回当前服务持有的菜单快照
// @Tags Menu
// @Produce json
// @Success 200 {object} dto.Response[catalog.Tree]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/menu [get]
func (h *MenuHandler) Menu(c *gin.Context) {
	tree := h.service.Menu()
	if tree == nil {
		dto.NotFound(c, "menu not loaded")
		return
	}
	dto.Success[*catalog.Tree](c, tree)
}
