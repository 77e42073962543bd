package handler

import (
	"net/http"

	"purchaseledger/internal/service"
	"purchaseledger/pkg/pagination"
	"purchaseledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	catalog := router.Group("/api/catalog")
	{
		catalog.GET("/search", h.Search)
		catalog.GET("/monitor", h.PriceMonitor)
		catalog.GET("/:id/cost-history", h.CostHistory)
	}
}

// Search finds confirmed catalog items by name or SKU
// @Summary      Search catalog
// @Tags         catalog
// @Produce      json
// @Param        q  query  string  true  "Name or SKU fragment"
// @Success      200  {object}  response.Response{data=[]service.CatalogItemResponse}
// @Router       /api/catalog/search [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	items, err := h.catalogService.SearchCatalog(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// PriceMonitor lists priced items, most recently updated first
// @Summary      Price monitor
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.CatalogItemResponse}
// @Router       /api/catalog/monitor [get]
func (h *CatalogHandler) PriceMonitor(c *gin.Context) {
	items, err := h.catalogService.PriceMonitor(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// CostHistory pages through the cost changes of one item
// @Summary      Item cost history
// @Tags         catalog
// @Produce      json
// @Param        id     path   string  true   "Catalog item ID"
// @Param        page   query  int     false  "Page number (default: 1)"
// @Param        limit  query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.CostHistoryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/catalog/{id}/cost-history [get]
func (h *CatalogHandler) CostHistory(c *gin.Context) {
	params := pagination.Parse(c)
	rows, total, err := h.catalogService.GetCostHistory(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rows, params.Page, params.Limit, total))
}
