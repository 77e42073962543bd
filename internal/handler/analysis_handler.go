package handler

import (
	"bytes"
	"net/http"
	"time"

	"purchaseledger/internal/infra"
	"purchaseledger/internal/service"
	"purchaseledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	analysisService service.AnalysisService
}

func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	analysis := router.Group("/api/analysis")
	{
		analysis.GET("/top-providers", h.TopProviders)
		analysis.GET("/provider/:id/top-items", h.ProviderTopItems)
		analysis.GET("/comparison/:id", h.ComparePrices)
	}
	optimizer := router.Group("/api/optimizer")
	{
		optimizer.POST("/analyze", h.Optimize)
		optimizer.POST("/pdf", h.OptimizePDF)
	}
}

// TopProviders returns up to six providers by confirmed purchase count
// @Summary      Top providers
// @Tags         analysis
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProviderResponse}
// @Router       /api/analysis/top-providers [get]
func (h *AnalysisHandler) TopProviders(c *gin.Context) {
	providers, err := h.analysisService.TopProviders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, providers))
}

// ProviderTopItems returns up to eight items most often bought from a provider
// @Summary      Provider top items
// @Tags         analysis
// @Produce      json
// @Param        id  path  string  true  "Provider ID"
// @Success      200  {object}  response.Response{data=[]service.TopItemResponse}
// @Router       /api/analysis/provider/{id}/top-items [get]
func (h *AnalysisHandler) ProviderTopItems(c *gin.Context) {
	items, err := h.analysisService.ProviderTopItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ComparePrices returns each provider's latest price for an item
// @Summary      Compare item prices
// @Tags         analysis
// @Produce      json
// @Param        id  path  string  true  "Catalog item ID"
// @Success      200  {object}  response.Response{data=service.PriceComparisonResponse}
// @Router       /api/analysis/comparison/{id} [get]
func (h *AnalysisHandler) ComparePrices(c *gin.Context) {
	comparison, err := h.analysisService.ComparePrices(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, comparison))
}

// Optimize groups a shopping list by cheapest recent provider
// @Summary      Optimize shopping list
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        payload  body  service.OptimizeRequest  true  "Catalog item IDs"
// @Success      200  {object}  response.Response{data=[]service.ShoppingPlanGroup}
// @Failure      400  {object}  response.Response
// @Router       /api/optimizer/analyze [post]
func (h *AnalysisHandler) Optimize(c *gin.Context) {
	var req service.OptimizeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	plan, err := h.analysisService.OptimizeShoppingList(c.Request.Context(), req.ItemIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, plan))
}

// OptimizePDF renders the optimized plan as a printable shopping list
// @Summary      Shopping list PDF
// @Tags         analysis
// @Accept       json
// @Produce      application/pdf
// @Param        payload  body  service.OptimizeRequest  true  "Catalog item IDs"
// @Success      200  {file}  file
// @Failure      400  {object}  response.Response
// @Router       /api/optimizer/pdf [post]
func (h *AnalysisHandler) OptimizePDF(c *gin.Context) {
	var req service.OptimizeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	plan, err := h.analysisService.OptimizeShoppingList(c.Request.Context(), req.ItemIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := infra.WriteShoppingListPDF(&buf, plan, time.Now()); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=lista_compras.pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
