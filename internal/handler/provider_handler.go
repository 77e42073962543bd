package handler

import (
	"net/http"

	"purchaseledger/internal/service"
	"purchaseledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProviderHandler struct {
	providerService service.ProviderService
}

func NewProviderHandler(providerService service.ProviderService) *ProviderHandler {
	return &ProviderHandler{providerService: providerService}
}

func (h *ProviderHandler) RegisterRoutes(router *gin.RouterGroup) {
	providers := router.Group("/api/providers")
	{
		providers.GET("", h.ListProviders)
		providers.POST("", h.CreateProvider)
		providers.GET("/:id", h.GetProviderDetail)
		providers.PUT("/:id", h.UpdateProvider)
		providers.GET("/:id/history", h.GetProviderHistory)
	}
}

// ListProviders returns every provider ordered by name
// @Summary      List providers
// @Tags         providers
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProviderResponse}
// @Router       /api/providers [get]
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	providers, err := h.providerService.ListProviders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, providers))
}

// CreateProvider creates a provider or returns the one with the same normalized name
// @Summary      Create provider
// @Description  Returns 201 for a new provider and 200 when the name matches an existing one.
// @Tags         providers
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateProviderRequest  true  "Provider payload"
// @Success      200  {object}  response.Response{data=service.ProviderResponse}
// @Success      201  {object}  response.Response{data=service.ProviderResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/providers [post]
func (h *ProviderHandler) CreateProvider(c *gin.Context) {
	var req service.CreateProviderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	provider, created, err := h.providerService.CreateProvider(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, response.Success(status, provider))
}

// UpdateProvider changes contact fields; omitted fields are kept
// @Summary      Update provider
// @Tags         providers
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Provider ID"
// @Param        payload  body  service.UpdateProviderRequest  true  "Fields to change"
// @Success      200  {object}  response.Response{data=service.ProviderResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/providers/{id} [put]
func (h *ProviderHandler) UpdateProvider(c *gin.Context) {
	var req service.UpdateProviderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	provider, err := h.providerService.UpdateProvider(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, provider))
}

// GetProviderDetail returns spend metrics, top items and recent confirmed purchases
// @Summary      Provider detail
// @Tags         providers
// @Produce      json
// @Param        id  path  string  true  "Provider ID"
// @Success      200  {object}  response.Response{data=service.ProviderDetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/providers/{id} [get]
func (h *ProviderHandler) GetProviderDetail(c *gin.Context) {
	detail, err := h.providerService.GetProviderDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// GetProviderHistory returns the last 50 purchases of any status
// @Summary      Provider purchase history
// @Tags         providers
// @Produce      json
// @Param        id  path  string  true  "Provider ID"
// @Success      200  {object}  response.Response{data=service.ProviderHistoryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/providers/{id}/history [get]
func (h *ProviderHandler) GetProviderHistory(c *gin.Context) {
	history, err := h.providerService.GetProviderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}
