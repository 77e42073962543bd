package handler

import (
	"net/http"

	"purchaseledger/internal/service"
	"purchaseledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
}

func NewPurchaseHandler(purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	purchases := router.Group("/api/purchases")
	{
		purchases.POST("", h.CreatePurchase)
		purchases.GET("/recent", h.ListRecent)
		purchases.GET("/drafts", h.ListDrafts)
		purchases.GET("/:id", h.GetPurchase)
		purchases.DELETE("/:id", h.DeletePurchase)
		purchases.GET("/:id/review", h.ReviewPurchase)
		purchases.POST("/:id/lines", h.AddLine)
		purchases.DELETE("/:id/lines/:lineId", h.RemoveLine)
		purchases.POST("/:id/confirm", h.ConfirmPurchase)
		purchases.POST("/:id/cancel", h.CancelPurchase)
		purchases.POST("/:id/clone", h.ClonePurchase)
	}
}

// CreatePurchase creates a draft purchase
// @Summary      Create draft purchase
// @Description  Lines with is_new_item create pending catalog items that stay hidden until confirmation.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePurchaseRequest  true  "Purchase payload"
// @Success      201  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchases [post]
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req service.CreatePurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, purchase))
}

// ListRecent returns the five newest purchases
// @Summary      Recent purchases
// @Tags         purchases
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PurchaseResponse}
// @Router       /api/purchases/recent [get]
func (h *PurchaseHandler) ListRecent(c *gin.Context) {
	purchases, err := h.purchaseService.ListRecent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchases))
}

// ListDrafts returns every draft, newest first
// @Summary      Draft purchases
// @Tags         purchases
// @Produce      json
// @Success      200  {object}  response.Response{data=service.DraftListResponse}
// @Router       /api/purchases/drafts [get]
func (h *PurchaseHandler) ListDrafts(c *gin.Context) {
	drafts, err := h.purchaseService.ListDrafts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, drafts))
}

// GetPurchase returns one purchase with its lines
// @Summary      Get purchase
// @Tags         purchases
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchases/{id} [get]
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	purchase, err := h.purchaseService.GetPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// ReviewPurchase shows how confirming would move each catalog cost
// @Summary      Review purchase impact
// @Tags         purchases
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=service.PurchaseReviewResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchases/{id}/review [get]
func (h *PurchaseHandler) ReviewPurchase(c *gin.Context) {
	review, err := h.purchaseService.ReviewPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, review))
}

// AddLine appends a line to a draft
// @Summary      Add purchase line
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Purchase ID"
// @Param        payload  body  service.PurchaseItemRequest  true  "Line payload"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id}/lines [post]
func (h *PurchaseHandler) AddLine(c *gin.Context) {
	var req service.PurchaseItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	purchase, err := h.purchaseService.AddLine(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// RemoveLine deletes a line from a draft
// @Summary      Remove purchase line
// @Tags         purchases
// @Produce      json
// @Param        id      path  string  true  "Purchase ID"
// @Param        lineId  path  string  true  "Line ID"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id}/lines/{lineId} [delete]
func (h *PurchaseHandler) RemoveLine(c *gin.Context) {
	purchase, err := h.purchaseService.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// ConfirmPurchase confirms a draft and propagates its costs to the catalog
// @Summary      Confirm purchase
// @Tags         purchases
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id}/confirm [post]
func (h *PurchaseHandler) ConfirmPurchase(c *gin.Context) {
	purchase, err := h.purchaseService.ConfirmPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// CancelPurchase moves a draft to cancelled
// @Summary      Cancel purchase
// @Tags         purchases
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id}/cancel [post]
func (h *PurchaseHandler) CancelPurchase(c *gin.Context) {
	purchase, err := h.purchaseService.CancelPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// DeletePurchase deletes a purchase that was never confirmed
// @Summary      Delete purchase
// @Tags         purchases
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id} [delete]
func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	if err := h.purchaseService.DeletePurchase(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Purchase deleted successfully"}))
}

// ClonePurchase copies a purchase into a new draft
// @Summary      Clone purchase
// @Tags         purchases
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      201  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchases/{id}/clone [post]
func (h *PurchaseHandler) ClonePurchase(c *gin.Context) {
	purchase, err := h.purchaseService.ClonePurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, purchase))
}
