package handler

import (
	"net/http"
	"time"

	"purchaseledger/internal/service"
	"purchaseledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", h.Login)
	}
}

// Login exchanges the admin password for a token
// @Summary      Admin login
// @Description  Issues a JWT for the settings routes and also sets it as the access_token cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.LoginRequest  true  "Admin password"
// @Success      200  {object}  response.Response{data=service.LoginResponse}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	res, err := h.authService.Login(req)
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("access_token", res.AccessToken, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
