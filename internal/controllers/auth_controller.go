package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkly-api/internal/models"
	"linkly-api/internal/service"
)

type AuthController struct {
	errorResponder
	authService service.AuthService
}

func NewAuthController(authService service.AuthService, exposeDetails bool) *AuthController {
	return &AuthController{
		errorResponder: errorResponder{exposeDetails: exposeDetails},
		authService:    authService,
	}
}

// Register handles POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ac.respondBadBody(c, err)
		return
	}

	response, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		ac.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Login handles POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ac.respondBadBody(c, err)
		return
	}

	response, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		ac.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
