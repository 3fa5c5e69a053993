package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkly-api/internal/apperr"
	"linkly-api/internal/jwt"
	"linkly-api/internal/middleware"
	"linkly-api/internal/models"
	"linkly-api/internal/service"
)

type ShortenerController struct {
	errorResponder
	urlService service.URLService
	jwtService *jwt.JWTService
}

func NewShortenerController(urlService service.URLService, jwtService *jwt.JWTService, exposeDetails bool) *ShortenerController {
	return &ShortenerController{
		errorResponder: errorResponder{exposeDetails: exposeDetails},
		urlService:     urlService,
		jwtService:     jwtService,
	}
}

// Shorten handles POST /api/shorten. A valid token makes the caller the
// owner of a newly created link; a missing or invalid one is anonymous.
func (sc *ShortenerController) Shorten(c *gin.Context) {
	var req models.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sc.respondBadBody(c, err)
		return
	}

	var owner *string
	if userID, ok := sc.jwtService.VerifyOptional(middleware.ExtractToken(c)); ok {
		owner = &userID
	}

	res, err := sc.urlService.ResolveOrCreate(c.Request.Context(), req.LongURL, owner)
	if err != nil {
		sc.respondError(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, models.LinkResponse{Success: true, Data: res.Link})
}

// Redirect handles GET /:code
func (sc *ShortenerController) Redirect(c *gin.Context) {
	longURL, err := sc.urlService.ResolveAndVisit(c.Request.Context(), c.Param("code"))
	if err != nil {
		sc.respondError(c, err)
		return
	}

	c.Redirect(http.StatusMovedPermanently, longURL)
}

// MyLinks handles GET /api/links/my-links
func (sc *ShortenerController) MyLinks(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		sc.respondError(c, apperr.New(apperr.Unauthorized, "No token, authorization denied"))
		return
	}

	links, err := sc.urlService.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		sc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LinkListResponse{
		Success: true,
		Count:   len(links),
		Data:    links,
	})
}
