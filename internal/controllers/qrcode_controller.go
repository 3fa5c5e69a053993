package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkly-api/internal/service"
)

type QRCodeController struct {
	errorResponder
	qrService service.QRCodeService
}

func NewQRCodeController(qrService service.QRCodeService, exposeDetails bool) *QRCodeController {
	return &QRCodeController{
		errorResponder: errorResponder{exposeDetails: exposeDetails},
		qrService:      qrService,
	}
}

// GenerateQRCode handles GET /api/qrcode/:code
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	code := c.Param("code")

	png, err := qc.qrService.Generate(c.Request.Context(), code)
	if err != nil {
		qc.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename="+code+".png")
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}
