package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkly-api/internal/apperr"
	"linkly-api/internal/models"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgInternalError = "Internal Server Error"
)

// errorResponder writes the error envelope. Causes are only included when
// exposeDetails is set, i.e. outside production.
type errorResponder struct {
	exposeDetails bool
}

func (r errorResponder) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.Internal, msgInternalError, err)
	}

	resp := models.ErrorResponse{Error: appErr.Message}
	if r.exposeDetails && appErr.Err != nil {
		resp.Details = appErr.Err.Error()
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Kind), resp)
}

func (r errorResponder) respondBadBody(c *gin.Context, err error) {
	resp := models.ErrorResponse{Error: msgInvalidBody}
	if r.exposeDetails {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
