package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/filter"
	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, studio.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrBusy), errors.Is(err, studio.ErrNoImage):
		return http.StatusConflict
	case errors.Is(err, filter.ErrEngineUnavailable), errors.Is(err, bgremove.ErrEngineInit):
		return http.StatusServiceUnavailable
	case errors.Is(err, raster.ErrTooLarge), errors.Is(err, raster.ErrTooManyPixels):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, intent.ErrUnrecognized):
		return http.StatusUnprocessableEntity
	case errors.Is(err, filter.ErrUnknownFilter),
		errors.Is(err, filter.ErrInvalidIntensity),
		errors.Is(err, raster.ErrUnsupportedFormat),
		errors.Is(err, studio.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": ...}. Unrecognized commands also carry the
// help text.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if errors.Is(err, intent.ErrUnrecognized) {
		body["help"] = intent.HelpMessage
	}
	if status >= http.StatusInternalServerError {
		logging.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
