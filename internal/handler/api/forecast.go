package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

type ForecastService interface {
	Predict(ctx context.Context, req models.PredictRequest) (models.PredictResponse, error)
}

type ForecastHandler struct {
	logger *xlogger.Logger
	uc     ForecastService
}

func NewForecastHandler(logger *xlogger.Logger, uc ForecastService) *ForecastHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastHandler{logger: logger, uc: uc}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/predict", h.Predict)
}

// Predict returns a forecast for the requested horizon.
func (h *ForecastHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Predict(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
