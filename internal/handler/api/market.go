package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

type MarketDataService interface {
	Symbols(ctx context.Context, req models.SymbolsRequest) (models.SymbolsResponse, error)
	History(ctx context.Context, req models.HistoryRequest) (models.HistoryResponse, error)
}

type ModelRunsService interface {
	List(ctx context.Context, req models.ModelRunsRequest) ([]models.ModelRun, error)
}

// MarketHandler serves read-only market data and the model run log.
type MarketHandler struct {
	logger *xlogger.Logger
	market MarketDataService
	runs   ModelRunsService
}

func NewMarketHandler(logger *xlogger.Logger, market MarketDataService, runs ModelRunsService) *MarketHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MarketHandler{logger: logger, market: market, runs: runs}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/symbols", h.Symbols)
	g.GET("/history", h.History)
	g.GET("/models", h.Models)
}

func (h *MarketHandler) Symbols(c echo.Context) error {
	req := &models.SymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Symbols(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("symbols usecase error", xlogger.String("data_source", string(req.DataSource)), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.History(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Models(c echo.Context) error {
	req := &models.ModelRunsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	runs, err := h.runs.List(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("models usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, runs)
}
