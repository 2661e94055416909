package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/service/ratelimit"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

// TrainingService is the use case behind the training routes.
type TrainingService interface {
	Train(ctx context.Context, req models.TrainRequest) (models.TrainResponse, error)
	Submit(ctx context.Context, req models.TrainRequest) (models.TrainJob, error)
	JobStatus(ctx context.Context, id string) (models.TrainJob, error)
}

type TrainingHandler struct {
	logger *xlogger.Logger
	uc     TrainingService
	rl     *ratelimit.Limiter
}

// NewTrainingHandler builds the handler. rl may be nil to disable rate limiting.
func NewTrainingHandler(logger *xlogger.Logger, uc TrainingService, rl *ratelimit.Limiter) *TrainingHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TrainingHandler{logger: logger, uc: uc, rl: rl}
}

func (h *TrainingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/train")
	var mw []echo.MiddlewareFunc
	if h.rl != nil {
		mw = append(mw, h.rl.Middleware(h.logger))
	}
	g.POST("", h.Train, mw...)
	g.POST("/jobs", h.Submit, mw...)
	g.GET("/jobs/:id", h.Job)
}

// Train fits a model synchronously and returns its metrics.
func (h *TrainingHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Train(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("train usecase error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// Submit queues a training job and answers 202 with its id.
func (h *TrainingHandler) Submit(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	job, err := h.uc.Submit(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("submit usecase error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("training queue unavailable").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

func (h *TrainingHandler) Job(c echo.Context) error {
	job, err := h.uc.JobStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, job)
}
