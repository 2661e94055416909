package api

import (
	"context"
	"errors"
	"net/http"

	"PriceCast/internal/domain/models"
	xhttp "PriceCast/pkg/http"
)

// appError translates use case failures into the HTTP error envelope.
func appError(err error) *xhttp.AppError {
	var rejected *models.EngineRejectedError
	switch {
	case errors.Is(err, models.ErrTickerNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrJobNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInsufficientHistory):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.As(err, &rejected):
		return engineRejected(rejected).WithError(err)
	case errors.Is(err, models.ErrInvalidEngineReply):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrSourceUnavailable), errors.Is(err, models.ErrEngineUnavailable):
		return xhttp.ServiceUnavailableError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

// engineRejected passes the engine's client error through. 404 stays 404
// (unknown ticker or no trained model); other 4xx replies become 422.
func engineRejected(e *models.EngineRejectedError) *xhttp.AppError {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return xhttp.NotFoundError(e.Message)
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return xhttp.UnprocessableError(e.Message).WithParam("engine_status", e.StatusCode)
	default:
		return xhttp.BadGatewayError(e.Message).WithParam("engine_status", e.StatusCode)
	}
}
