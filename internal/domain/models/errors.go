package models

import (
	"errors"
	"fmt"
)

var (
	// ErrTickerNotFound is returned when no provider has data for a ticker.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrSourceUnavailable is returned when a data source cannot be reached or read.
	ErrSourceUnavailable = errors.New("data source unavailable")
	// ErrInsufficientHistory is returned when a series is too short for the request.
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrEngineUnavailable is returned when the training/inference engine cannot be reached.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrInvalidEngineReply is returned when the engine answers with an incomplete result.
	ErrInvalidEngineReply = errors.New("invalid engine reply")
	// ErrJobNotFound is returned for unknown training job ids.
	ErrJobNotFound = errors.New("training job not found")
)

// EngineRejectedError carries a 4xx reply from the engine, such as an
// unknown ticker or a missing model.
type EngineRejectedError struct {
	StatusCode int
	Message    string
}

func (e *EngineRejectedError) Error() string {
	return fmt.Sprintf("engine rejected request (%d): %s", e.StatusCode, e.Message)
}
