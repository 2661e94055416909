package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	"PriceCast/pkg/validation"
)

// HTTPServiceBase holds the shared client for the engine endpoints.
type HTTPServiceBase struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
	backoff  time.Duration
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	return &HTTPServiceBase{
		baseURL:  strings.TrimRight(cfg.Engine.URL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(cfg.Engine.Timeout), xhttp.WithUserAgent("PriceCast/1.0")),
		attempts: cfg.Engine.MaxRetries + 1,
		backoff:  cfg.Engine.RetryBackoff,
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes the
// reply into dest (pointer to struct) through the contract decoder: absent
// fields, nulls, wrong types and out of range values are ErrInvalidEngineReply.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("%w: engine url not configured", models.ErrEngineUnavailable)
	}
	var body []byte
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, &body)
	if err != nil {
		return classify(path, err)
	}
	if err := validation.DecodeJSON(ctx, body, dest); err != nil {
		return fmt.Errorf("%w: post %s: %v", models.ErrInvalidEngineReply, path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures with linear backoff.
// Engine rejections (4xx) are returned immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	attempts := b.attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !retryable(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	var rej *models.EngineRejectedError
	if errors.As(err, &rej) || errors.Is(err, models.ErrInvalidEngineReply) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// classify turns transport and status failures into domain errors.
func classify(path string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) && !se.Temporary() {
		return &models.EngineRejectedError{StatusCode: se.StatusCode, Message: detail(se.Body)}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: post %s: %v", models.ErrEngineUnavailable, path, err)
}

// detail extracts the message of a JSON error body ({"detail": ...},
// {"error": ...} or {"message": ...}); other bodies are returned as is.
func detail(body string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil {
				return s
			}
			return string(raw)
		}
	}
	if body == "" {
		return "no details"
	}
	return body
}
