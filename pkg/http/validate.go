package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"PriceCast/pkg/validation"

	"github.com/labstack/echo/v4"
)

var binder = &echo.DefaultBinder{}

// ReadAndValidateRequest fills req from the request and validates it.
// JSON bodies go through the contract decoder so every field problem is
// reported; query and path parameters are bound on top of the defaults.
// It returns the []ValidationError to send back, or nil.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	r := c.Request()
	ctx := r.Context()

	if hasJSONBody(r) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return validatorDefaultRules(err)
		}
		if err := validation.DecodeJSON(ctx, body, req); err != nil {
			return validatorDefaultRules(err)
		}
		return nil
	}

	// Defaults go first so explicit zero values are still range checked.
	if err := validation.ApplyDefaults(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := binder.BindPathParams(c, req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := binder.BindQueryParams(c, req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := validation.Struct(ctx, req); err != nil {
		return validatorDefaultRules(err)
	}

	return nil
}

func hasJSONBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	ct := r.Header.Get(echo.HeaderContentType)
	return ct == "" || strings.HasPrefix(ct, echo.MIMEApplicationJSON)
}

func validatorDefaultRules(err error) []ValidationError {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return ve.Fields
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{
			Code:    "ERR_TYPE",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []ValidationError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}
