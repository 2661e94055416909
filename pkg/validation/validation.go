package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(fieldName)
}

// Omittable is implemented by field types that may be left out of the input
// even though they declare no default value.
type Omittable interface {
	Present() bool
}

var omittableType = reflect.TypeOf((*Omittable)(nil)).Elem()

// FieldError describes a single field that failed validation.
type FieldError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"ticker"`
	Message string                 `json:"message,omitempty" example:"ticker is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Error is returned when input does not satisfy a schema. It carries every
// field problem found, not only the first one.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether field failed with code. An empty code matches any code.
func (e *Error) Has(field, code string) bool {
	for _, f := range e.Fields {
		if f.Field == field && (code == "" || f.Code == code) {
			return true
		}
	}
	return false
}

// Parse builds a T from an untyped mapping: defaults first, then the
// supplied values, then bounds and enum checks.
func Parse[T any](ctx context.Context, raw map[string]any) (T, error) {
	var v T
	err := Decode(ctx, raw, &v)
	return v, err
}

// Decode fills dest (pointer to struct) from raw.
func Decode(ctx context.Context, raw map[string]any, dest any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return &Error{Fields: []FieldError{{Code: "ERR_TYPE", Message: fmt.Sprintf("input is not encodable: %v", err)}}}
	}
	return DecodeJSON(ctx, b, dest)
}

// DecodeJSON is Decode for a JSON document. The document must be an object.
func DecodeJSON(ctx context.Context, data []byte, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("validation: dest must be a non-nil pointer to struct, got %T", dest)
	}

	raw, ferr := readObject(data)
	if ferr != nil {
		return &Error{Fields: []FieldError{*ferr}}
	}

	if err := defaults.Set(dest); err != nil {
		return fmt.Errorf("validation: apply defaults: %w", err)
	}

	fields := checkFields(rv.Elem().Type(), raw, "")
	fields = append(fields, decodeFields(rv.Elem(), raw)...)
	if err := validate.StructCtx(ctx, dest); err != nil {
		fields = append(fields, FromError(err).Fields...)
	}

	if fields = dedupe(fields); len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

// ApplyDefaults sets `default` tag values on zero-valued fields.
func ApplyDefaults(v any) error {
	return defaults.Set(v)
}

// Struct validates an already typed value.
func Struct(ctx context.Context, v any) error {
	if err := validate.StructCtx(ctx, v); err != nil {
		return FromError(err)
	}
	return nil
}

// ToMap serializes v into a plain mapping keyed by wire field names.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	return out, nil
}

// FromError converts validator and decoding errors into *Error.
func FromError(err error) *Error {
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, e := range validationErrors {
			path := fieldPath(e)
			fields = append(fields, FieldError{
				Code:    "ERR_" + strings.ToUpper(e.Tag()),
				Field:   path,
				Message: getErrorMessage(path, e),
				Params:  getErrorParams(e),
			})
		}
		return &Error{Fields: fields}
	}

	return &Error{Fields: []FieldError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}}
}

func readObject(data []byte) (map[string]any, *FieldError) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, &FieldError{Code: "ERR_TYPE", Message: fmt.Sprintf("body must be a JSON object, got %s", te.Value)}
		}
		return nil, &FieldError{Code: "ERR_SYNTAX", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// decodeFields decodes each top level field on its own so that one bad
// value does not hide problems in the others. Nulls are reported by
// checkFields and leave the field untouched.
func decodeFields(rv reflect.Value, raw map[string]any) []FieldError {
	var out []FieldError
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := fieldName(sf)
		if !sf.IsExported() || name == "" {
			continue
		}
		val, ok := raw[name]
		if !ok || val == nil {
			continue
		}
		val = coerceIntegral(sf.Type, val)
		b, err := json.Marshal(val)
		if err == nil {
			err = json.Unmarshal(b, rv.Field(i).Addr().Interface())
		}
		if err != nil {
			out = append(out, typeError(name, sf.Type, err))
		}
	}
	return out
}

// checkFields walks raw against t and reports absent required fields and
// nulls where the field type cannot hold one, at any depth.
func checkFields(t reflect.Type, raw map[string]any, prefix string) []FieldError {
	var out []FieldError
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := fieldName(sf)
		if !sf.IsExported() || name == "" {
			continue
		}
		path := joinPath(prefix, name)
		val, ok := raw[name]
		if !ok {
			if required(sf) {
				out = append(out, FieldError{
					Code:    "ERR_REQUIRED",
					Field:   path,
					Message: fmt.Sprintf("%s is required", path),
				})
			}
			continue
		}
		out = append(out, checkValue(sf.Type, val, path)...)
	}
	return out
}

func checkValue(t reflect.Type, val any, path string) []FieldError {
	if val == nil {
		if nullable(t) {
			return nil
		}
		return []FieldError{nullError(path, t)}
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		if isOmittable(t) {
			return nil
		}
		if m, ok := val.(map[string]any); ok {
			return checkFields(t, m, path)
		}
	case reflect.Slice, reflect.Array:
		items, ok := val.([]any)
		if !ok {
			return nil
		}
		var out []FieldError
		for i, item := range items {
			out = append(out, checkValue(t.Elem(), item, fmt.Sprintf("%s[%d]", path, i))...)
		}
		return out
	}
	return nil
}

func nullError(path string, t reflect.Type) FieldError {
	return FieldError{
		Code:    "ERR_TYPE",
		Field:   path,
		Message: fmt.Sprintf("%s must be a valid %s, got null", path, kindName(t)),
	}
}

func required(sf reflect.StructField) bool {
	if _, ok := sf.Tag.Lookup("default"); ok {
		return false
	}
	return sf.Type.Kind() != reflect.Ptr && !isOmittable(sf.Type)
}

// nullable reports whether JSON null is an acceptable value. Only pointers,
// interfaces and Omittable types take one; a null list is a type error.
func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface:
		return true
	}
	return isOmittable(t)
}

func isOmittable(t reflect.Type) bool {
	return t.Implements(omittableType) || reflect.PointerTo(t).Implements(omittableType)
}

// coerceIntegral lets 60.0 stand for 60 on integer fields.
func coerceIntegral(t reflect.Type, val any) any {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return val
	}
	n, ok := val.(json.Number)
	if !ok {
		return val
	}
	if _, err := n.Int64(); err == nil {
		return val
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return val
	}
	return json.Number(strconv.FormatInt(int64(f), 10))
}

func typeError(name string, t reflect.Type, err error) FieldError {
	path := name
	got := ""
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		if te.Field != "" && te.Field != name {
			path = joinPath(name, te.Field)
		}
		got = te.Value
		t = te.Type
	}
	msg := fmt.Sprintf("%s must be a valid %s", path, kindName(t))
	if got != "" {
		msg += ", got " + got
	} else if te == nil {
		msg += ": " + err.Error()
	}
	return FieldError{Code: "ERR_TYPE", Field: path, Message: msg}
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	if isOmittable(t) {
		return "value or null"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Ptr:
		return kindName(t.Elem())
	default:
		return t.Kind().String()
	}
}

// dedupe keeps the first error reported for each field.
func dedupe(fields []FieldError) []FieldError {
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if f.Field != "" {
			if _, ok := seen[f.Field]; ok {
				continue
			}
			seen[f.Field] = struct{}{}
		}
		out = append(out, f)
	}
	return out
}

func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func getErrorMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func getErrorParams(fe validator.FieldError) map[string]interface{} {
	params := make(map[string]interface{})

	switch fe.Tag() {
	case "min", "gte":
		params["min"] = fe.Param()
	case "max", "lte":
		params["max"] = fe.Param()
	case "gt", "lt":
		params["value"] = fe.Param()
	case "oneof":
		params["options"] = strings.Split(fe.Param(), " ")
	}
	if v := fe.Value(); v != nil {
		params["got"] = v
	}

	return params
}
