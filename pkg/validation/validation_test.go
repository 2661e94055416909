package validation

import (
	"context"
	"errors"
	"testing"
)

type trainInput struct {
	Ticker string  `json:"ticker" validate:"required"`
	Epochs int     `json:"epochs" default:"10" validate:"gte=1,lte=500"`
	Period string  `json:"period" default:"5y" validate:"oneof=1y 2y 5y max"`
	Notes  *string `json:"notes"`
}

func decode(t *testing.T, body string) (trainInput, *Error) {
	t.Helper()
	var in trainInput
	err := DecodeJSON(context.Background(), []byte(body), &in)
	if err == nil {
		return in, nil
	}
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return in, ve
}

func TestDecodeJSONAppliesDefaults(t *testing.T) {
	in, ve := decode(t, `{"ticker":"TCS"}`)
	if ve != nil {
		t.Fatalf("unexpected error: %v", ve)
	}
	if in.Epochs != 10 || in.Period != "5y" {
		t.Fatalf("defaults not applied: %+v", in)
	}
	if in.Notes != nil {
		t.Fatalf("notes should stay nil")
	}
}

func TestDecodeJSONReportsEveryField(t *testing.T) {
	_, ve := decode(t, `{"epochs":"ten","period":"3y"}`)
	if ve == nil {
		t.Fatal("expected validation error")
	}
	if !ve.Has("ticker", "ERR_REQUIRED") {
		t.Errorf("missing ticker error: %v", ve.Fields)
	}
	if !ve.Has("epochs", "ERR_TYPE") {
		t.Errorf("missing epochs type error: %v", ve.Fields)
	}
	if !ve.Has("period", "ERR_ONEOF") {
		t.Errorf("missing period enum error: %v", ve.Fields)
	}
	seen := map[string]int{}
	for _, f := range ve.Fields {
		seen[f.Field]++
	}
	for field, n := range seen {
		if field != "" && n > 1 {
			t.Errorf("field %s reported %d times", field, n)
		}
	}
}

func TestDecodeJSONBounds(t *testing.T) {
	_, ve := decode(t, `{"ticker":"TCS","epochs":1000}`)
	if ve == nil || !ve.Has("epochs", "ERR_LTE") {
		t.Fatalf("expected epochs lte error, got %v", ve)
	}
	if got := ve.Fields[0].Params["max"]; got != "500" {
		t.Errorf("max param = %v", got)
	}
}

func TestDecodeJSONIntegralFloat(t *testing.T) {
	in, ve := decode(t, `{"ticker":"TCS","epochs":60.0}`)
	if ve != nil {
		t.Fatalf("unexpected error: %v", ve)
	}
	if in.Epochs != 60 {
		t.Fatalf("epochs = %d", in.Epochs)
	}

	_, ve = decode(t, `{"ticker":"TCS","epochs":60.5}`)
	if ve == nil || !ve.Has("epochs", "ERR_TYPE") {
		t.Fatalf("expected type error for fractional epochs, got %v", ve)
	}
}

func TestDecodeJSONNull(t *testing.T) {
	_, ve := decode(t, `{"ticker":null}`)
	if ve == nil || !ve.Has("ticker", "ERR_TYPE") {
		t.Fatalf("expected ticker type error, got %v", ve)
	}

	_, ve = decode(t, `{"ticker":"TCS","notes":null}`)
	if ve != nil {
		t.Fatalf("null pointer field should be accepted: %v", ve)
	}
}

func TestDecodeJSONNotAnObject(t *testing.T) {
	_, ve := decode(t, `[1,2,3]`)
	if ve == nil || len(ve.Fields) != 1 || ve.Fields[0].Code != "ERR_TYPE" {
		t.Fatalf("expected single body type error, got %v", ve)
	}

	_, ve = decode(t, `{"ticker":`)
	if ve == nil || ve.Fields[0].Code != "ERR_SYNTAX" {
		t.Fatalf("expected syntax error, got %v", ve)
	}
}

func TestDecodeJSONBadDest(t *testing.T) {
	var in trainInput
	err := DecodeJSON(context.Background(), []byte(`{}`), in)
	if err == nil {
		t.Fatal("expected error for non-pointer dest")
	}
	var ve *Error
	if errors.As(err, &ve) {
		t.Fatal("dest misuse should not be a validation error")
	}
}

func TestParseFromMap(t *testing.T) {
	in, err := Parse[trainInput](context.Background(), map[string]any{"ticker": "INFY", "epochs": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Ticker != "INFY" || in.Epochs != 5 {
		t.Fatalf("got %+v", in)
	}
}

func TestStructAndToMap(t *testing.T) {
	in := trainInput{Ticker: "INFY", Epochs: 0, Period: "1y"}
	err := Struct(context.Background(), &in)
	var ve *Error
	if !errors.As(err, &ve) || !ve.Has("epochs", "ERR_GTE") {
		t.Fatalf("expected epochs gte error, got %v", err)
	}

	m, err := ToMap(trainInput{Ticker: "INFY", Epochs: 3, Period: "1y"})
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["ticker"] != "INFY" {
		t.Fatalf("ticker = %v", m["ticker"])
	}
	if _, ok := m["notes"]; !ok {
		t.Fatalf("notes key should be present as null")
	}
}
