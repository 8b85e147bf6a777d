package entity

import (
	"encoding/json"
	"math"
	"testing"
)

type stringerPercentage struct{ v string }

func (s stringerPercentage) String() string { return s.v }

func TestParseRiskPercentage(t *testing.T) {
	empty := ""
	seventy := "70"
	var nilString *string
	var nilInt *int
	five := 5

	tests := []struct {
		name    string
		input   any
		zero    bool
		display string
	}{
		{name: "nil", input: nil, zero: true},
		{name: "empty string", input: "", zero: true},
		{name: "int zero", input: 0, zero: true},
		{name: "float zero", input: 0.0, zero: true},
		{name: "NaN", input: math.NaN(), zero: true},
		{name: "nil string pointer", input: nilString, zero: true},
		{name: "pointer to empty string", input: &empty, zero: true},
		{name: "nil int pointer", input: nilInt, zero: true},
		{name: "string", input: "74", display: "74"},
		{name: "string zero is present", input: "0", display: "0"},
		{name: "string pointer", input: &seventy, display: "70"},
		{name: "int", input: 65, display: "65"},
		{name: "int64", input: int64(81), display: "81"},
		{name: "uint8", input: uint8(12), display: "12"},
		{name: "whole float", input: 65.0, display: "65"},
		{name: "fractional float", input: 72.5, display: "72.5"},
		{name: "float32", input: float32(61.5), display: "61.5"},
		{name: "json number", input: json.Number("68"), display: "68"},
		{name: "json number zero", input: json.Number("0"), zero: true},
		{name: "stringer", input: stringerPercentage{"77"}, display: "77"},
		{name: "int pointer", input: &five, display: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseRiskPercentage(tt.input)
			if p.IsZero() != tt.zero {
				t.Fatalf("expected IsZero=%v, got %v", tt.zero, p.IsZero())
			}
			if !tt.zero && p.String() != tt.display {
				t.Errorf("expected %q, got %q", tt.display, p.String())
			}
		})
	}
}

func TestParseRiskPercentage_Idempotent(t *testing.T) {
	p := ParseRiskPercentage("66")
	again := ParseRiskPercentage(p)
	if again != p {
		t.Errorf("expected %v, got %v", p, again)
	}
}
