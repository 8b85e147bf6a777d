package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// RiskPercentage is the share of retail accounts that lose money, as supplied
// by the caller. Brokers store it as free text, so it is kept as a string.
type RiskPercentage struct {
	value   string
	present bool
}

// ParseRiskPercentage accepts the loosely typed values found in broker records
// and request parameters. nil, nil pointers, the empty string, numeric zero and
// NaN count as "no percentage". A non-empty string is always present, even "0".
func ParseRiskPercentage(v any) RiskPercentage {
	switch p := v.(type) {
	case nil:
		return RiskPercentage{}
	case RiskPercentage:
		return p
	case string:
		return stringPercentage(p)
	case *string:
		if p == nil {
			return RiskPercentage{}
		}
		return stringPercentage(*p)
	case json.Number:
		f, err := p.Float64()
		if err != nil {
			return stringPercentage(p.String())
		}
		return floatPercentage(f, 64)
	case float64:
		return floatPercentage(p, 64)
	case float32:
		return floatPercentage(float64(p), 32)
	case int:
		return intPercentage(int64(p))
	case int8:
		return intPercentage(int64(p))
	case int16:
		return intPercentage(int64(p))
	case int32:
		return intPercentage(int64(p))
	case int64:
		return intPercentage(p)
	case uint:
		return uintPercentage(uint64(p))
	case uint8:
		return uintPercentage(uint64(p))
	case uint16:
		return uintPercentage(uint64(p))
	case uint32:
		return uintPercentage(uint64(p))
	case uint64:
		return uintPercentage(p)
	case fmt.Stringer:
		if rv := reflect.ValueOf(p); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return RiskPercentage{}
		}
		return stringPercentage(p.String())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return RiskPercentage{}
		}
		return ParseRiskPercentage(rv.Elem().Interface())
	}
	return stringPercentage(fmt.Sprint(v))
}

func stringPercentage(s string) RiskPercentage {
	if s == "" {
		return RiskPercentage{}
	}
	return RiskPercentage{value: s, present: true}
}

func floatPercentage(f float64, bitSize int) RiskPercentage {
	if f == 0 || math.IsNaN(f) {
		return RiskPercentage{}
	}
	return RiskPercentage{value: strconv.FormatFloat(f, 'f', -1, bitSize), present: true}
}

func intPercentage(i int64) RiskPercentage {
	if i == 0 {
		return RiskPercentage{}
	}
	return RiskPercentage{value: strconv.FormatInt(i, 10), present: true}
}

func uintPercentage(u uint64) RiskPercentage {
	if u == 0 {
		return RiskPercentage{}
	}
	return RiskPercentage{value: strconv.FormatUint(u, 10), present: true}
}

// IsZero reports whether no usable percentage was supplied.
func (p RiskPercentage) IsZero() bool {
	return !p.present
}

// String returns the percentage exactly as it will be substituted.
func (p RiskPercentage) String() string {
	return p.value
}
