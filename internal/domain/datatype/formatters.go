package datatype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// formatChar coerces like text; char is a display hint for short values
func formatChar(raw interface{}) (Value, error) {
	return formatText(raw)
}

func formatText(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(TypeText), nil
	case string:
		return Value{Text: v}, nil
	case []byte:
		return Value{Text: string(v)}, nil
	case bool:
		return Value{Text: strconv.FormatBool(v)}, nil
	case float32:
		return Value{Text: strconv.FormatFloat(float64(v), 'g', -1, 32)}, nil
	case float64:
		return Value{Text: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case time.Time:
		return Value{Text: v.Format(time.RFC3339)}, nil
	case fmt.Stringer:
		return Value{Text: v.String()}, nil
	}
	if i, ok := toInt64(raw); ok {
		return Value{Text: strconv.FormatInt(i, 10)}, nil
	}
	return Value{}, fmt.Errorf("expected text, got %T", raw)
}

func formatInt(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(TypeInt), nil
	case bool:
		return Value{}, fmt.Errorf("expected integer, got bool")
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return NullValue(TypeInt), nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Value{Int: i}, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as integer", v)
		}
		return floatToInt(f)
	}
	if i, ok := toInt64(raw); ok {
		return Value{Int: i}, nil
	}
	return Value{}, fmt.Errorf("expected integer, got %T", raw)
}

// floatToInt truncates toward zero, so 3.7 and "3.7" store 3
func floatToInt(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("expected integer, got %v", f)
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return Value{}, fmt.Errorf("integer out of range: %v", f)
	}
	return Value{Int: int64(f)}, nil
}

func formatFloat(raw interface{}) (Value, error) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return NullValue(TypeFloat), nil
	case bool:
		return Value{}, fmt.Errorf("expected float, got bool")
	case float32:
		f = float64(v)
	case float64:
		f = v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return NullValue(TypeFloat), nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as float", v)
		}
		f = parsed
	default:
		i, ok := toInt64(raw)
		if !ok {
			return Value{}, fmt.Errorf("expected float, got %T", raw)
		}
		f = float64(i)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("float must be finite, got %v", f)
	}
	return Value{Float: f}, nil
}

func formatBool(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(TypeBool), nil
	case bool:
		return Value{Bool: v}, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return NullValue(TypeBool), nil
		case "true", "t", "1", "yes":
			return Value{Bool: true}, nil
		case "false", "f", "0", "no":
			return Value{Bool: false}, nil
		}
		return Value{}, fmt.Errorf("cannot parse %q as bool", v)
	case float32:
		return floatToBool(float64(v), raw)
	case float64:
		return floatToBool(v, raw)
	}
	if i, ok := toInt64(raw); ok && (i == 0 || i == 1) {
		return Value{Bool: i == 1}, nil
	}
	return Value{}, fmt.Errorf("expected bool, got %T(%v)", raw, raw)
}

// floatToBool takes 0 and 1, the values JSON decoding produces for numeric flags
func floatToBool(f float64, raw interface{}) (Value, error) {
	switch f {
	case 0:
		return Value{Bool: false}, nil
	case 1:
		return Value{Bool: true}, nil
	}
	return Value{}, fmt.Errorf("expected bool, got %T(%v)", raw, raw)
}

func formatDate(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(TypeDate), nil
	case time.Time:
		return Value{Date: truncateDate(v)}, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return NullValue(TypeDate), nil
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			t, err = time.Parse(time.RFC3339, s)
		}
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as date (want %s or RFC 3339)", v, DateLayout)
		}
		return Value{Date: truncateDate(t)}, nil
	}
	return Value{}, fmt.Errorf("expected date string or time.Time, got %T", raw)
}

// truncateDate keeps the calendar date of t's own wall clock, in UTC
func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// toInt64 normalizes Go integer kinds
func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}
