package datatype

import (
	"encoding/json"
	"strconv"
	"time"
)

// DataType is the tag of a supported cell type
type DataType string

const (
	TypeChar  DataType = "char"
	TypeInt   DataType = "int"
	TypeFloat DataType = "float"
	TypeBool  DataType = "bool"
	TypeText  DataType = "text"
	TypeDate  DataType = "date"
)

// DateLayout is the canonical text form of a date value
const DateLayout = "2006-01-02"

// Value is a formatted cell value.
// Only the field matching Type is meaningful, and none of them when Null is set.
type Value struct {
	Type DataType
	Null bool

	Int   int64     // TypeInt
	Float float64   // TypeFloat
	Bool  bool      // TypeBool
	Text  string    // TypeChar, TypeText
	Date  time.Time // TypeDate, always UTC midnight
}

// NullValue returns the null value of the given type
func NullValue(t DataType) Value {
	return Value{Type: t, Null: true}
}

// String returns the canonical text form, which is also what gets persisted.
// Null renders as the empty string.
func (v Value) String() string {
	if v.Null {
		return ""
	}
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	case TypeDate:
		return v.Date.Format(DateLayout)
	default:
		return v.Text
	}
}

// Any returns the native Go value, or nil for null
func (v Value) Any() interface{} {
	if v.Null {
		return nil
	}
	switch v.Type {
	case TypeInt:
		return v.Int
	case TypeFloat:
		return v.Float
	case TypeBool:
		return v.Bool
	case TypeDate:
		return v.Date
	default:
		return v.Text
	}
}

// MarshalJSON encodes the native value; dates use the canonical layout
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Null && v.Type == TypeDate {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Any())
}
