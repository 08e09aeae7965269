package datatype

import (
	"sort"
	"strings"
	"sync"

	"github.com/leengari/dyntable/internal/domain/errors"
)

// Formatter coerces a raw value into a Value of one type.
// The returned error is a human readable reason; the registry wraps it.
type Formatter func(raw interface{}) (Value, error)

// Registry maps type tags to formatters.
// Every column type must be registered before the column is created.
type Registry struct {
	mu         sync.RWMutex
	formatters map[DataType]Formatter
}

// NewRegistry returns a registry holding the built-in types
func NewRegistry() *Registry {
	return &Registry{
		formatters: map[DataType]Formatter{
			TypeChar:  formatChar,
			TypeText:  formatText,
			TypeInt:   formatInt,
			TypeFloat: formatFloat,
			TypeBool:  formatBool,
			TypeDate:  formatDate,
		},
	}
}

var defaultRegistry = NewRegistry()

// Default returns the shared registry of built-in types
func Default() *Registry {
	return defaultRegistry
}

// Normalize lower-cases and trims a tag, so " CHAR" and "char" are the same type
func Normalize(tag string) DataType {
	return DataType(strings.ToLower(strings.TrimSpace(tag)))
}

// Register adds or replaces the formatter for a tag
func (r *Registry) Register(tag string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[Normalize(tag)] = f
}

// SupportedTypes returns every known tag, sorted
func (r *Registry) SupportedTypes() []DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]DataType, 0, len(r.formatters))
	for t := range r.formatters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsSupported reports whether every given tag is known.
// It returns false when called without tags.
func (r *Registry) IsSupported(tags ...string) bool {
	if len(tags) == 0 {
		return false
	}
	for _, ok := range r.SupportedEach(tags...) {
		if !ok {
			return false
		}
	}
	return true
}

// SupportedEach answers IsSupported for each tag separately
func (r *Registry) SupportedEach(tags ...string) []bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]bool, len(tags))
	for i, tag := range tags {
		_, result[i] = r.formatters[Normalize(tag)]
	}
	return result
}

// Lookup resolves a tag to its normalized DataType
func (r *Registry) Lookup(tag string) (DataType, error) {
	t := Normalize(tag)

	r.mu.RLock()
	_, ok := r.formatters[t]
	r.mu.RUnlock()

	if !ok {
		return "", &errors.UnsupportedTypeError{Type: tag}
	}
	return t, nil
}

// Format validates raw against the tag and returns the formatted value.
// It fails with UnsupportedTypeError for unknown tags and TypeMismatchError
// when raw cannot be coerced. Format has no side effects and is idempotent.
func (r *Registry) Format(tag string, raw interface{}) (Value, error) {
	t := Normalize(tag)

	r.mu.RLock()
	f, ok := r.formatters[t]
	r.mu.RUnlock()

	if !ok {
		return Value{}, &errors.UnsupportedTypeError{Type: tag}
	}

	v, err := f(raw)
	if err != nil {
		return Value{}, &errors.TypeMismatchError{
			Type:   string(t),
			Value:  raw,
			Reason: err.Error(),
		}
	}
	v.Type = t
	return v, nil
}
