package wfs

import (
	"encoding"
	"encoding/xml"
	"fmt"
	"strconv"
)

// Optional is an attribute that tracks whether it was explicitly set, so that
// "never set", "set to the default" and "set to another value" stay distinct.
// Only explicitly set values are written to XML.
type Optional[T comparable] struct {
	value    T
	set      bool
	fallback T
}

// WithDefault returns an unset Optional that reports d until it is set.
func WithDefault[T comparable](d T) Optional[T] {
	return Optional[T]{fallback: d}
}

func (o Optional[T]) Get() T {
	if o.set {
		return o.value
	}
	return o.fallback
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) Default() T {
	return o.fallback
}

// Set stores v and marks the attribute as set. The zero value of an
// enumeration stands for the schema default.
func (o *Optional[T]) Set(v T) {
	var zero T
	if _, ok := any(v).(enumeration); ok && v == zero {
		v = o.fallback
	}
	o.value, o.set = v, true
}

// Unset restores the default and clears the set flag.
func (o *Optional[T]) Unset() {
	var zero T
	o.value, o.set = zero, false
}

func (o Optional[T]) String() string {
	s, err := formatValue(o.Get())
	if err != nil {
		return fmt.Sprint(o.Get())
	}
	return s
}

func (o Optional[T]) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if !o.set {
		return xml.Attr{}, nil
	}

	s, err := formatValue(o.value)
	if err != nil {
		return xml.Attr{}, fmt.Errorf("attribute %s: %w", name.Local, err)
	}
	return xml.Attr{Name: name, Value: s}, nil
}

func (o *Optional[T]) UnmarshalXMLAttr(attr xml.Attr) error {
	var v T
	if err := parseValue(attr.Value, &v); err != nil {
		return fmt.Errorf("attribute %s: %w", attr.Name.Local, err)
	}
	o.Set(v)
	return nil
}

type enumeration interface {
	enumeration()
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		return string(b), err
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func parseValue(s string, dst any) error {
	switch p := dst.(type) {
	case encoding.TextUnmarshaler:
		return p.UnmarshalText([]byte(s))
	case *string:
		*p = s
	case *bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%w: %q is not a boolean", ErrInvalidLiteral, s)
		}
		*p = b
	case *uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidLiteral, s)
		}
		*p = n
	case *int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidLiteral, s)
		}
		*p = n
	default:
		return fmt.Errorf("unsupported attribute type %T", dst)
	}
	return nil
}
