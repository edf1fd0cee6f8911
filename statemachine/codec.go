package statemachine

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
)

// Codec converts state values or triggers to and from the text used in
// serialized documents.
type Codec[V any] interface {
	Encode(v V) (string, error)
	Decode(s string) (V, error)
}

type textCodec[V any] struct{}

// TextCodec returns a Codec for values implementing encoding.TextMarshaler
// (and TextUnmarshaler through a pointer), or whose underlying kind is a
// string, bool, integer or float.
func TextCodec[V any]() Codec[V] {
	return textCodec[V]{}
}

func (textCodec[V]) Encode(v V) (string, error) {
	if m, ok := any(v).(encoding.TextMarshaler); ok {
		b, err := m.MarshalText()
		if err != nil {
			return "", err
		}

		return string(b), nil
	}

	rv := reflect.ValueOf(&v).Elem()

	switch rv.Kind() { //nolint:exhaustive
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()), nil
	default:
		return "", fmt.Errorf("%w: cannot encode %s", ErrInvalidCodecValue, rv.Type())
	}
}

func (textCodec[V]) Decode(s string) (V, error) {
	var v V

	if u, ok := any(&v).(encoding.TextUnmarshaler); ok {
		if err := u.UnmarshalText([]byte(s)); err != nil {
			return v, fmt.Errorf("%w: %q: %w", ErrInvalidCodecValue, s, err)
		}

		return v, nil
	}

	rv := reflect.ValueOf(&v).Elem()

	switch rv.Kind() { //nolint:exhaustive
	case reflect.String:
		rv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, fmt.Errorf("%w: %q: %w", ErrInvalidCodecValue, s, err)
		}

		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, rv.Type().Bits())
		if err != nil {
			return v, fmt.Errorf("%w: %q: %w", ErrInvalidCodecValue, s, err)
		}

		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, rv.Type().Bits())
		if err != nil {
			return v, fmt.Errorf("%w: %q: %w", ErrInvalidCodecValue, s, err)
		}

		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, rv.Type().Bits())
		if err != nil {
			return v, fmt.Errorf("%w: %q: %w", ErrInvalidCodecValue, s, err)
		}

		rv.SetFloat(f)
	default:
		return v, fmt.Errorf("%w: cannot decode into %s", ErrInvalidCodecValue, rv.Type())
	}

	return v, nil
}

// encodeLabel renders a value for logs, metrics and spans. It never fails.
func encodeLabel[V any](codec Codec[V], v V) string {
	s, err := codec.Encode(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return s
}
