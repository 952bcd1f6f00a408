package amf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode writes v to w and returns the number of bytes written.
func Encode(w io.Writer, v Value) (int, error) {
	buf, err := Append(make([]byte, 0, Size(v)), v)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrShortWrite, err)
	}
	if n != len(buf) {
		return n, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(buf))
	}
	return n, nil
}

// Append appends the wire form of v to dst.
func Append(dst []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case Number:
		dst = append(dst, byte(TypeNumber))
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(float64(val))), nil
	case Boolean:
		b := byte(0)
		if val {
			b = 1
		}
		return append(dst, byte(TypeBoolean), b), nil
	case String:
		dst = append(dst, byte(TypeString))
		return appendString(dst, string(val))
	case LongString:
		dst = append(dst, byte(TypeLongString))
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(val)))
		return append(dst, val...), nil
	case Null:
		return append(dst, byte(TypeNull)), nil
	case Undefined:
		return append(dst, byte(TypeUndefined)), nil
	case Date:
		dst = append(dst, byte(TypeDate))
		dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(val.Millis))
		return binary.BigEndian.AppendUint16(dst, uint16(val.TZOffset)), nil
	case *Object:
		dst = append(dst, byte(TypeObject))
		return appendProperties(dst, val.props)
	case *ECMAArray:
		dst = append(dst, byte(TypeECMAArray))
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(val.props)))
		return appendProperties(dst, val.props)
	case *StrictArray:
		dst = append(dst, byte(TypeStrictArray))
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(val.Items)))
		var err error
		for _, item := range val.Items {
			if dst, err = Append(dst, item); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case nil:
		return dst, fmt.Errorf("%w: nil value", ErrMalformedValue)
	default:
		return dst, fmt.Errorf("%w: cannot encode %T", ErrMalformedValue, v)
	}
}

func appendString(dst []byte, s string) ([]byte, error) {
	if len(s) > MaxStringLength {
		return dst, ErrStringTooLong
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...), nil
}

func appendProperties(dst []byte, props []Property) ([]byte, error) {
	var err error
	for _, p := range props {
		if p.Name == "" {
			return dst, fmt.Errorf("%w: empty property name", ErrMalformedValue)
		}
		if dst, err = appendString(dst, p.Name); err != nil {
			return dst, err
		}
		if dst, err = Append(dst, p.Value); err != nil {
			return dst, err
		}
	}
	return append(dst, 0x00, 0x00, byte(TypeObjectEnd)), nil
}

// Size is the exact encoded length of v.
func Size(v Value) int {
	switch val := v.(type) {
	case Number:
		return 9
	case Boolean:
		return 2
	case String:
		return 3 + len(val)
	case LongString:
		return 5 + len(val)
	case Null, Undefined:
		return 1
	case Date:
		return 11
	case *Object:
		return 1 + propertiesSize(val.props)
	case *ECMAArray:
		return 5 + propertiesSize(val.props)
	case *StrictArray:
		size := 5
		for _, item := range val.Items {
			size += Size(item)
		}
		return size
	default:
		return 0
	}
}

func propertiesSize(props []Property) int {
	size := 3
	for _, p := range props {
		size += 2 + len(p.Name) + Size(p.Value)
	}
	return size
}
