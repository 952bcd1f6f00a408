package amf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// maxPrealloc bounds slice preallocation from untrusted counts.
const maxPrealloc = 1024

// MaxDepth is how deeply objects and arrays may nest before a value is
// rejected as malformed.
const MaxDepth = 1024

func Decode(r io.Reader) (Value, error) {
	return decodeValue(r, 0)
}

func decodeValue(r io.Reader, depth int) (Value, error) {
	var typ [1]byte
	if err := readFull(r, typ[:]); err != nil {
		return nil, err
	}
	return decodeBody(r, Type(typ[0]), depth)
}

func decodeBody(r io.Reader, typ Type, depth int) (Value, error) {
	switch typ {
	case TypeObject, TypeECMAArray, TypeStrictArray:
		if depth >= MaxDepth {
			return nil, fmt.Errorf("%w: nesting deeper than %d levels", ErrMalformedValue, MaxDepth)
		}
	}
	switch typ {
	case TypeNumber:
		n, err := readNumber(r)
		if err != nil {
			return nil, err
		}
		return Number(n), nil
	case TypeBoolean:
		var b [1]byte
		if err := readFull(r, b[:]); err != nil {
			return nil, err
		}
		return Boolean(b[0] != 0), nil
	case TypeString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TypeLongString:
		var buf [4]byte
		if err := readFull(r, buf[:]); err != nil {
			return nil, err
		}
		s, err := readBytes(r, int(binary.BigEndian.Uint32(buf[:])))
		if err != nil {
			return nil, err
		}
		return LongString(s), nil
	case TypeNull:
		return Null{}, nil
	case TypeUndefined:
		return Undefined{}, nil
	case TypeDate:
		var buf [10]byte
		if err := readFull(r, buf[:]); err != nil {
			return nil, err
		}
		return Date{
			Millis:   math.Float64frombits(binary.BigEndian.Uint64(buf[:8])),
			TZOffset: int16(binary.BigEndian.Uint16(buf[8:])),
		}, nil
	case TypeObject:
		obj := &Object{}
		if err := decodeProperties(r, &obj.propertyList, depth+1); err != nil {
			return nil, err
		}
		return obj, nil
	case TypeECMAArray:
		// The count is advisory; many writers get it wrong.
		var count [4]byte
		if err := readFull(r, count[:]); err != nil {
			return nil, err
		}
		arr := &ECMAArray{}
		if err := decodeProperties(r, &arr.propertyList, depth+1); err != nil {
			return nil, err
		}
		return arr, nil
	case TypeStrictArray:
		var buf [4]byte
		if err := readFull(r, buf[:]); err != nil {
			return nil, err
		}
		count := binary.BigEndian.Uint32(buf[:])
		arr := &StrictArray{}
		if count > 0 {
			arr.Items = make([]Value, 0, min(int(count), maxPrealloc))
		}
		for i := uint32(0); i < count; i++ {
			item, err := decodeValue(r, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, item)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type 0x%02x", ErrMalformedValue, byte(typ))
	}
}

// decodeProperties reads name/value pairs until the empty name followed by
// the object-end marker. An empty name followed by anything else is malformed.
func decodeProperties(r io.Reader, l *propertyList, depth int) error {
	for {
		name, err := readString(r)
		if err != nil {
			return err
		}
		if name == "" {
			var end [1]byte
			if err := readFull(r, end[:]); err != nil {
				return err
			}
			if Type(end[0]) != TypeObjectEnd {
				return fmt.Errorf("%w: empty property name not followed by object end (0x%02x)", ErrMalformedValue, end[0])
			}
			return nil
		}
		value, err := decodeValue(r, depth)
		if err != nil {
			return err
		}
		l.Add(name, value)
	}
}

func readNumber(r io.Reader) (float64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

func readString(r io.Reader) (string, error) {
	var buf [2]byte
	if err := readFull(r, buf[:]); err != nil {
		return "", err
	}
	return readBytes(r, int(binary.BigEndian.Uint16(buf[:])))
}

func readBytes(r io.Reader, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, 0, min(n, 64*1024))
	chunk := make([]byte, min(n, 64*1024))
	for len(buf) < n {
		want := min(n-len(buf), len(chunk))
		if err := readFull(r, chunk[:want]); err != nil {
			return "", err
		}
		buf = append(buf, chunk[:want]...)
	}
	return string(buf), nil
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrEndOfStream
		}
		return err
	}
	return nil
}
