// Package amf implements the AMF0 value format carried inside FLV script-data tags.
package amf

import "errors"

type Type byte

const (
	TypeNumber      Type = 0x00
	TypeBoolean     Type = 0x01
	TypeString      Type = 0x02
	TypeObject      Type = 0x03
	TypeNull        Type = 0x05
	TypeUndefined   Type = 0x06
	TypeECMAArray   Type = 0x08
	TypeObjectEnd   Type = 0x09
	TypeStrictArray Type = 0x0A
	TypeDate        Type = 0x0B
	TypeLongString  Type = 0x0C
)

const MaxStringLength = 0xFFFF

var (
	ErrEndOfStream    = errors.New("unexpected end of stream")
	ErrMalformedValue = errors.New("malformed amf value")
	ErrShortWrite     = errors.New("short write")
	ErrStringTooLong  = errors.New("amf string longer than 65535 bytes")
)

// Value is one decoded AMF0 value. The concrete type is one of Number,
// Boolean, String, LongString, Null, Undefined, Date, *Object, *ECMAArray
// or *StrictArray.
type Value interface {
	Type() Type
}

type Number float64

type Boolean bool

type String string

type LongString string

type Null struct{}

type Undefined struct{}

// Date is milliseconds since the Unix epoch plus the writer's timezone
// offset in minutes.
type Date struct {
	Millis   float64
	TZOffset int16
}

func (Number) Type() Type       { return TypeNumber }
func (Boolean) Type() Type      { return TypeBoolean }
func (String) Type() Type       { return TypeString }
func (LongString) Type() Type   { return TypeLongString }
func (Null) Type() Type         { return TypeNull }
func (Undefined) Type() Type    { return TypeUndefined }
func (Date) Type() Type         { return TypeDate }
func (*Object) Type() Type      { return TypeObject }
func (*ECMAArray) Type() Type   { return TypeECMAArray }
func (*StrictArray) Type() Type { return TypeStrictArray }

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeECMAArray:
		return "ecma-array"
	case TypeObjectEnd:
		return "object-end"
	case TypeStrictArray:
		return "strict-array"
	case TypeDate:
		return "date"
	case TypeLongString:
		return "long-string"
	default:
		return "unknown"
	}
}

func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

func AsBool(v Value) (bool, bool) {
	b, ok := v.(Boolean)
	return bool(b), ok
}

// AsString accepts both short and long strings.
func AsString(v Value) (string, bool) {
	switch s := v.(type) {
	case String:
		return string(s), true
	case LongString:
		return string(s), true
	default:
		return "", false
	}
}
