package record

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind tags the scalar type held by a Value.
type Kind uint8

const (
	KindUnset Kind = iota
	KindString
	KindBytes
	KindInt
	KindBool
)

var kindNames = map[Kind]string{
	KindUnset:  "unset",
	KindString: "string",
	KindBytes:  "bytes",
	KindInt:    "int",
	KindBool:   "bool",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnset, fmt.Errorf("unknown value kind %q", s)
}

// Value is a tagged scalar stored in a record field. The zero Value is unset.
type Value struct {
	kind Kind
	str  string
	raw  []byte
	num  int64
	flag bool
}

// Unset is the value of a field that was never assigned.
var Unset = Value{}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func BytesValue(b []byte) Value { return Value{kind: KindBytes, raw: bytes.Clone(b)} }
func IntValue(n int64) Value { return Value{kind: KindInt, num: n} }
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsSet() bool { return v.kind != KindUnset }

// Str returns the string held by v.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Bytes returns a copy of the bytes held by v.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return bytes.Clone(v.raw), true
}

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) {
	return v.num, v.kind == KindInt
}

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// String renders v as text. Bytes are hex encoded; unset renders empty.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBytes:
		return hex.EncodeToString(v.raw)
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Equal reports whether v and o hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindInt:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	default:
		return true
	}
}
