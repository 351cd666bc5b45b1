// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package wasmlite

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/GhostKellz/rvm/rvm"
)

// ValueType is the type tag of a runtime value.
type ValueType byte

const (
	TypeI32 ValueType = iota
	TypeI64
	TypeBytes
)

func (t ValueType) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeBytes:
		return "bytes"
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// Value is a tagged runtime value: a 32-bit integer, a 64-bit integer, or a
// byte string.
type Value struct {
	kind  ValueType
	num   int64
	bytes []byte
}

// I32 creates a 32-bit integer value.
func I32(v int32) Value {
	return Value{kind: TypeI32, num: int64(v)}
}

// I64 creates a 64-bit integer value.
func I64(v int64) Value {
	return Value{kind: TypeI64, num: v}
}

// Bytes creates a byte-string value.
func Bytes(data []byte) Value {
	return Value{kind: TypeBytes, bytes: data}
}

// Type returns the type tag of the value.
func (v Value) Type() ValueType {
	return v.kind
}

// AsI32 returns the value as a 32-bit integer, rejecting other types.
func (v Value) AsI32() (int32, error) {
	if v.kind != TypeI32 {
		return 0, rvm.ErrWasmTypeError
	}
	return int32(v.num), nil
}

// AsI64 returns the value as a 64-bit integer. 32-bit integers widen.
func (v Value) AsI64() (int64, error) {
	switch v.kind {
	case TypeI64, TypeI32:
		return v.num, nil
	}
	return 0, rvm.ErrWasmTypeError
}

// AsBytes returns the value as a byte string, rejecting other types.
func (v Value) AsBytes() ([]byte, error) {
	if v.kind != TypeBytes {
		return nil, rvm.ErrWasmTypeError
	}
	return v.bytes, nil
}

// Equal reports whether two values have the same type and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == TypeBytes {
		return string(v.bytes) == string(o.bytes)
	}
	return v.num == o.num
}

func (v Value) String() string {
	switch v.kind {
	case TypeI32:
		return fmt.Sprintf("i32(%d)", int32(v.num))
	case TypeI64:
		return fmt.Sprintf("i64(%d)", v.num)
	case TypeBytes:
		return fmt.Sprintf("bytes(0x%x)", v.bytes)
	}
	return "value(?)"
}

// serialize renders the value in its external little-endian form.
func (v Value) serialize() []byte {
	switch v.kind {
	case TypeI32:
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(int32(v.num)))
		return data
	case TypeI64:
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, uint64(v.num))
		return data
	case TypeBytes:
		return v.bytes
	}
	return nil
}

// zeroValue returns the zero value of the given type.
func zeroValue(t ValueType) Value {
	if t == TypeBytes {
		return Bytes(nil)
	}
	return Value{kind: t}
}

type valueJSON struct {
	Type  ValueType `json:"type"`
	Num   int64     `json:"num,omitempty"`
	Bytes []byte    `json:"bytes,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{Type: v.kind, Num: v.num, Bytes: v.bytes})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var decoded valueJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	v.kind = decoded.Type
	v.num = decoded.Num
	v.bytes = decoded.Bytes
	return nil
}
