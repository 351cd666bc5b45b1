// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rvm

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address represents the 160-bit (20 bytes) address of an account.
type Address [20]byte

// Hash represents the 256-bit (32 bytes) hash of code, a block, a topic
// or similar sequence of cryptographic summary information.
type Hash [32]byte

// Key represents the 256-bit (32 bytes) key of a contract storage slot.
type Key [32]byte

// Value represents the 256-bit (32 bytes) value of a contract storage slot.
type Value [32]byte

// Word is the unit of the interpreter stack and of all machine arithmetic.
// Arithmetic on words wraps on overflow; division by zero yields zero.
type Word = uint64

// Gas represents an amount of computational work, charged per operation and
// per byte of memory or data touched.
type Gas = uint64

// Code represents the byte-code of a contract.
type Code []byte

// MaxStackSize is the maximum number of words on the interpreter stack.
const MaxStackSize = 1024

// MaxCallDepth is the maximum nesting depth of contract calls.
const MaxCallDepth = 256

// DefaultGasLimit is the gas limit used by executions that do not specify one.
const DefaultGasLimit Gas = 21_000_000

// ExecutionEnvironment carries the context data of a single execution. It is
// created by the caller and remains immutable for the duration of the run.
type ExecutionEnvironment struct {
	ContractAddress Address
	Caller          Address
	Value           uint64
	GasPrice        uint64
	BlockNumber     uint64
	Timestamp       uint64
}

// ExecutionResult summarizes the outcome of a single execution. A failed run
// carries the rendered error text and the gas consumed up to the failure
// point; Success is never true alongside a non-empty Error.
type ExecutionResult struct {
	ReturnData []byte
	GasUsed    Gas
	Success    bool
	Error      string
}

// Contract is the persistent record of a deployed contract.
type Contract struct {
	Bytecode Code
	Address  Address
	Storage  map[Key]Value
	Balance  uint64
}

// Account is the lazily materialized view of an address. Unknown addresses
// read as the zero account.
type Account struct {
	Balance     uint64
	Nonce       uint64
	CodeHash    *Hash
	StorageRoot *Hash
}

// Log is a message emitted as a side effect of a contract execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return bytesToText(a[:])
}

func (a *Address) UnmarshalText(data []byte) error {
	return textToBytes(a[:], data)
}

// ParseAddress parses a 40-digit hex string, with or without the 0x prefix,
// into an Address. Any other length is rejected.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*len(a) {
		return a, fmt.Errorf("invalid address length: %d", len(s))
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return a, err
	}
	copy(a[:], data)
	return a, nil
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return bytesToText(h[:])
}

func (h *Hash) UnmarshalText(data []byte) error {
	return textToBytes(h[:], data)
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (v Value) String() string {
	return fmt.Sprintf("0x%x", v[:])
}

// SizeInWords computes the number of 32-byte words needed to hold the given
// number of bytes.
func SizeInWords(size uint64) uint64 {
	if size%32 == 0 {
		return size / 32
	}
	return size/32 + 1
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func textToBytes(trg []byte, data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, data)
	return nil
}
