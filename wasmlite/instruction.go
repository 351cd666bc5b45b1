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
	"fmt"

	"github.com/GhostKellz/rvm/rvm"
)

// Instruction is a single operation of the reduced instruction set. The
// mapping between instructions and their byte encoding is defined by the
// Encode and DecodeInstruction pair rather than by the numeric values of the
// constants.
type Instruction int

const (
	// Control flow
	Nop Instruction = iota
	Block
	Loop
	If
	Else
	End
	Br
	BrIf
	Return
	Call
	CallIndirect

	// Locals and globals
	LocalGet
	LocalSet
	LocalTee
	GlobalGet
	GlobalSet

	// Loads and stores
	I32Load
	I64Load
	I32Store
	I64Store

	// Constants
	I32Const
	I64Const

	// Comparison
	I32Eqz
	I32Eq
	I32Ne
	I32LtS
	I32LtU
	I32GtS
	I32GtU
	I32LeS
	I32LeU
	I32GeS
	I32GeU

	// Arithmetic, logic and shifts
	I32Add
	I32Sub
	I32Mul
	I32DivS
	I32DivU
	I32RemS
	I32RemU
	I32And
	I32Or
	I32Xor
	I32Shl
	I32ShrS
	I32ShrU

	// Host interaction
	Keccak256
	EcRecover
	Blake2b
	Ed25519Verify
	GetCaller
	GetValue
	GetGasRemaining
	StorageLoad
	StorageStore
	EmitLog
	Transfer
)

// instructionCodes maps instructions to their byte encoding.
var instructionCodes = map[Instruction]byte{
	Nop: 0x00, Block: 0x02, Loop: 0x03, If: 0x04, Else: 0x05, End: 0x0b,
	Br: 0x0c, BrIf: 0x0d, Return: 0x0f, Call: 0x10, CallIndirect: 0x11,
	LocalGet: 0x20, LocalSet: 0x21, LocalTee: 0x22,
	GlobalGet: 0x23, GlobalSet: 0x24,
	I32Load: 0x28, I64Load: 0x29, I32Store: 0x36, I64Store: 0x37,
	I32Const: 0x41, I64Const: 0x42,
	I32Eqz: 0x45, I32Eq: 0x46, I32Ne: 0x47,
	I32LtS: 0x48, I32LtU: 0x49, I32GtS: 0x4a, I32GtU: 0x4b,
	I32LeS: 0x4c, I32LeU: 0x4d, I32GeS: 0x4e, I32GeU: 0x4f,
	I32Add: 0x6a, I32Sub: 0x6b, I32Mul: 0x6c,
	I32DivS: 0x6d, I32DivU: 0x6e, I32RemS: 0x6f, I32RemU: 0x70,
	I32And: 0x71, I32Or: 0x72, I32Xor: 0x73,
	I32Shl: 0x74, I32ShrS: 0x75, I32ShrU: 0x76,
	Keccak256: 0xf0, EcRecover: 0xf1, Blake2b: 0xf2, Ed25519Verify: 0xf3,
	GetCaller: 0xf4, GetValue: 0xf5, GetGasRemaining: 0xf6,
	StorageLoad: 0xf7, StorageStore: 0xf8, EmitLog: 0xf9, Transfer: 0xfa,
}

var instructionsByCode = map[byte]Instruction{}

func init() {
	for instruction, code := range instructionCodes {
		instructionsByCode[code] = instruction
	}
}

// DecodeInstruction maps a byte to its instruction.
func DecodeInstruction(b byte) (Instruction, error) {
	instruction, ok := instructionsByCode[b]
	if !ok {
		return 0, rvm.InvalidWasmInstructionError(b)
	}
	return instruction, nil
}

// Encode returns the byte encoding of the instruction.
func (i Instruction) Encode() byte {
	return instructionCodes[i]
}

// GasCost returns the fixed gas cost of the instruction.
func (i Instruction) GasCost() rvm.Gas {
	switch i {
	case Nop:
		return 0
	case Block, Loop, If, Else, End, Return:
		return 1
	case Br, BrIf:
		return 2
	case Call, CallIndirect:
		return 5
	case LocalGet, LocalSet, LocalTee:
		return 1
	case GlobalGet, GlobalSet:
		return 3
	case I32Load, I64Load, I32Store, I64Store:
		return 3
	case I32Const, I64Const:
		return 1
	case I32Add, I32Sub, I32And, I32Or, I32Xor,
		I32Shl, I32ShrS, I32ShrU:
		return 3
	case I32Mul:
		return 5
	case I32DivS, I32DivU, I32RemS, I32RemU:
		return 8
	case I32Eqz, I32Eq, I32Ne, I32LtS, I32LtU, I32GtS, I32GtU,
		I32LeS, I32LeU, I32GeS, I32GeU:
		return 3
	case Keccak256:
		return 30
	case EcRecover:
		return 3000
	case Blake2b:
		return 60
	case Ed25519Verify:
		return 2000
	case GetCaller, GetValue, GetGasRemaining:
		return 2
	case StorageLoad:
		return 100
	case StorageStore:
		return 5000
	case EmitLog:
		return 375
	case Transfer:
		return 25000
	}
	return 0
}

// immediateSize returns the number of immediate operand bytes following the
// instruction in a function body.
func (i Instruction) immediateSize() int {
	switch i {
	case I32Const:
		return 4
	case I64Const:
		return 8
	case LocalGet, LocalSet, LocalTee, GlobalGet, GlobalSet, Br, BrIf, Call:
		return 1
	}
	return 0
}

func (i Instruction) String() string {
	names := map[Instruction]string{
		Nop: "nop", Block: "block", Loop: "loop", If: "if", Else: "else",
		End: "end", Br: "br", BrIf: "br_if", Return: "return", Call: "call",
		CallIndirect: "call_indirect",
		LocalGet:     "local.get", LocalSet: "local.set", LocalTee: "local.tee",
		GlobalGet: "global.get", GlobalSet: "global.set",
		I32Load: "i32.load", I64Load: "i64.load",
		I32Store: "i32.store", I64Store: "i64.store",
		I32Const: "i32.const", I64Const: "i64.const",
		I32Eqz: "i32.eqz", I32Eq: "i32.eq", I32Ne: "i32.ne",
		I32LtS: "i32.lt_s", I32LtU: "i32.lt_u",
		I32GtS: "i32.gt_s", I32GtU: "i32.gt_u",
		I32LeS: "i32.le_s", I32LeU: "i32.le_u",
		I32GeS: "i32.ge_s", I32GeU: "i32.ge_u",
		I32Add: "i32.add", I32Sub: "i32.sub", I32Mul: "i32.mul",
		I32DivS: "i32.div_s", I32DivU: "i32.div_u",
		I32RemS: "i32.rem_s", I32RemU: "i32.rem_u",
		I32And: "i32.and", I32Or: "i32.or", I32Xor: "i32.xor",
		I32Shl: "i32.shl", I32ShrS: "i32.shr_s", I32ShrU: "i32.shr_u",
		Keccak256: "keccak256", EcRecover: "ecrecover", Blake2b: "blake2b",
		Ed25519Verify: "ed25519_verify",
		GetCaller:     "get_caller", GetValue: "get_value",
		GetGasRemaining: "get_gas_remaining",
		StorageLoad:     "storage_load", StorageStore: "storage_store",
		EmitLog: "emit_log", Transfer: "transfer",
	}
	if name, ok := names[i]; ok {
		return name
	}
	return fmt.Sprintf("instruction(%d)", int(i))
}
