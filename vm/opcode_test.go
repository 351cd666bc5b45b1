// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"errors"
	"testing"

	"github.com/GhostKellz/rvm/rvm"
)

func TestDecode_AcceptsAllAssignedBytes(t *testing.T) {
	assigned := 0
	for b := 0; b < 256; b++ {
		if _, err := Decode(byte(b)); err == nil {
			assigned++
		}
	}
	// 12 arithmetic, 11 comparison/bitwise, 1 crypto, 13 environment,
	// 6 block, 12 stack/memory/storage/flow, 32 push, 16 dup, 16 swap,
	// 5 log, 19 custom, 10 system.
	if want, got := 153, assigned; want != got {
		t.Errorf("expected %d assigned opcodes, got %d", want, got)
	}
}

func TestDecode_RejectsUnassignedBytes(t *testing.T) {
	for _, b := range []byte{0x0c, 0x1b, 0x21, 0x2f, 0x46, 0x5c, 0xa5, 0xb0, 0xd3, 0xef, 0xf6, 0xfb} {
		_, err := Decode(b)
		var invalid rvm.InvalidOpcodeError
		if !errors.As(err, &invalid) {
			t.Errorf("expected byte 0x%02x to be rejected, got %v", b, err)
		}
	}
}

func TestOpCode_PushBytes(t *testing.T) {
	if want, got := 1, PUSH1.PushBytes(); want != got {
		t.Errorf("expected %d operand bytes, got %d", want, got)
	}
	if want, got := 32, PUSH32.PushBytes(); want != got {
		t.Errorf("expected %d operand bytes, got %d", want, got)
	}
	if want, got := 0, ADD.PushBytes(); want != got {
		t.Errorf("expected %d operand bytes, got %d", want, got)
	}
	if !PUSH7.IsPush() || ADD.IsPush() {
		t.Errorf("push classification is wrong")
	}
}

func TestOpCode_GasCostsOfTheCustomRange(t *testing.T) {
	costs := map[OpCode]rvm.Gas{
		GHOST_ID_VERIFY:  1000,
		GHOST_ID_RESOLVE: 500,
		GHOST_ID_CREATE:  2000,
		TOKEN_BALANCE:    100,
		TOKEN_TRANSFER:   5000,
		TOKEN_MINT:       10000,
		TOKEN_BURN:       5000,
		CNS_RESOLVE:      300,
		CNS_REGISTER:     20000,
		CNS_UPDATE:       5000,
		CNS_OWNER:        100,
		L2_SUBMIT:        2000,
		L2_BATCH_VERIFY:  50000,
		L2_STATE_SYNC:    10000,
		BRIDGE_SEND:      20000,
		BRIDGE_RECEIVE:   10000,
		AGENT_CALL:       5000,
		AGENT_DEPLOY:     50000,
		AGENT_QUERY:      1000,
	}
	for op, want := range costs {
		if got := op.GasCost(); want != got {
			t.Errorf("expected %v to cost %d gas, got %d", op, want, got)
		}
	}
}

func TestOpCode_GasCostsOfCoreOperations(t *testing.T) {
	costs := map[OpCode]rvm.Gas{
		STOP: 0, ADD: 3, MUL: 5, SUB: 3, DIV: 5,
		KECCAK256: 30, SLOAD: 100, SSTORE: 0,
		JUMP: 8, JUMPI: 10, JUMPDEST: 1,
		PUSH1: 3, PUSH32: 3, DUP1: 3, SWAP1: 3,
		LOG0: 375, LOG4: 1875,
		CREATE: 32000, SELFDESTRUCT: 5000, RETURN: 0,
	}
	for op, want := range costs {
		if got := op.GasCost(); want != got {
			t.Errorf("expected %v to cost %d gas, got %d", op, want, got)
		}
	}
}

func TestOpCode_CallFamilyDeclaresItsArity(t *testing.T) {
	arities := map[OpCode]int{
		CREATE:       3,
		CREATE2:      4,
		DELEGATECALL: 6,
		STATICCALL:   6,
		CALL:         7,
		CALLCODE:     7,
	}
	for op, want := range arities {
		usage := staticStackUsage[op]
		if got := usage.min; want != got {
			t.Errorf("expected %v to require %d operands, got %d", op, want, got)
		}
		if usage.grow != 0 {
			t.Errorf("expected %v to not grow the stack, got %d", op, usage.grow)
		}
	}
}

func TestOpCode_StringNamesAreUnique(t *testing.T) {
	seen := map[string]OpCode{}
	for b := 0; b < 256; b++ {
		op, err := Decode(byte(b))
		if err != nil {
			continue
		}
		name := op.String()
		if prev, found := seen[name]; found {
			t.Errorf("opcodes %#x and %#x share the name %q", byte(prev), b, name)
		}
		seen[name] = op
	}
}
