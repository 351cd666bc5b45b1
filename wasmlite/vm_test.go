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
	"bytes"
	"errors"
	"testing"

	"github.com/GhostKellz/rvm/rvm"
	"github.com/GhostKellz/rvm/state"
)

func TestVM_DemoModuleAddsItsArguments(t *testing.T) {
	vm := NewVM(DefaultConfig(), nil)
	if err := vm.LoadModule("demo", DemoModule()); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}

	result, err := vm.ExecuteFunction("demo", "add",
		[]Value{I32(10), I32(20)}, 1000, rvm.ExecutionEnvironment{})
	if err != nil {
		t.Fatalf("failed to execute function: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}
	if want, got := []byte{30, 0, 0, 0}, result.ReturnData; !bytes.Equal(want, got) {
		t.Errorf("expected return data %v, got %v", want, got)
	}
	if result.GasUsed == 0 {
		t.Errorf("expected a non-zero gas consumption")
	}
}

func TestVM_LoadModuleValidation(t *testing.T) {
	tests := map[string]struct {
		module *Module
		want   error
	}{
		"unsupported version": {
			module: &Module{Version: 2},
			want:   rvm.UnsupportedWasmVersionError(2),
		},
		"memory limit": {
			module: &Module{Version: 1, MemoryPages: 1 << 20},
			want:   rvm.ErrWasmMemoryLimit,
		},
		"function limit": {
			module: &Module{Version: 1, Functions: make([]Function, 2000)},
			want:   rvm.ErrWasmFunctionLimit,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			vm := NewVM(DefaultConfig(), nil)
			err := vm.LoadModule("m", test.module)
			if !errors.Is(err, test.want) {
				t.Errorf("expected error %v, got %v", test.want, err)
			}
		})
	}
}

func TestVM_ExecuteFunctionValidatesArguments(t *testing.T) {
	vm := NewVM(DefaultConfig(), nil)
	if err := vm.LoadModule("demo", DemoModule()); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}

	if _, err := vm.ExecuteFunction("demo", "add", []Value{I32(1)}, 1000, rvm.ExecutionEnvironment{}); !errors.Is(err, rvm.ErrWasmArgumentMismatch) {
		t.Errorf("expected an argument-mismatch error, got %v", err)
	}
	if _, err := vm.ExecuteFunction("demo", "add", []Value{I32(1), I64(2)}, 1000, rvm.ExecutionEnvironment{}); !errors.Is(err, rvm.ErrWasmTypeError) {
		t.Errorf("expected a type error, got %v", err)
	}
	if _, err := vm.ExecuteFunction("demo", "sub", nil, 1000, rvm.ExecutionEnvironment{}); err == nil {
		t.Errorf("expected an unknown-function error")
	}
	if _, err := vm.ExecuteFunction("nope", "add", nil, 1000, rvm.ExecutionEnvironment{}); err == nil {
		t.Errorf("expected an unknown-module error")
	}
}

func TestVM_ExecutionFailuresAreReportedThroughTheResult(t *testing.T) {
	tests := map[string]struct {
		body    []byte
		errText string
	}{
		"invalid instruction": {
			body:    []byte{0xee},
			errText: "invalid wasm-lite instruction",
		},
		"stack underflow": {
			body:    []byte{0x6a}, // i32.add on an empty stack
			errText: "wasm-lite stack underflow",
		},
		"truncated constant": {
			body:    []byte{0x42, 0x01, 0x02}, // i64.const with 2 operand bytes
			errText: "invalid wasm-lite bytecode",
		},
		"type error": {
			body: []byte{
				0x42, 1, 0, 0, 0, 0, 0, 0, 0, // i64.const 1
				0x42, 2, 0, 0, 0, 0, 0, 0, 0, // i64.const 2
				0x6a, // i32.add over i64 operands
			},
			errText: "wasm-lite type error",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			vm := NewVM(DefaultConfig(), nil)
			module := &Module{
				Version:     1,
				Functions:   []Function{{Name: "f", Body: test.body}},
				MemoryPages: 1,
				Exports:     map[string]int{"f": 0},
			}
			if err := vm.LoadModule("m", module); err != nil {
				t.Fatalf("failed to load module: %v", err)
			}
			result, err := vm.ExecuteFunction("m", "f", nil, 100000, rvm.ExecutionEnvironment{})
			if err != nil {
				t.Fatalf("unexpected interpreter error: %v", err)
			}
			if result.Success {
				t.Fatalf("expected the execution to fail")
			}
			if !contains(result.Error, test.errText) {
				t.Errorf("expected error containing %q, got %q", test.errText, result.Error)
			}
		})
	}
}

func TestVM_GasLimitBoundsExecution(t *testing.T) {
	// An unconditional backwards branch loops until the meter is exhausted.
	body := []byte{
		0x03,       // loop
		0x0c, 0x00, // br 0
		0x0b, // end
	}
	vm := NewVM(DefaultConfig(), nil)
	module := &Module{
		Version:     1,
		Functions:   []Function{{Name: "spin", Body: body}},
		MemoryPages: 1,
		Exports:     map[string]int{"spin": 0},
	}
	if err := vm.LoadModule("m", module); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}

	const gasLimit = rvm.Gas(1000)
	result, err := vm.ExecuteFunction("m", "spin", nil, gasLimit, rvm.ExecutionEnvironment{})
	if err != nil {
		t.Fatalf("unexpected interpreter error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected the execution to run out of gas")
	}
	if !contains(result.Error, "out of gas") {
		t.Errorf("expected an out-of-gas error, got %q", result.Error)
	}
	if result.GasUsed > gasLimit {
		t.Errorf("gas used %d exceeds the limit %d", result.GasUsed, gasLimit)
	}
}

func TestVM_IfElseTakesBothBranches(t *testing.T) {
	makeBody := func(condition int32) []byte {
		return []byte{
			0x41, byte(condition), 0, 0, 0, // i32.const <condition>
			0x04,                // if
			0x41, 10, 0, 0, 0, // i32.const 10
			0x05,                // else
			0x41, 20, 0, 0, 0, // i32.const 20
			0x0b, // end
			0x0f, // return
		}
	}
	for condition, want := range map[int32]byte{1: 10, 0: 20} {
		vm := NewVM(DefaultConfig(), nil)
		module := &Module{
			Version:     1,
			Functions:   []Function{{Name: "pick", Body: makeBody(condition)}},
			MemoryPages: 1,
			Exports:     map[string]int{"pick": 0},
		}
		if err := vm.LoadModule("m", module); err != nil {
			t.Fatalf("failed to load module: %v", err)
		}
		result, err := vm.ExecuteFunction("m", "pick", nil, 100000, rvm.ExecutionEnvironment{})
		if err != nil {
			t.Fatalf("unexpected interpreter error: %v", err)
		}
		if !result.Success {
			t.Fatalf("execution failed: %s", result.Error)
		}
		if wantData := []byte{want, 0, 0, 0}; !bytes.Equal(wantData, result.ReturnData) {
			t.Errorf("condition %d: expected return data %v, got %v",
				condition, wantData, result.ReturnData)
		}
	}
}

func TestVM_CallInvokesOtherFunctions(t *testing.T) {
	double := Function{
		Name:    "double",
		Params:  []ValueType{TypeI32},
		Returns: []ValueType{TypeI32},
		Body: []byte{
			0x20, 0x00, // local.get 0
			0x20, 0x00, // local.get 0
			0x6a, // i32.add
			0x0f, // return
		},
	}
	main := Function{
		Name:    "main",
		Returns: []ValueType{TypeI32},
		Body: []byte{
			0x41, 21, 0, 0, 0, // i32.const 21
			0x10, 0x00, // call 0
			0x0f, // return
		},
	}
	vm := NewVM(DefaultConfig(), nil)
	module := &Module{
		Version:     1,
		Functions:   []Function{double, main},
		MemoryPages: 1,
		Exports:     map[string]int{"double": 0, "main": 1},
	}
	if err := vm.LoadModule("m", module); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}
	result, err := vm.ExecuteFunction("m", "main", nil, 100000, rvm.ExecutionEnvironment{})
	if err != nil {
		t.Fatalf("unexpected interpreter error: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}
	if want := []byte{42, 0, 0, 0}; !bytes.Equal(want, result.ReturnData) {
		t.Errorf("expected return data %v, got %v", want, result.ReturnData)
	}
}

func TestVM_MemoryLoadStoreRoundTrip(t *testing.T) {
	body := []byte{
		0x41, 8, 0, 0, 0, // i32.const 8 (address)
		0x41, 99, 0, 0, 0, // i32.const 99 (value)
		0x36,             // i32.store
		0x41, 8, 0, 0, 0, // i32.const 8
		0x28, // i32.load
		0x0f, // return
	}
	vm := NewVM(DefaultConfig(), nil)
	module := &Module{
		Version:     1,
		Functions:   []Function{{Name: "f", Body: body}},
		MemoryPages: 1,
		Exports:     map[string]int{"f": 0},
	}
	if err := vm.LoadModule("m", module); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}
	result, err := vm.ExecuteFunction("m", "f", nil, 100000, rvm.ExecutionEnvironment{})
	if err != nil {
		t.Fatalf("unexpected interpreter error: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}
	if want := []byte{99, 0, 0, 0}; !bytes.Equal(want, result.ReturnData) {
		t.Errorf("expected return data %v, got %v", want, result.ReturnData)
	}
}

func TestVM_StorageHostInstructions(t *testing.T) {
	st := state.New()
	contract := rvm.Address{7}

	body := []byte{
		0x42, 1, 0, 0, 0, 0, 0, 0, 0, // i64.const 1 (key)
		0x42, 42, 0, 0, 0, 0, 0, 0, 0, // i64.const 42 (value)
		0xf8,                          // storage_store
		0x42, 1, 0, 0, 0, 0, 0, 0, 0, // i64.const 1
		0xf7, // storage_load
		0x0f, // return
	}
	vm := NewVM(DefaultConfig(), st)
	module := &Module{
		Version:     1,
		Functions:   []Function{{Name: "f", Body: body}},
		MemoryPages: 1,
		Exports:     map[string]int{"f": 0},
	}
	if err := vm.LoadModule("m", module); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}
	env := rvm.ExecutionEnvironment{ContractAddress: contract}
	result, err := vm.ExecuteFunction("m", "f", nil, 100000, env)
	if err != nil {
		t.Fatalf("unexpected interpreter error: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}
	if want := []byte{42, 0, 0, 0, 0, 0, 0, 0}; !bytes.Equal(want, result.ReturnData) {
		t.Errorf("expected return data %v, got %v", want, result.ReturnData)
	}
	if want, got := uint64(42), st.Get(contract, 1); want != got {
		t.Errorf("expected stored value %d, got %d", want, got)
	}
}

func TestVM_GetCaller(t *testing.T) {
	body := []byte{
		0xf4, // get_caller
		0x0f, // return
	}
	vm := NewVM(DefaultConfig(), nil)
	module := &Module{
		Version:     1,
		Functions:   []Function{{Name: "f", Body: body}},
		MemoryPages: 1,
		Exports:     map[string]int{"f": 0},
	}
	if err := vm.LoadModule("m", module); err != nil {
		t.Fatalf("failed to load module: %v", err)
	}
	caller := rvm.Address{1, 2, 3}
	result, err := vm.ExecuteFunction("m", "f", nil, 1000, rvm.ExecutionEnvironment{Caller: caller})
	if err != nil {
		t.Fatalf("unexpected interpreter error: %v", err)
	}
	if !bytes.Equal(caller[:], result.ReturnData) {
		t.Errorf("expected caller %x, got %x", caller[:], result.ReturnData)
	}
}

func TestModule_EncodeDecodeRoundTrip(t *testing.T) {
	module := DemoModule()
	module.Globals = []Value{I32(7), I64(-1), Bytes([]byte{1, 2})}

	data, err := EncodeModule(module)
	if err != nil {
		t.Fatalf("failed to encode module: %v", err)
	}
	decoded, err := DecodeModule(data)
	if err != nil {
		t.Fatalf("failed to decode module: %v", err)
	}
	if want, got := module.Version, decoded.Version; want != got {
		t.Errorf("expected version %d, got %d", want, got)
	}
	if want, got := len(module.Functions), len(decoded.Functions); want != got {
		t.Fatalf("expected %d functions, got %d", want, got)
	}
	if !bytes.Equal(module.Functions[0].Body, decoded.Functions[0].Body) {
		t.Errorf("function body does not round-trip")
	}
	for i, global := range module.Globals {
		if !global.Equal(decoded.Globals[i]) {
			t.Errorf("global %d does not round-trip: %v != %v", i, global, decoded.Globals[i])
		}
	}
}

func TestDecodeModule_RejectsGarbage(t *testing.T) {
	_, err := DecodeModule([]byte("not json"))
	var deserialization rvm.DeserializationError
	if !errors.As(err, &deserialization) {
		t.Errorf("expected a deserialization error, got %v", err)
	}
}

func contains(haystack, needle string) bool {
	return bytes.Contains([]byte(haystack), []byte(needle))
}
