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
	"crypto/ed25519"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

// PageSize is the size of one linear memory page.
const PageSize = 64 * 1024

// Config bounds the resources a loaded module may claim.
type Config struct {
	// MaxMemory is the largest linear memory a module may declare, in bytes.
	MaxMemory uint64
	// MaxFunctions is the largest number of functions a module may carry.
	MaxFunctions int
}

// DefaultConfig returns the canonical resource limits.
func DefaultConfig() Config {
	return Config{
		MaxMemory:    16 * 1024 * 1024,
		MaxFunctions: 1024,
	}
}

// Storage is the view of the world state available to executing modules.
type Storage interface {
	Get(addr rvm.Address, key uint64) uint64
	Set(addr rvm.Address, key uint64, value uint64)
	Transfer(from, to rvm.Address, amount uint64) error
}

// VM loads modules and executes their exported functions. Execution shares
// the gas accounting and state substrate of the byte-code interpreter: every
// instruction carries a fixed cost charged against a per-call meter, and the
// storage and transfer host instructions operate on the same world state.
//
// A VM serves one execution at a time; concurrent calls need their own VM
// over the same storage, serialized by the storage's exclusion discipline.
type VM struct {
	config   Config
	storage  Storage
	modules  map[string]*Module
	lastLogs []rvm.Log
}

// NewVM creates a virtual machine over the given storage.
func NewVM(config Config, storage Storage) *VM {
	return &VM{
		config:  config,
		storage: storage,
		modules: map[string]*Module{},
	}
}

// LoadModule validates the given module and registers it under the given
// name. Version 1 is the only supported module version; memory and function
// counts are bounded by the VM configuration.
func (vm *VM) LoadModule(name string, module *Module) error {
	if module.Version != 1 {
		return rvm.UnsupportedWasmVersionError(module.Version)
	}
	if uint64(module.MemoryPages)*PageSize > vm.config.MaxMemory {
		return rvm.ErrWasmMemoryLimit
	}
	if len(module.Functions) > vm.config.MaxFunctions {
		return rvm.ErrWasmFunctionLimit
	}
	vm.modules[name] = module
	return nil
}

// Logs returns the log messages emitted by the last execution.
func (vm *VM) Logs() []rvm.Log {
	return vm.lastLogs
}

// ExecuteFunction resolves the named export of the named module, validates
// the arguments against the function's parameter types, and executes its
// body under a fresh gas meter. The serialized top-of-stack value becomes
// the result's return data; integers serialize little-endian.
func (vm *VM) ExecuteFunction(
	moduleName, functionName string,
	args []Value,
	gasLimit rvm.Gas,
	env rvm.ExecutionEnvironment,
) (rvm.ExecutionResult, error) {
	module, ok := vm.modules[moduleName]
	if !ok {
		return rvm.ExecutionResult{}, rvm.WasmModuleNotFoundError(moduleName)
	}
	index, ok := module.Exports[functionName]
	if !ok || index < 0 || index >= len(module.Functions) {
		return rvm.ExecutionResult{}, rvm.WasmFunctionNotFoundError(functionName)
	}
	function := &module.Functions[index]

	if len(args) != len(function.Params) {
		return rvm.ExecutionResult{}, rvm.ErrWasmArgumentMismatch
	}
	for i, arg := range args {
		if arg.Type() != function.Params[i] {
			return rvm.ExecutionResult{}, rvm.ErrWasmTypeError
		}
	}

	ctx := &context{
		module:  module,
		storage: vm.storage,
		memory:  make([]byte, uint64(module.MemoryPages)*PageSize),
		globals: append([]Value{}, module.Globals...),
		meter:   gas.NewMeter(gasLimit),
		env:     env,
	}

	locals := make([]Value, 0, len(args)+len(function.Locals))
	locals = append(locals, args...)
	for _, t := range function.Locals {
		locals = append(locals, zeroValue(t))
	}

	err := ctx.run(function.Body, locals)
	vm.lastLogs = ctx.logs
	if err != nil {
		return rvm.ExecutionResult{
			GasUsed: ctx.meter.Used(),
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	var returnData []byte
	if len(ctx.stack) > 0 {
		returnData = ctx.stack[len(ctx.stack)-1].serialize()
	}
	return rvm.ExecutionResult{
		ReturnData: returnData,
		GasUsed:    ctx.meter.Used(),
		Success:    true,
	}, nil
}

// context is the mutable state of one module execution: the typed value
// stack, the linear memory, the globals and the gas meter. Function frames
// keep their locals and program counter on the native call stack.
type context struct {
	module  *Module
	storage Storage
	stack   []Value
	memory  []byte
	globals []Value
	meter   *gas.Meter
	env     rvm.ExecutionEnvironment
	depth   int
	logs    []rvm.Log
}

func (c *context) push(v Value) {
	c.stack = append(c.stack, v)
}

func (c *context) pop() (Value, error) {
	if len(c.stack) == 0 {
		return Value{}, rvm.ErrWasmStackUnderflow
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v, nil
}

func (c *context) popI32() (int32, error) {
	v, err := c.pop()
	if err != nil {
		return 0, err
	}
	return v.AsI32()
}

func (c *context) popI64() (int64, error) {
	v, err := c.pop()
	if err != nil {
		return 0, err
	}
	return v.AsI64()
}

func (c *context) popBytes() ([]byte, error) {
	v, err := c.pop()
	if err != nil {
		return nil, err
	}
	return v.AsBytes()
}

// controlFrame tracks an open structured-control block of a function body.
type controlFrame struct {
	start  int // position of the Block, Loop or If instruction
	isLoop bool
}

// run executes a function body over the given locals.
func (c *context) run(body []byte, locals []Value) error {
	if c.depth >= rvm.MaxCallDepth {
		return rvm.CallStackOverflowError(c.depth)
	}
	c.depth++
	defer func() { c.depth-- }()

	var control []controlFrame
	pc := 0
	for pc < len(body) {
		instruction, err := DecodeInstruction(body[pc])
		if err != nil {
			return err
		}
		if err := c.meter.Consume(instruction.GasCost()); err != nil {
			return err
		}
		if pc+instruction.immediateSize() >= len(body) && instruction.immediateSize() > 0 {
			return rvm.ErrInvalidWasmBytecode
		}

		switch instruction {
		case Nop:
			pc++

		case Block:
			control = append(control, controlFrame{start: pc})
			pc++
		case Loop:
			control = append(control, controlFrame{start: pc, isLoop: true})
			pc++
		case If:
			condition, err := c.popI32()
			if err != nil {
				return err
			}
			if condition != 0 {
				control = append(control, controlFrame{start: pc})
				pc++
				break
			}
			elsePC, endPC, err := findBranches(body, pc)
			if err != nil {
				return err
			}
			if elsePC >= 0 {
				control = append(control, controlFrame{start: pc})
				pc = elsePC + 1
			} else {
				pc = endPC + 1
			}
		case Else:
			// Reaching an else during execution means the then-branch is
			// done; skip to the matching end.
			_, endPC, err := findBranches(body, pcOfOpenFrame(control, pc))
			if err != nil {
				return err
			}
			if len(control) > 0 {
				control = control[:len(control)-1]
			}
			pc = endPC + 1
		case End:
			if len(control) > 0 {
				control = control[:len(control)-1]
			}
			pc++
		case Br, BrIf:
			depth := int(body[pc+1])
			if instruction == BrIf {
				condition, err := c.popI32()
				if err != nil {
					return err
				}
				if condition == 0 {
					pc += 2
					break
				}
			}
			if depth >= len(control) {
				return rvm.ErrInvalidWasmBytecode
			}
			target := control[len(control)-1-depth]
			control = control[:len(control)-1-depth]
			if target.isLoop {
				// A branch to a loop repeats it from its beginning.
				control = append(control, target)
				pc = target.start + 1
				break
			}
			_, endPC, err := findBranches(body, target.start)
			if err != nil {
				return err
			}
			pc = endPC + 1
		case Return:
			return nil
		case Call:
			index := int(body[pc+1])
			if index < 0 || index >= len(c.module.Functions) {
				return rvm.ErrInvalidWasmBytecode
			}
			if err := c.invoke(&c.module.Functions[index]); err != nil {
				return err
			}
			pc += 2
		case CallIndirect:
			indexValue, err := c.popI32()
			if err != nil {
				return err
			}
			index := int(indexValue)
			if index < 0 || index >= len(c.module.Functions) {
				return rvm.ErrInvalidWasmBytecode
			}
			if err := c.invoke(&c.module.Functions[index]); err != nil {
				return err
			}
			pc++

		case LocalGet:
			index := int(body[pc+1])
			if index >= len(locals) {
				return rvm.ErrInvalidWasmBytecode
			}
			c.push(locals[index])
			pc += 2
		case LocalSet:
			index := int(body[pc+1])
			if index >= len(locals) {
				return rvm.ErrInvalidWasmBytecode
			}
			value, err := c.pop()
			if err != nil {
				return err
			}
			locals[index] = value
			pc += 2
		case LocalTee:
			index := int(body[pc+1])
			if index >= len(locals) {
				return rvm.ErrInvalidWasmBytecode
			}
			value, err := c.pop()
			if err != nil {
				return err
			}
			locals[index] = value
			c.push(value)
			pc += 2
		case GlobalGet:
			index := int(body[pc+1])
			if index >= len(c.globals) {
				return rvm.ErrInvalidWasmBytecode
			}
			c.push(c.globals[index])
			pc += 2
		case GlobalSet:
			index := int(body[pc+1])
			if index >= len(c.globals) {
				return rvm.ErrInvalidWasmBytecode
			}
			value, err := c.pop()
			if err != nil {
				return err
			}
			c.globals[index] = value
			pc += 2

		case I32Load:
			if err := c.load(4, func(data []byte) Value {
				return I32(int32(binary.LittleEndian.Uint32(data)))
			}); err != nil {
				return err
			}
			pc++
		case I64Load:
			if err := c.load(8, func(data []byte) Value {
				return I64(int64(binary.LittleEndian.Uint64(data)))
			}); err != nil {
				return err
			}
			pc++
		case I32Store:
			value, err := c.popI32()
			if err != nil {
				return err
			}
			var data [4]byte
			binary.LittleEndian.PutUint32(data[:], uint32(value))
			if err := c.store(data[:]); err != nil {
				return err
			}
			pc++
		case I64Store:
			value, err := c.popI64()
			if err != nil {
				return err
			}
			var data [8]byte
			binary.LittleEndian.PutUint64(data[:], uint64(value))
			if err := c.store(data[:]); err != nil {
				return err
			}
			pc++

		case I32Const:
			c.push(I32(int32(binary.LittleEndian.Uint32(body[pc+1 : pc+5]))))
			pc += 5
		case I64Const:
			c.push(I64(int64(binary.LittleEndian.Uint64(body[pc+1 : pc+9]))))
			pc += 9

		case I32Eqz:
			value, err := c.popI32()
			if err != nil {
				return err
			}
			c.push(I32(boolToI32(value == 0)))
			pc++

		case I32Eq, I32Ne, I32LtS, I32LtU, I32GtS, I32GtU,
			I32LeS, I32LeU, I32GeS, I32GeU,
			I32Add, I32Sub, I32Mul, I32DivS, I32DivU, I32RemS, I32RemU,
			I32And, I32Or, I32Xor, I32Shl, I32ShrS, I32ShrU:
			if err := c.binaryI32(instruction); err != nil {
				return err
			}
			pc++

		default:
			if err := c.hostInstruction(instruction); err != nil {
				return err
			}
			pc++
		}
	}
	return nil
}

// invoke pops the callee's arguments from the stack and runs its body; the
// callee's results remain on the shared stack.
func (c *context) invoke(function *Function) error {
	locals := make([]Value, len(function.Params)+len(function.Locals))
	for i := len(function.Params) - 1; i >= 0; i-- {
		value, err := c.pop()
		if err != nil {
			return err
		}
		if value.Type() != function.Params[i] {
			return rvm.ErrWasmTypeError
		}
		locals[i] = value
	}
	for i, t := range function.Locals {
		locals[len(function.Params)+i] = zeroValue(t)
	}
	return c.run(function.Body, locals)
}

func (c *context) binaryI32(instruction Instruction) error {
	b, err := c.popI32()
	if err != nil {
		return err
	}
	a, err := c.popI32()
	if err != nil {
		return err
	}
	var result int32
	switch instruction {
	case I32Eq:
		result = boolToI32(a == b)
	case I32Ne:
		result = boolToI32(a != b)
	case I32LtS:
		result = boolToI32(a < b)
	case I32LtU:
		result = boolToI32(uint32(a) < uint32(b))
	case I32GtS:
		result = boolToI32(a > b)
	case I32GtU:
		result = boolToI32(uint32(a) > uint32(b))
	case I32LeS:
		result = boolToI32(a <= b)
	case I32LeU:
		result = boolToI32(uint32(a) <= uint32(b))
	case I32GeS:
		result = boolToI32(a >= b)
	case I32GeU:
		result = boolToI32(uint32(a) >= uint32(b))
	case I32Add:
		result = a + b
	case I32Sub:
		result = a - b
	case I32Mul:
		result = a * b
	case I32DivS:
		if b == 0 {
			return rvm.ErrInvalidWasmBytecode
		}
		result = a / b
	case I32DivU:
		if b == 0 {
			return rvm.ErrInvalidWasmBytecode
		}
		result = int32(uint32(a) / uint32(b))
	case I32RemS:
		if b == 0 {
			return rvm.ErrInvalidWasmBytecode
		}
		result = a % b
	case I32RemU:
		if b == 0 {
			return rvm.ErrInvalidWasmBytecode
		}
		result = int32(uint32(a) % uint32(b))
	case I32And:
		result = a & b
	case I32Or:
		result = a | b
	case I32Xor:
		result = a ^ b
	case I32Shl:
		result = a << (uint32(b) % 32)
	case I32ShrS:
		result = a >> (uint32(b) % 32)
	case I32ShrU:
		result = int32(uint32(a) >> (uint32(b) % 32))
	}
	c.push(I32(result))
	return nil
}

func (c *context) load(size int, decode func([]byte) Value) error {
	addr, err := c.popI32()
	if err != nil {
		return err
	}
	offset := uint64(uint32(addr))
	if offset+uint64(size) > uint64(len(c.memory)) {
		return &rvm.MemoryOutOfBoundsError{
			Offset: offset, Size: uint64(size), MemorySize: uint64(len(c.memory)),
		}
	}
	c.push(decode(c.memory[offset : offset+uint64(size)]))
	return nil
}

func (c *context) store(data []byte) error {
	addr, err := c.popI32()
	if err != nil {
		return err
	}
	offset := uint64(uint32(addr))
	if offset+uint64(len(data)) > uint64(len(c.memory)) {
		return &rvm.MemoryOutOfBoundsError{
			Offset: offset, Size: uint64(len(data)), MemorySize: uint64(len(c.memory)),
		}
	}
	copy(c.memory[offset:], data)
	return nil
}

func (c *context) hostInstruction(instruction Instruction) error {
	switch instruction {
	case Keccak256:
		data, err := c.popBytes()
		if err != nil {
			return err
		}
		hash := crypto.Keccak256(data)
		c.push(Bytes(hash[:]))
	case EcRecover:
		signature, err := c.popBytes()
		if err != nil {
			return err
		}
		hashBytes, err := c.popBytes()
		if err != nil {
			return err
		}
		if len(signature) != 65 || len(hashBytes) != 32 {
			return rvm.ErrInvalidSignature
		}
		var hash rvm.Hash
		copy(hash[:], hashBytes)
		var sig [64]byte
		copy(sig[:], signature[:64])
		key, err := crypto.Ecrecover(hash, sig, signature[64])
		if err != nil {
			return err
		}
		c.push(Bytes(key[:]))
	case Blake2b:
		data, err := c.popBytes()
		if err != nil {
			return err
		}
		hash := blake2b.Sum256(data)
		c.push(Bytes(hash[:]))
	case Ed25519Verify:
		signature, err := c.popBytes()
		if err != nil {
			return err
		}
		message, err := c.popBytes()
		if err != nil {
			return err
		}
		publicKey, err := c.popBytes()
		if err != nil {
			return err
		}
		if len(signature) != ed25519.SignatureSize || len(publicKey) != ed25519.PublicKeySize {
			return rvm.ErrInvalidSignature
		}
		verified := ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
		c.push(I32(boolToI32(verified)))
	case GetCaller:
		c.push(Bytes(c.env.Caller[:]))
	case GetValue:
		c.push(I64(int64(c.env.Value)))
	case GetGasRemaining:
		c.push(I64(int64(c.meter.Remaining())))
	case StorageLoad:
		if c.storage == nil {
			return rvm.InternalError("storage not available")
		}
		key, err := c.popI64()
		if err != nil {
			return err
		}
		c.push(I64(int64(c.storage.Get(c.env.ContractAddress, uint64(key)))))
	case StorageStore:
		if c.storage == nil {
			return rvm.InternalError("storage not available")
		}
		value, err := c.popI64()
		if err != nil {
			return err
		}
		key, err := c.popI64()
		if err != nil {
			return err
		}
		c.storage.Set(c.env.ContractAddress, uint64(key), uint64(value))
	case EmitLog:
		data, err := c.popBytes()
		if err != nil {
			return err
		}
		payload := make([]byte, len(data))
		copy(payload, data)
		c.logs = append(c.logs, rvm.Log{Address: c.env.ContractAddress, Data: payload})
	case Transfer:
		if c.storage == nil {
			return rvm.InternalError("storage not available")
		}
		amount, err := c.popI64()
		if err != nil {
			return err
		}
		toBytes, err := c.popBytes()
		if err != nil {
			return err
		}
		if len(toBytes) != 20 {
			return rvm.ErrWasmTypeError
		}
		var to rvm.Address
		copy(to[:], toBytes)
		if err := c.storage.Transfer(c.env.Caller, to, uint64(amount)); err != nil {
			return err
		}
	default:
		return rvm.InvalidWasmInstructionError(instruction.Encode())
	}
	return nil
}

// findBranches locates the Else and End instructions matching the block
// opened at the given position. The returned else position is -1 when the
// block has no else branch.
func findBranches(body []byte, start int) (elsePC, endPC int, err error) {
	elsePC = -1
	depth := 0
	pc := start
	for pc < len(body) {
		instruction, err := DecodeInstruction(body[pc])
		if err != nil {
			return -1, -1, err
		}
		switch instruction {
		case Block, Loop, If:
			depth++
		case Else:
			if depth == 1 {
				elsePC = pc
			}
		case End:
			depth--
			if depth == 0 {
				return elsePC, pc, nil
			}
		}
		pc += 1 + instruction.immediateSize()
	}
	return -1, -1, rvm.ErrInvalidWasmBytecode
}

// pcOfOpenFrame returns the opening position of the innermost control frame,
// falling back to the current position for bodies without explicit frames.
func pcOfOpenFrame(control []controlFrame, pc int) int {
	if len(control) == 0 {
		return pc
	}
	return control[len(control)-1].start
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
