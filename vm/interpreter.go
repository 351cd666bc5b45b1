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
	"encoding/binary"
	"fmt"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

type status byte

const (
	statusRunning status = iota
	statusStopped
	statusReturned
	statusReverted
	statusSelfDestructed
	statusFailed
)

// Core is the execution context of a single bytecode run: the word stack,
// the scratch memory, the program counter, and the gas meter, over a shared
// world state. A Core is exclusively owned by its run; only the world state
// and the host services are shared across runs.
type Core struct {
	state    WorldState
	services HostServices
	hashes   *crypto.HashCache

	// Execution state
	code   []byte
	input  []byte
	env    rvm.ExecutionEnvironment
	pc     uint64
	stack  *stack
	memory *Memory
	meter  *gas.Meter
	depth  int
	status status
	err    error

	returnData []byte
	logs       []rvm.Log
}

// NewCore creates an interpreter context over the given state and services.
func NewCore(state WorldState, services HostServices) *Core {
	return &Core{
		state:    state,
		services: services,
		memory:   NewMemory(),
		meter:    gas.NewMeter(0),
	}
}

// SetHashCache equips the core with a shared Keccak256 cache. Cores without
// a cache hash directly.
func (c *Core) SetHashCache(cache *crypto.HashCache) {
	c.hashes = cache
}

// fail stops the execution, recording the error that caused it. Gas consumed
// up to this point is retained.
func (c *Core) fail(err error) {
	c.status = statusFailed
	c.err = err
}

// useGas charges the given amount, failing the execution when the limit is
// exceeded.
func (c *Core) useGas(amount rvm.Gas) bool {
	if err := c.meter.Consume(amount); err != nil {
		c.fail(err)
		return false
	}
	return true
}

// Execute runs the given bytecode with the given input data and environment
// under the given gas limit. Failures of the executed program are reported
// through the result; the returned error is reserved for defects of the
// interpreter itself.
func (c *Core) Execute(code, input []byte, env rvm.ExecutionEnvironment, gasLimit rvm.Gas) (rvm.ExecutionResult, error) {
	c.code = code
	c.input = input
	c.env = env
	c.pc = 0
	c.status = statusRunning
	c.err = nil
	c.returnData = nil
	c.logs = nil
	c.memory.reset()
	c.meter.Reset(gasLimit)

	c.stack = NewStack()
	defer func() {
		ReturnStack(c.stack)
		c.stack = nil
	}()

	c.run()
	return c.makeResult()
}

// Logs returns the log messages emitted by the last execution.
func (c *Core) Logs() []rvm.Log {
	return c.logs
}

// GasMeter exposes the meter of the current execution.
func (c *Core) GasMeter() *gas.Meter {
	return c.meter
}

func (c *Core) run() {
	for c.status == statusRunning {
		if c.pc >= uint64(len(c.code)) {
			c.status = statusStopped
			return
		}

		op, err := Decode(c.code[c.pc])
		if err != nil {
			c.fail(err)
			return
		}

		if err := c.checkStackBoundary(op); err != nil {
			c.fail(err)
			return
		}

		// Consume the static gas price of the instruction before executing it.
		if !c.useGas(op.GasCost()) {
			return
		}

		c.step(op)
	}
}

func (c *Core) checkStackBoundary(op OpCode) error {
	usage := staticStackUsage[op]
	if c.stack.len() < usage.min {
		return rvm.ErrStackUnderflow
	}
	if c.stack.len()+usage.grow > rvm.MaxStackSize {
		return rvm.ErrStackOverflow
	}
	return nil
}

func (c *Core) step(op OpCode) {
	switch {
	case op.IsPush():
		c.opPush(op.PushBytes())
		return
	case DUP1 <= op && op <= DUP16:
		c.stack.dup(int(op - DUP1))
		c.pc++
		return
	case SWAP1 <= op && op <= SWAP16:
		c.stack.swap(int(op-SWAP1) + 1)
		c.pc++
		return
	case LOG0 <= op && op <= LOG4:
		c.opLog(int(op - LOG0))
		return
	}

	switch op {
	case STOP:
		c.status = statusStopped
	case ADD:
		c.opBinary(func(a, b uint64) uint64 { return a + b })
	case MUL:
		c.opBinary(func(a, b uint64) uint64 { return a * b })
	case SUB:
		c.opBinary(func(a, b uint64) uint64 { return a - b })
	case DIV:
		c.opBinary(func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return a / b
		})
	case SDIV:
		c.opBinary(func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return uint64(int64(a) / int64(b))
		})
	case MOD:
		c.opBinary(func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return a % b
		})
	case SMOD:
		c.opBinary(func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return uint64(int64(a) % int64(b))
		})
	case ADDMOD:
		c.opTernary(func(a, b, m uint64) uint64 {
			if m == 0 {
				return 0
			}
			return (a + b) % m
		})
	case MULMOD:
		c.opTernary(func(a, b, m uint64) uint64 {
			if m == 0 {
				return 0
			}
			return (a * b) % m
		})
	case EXP:
		c.opBinary(expWord)
	case SIGNEXTEND:
		c.opBinary(signExtendWord)
	case LT:
		c.opBinary(func(a, b uint64) uint64 { return boolToWord(a < b) })
	case GT:
		c.opBinary(func(a, b uint64) uint64 { return boolToWord(a > b) })
	case SLT:
		c.opBinary(func(a, b uint64) uint64 { return boolToWord(int64(a) < int64(b)) })
	case SGT:
		c.opBinary(func(a, b uint64) uint64 { return boolToWord(int64(a) > int64(b)) })
	case EQ:
		c.opBinary(func(a, b uint64) uint64 { return boolToWord(a == b) })
	case ISZERO:
		c.opUnary(func(a uint64) uint64 { return boolToWord(a == 0) })
	case AND:
		c.opBinary(func(a, b uint64) uint64 { return a & b })
	case OR:
		c.opBinary(func(a, b uint64) uint64 { return a | b })
	case XOR:
		c.opBinary(func(a, b uint64) uint64 { return a ^ b })
	case NOT:
		c.opUnary(func(a uint64) uint64 { return ^a })
	case BYTE:
		c.opBinary(byteWord)
	case KECCAK256:
		c.opKeccak256()
	case ADDRESS:
		c.opPushValue(wordFromAddress(c.env.ContractAddress))
	case BALANCE:
		c.opBalance()
	case ORIGIN:
		// Sub-call framing is not modeled, the caller is the origin.
		c.opPushValue(wordFromAddress(c.env.Caller))
	case CALLER:
		c.opPushValue(wordFromAddress(c.env.Caller))
	case CALLVALUE:
		c.opPushValue(c.env.Value)
	case CALLDATALOAD:
		c.opCallDataLoad()
	case CALLDATASIZE:
		c.opPushValue(uint64(len(c.input)))
	case CALLDATACOPY:
		c.opCopy(c.input)
	case CODESIZE:
		c.opPushValue(uint64(len(c.code)))
	case CODECOPY:
		c.opCopy(c.code)
	case GASPRICE:
		c.opPushValue(c.env.GasPrice)
	case BLOCKHASH:
		c.opBlockHash()
	case COINBASE:
		c.opPushValue(0)
	case TIMESTAMP:
		c.opPushValue(c.env.Timestamp)
	case NUMBER:
		c.opPushValue(c.env.BlockNumber)
	case DIFFICULTY:
		c.opPushValue(0)
	case GASLIMIT:
		c.opPushValue(c.meter.Limit())
	case POP:
		c.stack.pop()
		c.pc++
	case MLOAD:
		c.opMload()
	case MSTORE:
		c.opMstore()
	case MSTORE8:
		c.opMstore8()
	case SLOAD:
		c.opSload()
	case SSTORE:
		c.opSstore()
	case JUMP:
		c.opJump()
	case JUMPI:
		c.opJumpi()
	case PC:
		c.opPushValue(c.pc)
	case MSIZE:
		c.opPushValue(c.memory.length())
	case GAS:
		c.opPushValue(c.meter.Remaining())
	case JUMPDEST:
		c.pc++
	case RETURN:
		c.opReturn(statusReturned)
	case REVERT:
		c.opReturn(statusReverted)
	case SELFDESTRUCT:
		c.opSelfDestruct()
	case GHOST_ID_VERIFY, GHOST_ID_RESOLVE, GHOST_ID_CREATE,
		TOKEN_BALANCE, TOKEN_TRANSFER, TOKEN_MINT, TOKEN_BURN,
		CNS_RESOLVE, CNS_REGISTER, CNS_UPDATE, CNS_OWNER,
		L2_SUBMIT, L2_BATCH_VERIFY, L2_STATE_SYNC,
		BRIDGE_SEND, BRIDGE_RECEIVE,
		AGENT_CALL, AGENT_DEPLOY, AGENT_QUERY:
		c.stepHost(op)
	case CREATE:
		// The call and create family is declared and priced but performs no
		// sub-call; its operands are consumed and discarded, see the
		// repository design notes.
		c.opConsumeOperands(3)
	case CREATE2:
		c.opConsumeOperands(4)
	case DELEGATECALL, STATICCALL:
		c.opConsumeOperands(6)
	case CALL, CALLCODE:
		c.opConsumeOperands(7)
	default:
		c.pc++
	}
}

func (c *Core) makeResult() (rvm.ExecutionResult, error) {
	switch c.status {
	case statusStopped, statusSelfDestructed:
		return rvm.ExecutionResult{
			GasUsed: c.meter.Used(),
			Success: true,
		}, nil
	case statusReturned:
		return rvm.ExecutionResult{
			ReturnData: c.returnData,
			GasUsed:    c.meter.Used(),
			Success:    true,
		}, nil
	case statusReverted:
		return rvm.ExecutionResult{
			ReturnData: c.returnData,
			GasUsed:    c.meter.Used(),
			Success:    false,
			Error:      rvm.ErrExecutionReverted.Error(),
		}, nil
	case statusFailed:
		return rvm.ExecutionResult{
			GasUsed: c.meter.Used(),
			Success: false,
			Error:   c.err.Error(),
		}, nil
	}
	return rvm.ExecutionResult{}, rvm.InternalError(
		fmt.Sprintf("unexpected interpreter status: %d", c.status))
}

// wordFromAddress folds an address into a machine word using its low 8
// bytes, mirroring how a 160-bit address occupies the low bits of a wider
// machine word.
func wordFromAddress(addr rvm.Address) uint64 {
	return binary.BigEndian.Uint64(addr[12:20])
}

// addressFromWord is the inverse of wordFromAddress; the high 12 address
// bytes are zero.
func addressFromWord(word uint64) rvm.Address {
	var addr rvm.Address
	binary.BigEndian.PutUint64(addr[12:20], word)
	return addr
}

func boolToWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func expWord(base, exponent uint64) uint64 {
	var result uint64 = 1
	for exponent > 0 {
		if exponent&1 == 1 {
			result *= base
		}
		base *= base
		exponent >>= 1
	}
	return result
}

func signExtendWord(back, value uint64) uint64 {
	if back >= 7 {
		return value
	}
	bit := uint(back*8 + 7)
	mask := uint64(1)<<bit - 1
	if value&(uint64(1)<<bit) != 0 {
		return value | ^mask
	}
	return value & mask
}

func byteWord(index, value uint64) uint64 {
	// Byte 0 is the most significant byte of the 8-byte machine word.
	if index >= 8 {
		return 0
	}
	return (value >> (8 * (7 - index))) & 0xff
}

// interpreter adapts Cores to the registered interpreter interface; every
// Run executes on a fresh Core.
type interpreter struct {
	state    WorldState
	services HostServices
}

// Config is the configuration accepted by the registered interpreter
// factory.
type Config struct {
	State    WorldState
	Services HostServices
}

func (i *interpreter) Run(code []byte, env rvm.ExecutionEnvironment, gasLimit rvm.Gas) (rvm.ExecutionResult, error) {
	core := NewCore(i.state, i.services)
	return core.Execute(code, nil, env, gasLimit)
}

func init() {
	err := rvm.RegisterInterpreterFactory("rvm", func(config any) (rvm.Interpreter, error) {
		cfg, ok := config.(*Config)
		if !ok || cfg == nil || cfg.State == nil {
			return nil, fmt.Errorf("interpreter requires a configuration with a world state")
		}
		return &interpreter{state: cfg.State, services: cfg.Services}, nil
	})
	if err != nil {
		panic(err)
	}
}
