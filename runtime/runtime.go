// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package runtime

import (
	"sync"
	"time"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
	"github.com/GhostKellz/rvm/services"
	"github.com/GhostKellz/rvm/state"
	"github.com/GhostKellz/rvm/vm"
)

// Runtime owns the shared world state and host services, and drives
// executions over them. Interpreter contexts are pooled and exclusively
// owned for the duration of one call; the state is guarded by a single
// exclusion lock, so the observable order of executions is the order in
// which they acquire it. Failed executions leave no state mutation behind:
// every run is wrapped in a snapshot that is restored on failure.
type Runtime struct {
	mu       sync.Mutex
	state    *state.State
	services *services.Registry
	config   Config
	stats    Stats

	preHooks     []rvm.PreExecuteHook
	storageHooks []rvm.StorageEventHook

	hashes *crypto.HashCache
	cores  sync.Pool

	// Now provides the timestamps of default environments; replaceable for
	// deterministic tests.
	Now func() uint64
}

// DeploymentRequest describes a contract deployment.
type DeploymentRequest struct {
	Bytecode          []byte
	ConstructorParams []byte
	InitialBalance    uint64
	GasLimit          rvm.Gas
}

// New creates a runtime with a fresh state and a full set of in-process
// services.
func New(config Config) *Runtime {
	return NewWithServices(config, services.NewRegistry(nil, nil))
}

// NewWithServices creates a runtime over the given service registry.
func NewWithServices(config Config, registry *services.Registry) *Runtime {
	hashes, err := crypto.NewHashCache(1<<16, 1<<10)
	if err != nil {
		panic(err) // only fails for non-positive sizes
	}
	r := &Runtime{
		state:    state.New(),
		services: registry,
		config:   config,
		hashes:   hashes,
		Now:      func() uint64 { return uint64(time.Now().Unix()) },
	}
	r.cores.New = func() any {
		core := vm.NewCore(&hookedState{runtime: r}, r.hostServices())
		core.SetHashCache(r.hashes)
		return core
	}
	return r
}

// State exposes the shared world state. Callers mutating it directly own
// the serialization discipline.
func (r *Runtime) State() *state.State {
	return r.state
}

// Services exposes the host service registry.
func (r *Runtime) Services() *services.Registry {
	return r.services
}

// Stats returns a copy of the accumulated execution statistics.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// AddPreExecuteHook registers a hook consulted before every execution.
func (r *Runtime) AddPreExecuteHook(hook rvm.PreExecuteHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preHooks = append(r.preHooks, hook)
}

// AddStorageEventHook registers an observer of storage writes.
func (r *Runtime) AddStorageEventHook(hook rvm.StorageEventHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storageHooks = append(r.storageHooks, hook)
}

// SetAgentHook routes agent invocations to the given hook.
func (r *Runtime) SetAgentHook(hook rvm.AgentHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services.Agents.SetHook(hook)
}

func (r *Runtime) hostServices() vm.HostServices {
	host := vm.HostServices{
		Identity: r.services.GhostId,
		Names:    r.services.Cns,
		Tokens:   r.services.Tokens,
		L2:       r.services.L2,
		Bridge:   r.services.Bridge,
	}
	if r.config.EnableAgentAPIs {
		host.Agents = r.services.Agents
	}
	return host
}

// Execute runs bytecode against the shared state under the runtime's gas
// limit. Failed executions are rolled back; logs emitted by the run are
// returned alongside the result.
func (r *Runtime) Execute(code []byte, env rvm.ExecutionEnvironment) (rvm.ExecutionResult, []rvm.Log, error) {
	return r.ExecuteWithInput(code, nil, env, r.config.MaxGasLimit)
}

// ExecuteWithInput runs bytecode with explicit input data and gas limit.
func (r *Runtime) ExecuteWithInput(code, input []byte, env rvm.ExecutionEnvironment, gasLimit rvm.Gas) (rvm.ExecutionResult, []rvm.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.execute(code, input, env, gasLimit)
}

// execute requires the state lock to be held.
func (r *Runtime) execute(code, input []byte, env rvm.ExecutionEnvironment, gasLimit rvm.Gas) (rvm.ExecutionResult, []rvm.Log, error) {
	for _, hook := range r.preHooks {
		if err := hook.OnPreExecute(code, env); err != nil {
			result := rvm.ExecutionResult{Success: false, Error: err.Error()}
			r.stats.record(result)
			return result, nil, nil
		}
	}

	snapshot := r.state.CreateSnapshot()

	core := r.cores.Get().(*vm.Core)
	result, err := core.Execute(code, input, env, gasLimit)
	logs := core.Logs()
	r.cores.Put(core)
	if err != nil {
		return result, nil, err
	}

	if !result.Success {
		r.state.RestoreSnapshot(snapshot)
	}
	r.stats.record(result)
	return result, logs, nil
}

// DeployContract stores a contract record under an address derived from the
// deployer and its nonce. The initial balance moves from the deployer to the
// new account; a deployer that cannot afford it fails the deployment without
// mutation.
func (r *Runtime) DeployContract(request DeploymentRequest, deployer rvm.Address) (rvm.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := crypto.CreateAddress(deployer, r.state.GetNonce(deployer))
	if request.InitialBalance > 0 {
		if err := r.state.Transfer(deployer, addr, request.InitialBalance); err != nil {
			return rvm.Address{}, err
		}
	}
	r.state.IncrementNonce(deployer)

	contract := rvm.Contract{
		Bytecode: append(rvm.Code{}, request.Bytecode...),
		Address:  addr,
		Storage:  map[rvm.Key]rvm.Value{},
		Balance:  request.InitialBalance,
	}
	r.state.SetContract(addr, contract)
	return addr, nil
}

// CallContract executes a deployed contract with the given call data. The
// call value moves from the caller to the contract; a caller that cannot
// afford it fails the call, and a failed execution takes the transfer back
// with the rest of its effects.
func (r *Runtime) CallContract(addr rvm.Address, data []byte, caller rvm.Address, value uint64, gasLimit rvm.Gas) (rvm.ExecutionResult, []rvm.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contract, ok := r.state.GetContract(addr)
	if !ok {
		return rvm.ExecutionResult{}, nil, rvm.ContractNotFoundError(addr)
	}

	snapshot := r.state.CreateSnapshot()
	if value > 0 {
		if err := r.state.Transfer(caller, addr, value); err != nil {
			return rvm.ExecutionResult{}, nil, err
		}
	}

	env := rvm.ExecutionEnvironment{
		ContractAddress: addr,
		Caller:          caller,
		Value:           value,
		GasPrice:        1,
		BlockNumber:     1,
		Timestamp:       r.Now(),
	}
	result, logs, err := r.execute(contract.Bytecode, data, env, gasLimit)
	if err == nil && !result.Success {
		r.state.RestoreSnapshot(snapshot)
	}
	return result, logs, err
}

// ExecutePrecompile invokes a built-in precompiled contract, charging its
// gas schedule against the given limit.
func (r *Runtime) ExecutePrecompile(address byte, input []byte, gasLimit rvm.Gas) (rvm.ExecutionResult, error) {
	if !r.config.EnablePrecompiles {
		return rvm.ExecutionResult{}, rvm.ErrPrecompilesDisabled
	}

	meter := gas.NewMeter(gasLimit)
	cost, err := crypto.PrecompileGas(address, len(input))
	if err != nil {
		return rvm.ExecutionResult{}, err
	}
	if err := meter.Consume(cost); err != nil {
		return rvm.ExecutionResult{
			GasUsed: meter.Used(),
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	output, err := crypto.RunPrecompile(address, input)
	if err != nil {
		return rvm.ExecutionResult{
			GasUsed: meter.Used(),
			Success: false,
			Error:   err.Error(),
		}, nil
	}
	return rvm.ExecutionResult{
		ReturnData: output,
		GasUsed:    meter.Used(),
		Success:    true,
	}, nil
}

// hookedState adapts the runtime's state to the interpreter's view, fanning
// storage writes out to the registered observers.
type hookedState struct {
	runtime *Runtime
}

func (h *hookedState) Get(addr rvm.Address, key uint64) uint64 {
	return h.runtime.state.Get(addr, key)
}

func (h *hookedState) Set(addr rvm.Address, key uint64, value uint64) {
	h.runtime.state.Set(addr, key, value)
	for _, hook := range h.runtime.storageHooks {
		hook.OnStorageEvent(addr, key, value)
	}
}

func (h *hookedState) OriginalValue(addr rvm.Address, key uint64) uint64 {
	return h.runtime.state.OriginalValue(addr, key)
}

func (h *hookedState) GetBalance(addr rvm.Address) uint64 {
	return h.runtime.state.GetBalance(addr)
}

func (h *hookedState) SetBalance(addr rvm.Address, balance uint64) {
	h.runtime.state.SetBalance(addr, balance)
}

func (h *hookedState) Transfer(from, to rvm.Address, amount uint64) error {
	return h.runtime.state.Transfer(from, to, amount)
}

func (h *hookedState) GetNonce(addr rvm.Address) uint64 {
	return h.runtime.state.GetNonce(addr)
}

func (h *hookedState) IncrementNonce(addr rvm.Address) {
	h.runtime.state.IncrementNonce(addr)
}

func (h *hookedState) GetContract(addr rvm.Address) (rvm.Contract, bool) {
	return h.runtime.state.GetContract(addr)
}

func (h *hookedState) SetContract(addr rvm.Address, contract rvm.Contract) {
	h.runtime.state.SetContract(addr, contract)
}

func (h *hookedState) DeleteAccount(addr rvm.Address) {
	h.runtime.state.DeleteAccount(addr)
}

func (h *hookedState) AccountExists(addr rvm.Address) bool {
	return h.runtime.state.AccountExists(addr)
}
