// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package evm

import (
	"encoding/binary"
	"time"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/runtime"
	"github.com/GhostKellz/rvm/rvm"
)

// blockTime is the seconds advanced per mined block.
const blockTime = 12

// blockGasLimit is the gas limit of executions entered through this
// frontend.
const blockGasLimit rvm.Gas = 30_000_000

// Environment is the block-level context of the chain head.
type Environment struct {
	Coinbase    rvm.Address
	Timestamp   uint64
	BlockNumber uint64
	Difficulty  uint64
	GasLimit    uint64
	ChainID     uint64
	BaseFee     uint64
}

// Transaction is a transfer or contract interaction. A nil recipient
// deploys the transaction data as a new contract.
type Transaction struct {
	Hash     rvm.Hash
	From     rvm.Address
	To       *rvm.Address
	Value    uint64
	Data     []byte
	GasLimit rvm.Gas
	GasPrice uint64
	Nonce    uint64
}

// Account is the frontend's bookkeeping view of an address.
type Account struct {
	Balance     uint64
	Nonce       uint64
	CodeHash    rvm.Hash
	StorageRoot rvm.Hash
}

// Block is a mined batch of transactions.
type Block struct {
	Number       uint64
	Hash         rvm.Hash
	ParentHash   rvm.Hash
	Timestamp    uint64
	Coinbase     rvm.Address
	Difficulty   uint64
	GasLimit     uint64
	GasUsed      uint64
	Transactions []rvm.Hash
}

// Receipt is the settlement record of one transaction.
type Receipt struct {
	TransactionHash rvm.Hash
	BlockNumber     uint64
	GasUsed         rvm.Gas
	Success         bool
	ContractAddress *rvm.Address
	Logs            []rvm.Log
}

// Result extends an execution result with its logs and receipt.
type Result struct {
	Result  rvm.ExecutionResult
	Logs    []rvm.Log
	Receipt Receipt
}

// Evm is the EVM-compatible frontend: transaction, account and block
// bookkeeping over the core interpreter and its shared state.
type Evm struct {
	runtime      *runtime.Runtime
	env          Environment
	accounts     map[rvm.Address]Account
	transactions []Transaction
	pending      []pendingTx
	blocks       []Block
}

type pendingTx struct {
	hash    rvm.Hash
	gasUsed rvm.Gas
}

// New creates a frontend for the given chain id over a fresh runtime.
func New(chainID uint64) *Evm {
	config := runtime.DefaultConfig()
	config.MaxGasLimit = blockGasLimit
	config.EnableAgentAPIs = false
	return &Evm{
		runtime: runtime.New(config),
		env: Environment{
			Timestamp:   uint64(time.Now().Unix()),
			BlockNumber: 1,
			Difficulty:  1_000_000,
			GasLimit:    uint64(blockGasLimit),
			ChainID:     chainID,
			BaseFee:     1_000_000_000,
		},
		accounts: map[rvm.Address]Account{},
	}
}

// Runtime exposes the underlying runtime.
func (e *Evm) Runtime() *runtime.Runtime {
	return e.runtime
}

// ChainID returns the chain id of this frontend.
func (e *Evm) ChainID() uint64 {
	return e.env.ChainID
}

// BlockNumber returns the number of the block under construction.
func (e *Evm) BlockNumber() uint64 {
	return e.env.BlockNumber
}

// GetAccount returns the bookkeeping view of an address; unknown addresses
// read as the zero account.
func (e *Evm) GetAccount(addr rvm.Address) Account {
	return e.accounts[addr]
}

// SetAccountBalance sets the balance of an address, in both the bookkeeping
// view and the shared state.
func (e *Evm) SetAccountBalance(addr rvm.Address, balance uint64) {
	account := e.accounts[addr]
	account.Balance = balance
	e.accounts[addr] = account
	e.runtime.State().SetBalance(addr, balance)
}

// GetAccountNonce returns the nonce of an address.
func (e *Evm) GetAccountNonce(addr rvm.Address) uint64 {
	return e.accounts[addr].Nonce
}

// ExecuteTransaction settles a single transaction: deployment when the
// recipient is nil, a call otherwise. The transaction joins the pending set
// of the block under construction.
func (e *Evm) ExecuteTransaction(tx Transaction) (Result, error) {
	var execution rvm.ExecutionResult
	var logs []rvm.Log
	var created *rvm.Address

	if tx.To != nil {
		result, callLogs, err := e.runtime.CallContract(*tx.To, tx.Data, tx.From, tx.Value, tx.GasLimit)
		if err != nil {
			return Result{}, err
		}
		execution = result
		logs = callLogs
	} else {
		addr, err := e.runtime.DeployContract(runtime.DeploymentRequest{
			Bytecode:       tx.Data,
			InitialBalance: tx.Value,
			GasLimit:       tx.GasLimit,
		}, tx.From)
		if err != nil {
			return Result{}, err
		}
		created = &addr
		execution = rvm.ExecutionResult{
			ReturnData: addr[:],
			GasUsed:    21000,
			Success:    true,
		}
		account := e.accounts[tx.From]
		account.Nonce++
		e.accounts[tx.From] = account
	}

	receipt := Receipt{
		TransactionHash: tx.Hash,
		BlockNumber:     e.env.BlockNumber,
		GasUsed:         execution.GasUsed,
		Success:         execution.Success,
		ContractAddress: created,
		Logs:            logs,
	}

	e.transactions = append(e.transactions, tx)
	e.pending = append(e.pending, pendingTx{hash: tx.Hash, gasUsed: execution.GasUsed})

	return Result{Result: execution, Logs: logs, Receipt: receipt}, nil
}

// DeployContract deploys bytecode as a new contract and returns its
// address.
func (e *Evm) DeployContract(bytecode []byte, deployer rvm.Address, value uint64, gasLimit rvm.Gas) (rvm.Address, error) {
	tx := Transaction{
		Hash:     crypto.Keccak256(bytecode),
		From:     deployer,
		Value:    value,
		Data:     bytecode,
		GasLimit: gasLimit,
		GasPrice: e.env.BaseFee,
		Nonce:    e.GetAccountNonce(deployer),
	}
	result, err := e.ExecuteTransaction(tx)
	if err != nil {
		return rvm.Address{}, err
	}
	if !result.Result.Success || result.Receipt.ContractAddress == nil {
		return rvm.Address{}, rvm.UnknownError("contract deployment failed")
	}
	return *result.Receipt.ContractAddress, nil
}

// CallContract executes a deployed contract with the given call data.
func (e *Evm) CallContract(addr rvm.Address, data []byte, caller rvm.Address, value uint64, gasLimit rvm.Gas) (Result, error) {
	tx := Transaction{
		Hash:     crypto.Keccak256(data),
		From:     caller,
		To:       &addr,
		Value:    value,
		Data:     data,
		GasLimit: gasLimit,
		GasPrice: e.env.BaseFee,
		Nonce:    e.GetAccountNonce(caller),
	}
	return e.ExecuteTransaction(tx)
}

// ExecuteBytecode runs raw bytecode without deploying it.
func (e *Evm) ExecuteBytecode(bytecode []byte, caller rvm.Address, value uint64, gasLimit rvm.Gas) (rvm.ExecutionResult, error) {
	env := rvm.ExecutionEnvironment{
		Caller:      caller,
		Value:       value,
		GasPrice:    1,
		BlockNumber: e.env.BlockNumber,
		Timestamp:   e.env.Timestamp,
	}
	result, _, err := e.runtime.ExecuteWithInput(bytecode, nil, env, gasLimit)
	return result, err
}

// ExecutePrecompile invokes a built-in precompiled contract.
func (e *Evm) ExecutePrecompile(address byte, input []byte, gasLimit rvm.Gas) (rvm.ExecutionResult, error) {
	return e.runtime.ExecutePrecompile(address, input, gasLimit)
}

// MineBlock consumes the pending transactions into a new block, chained to
// its predecessor, and advances the chain head by one block and twelve
// seconds.
func (e *Evm) MineBlock() Block {
	var numberBytes [8]byte
	binary.BigEndian.PutUint64(numberBytes[:], e.env.BlockNumber)
	hash := crypto.Keccak256(numberBytes[:])

	var parent rvm.Hash
	if len(e.blocks) > 0 {
		parent = e.blocks[len(e.blocks)-1].Hash
	}

	var gasUsed rvm.Gas
	hashes := make([]rvm.Hash, len(e.pending))
	for i, tx := range e.pending {
		hashes[i] = tx.hash
		gasUsed += tx.gasUsed
	}

	block := Block{
		Number:       e.env.BlockNumber,
		Hash:         hash,
		ParentHash:   parent,
		Timestamp:    e.env.Timestamp,
		Coinbase:     e.env.Coinbase,
		Difficulty:   e.env.Difficulty,
		GasLimit:     e.env.GasLimit,
		GasUsed:      gasUsed,
		Transactions: hashes,
	}
	e.blocks = append(e.blocks, block)
	e.pending = nil
	e.env.BlockNumber++
	e.env.Timestamp += blockTime
	return block
}

// GetBlock returns the mined block with the given number.
func (e *Evm) GetBlock(number uint64) (Block, bool) {
	for _, block := range e.blocks {
		if block.Number == number {
			return block, true
		}
	}
	return Block{}, false
}
