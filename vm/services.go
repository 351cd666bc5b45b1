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
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

//go:generate mockgen -source services.go -destination services_mock.go -package vm

// WorldState is the interpreter's view of the account and storage state.
// All reads within one execution observe the effects of prior writes of the
// same execution.
type WorldState interface {
	Get(addr rvm.Address, key uint64) uint64
	Set(addr rvm.Address, key uint64, value uint64)
	OriginalValue(addr rvm.Address, key uint64) uint64

	GetBalance(addr rvm.Address) uint64
	SetBalance(addr rvm.Address, balance uint64)
	Transfer(from, to rvm.Address, amount uint64) error

	GetNonce(addr rvm.Address) uint64
	IncrementNonce(addr rvm.Address)

	GetContract(addr rvm.Address) (rvm.Contract, bool)
	SetContract(addr rvm.Address, contract rvm.Contract)
	DeleteAccount(addr rvm.Address)
	AccountExists(addr rvm.Address) bool
}

// IdentityService resolves and verifies identities for the identity opcodes.
type IdentityService interface {
	Verify(id string, message, signature []byte) (bool, error)
	Resolve(id string) (rvm.Address, bool, error)
	Create(publicKey []byte, domains []string, metadata map[string]string) (string, error)
}

// NameService backs the name-service opcodes.
type NameService interface {
	Resolve(name string) (rvm.Address, bool, error)
	Register(name string, owner, target rvm.Address, identity string) error
	Update(name string, owner rvm.Address, newTarget *rvm.Address, records map[string]string) error
	Owner(name string) (rvm.Address, bool)
}

// TokenService is the ledger of the four-token economy.
type TokenService interface {
	Balance(addr rvm.Address, token gas.TokenType) uint64
	Transfer(from, to rvm.Address, token gas.TokenType, amount uint64) error
	Mint(to rvm.Address, token gas.TokenType, amount uint64) error
	Burn(from rvm.Address, token gas.TokenType, amount uint64) error
}

// Layer2Service backs the layer-2 opcodes.
type Layer2Service interface {
	Submit(payload []byte) rvm.Hash
	VerifyBatch(root, leaf rvm.Hash, proof []rvm.Hash, index uint64) bool
	StateSync() int
}

// BridgeService backs the cross-chain opcodes.
type BridgeService interface {
	Send(destChain uint64, payload []byte) uint64
	Receive(sourceChain, nonce uint64, payload []byte) error
}

// AgentService backs the agent opcodes.
type AgentService interface {
	Deploy(name string, code []byte) (string, error)
	Call(id string, input []byte) ([]byte, error)
	Query(id string) ([]byte, error)
}

// HostServices bundles the service endpoints the host opcodes dispatch to.
// A nil entry makes the corresponding opcodes fail with an internal error.
type HostServices struct {
	Identity IdentityService
	Names    NameService
	Tokens   TokenService
	L2       Layer2Service
	Bridge   BridgeService
	Agents   AgentService
}
