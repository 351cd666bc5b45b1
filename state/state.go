// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"golang.org/x/exp/maps"

	"github.com/GhostKellz/rvm/rvm"
)

// State is the in-memory world state: per-address storage slots, balances,
// nonces and contract records. Writes since the last Commit or Revert are
// tracked against their original values, allowing a transaction to be rolled
// back slot by slot; full Snapshots capture the entire component state.
//
// State is not safe for concurrent use; callers serialize access through a
// single exclusion point.
type State struct {
	storage   map[rvm.Address]map[uint64]uint64
	contracts map[rvm.Address]rvm.Contract
	balances  map[rvm.Address]uint64
	nonces    map[rvm.Address]uint64
	original  map[slot]uint64
}

type slot struct {
	addr rvm.Address
	key  uint64
}

// StorageChange describes one storage slot modified since the last commit.
type StorageChange struct {
	Address       rvm.Address
	Key           uint64
	PreviousValue uint64
	NewValue      uint64
}

// Snapshot is a captured copy of the entire state. Snapshots are independent
// values; mutating the live state does not affect a snapshot taken earlier.
type Snapshot struct {
	storage   map[rvm.Address]map[uint64]uint64
	contracts map[rvm.Address]rvm.Contract
	balances  map[rvm.Address]uint64
	nonces    map[rvm.Address]uint64
	original  map[slot]uint64
}

// New creates an empty state.
func New() *State {
	return &State{
		storage:   map[rvm.Address]map[uint64]uint64{},
		contracts: map[rvm.Address]rvm.Contract{},
		balances:  map[rvm.Address]uint64{},
		nonces:    map[rvm.Address]uint64{},
		original:  map[slot]uint64{},
	}
}

// Get returns the value of the given storage slot, zero if never written.
func (s *State) Get(addr rvm.Address, key uint64) uint64 {
	return s.storage[addr][key]
}

// Set writes the given storage slot. The first write to a slot since the
// last Commit or Revert captures the slot's current value as its original;
// later writes leave the capture untouched.
func (s *State) Set(addr rvm.Address, key uint64, value uint64) {
	id := slot{addr, key}
	if _, tracked := s.original[id]; !tracked {
		s.original[id] = s.Get(addr, key)
	}
	store, ok := s.storage[addr]
	if !ok {
		store = map[uint64]uint64{}
		s.storage[addr] = store
	}
	store[key] = value
}

// OriginalValue returns the value the given slot had at the last Commit or
// Revert. Slots not written since then report their current value.
func (s *State) OriginalValue(addr rvm.Address, key uint64) uint64 {
	if value, tracked := s.original[slot{addr, key}]; tracked {
		return value
	}
	return s.Get(addr, key)
}

// GetContract returns the contract record of the given address.
func (s *State) GetContract(addr rvm.Address) (rvm.Contract, bool) {
	contract, ok := s.contracts[addr]
	return contract, ok
}

// SetContract stores a contract record under its address.
func (s *State) SetContract(addr rvm.Address, contract rvm.Contract) {
	s.contracts[addr] = contract
}

// GetBalance returns the balance of the given address, zero if unknown.
func (s *State) GetBalance(addr rvm.Address) uint64 {
	return s.balances[addr]
}

// SetBalance sets the balance of the given address.
func (s *State) SetBalance(addr rvm.Address, balance uint64) {
	s.balances[addr] = balance
}

// Transfer moves the given amount between two accounts. It fails without
// mutation if the sender's balance is insufficient.
func (s *State) Transfer(from, to rvm.Address, amount uint64) error {
	fromBalance := s.GetBalance(from)
	if fromBalance < amount {
		return &rvm.InsufficientBalanceError{Available: fromBalance, Required: amount}
	}
	s.SetBalance(from, fromBalance-amount)
	s.SetBalance(to, s.GetBalance(to)+amount)
	return nil
}

// GetNonce returns the nonce of the given address, zero if unknown.
func (s *State) GetNonce(addr rvm.Address) uint64 {
	return s.nonces[addr]
}

// SetNonce sets the nonce of the given address.
func (s *State) SetNonce(addr rvm.Address, nonce uint64) {
	s.nonces[addr] = nonce
}

// IncrementNonce advances the nonce of the given address by one.
func (s *State) IncrementNonce(addr rvm.Address) {
	s.nonces[addr] = s.nonces[addr] + 1
}

// GetAccount materializes the account view of the given address. Unknown
// addresses read as the zero account.
func (s *State) GetAccount(addr rvm.Address) rvm.Account {
	account := rvm.Account{
		Balance: s.GetBalance(addr),
		Nonce:   s.GetNonce(addr),
	}
	if _, ok := s.contracts[addr]; ok {
		account.CodeHash = &rvm.Hash{}
	}
	return account
}

// AccountExists reports whether the address has a balance entry, a contract
// record, or a non-zero nonce.
func (s *State) AccountExists(addr rvm.Address) bool {
	if _, ok := s.balances[addr]; ok {
		return true
	}
	if _, ok := s.contracts[addr]; ok {
		return true
	}
	return s.nonces[addr] > 0
}

// CreateAccount registers an account with the given starting balance and a
// zero nonce.
func (s *State) CreateAccount(addr rvm.Address, balance uint64) {
	s.SetBalance(addr, balance)
	s.SetNonce(addr, 0)
}

// DeleteAccount removes every trace of the given address: balance, nonce,
// contract record and storage.
func (s *State) DeleteAccount(addr rvm.Address) {
	delete(s.balances, addr)
	delete(s.nonces, addr)
	delete(s.contracts, addr)
	delete(s.storage, addr)
}

// StorageChanges lists the slots of the given address whose current value
// differs from their original value.
func (s *State) StorageChanges(addr rvm.Address) []StorageChange {
	var changes []StorageChange
	for key, value := range s.storage[addr] {
		original := s.OriginalValue(addr, key)
		if original != value {
			changes = append(changes, StorageChange{
				Address:       addr,
				Key:           key,
				PreviousValue: original,
				NewValue:      value,
			})
		}
	}
	return changes
}

// Commit finalizes the writes since the last Commit or Revert by clearing
// the original-value tracking.
func (s *State) Commit() {
	s.original = map[slot]uint64{}
}

// Revert undoes every storage write since the last Commit or Revert,
// restoring each tracked slot to its original value and deleting slots whose
// original value was zero.
func (s *State) Revert() {
	for id, original := range s.original {
		if original == 0 {
			if store, ok := s.storage[id.addr]; ok {
				delete(store, id.key)
			}
			continue
		}
		store, ok := s.storage[id.addr]
		if !ok {
			store = map[uint64]uint64{}
			s.storage[id.addr] = store
		}
		store[id.key] = original
	}
	s.original = map[slot]uint64{}
}

// CreateSnapshot captures a deep copy of the entire state.
func (s *State) CreateSnapshot() Snapshot {
	storage := make(map[rvm.Address]map[uint64]uint64, len(s.storage))
	for addr, store := range s.storage {
		storage[addr] = maps.Clone(store)
	}
	contracts := make(map[rvm.Address]rvm.Contract, len(s.contracts))
	for addr, contract := range s.contracts {
		contract.Storage = maps.Clone(contract.Storage)
		contracts[addr] = contract
	}
	return Snapshot{
		storage:   storage,
		contracts: contracts,
		balances:  maps.Clone(s.balances),
		nonces:    maps.Clone(s.nonces),
		original:  maps.Clone(s.original),
	}
}

// RestoreSnapshot overwrites the live state with the given snapshot. The
// snapshot remains valid and can be restored again.
func (s *State) RestoreSnapshot(snapshot Snapshot) {
	storage := make(map[rvm.Address]map[uint64]uint64, len(snapshot.storage))
	for addr, store := range snapshot.storage {
		storage[addr] = maps.Clone(store)
	}
	contracts := make(map[rvm.Address]rvm.Contract, len(snapshot.contracts))
	for addr, contract := range snapshot.contracts {
		contract.Storage = maps.Clone(contract.Storage)
		contracts[addr] = contract
	}
	s.storage = storage
	s.contracts = contracts
	s.balances = maps.Clone(snapshot.balances)
	s.nonces = maps.Clone(snapshot.nonces)
	s.original = maps.Clone(snapshot.original)
}
