// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package services

import (
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

// TokenLedger keeps the per-address balances of the four-token economy.
type TokenLedger struct {
	balances map[rvm.Address]gas.TokenBalances
}

// NewTokenLedger creates an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: map[rvm.Address]gas.TokenBalances{}}
}

// Balance returns the holder's balance of the given token.
func (l *TokenLedger) Balance(addr rvm.Address, token gas.TokenType) uint64 {
	balances := l.balances[addr]
	return balances.Balance(token)
}

// Balances returns all token balances of the holder.
func (l *TokenLedger) Balances(addr rvm.Address) gas.TokenBalances {
	return l.balances[addr]
}

// SetBalance sets the holder's balance of the given token.
func (l *TokenLedger) SetBalance(addr rvm.Address, token gas.TokenType, amount uint64) {
	balances := l.balances[addr]
	balances.SetBalance(token, amount)
	l.balances[addr] = balances
}

// Transfer moves tokens between holders. It fails without mutation if the
// sender's balance is insufficient.
func (l *TokenLedger) Transfer(from, to rvm.Address, token gas.TokenType, amount uint64) error {
	fromBalances := l.balances[from]
	if err := fromBalances.Sub(token, amount); err != nil {
		return err
	}
	l.balances[from] = fromBalances

	toBalances := l.balances[to]
	toBalances.Add(token, amount)
	l.balances[to] = toBalances
	return nil
}

// Mint creates new tokens on the recipient's balance.
func (l *TokenLedger) Mint(to rvm.Address, token gas.TokenType, amount uint64) error {
	balances := l.balances[to]
	balances.Add(token, amount)
	l.balances[to] = balances
	return nil
}

// Burn destroys tokens from the holder's balance. It fails without mutation
// if the balance is insufficient.
func (l *TokenLedger) Burn(from rvm.Address, token gas.TokenType, amount uint64) error {
	balances := l.balances[from]
	if err := balances.Sub(token, amount); err != nil {
		return err
	}
	l.balances[from] = balances
	return nil
}
