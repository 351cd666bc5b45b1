// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gas

import (
	"fmt"

	"github.com/GhostKellz/rvm/rvm"
)

// TokenType enumerates the tokens of the four-token economy.
type TokenType int

const (
	// GCC is the base gas and transaction-fee currency.
	GCC TokenType = iota
	// Spirit grants gas discounts to holders above a threshold.
	Spirit
	// Mana is earned on AI-tagged operations.
	Mana
	// Ghost surcharges identity and domain operations.
	Ghost
)

func (t TokenType) String() string {
	switch t {
	case GCC:
		return "GCC"
	case Spirit:
		return "SPIRIT"
	case Mana:
		return "MANA"
	case Ghost:
		return "GHOST"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Config parameterizes the four-token gas pricing.
type Config struct {
	// GCCGasPrice is the base price of one gas unit in GCC.
	GCCGasPrice uint64
	// SpiritDiscountPercent is the discount granted to SPIRIT holders, in
	// percent of the base cost.
	SpiritDiscountPercent uint64
	// SpiritDiscountThreshold is the minimum SPIRIT balance required for the
	// discount.
	SpiritDiscountThreshold uint64
	// ManaRewardPerMille is the MANA earned per 1000 gas units on executions
	// tagged as AI operations.
	ManaRewardPerMille uint64
	// GhostPremiumPercent is the total price of domain operations in percent
	// of the discounted cost; values above 100 surcharge GHOST.
	GhostPremiumPercent uint64
	// TokenOperationCosts fixes the gas cost of token-specific operations.
	TokenOperationCosts map[TokenType]uint64
}

// DefaultConfig returns the canonical pricing of the four-token economy.
func DefaultConfig() Config {
	return Config{
		GCCGasPrice:             1_000_000_000,
		SpiritDiscountPercent:   10,
		SpiritDiscountThreshold: 1000,
		ManaRewardPerMille:      100,
		GhostPremiumPercent:     150,
		TokenOperationCosts: map[TokenType]uint64{
			GCC:    1000,
			Spirit: 5000,
			Mana:   2000,
			Ghost:  10000,
		},
	}
}

// TokenBalances holds the per-token balances of a single address.
type TokenBalances struct {
	GCC    uint64
	Spirit uint64
	Mana   uint64
	Ghost  uint64
}

// Balance returns the balance of the given token.
func (b *TokenBalances) Balance(token TokenType) uint64 {
	switch token {
	case GCC:
		return b.GCC
	case Spirit:
		return b.Spirit
	case Mana:
		return b.Mana
	case Ghost:
		return b.Ghost
	}
	return 0
}

// SetBalance sets the balance of the given token.
func (b *TokenBalances) SetBalance(token TokenType, amount uint64) {
	switch token {
	case GCC:
		b.GCC = amount
	case Spirit:
		b.Spirit = amount
	case Mana:
		b.Mana = amount
	case Ghost:
		b.Ghost = amount
	}
}

// Add credits the given token balance.
func (b *TokenBalances) Add(token TokenType, amount uint64) {
	b.SetBalance(token, b.Balance(token)+amount)
}

// Sub debits the given token balance, failing without mutation if the
// balance is insufficient.
func (b *TokenBalances) Sub(token TokenType, amount uint64) error {
	current := b.Balance(token)
	if current < amount {
		return &rvm.InsufficientTokenBalanceError{
			Token:     token.String(),
			Required:  amount,
			Available: current,
		}
	}
	b.SetBalance(token, current-amount)
	return nil
}

// Payment describes how a gas charge is settled across tokens.
type Payment struct {
	// PrimaryToken is the token the base cost is paid in; always GCC.
	PrimaryToken TokenType
	// PrimaryAmount is the discounted base cost in the primary token.
	PrimaryAmount uint64
	// AdditionalPayments carries surcharges (GHOST) and earnings (MANA).
	AdditionalPayments map[TokenType]uint64
	// GasUnits is the amount of gas purchased by this payment.
	GasUnits uint64
}

// ExecutionContext carries the properties of an execution that influence its
// token pricing.
type ExecutionContext struct {
	Executor          rvm.Address
	ContractAddress   *rvm.Address
	IsDomainOperation bool
	DomainName        string
	HasAIOperations   bool
}

// TokenMeter extends the plain gas meter with four-token pricing: GCC pays
// the base cost, SPIRIT holdings above a threshold grant a discount, domain
// operations surcharge GHOST, and AI operations earn MANA.
type TokenMeter struct {
	meter    Meter
	config   Config
	executor rvm.Address
	balances TokenBalances

	manaRewardsEarned     uint64
	gccGasCost            uint64
	spiritDiscountApplied uint64
	ghostPremiumPaid      uint64
}

// NewTokenMeter creates a four-token gas meter for the given executor.
func NewTokenMeter(limit rvm.Gas, config Config, executor rvm.Address, balances TokenBalances) *TokenMeter {
	return &TokenMeter{
		meter:    Meter{limit: limit},
		config:   config,
		executor: executor,
		balances: balances,
	}
}

// CalculateCost prices the given amount of gas under the meter's
// configuration and context without consuming anything.
func (m *TokenMeter) CalculateCost(baseGas uint64, ctx *ExecutionContext) Payment {
	baseCost := baseGas * m.config.GCCGasPrice
	payment := Payment{
		PrimaryToken:       GCC,
		PrimaryAmount:      baseCost,
		AdditionalPayments: map[TokenType]uint64{},
		GasUnits:           baseGas,
	}

	if m.balances.Spirit >= m.config.SpiritDiscountThreshold {
		discount := baseCost * m.config.SpiritDiscountPercent / 100
		payment.PrimaryAmount = baseCost - discount
	}

	if ctx.IsDomainOperation && m.config.GhostPremiumPercent > 100 {
		premium := payment.PrimaryAmount * (m.config.GhostPremiumPercent - 100) / 100
		payment.AdditionalPayments[Ghost] = premium
	}

	if ctx.HasAIOperations {
		reward := baseGas * m.config.ManaRewardPerMille / 1000
		payment.AdditionalPayments[Mana] = reward
	}

	return payment
}

// ConsumeWithTokens charges the given amount of gas, settling it across
// tokens. The gas-limit invariant is checked first, then the executor's GCC
// balance against the priced payment; on success the running per-token
// counters are updated and the payment is returned.
func (m *TokenMeter) ConsumeWithTokens(amount uint64, ctx *ExecutionContext) (Payment, error) {
	if !m.meter.CanConsume(amount) {
		return Payment{}, &rvm.OutOfGasError{
			Needed:    m.meter.used + amount,
			Available: m.meter.limit,
		}
	}

	payment := m.CalculateCost(amount, ctx)
	if payment.PrimaryAmount > m.balances.GCC {
		return Payment{}, &rvm.InsufficientTokenBalanceError{
			Token:     GCC.String(),
			Required:  payment.PrimaryAmount,
			Available: m.balances.GCC,
		}
	}

	m.meter.used += amount
	m.gccGasCost += payment.PrimaryAmount

	if m.balances.Spirit >= m.config.SpiritDiscountThreshold {
		baseCost := amount * m.config.GCCGasPrice
		m.spiritDiscountApplied += baseCost - payment.PrimaryAmount
	}
	if premium, ok := payment.AdditionalPayments[Ghost]; ok {
		m.ghostPremiumPaid += premium
	}
	if reward, ok := payment.AdditionalPayments[Mana]; ok {
		m.manaRewardsEarned += reward
	}

	return payment, nil
}

// Consume charges gas with default context properties.
func (m *TokenMeter) Consume(amount rvm.Gas) error {
	_, err := m.ConsumeWithTokens(amount, &ExecutionContext{Executor: m.executor})
	return err
}

// MintManaRewards credits MANA for the given amount of executed gas and
// returns the minted amount.
func (m *TokenMeter) MintManaRewards(gasUsed uint64) uint64 {
	reward := gasUsed * m.config.ManaRewardPerMille / 1000
	m.manaRewardsEarned += reward
	return reward
}

// TokenOperationCost returns the fixed gas cost of operations on the given
// token.
func (m *TokenMeter) TokenOperationCost(token TokenType) uint64 {
	if cost, ok := m.config.TokenOperationCosts[token]; ok {
		return cost
	}
	return 1000
}

// Breakdown returns the per-token totals accumulated during execution.
// Tokens with a zero total are omitted, except for GCC which is always
// reported.
func (m *TokenMeter) Breakdown() map[TokenType]uint64 {
	breakdown := map[TokenType]uint64{GCC: m.gccGasCost}
	if m.spiritDiscountApplied > 0 {
		breakdown[Spirit] = m.spiritDiscountApplied
	}
	if m.ghostPremiumPaid > 0 {
		breakdown[Ghost] = m.ghostPremiumPaid
	}
	if m.manaRewardsEarned > 0 {
		breakdown[Mana] = m.manaRewardsEarned
	}
	return breakdown
}

// Remaining returns the gas still available under the limit.
func (m *TokenMeter) Remaining() rvm.Gas { return m.meter.Remaining() }

// Used returns the gas consumed so far.
func (m *TokenMeter) Used() rvm.Gas { return m.meter.Used() }

// Limit returns the gas limit of this meter.
func (m *TokenMeter) Limit() rvm.Gas { return m.meter.Limit() }

// Refund credits gas back for later settlement.
func (m *TokenMeter) Refund(amount rvm.Gas) { m.meter.Refund(amount) }

// Refunded returns the gas credited so far.
func (m *TokenMeter) Refunded() rvm.Gas { return m.meter.Refunded() }

// CanConsume reports whether the given amount fits under the limit.
func (m *TokenMeter) CanConsume(amount rvm.Gas) bool { return m.meter.CanConsume(amount) }

// FinalCost returns the gas to be billed after settlement.
func (m *TokenMeter) FinalCost() rvm.Gas { return m.meter.FinalCost() }

// ManaRewards returns the MANA earned during execution.
func (m *TokenMeter) ManaRewards() uint64 { return m.manaRewardsEarned }

// SpiritDiscount returns the total SPIRIT discount applied.
func (m *TokenMeter) SpiritDiscount() uint64 { return m.spiritDiscountApplied }

// GhostPremium returns the total GHOST premium paid.
func (m *TokenMeter) GhostPremium() uint64 { return m.ghostPremiumPaid }

// ExecutorBalances returns the token balances the meter prices against.
func (m *TokenMeter) ExecutorBalances() TokenBalances { return m.balances }
