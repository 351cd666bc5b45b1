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
	"errors"
	"testing"

	"github.com/GhostKellz/rvm/rvm"
)

func TestTokenBalances_AddAndSub(t *testing.T) {
	balances := TokenBalances{GCC: 1000, Spirit: 500, Mana: 200, Ghost: 100}

	if want, got := uint64(1000), balances.Balance(GCC); want != got {
		t.Errorf("expected GCC balance %d, got %d", want, got)
	}

	balances.Add(Mana, 50)
	if want, got := uint64(250), balances.Balance(Mana); want != got {
		t.Errorf("expected MANA balance %d, got %d", want, got)
	}

	if err := balances.Sub(Ghost, 50); err != nil {
		t.Fatalf("failed to subtract balance: %v", err)
	}
	if want, got := uint64(50), balances.Balance(Ghost); want != got {
		t.Errorf("expected GHOST balance %d, got %d", want, got)
	}

	err := balances.Sub(Ghost, 100)
	var insufficient *rvm.InsufficientTokenBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected an insufficient-token-balance error, got %v", err)
	}
	if want, got := uint64(50), balances.Balance(Ghost); want != got {
		t.Errorf("failed subtraction changed the balance: want %d, got %d", want, got)
	}
}

func TestTokenMeter_SpiritHoldersGetDiscountedBaseCost(t *testing.T) {
	config := DefaultConfig()
	balances := TokenBalances{GCC: 1 << 62, Spirit: 2000}
	meter := NewTokenMeter(100000, config, rvm.Address{1}, balances)

	payment := meter.CalculateCost(100, &ExecutionContext{})
	base := 100 * config.GCCGasPrice
	if want, got := base-base*config.SpiritDiscountPercent/100, payment.PrimaryAmount; want != got {
		t.Errorf("expected discounted amount %d, got %d", want, got)
	}
	if want, got := GCC, payment.PrimaryToken; want != got {
		t.Errorf("expected primary token %v, got %v", want, got)
	}
}

func TestTokenMeter_NoDiscountBelowThreshold(t *testing.T) {
	config := DefaultConfig()
	balances := TokenBalances{GCC: 1 << 62, Spirit: config.SpiritDiscountThreshold - 1}
	meter := NewTokenMeter(100000, config, rvm.Address{1}, balances)

	payment := meter.CalculateCost(100, &ExecutionContext{})
	if want, got := 100*config.GCCGasPrice, payment.PrimaryAmount; want != got {
		t.Errorf("expected undiscounted amount %d, got %d", want, got)
	}
}

func TestTokenMeter_DomainOperationsPayGhostPremium(t *testing.T) {
	config := DefaultConfig()
	balances := TokenBalances{GCC: 1 << 62}
	meter := NewTokenMeter(100000, config, rvm.Address{1}, balances)

	payment := meter.CalculateCost(100, &ExecutionContext{
		IsDomainOperation: true,
		DomainName:        "test.ghost",
	})
	premium, ok := payment.AdditionalPayments[Ghost]
	if !ok {
		t.Fatalf("expected a GHOST premium, got %v", payment.AdditionalPayments)
	}
	if want, got := payment.PrimaryAmount*(config.GhostPremiumPercent-100)/100, premium; want != got {
		t.Errorf("expected premium %d, got %d", want, got)
	}
}

func TestTokenMeter_AIOperationsEarnMana(t *testing.T) {
	config := DefaultConfig()
	balances := TokenBalances{GCC: 1 << 62}
	meter := NewTokenMeter(100000, config, rvm.Address{1}, balances)

	payment := meter.CalculateCost(100, &ExecutionContext{HasAIOperations: true})
	reward, ok := payment.AdditionalPayments[Mana]
	if !ok {
		t.Fatalf("expected a MANA reward, got %v", payment.AdditionalPayments)
	}
	if want, got := 100*config.ManaRewardPerMille/1000, reward; want != got {
		t.Errorf("expected reward %d, got %d", want, got)
	}
}

func TestTokenMeter_ConsumeWithTokensChecksLimitFirst(t *testing.T) {
	config := DefaultConfig()
	meter := NewTokenMeter(100, config, rvm.Address{1}, TokenBalances{GCC: 1 << 62})

	_, err := meter.ConsumeWithTokens(101, &ExecutionContext{})
	var outOfGas *rvm.OutOfGasError
	if !errors.As(err, &outOfGas) {
		t.Fatalf("expected an out-of-gas error, got %v", err)
	}
	if want, got := rvm.Gas(0), meter.Used(); want != got {
		t.Errorf("failed consumption changed the meter: want %d used, got %d", want, got)
	}
}

func TestTokenMeter_ConsumeWithTokensChecksGCCBalance(t *testing.T) {
	config := DefaultConfig()
	meter := NewTokenMeter(100000, config, rvm.Address{1}, TokenBalances{GCC: 10})

	_, err := meter.ConsumeWithTokens(100, &ExecutionContext{})
	var insufficient *rvm.InsufficientTokenBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected an insufficient-token-balance error, got %v", err)
	}
	if want, got := "GCC", insufficient.Token; want != got {
		t.Errorf("expected token %q, got %q", want, got)
	}
	if want, got := rvm.Gas(0), meter.Used(); want != got {
		t.Errorf("failed consumption changed the meter: want %d used, got %d", want, got)
	}
}

func TestTokenMeter_ConsumeWithTokensUpdatesCounters(t *testing.T) {
	config := DefaultConfig()
	balances := TokenBalances{GCC: 1 << 62, Spirit: 2000}
	meter := NewTokenMeter(100000, config, rvm.Address{1}, balances)

	ctx := &ExecutionContext{IsDomainOperation: true, HasAIOperations: true}
	payment, err := meter.ConsumeWithTokens(100, ctx)
	if err != nil {
		t.Fatalf("failed to consume gas: %v", err)
	}

	if want, got := rvm.Gas(100), meter.Used(); want != got {
		t.Errorf("expected %d gas used, got %d", want, got)
	}
	breakdown := meter.Breakdown()
	if want, got := payment.PrimaryAmount, breakdown[GCC]; want != got {
		t.Errorf("expected GCC cost %d, got %d", want, got)
	}
	if meter.SpiritDiscount() == 0 {
		t.Errorf("expected a tracked SPIRIT discount")
	}
	if meter.GhostPremium() == 0 {
		t.Errorf("expected a tracked GHOST premium")
	}
	if meter.ManaRewards() == 0 {
		t.Errorf("expected tracked MANA rewards")
	}
}

func TestTokenMeter_DiscountNeverExceedsConfiguredShare(t *testing.T) {
	config := DefaultConfig()
	balances := TokenBalances{GCC: 1 << 62, Spirit: config.SpiritDiscountThreshold}
	meter := NewTokenMeter(1<<40, config, rvm.Address{1}, balances)

	for _, gasUnits := range []uint64{1, 7, 100, 999, 12345} {
		payment := meter.CalculateCost(gasUnits, &ExecutionContext{})
		bound := gasUnits * config.GCCGasPrice * (100 - config.SpiritDiscountPercent) / 100
		if payment.PrimaryAmount < bound {
			t.Errorf("discount for %d gas exceeds the configured share: %d < %d",
				gasUnits, payment.PrimaryAmount, bound)
		}
	}
}
