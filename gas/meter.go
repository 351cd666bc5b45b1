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
	"github.com/GhostKellz/rvm/rvm"
)

// Storage gas constants following EIP-2200.
const (
	SloadGas             rvm.Gas = 100
	SstoreSetGas         rvm.Gas = 20000 // write to a slot whose original value is zero
	SstoreResetGas       rvm.Gas = 5000  // first write to a non-zero slot
	SstoreClearsSchedule         = 15000 // refund for clearing a non-zero slot
)

// Meter tracks the gas consumed by a single execution against a fixed limit.
// The invariant used <= limit holds at all times; a consumption that would
// violate it fails without changing the meter.
type Meter struct {
	limit    rvm.Gas
	used     rvm.Gas
	refunded rvm.Gas
}

// NewMeter creates a gas meter with the given limit.
func NewMeter(limit rvm.Gas) *Meter {
	return &Meter{limit: limit}
}

// Consume charges the given amount of gas. If the charge would exceed the
// limit, an OutOfGasError is returned and the meter is left unchanged.
func (m *Meter) Consume(amount rvm.Gas) error {
	if m.used+amount > m.limit || m.used+amount < m.used {
		return &rvm.OutOfGasError{Needed: m.used + amount, Available: m.limit}
	}
	m.used += amount
	return nil
}

// Refund credits gas back for later settlement. The credit saturates and is
// capped at finalization, see FinalCost.
func (m *Meter) Refund(amount rvm.Gas) {
	if m.refunded+amount < m.refunded {
		m.refunded = ^rvm.Gas(0)
		return
	}
	m.refunded += amount
}

// SubRefund removes previously credited refund, saturating at zero.
func (m *Meter) SubRefund(amount rvm.Gas) {
	if amount > m.refunded {
		m.refunded = 0
		return
	}
	m.refunded -= amount
}

// Remaining returns the gas still available under the limit.
func (m *Meter) Remaining() rvm.Gas {
	return m.limit - m.used
}

// Used returns the gas consumed so far.
func (m *Meter) Used() rvm.Gas {
	return m.used
}

// Refunded returns the gas credited so far.
func (m *Meter) Refunded() rvm.Gas {
	return m.refunded
}

// Limit returns the gas limit of this meter.
func (m *Meter) Limit() rvm.Gas {
	return m.limit
}

// CanConsume reports whether the given amount fits under the limit.
func (m *Meter) CanConsume(amount rvm.Gas) bool {
	return m.used+amount >= m.used && m.used+amount <= m.limit
}

// FinalCost returns the gas to be billed after settlement. Following
// EIP-3529, refunds are capped at half of the gas consumed.
func (m *Meter) FinalCost() rvm.Gas {
	refund := m.refunded
	if max := m.used / 2; refund > max {
		refund = max
	}
	return m.used - refund
}

// Reset prepares the meter for a new execution with the given limit.
func (m *Meter) Reset(limit rvm.Gas) {
	m.limit = limit
	m.used = 0
	m.refunded = 0
}

// MemoryExpansionCost computes the charge for growing memory from
// currentSize to newSize bytes. Sizes are rounded up to 32-byte words; the
// cost of a memory of w words is 3*w + w*w/512. Shrinking is free.
func MemoryExpansionCost(currentSize, newSize uint64) rvm.Gas {
	if newSize <= currentSize {
		return 0
	}
	return wordCost(newSize) - wordCost(currentSize)
}

func wordCost(size uint64) rvm.Gas {
	words := rvm.SizeInWords(size)
	return 3*words + words*words/512
}

// CopyCost computes the charge for copying the given number of bytes.
func CopyCost(size uint64) rvm.Gas {
	return 3 * rvm.SizeInWords(size)
}

// Keccak256Cost computes the charge for hashing the given number of bytes.
func Keccak256Cost(size uint64) rvm.Gas {
	return 30 + 6*rvm.SizeInWords(size)
}

// LogCost computes the charge for a log with the given number of topics and
// payload bytes.
func LogCost(topics, dataSize uint64) rvm.Gas {
	return 375 + 375*topics + 8*dataSize
}

// SstoreCost computes the gas cost and the refund delta of a storage write,
// following EIP-2200:
//
//  1. If current value equals new value (this is a no-op), SLOAD_GAS is
//     deducted.
//  2. If current value does not equal new value:
//     2.1. If original value equals current value (this storage slot has not
//     been changed by the current execution context):
//     2.1.1. If original value is 0, SSTORE_SET_GAS is deducted.
//     2.1.2. Otherwise, SSTORE_RESET_GAS is deducted.
//     2.2. If original value does not equal current value (this storage slot
//     is dirty), SLOAD_GAS is deducted. Apply both of the following:
//     2.2.1. If original value is not 0: if current value is 0, subtract
//     SSTORE_CLEARS_SCHEDULE from the refund counter; if new value is 0, add
//     SSTORE_CLEARS_SCHEDULE to the refund counter.
//     2.2.2. If original value equals new value (this slot is reset): if
//     original value is 0, add SSTORE_SET_GAS - SLOAD_GAS to the refund
//     counter; otherwise add SSTORE_RESET_GAS - SLOAD_GAS.
//
// The refund delta may be negative when a previously granted clearing refund
// is taken back.
func SstoreCost(current, new, original uint64) (rvm.Gas, int64) {
	if new == current { // noop (1)
		return SloadGas, 0
	}
	if current == original {
		if original == 0 { // create slot (2.1.1)
			return SstoreSetGas, 0
		}
		return SstoreResetGas, 0 // write existing slot (2.1.2)
	}

	var refund int64
	if original != 0 {
		if current == 0 { // recreate slot (2.2.1)
			refund -= SstoreClearsSchedule
		}
		if new == 0 { // delete slot (2.2.1)
			refund += SstoreClearsSchedule
		}
	}
	if original == new {
		if original == 0 { // reset to original inexistent slot (2.2.2)
			refund += int64(SstoreSetGas - SloadGas)
		} else { // reset to original existing slot (2.2.2)
			refund += int64(SstoreResetGas - SloadGas)
		}
	}
	return SloadGas, refund // dirty update (2.2)
}
