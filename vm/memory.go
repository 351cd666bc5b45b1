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

	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

// maxMemoryExpansionSize bounds how far a single access may grow the memory.
const maxMemoryExpansionSize = 0x1FFFFFFFE0

// Memory is the byte-addressed scratch memory of one execution. Growing it
// is charged through the gas meter; reads within the current size are free.
type Memory struct {
	store []byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// expansionCosts returns the fee for growing the memory to hold size bytes.
func (m *Memory) expansionCosts(size uint64) rvm.Gas {
	if m.length() >= size {
		return 0
	}
	return gas.MemoryExpansionCost(m.length(), size)
}

// expand grows the memory to cover [offset, offset+size), charging the
// expansion fee against the given meter. A zero size never expands.
func (m *Memory) expand(offset, size uint64, meter *gas.Meter) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset {
		return &rvm.MemoryOutOfBoundsError{Offset: offset, Size: size, MemorySize: m.length()}
	}
	if needed > maxMemoryExpansionSize {
		return &rvm.MemoryOutOfBoundsError{Offset: offset, Size: size, MemorySize: m.length()}
	}
	if m.length() < needed {
		if err := meter.Consume(m.expansionCosts(needed)); err != nil {
			return err
		}
		rounded := rvm.SizeInWords(needed) * 32
		m.store = append(m.store, make([]byte, rounded-m.length())...)
	}
	return nil
}

// set writes the given bytes at the given offset, expanding the memory as
// needed and charging for it.
func (m *Memory) set(offset uint64, value []byte, meter *gas.Meter) error {
	if err := m.expand(offset, uint64(len(value)), meter); err != nil {
		return err
	}
	copy(m.store[offset:], value)
	return nil
}

// setByte writes a single byte, expanding the memory as needed.
func (m *Memory) setByte(offset uint64, value byte, meter *gas.Meter) error {
	return m.set(offset, []byte{value}, meter)
}

// setWord writes a machine word as a 32-byte big-endian slot, expanding the
// memory as needed.
func (m *Memory) setWord(offset uint64, value uint64, meter *gas.Meter) error {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], value)
	return m.set(offset, word[:], meter)
}

// getWord reads the machine word stored in the 32-byte big-endian slot at
// the given offset, expanding the memory as needed.
func (m *Memory) getWord(offset uint64, meter *gas.Meter) (uint64, error) {
	if err := m.expand(offset, 32, meter); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(m.store[offset+24 : offset+32]), nil
}

// read returns a copy of [offset, offset+size) without expanding the memory.
// Accesses beyond the current size fail.
func (m *Memory) read(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	end := offset + size
	if end < offset || end > m.length() {
		return nil, &rvm.MemoryOutOfBoundsError{Offset: offset, Size: size, MemorySize: m.length()}
	}
	data := make([]byte, size)
	copy(data, m.store[offset:end])
	return data, nil
}

// slice returns a view of [offset, offset+size), expanding the memory as
// needed and charging for it. The view is only valid until the next
// expansion.
func (m *Memory) slice(offset, size uint64, meter *gas.Meter) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if err := m.expand(offset, size, meter); err != nil {
		return nil, err
	}
	return m.store[offset : offset+size], nil
}

// reset discards all content.
func (m *Memory) reset() {
	m.store = m.store[:0]
}
