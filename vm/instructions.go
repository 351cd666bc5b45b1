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

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

func (c *Core) opPush(n int) {
	start := c.pc + 1
	if start+uint64(n) > uint64(len(c.code)) {
		c.fail(rvm.InvalidBytecodeError("push operand truncated"))
		return
	}
	// Operands are big-endian; pushes wider than the machine word keep the
	// leading 8 operand bytes.
	var value uint64
	for i := 0; i < n && i < 8; i++ {
		value = value<<8 | uint64(c.code[start+uint64(i)])
	}
	c.stack.push(value)
	c.pc += 1 + uint64(n)
}

func (c *Core) opPushValue(value uint64) {
	c.stack.push(value)
	c.pc++
}

// opConsumeOperands pops and discards the given number of operands. Used by
// instructions whose arity is declared but whose effect is not performed.
func (c *Core) opConsumeOperands(n int) {
	for i := 0; i < n; i++ {
		c.stack.pop()
	}
	c.pc++
}

func (c *Core) opUnary(f func(uint64) uint64) {
	a := c.stack.pop()
	c.stack.push(f(a))
	c.pc++
}

func (c *Core) opBinary(f func(a, b uint64) uint64) {
	b := c.stack.pop()
	a := c.stack.pop()
	c.stack.push(f(a, b))
	c.pc++
}

func (c *Core) opTernary(f func(a, b, x uint64) uint64) {
	x := c.stack.pop()
	b := c.stack.pop()
	a := c.stack.pop()
	c.stack.push(f(a, b, x))
	c.pc++
}

func (c *Core) opKeccak256() {
	offset := c.stack.pop()
	size := c.stack.pop()
	if !c.useGas(6 * rvm.SizeInWords(size)) {
		return
	}
	data, err := c.memory.slice(offset, size, c.meter)
	if err != nil {
		c.fail(err)
		return
	}
	var hash rvm.Hash
	if c.hashes != nil {
		hash = c.hashes.Hash(data)
	} else {
		hash = crypto.Keccak256(data)
	}
	c.stack.push(binary.BigEndian.Uint64(hash[:8]))
	c.pc++
}

func (c *Core) opBalance() {
	addr := addressFromWord(c.stack.pop())
	c.stack.push(c.state.GetBalance(addr))
	c.pc++
}

func (c *Core) opCallDataLoad() {
	offset := c.stack.pop()
	var word [8]byte
	for i := uint64(0); i < 8; i++ {
		if offset+i < uint64(len(c.input)) {
			word[i] = c.input[offset+i]
		}
	}
	c.stack.push(binary.BigEndian.Uint64(word[:]))
	c.pc++
}

// opCopy implements the copy instructions over the given source: the
// destination memory offset, the source offset and the size are popped, and
// the source range is copied into memory, zero padded past its end.
func (c *Core) opCopy(src []byte) {
	destOffset := c.stack.pop()
	offset := c.stack.pop()
	size := c.stack.pop()

	if !c.useGas(gas.CopyCost(size)) {
		return
	}
	trg, err := c.memory.slice(destOffset, size, c.meter)
	if err != nil {
		c.fail(err)
		return
	}
	for i := range trg {
		trg[i] = 0
	}
	if offset < uint64(len(src)) {
		copy(trg, src[offset:])
	}
	c.pc++
}

func (c *Core) opBlockHash() {
	number := c.stack.pop()
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], number)
	c.stack.push(crypto.Keccak256Uint64(data[:]))
	c.pc++
}

func (c *Core) opMload() {
	offset := c.stack.pop()
	value, err := c.memory.getWord(offset, c.meter)
	if err != nil {
		c.fail(err)
		return
	}
	c.stack.push(value)
	c.pc++
}

func (c *Core) opMstore() {
	offset := c.stack.pop()
	value := c.stack.pop()
	if err := c.memory.setWord(offset, value, c.meter); err != nil {
		c.fail(err)
		return
	}
	c.pc++
}

func (c *Core) opMstore8() {
	offset := c.stack.pop()
	value := c.stack.pop()
	if err := c.memory.setByte(offset, byte(value), c.meter); err != nil {
		c.fail(err)
		return
	}
	c.pc++
}

func (c *Core) opSload() {
	key := c.stack.pop()
	c.stack.push(c.state.Get(c.env.ContractAddress, key))
	c.pc++
}

func (c *Core) opSstore() {
	key := c.stack.pop()
	value := c.stack.pop()

	current := c.state.Get(c.env.ContractAddress, key)
	original := c.state.OriginalValue(c.env.ContractAddress, key)
	cost, refund := gas.SstoreCost(current, value, original)
	if !c.useGas(cost) {
		return
	}
	if refund > 0 {
		c.meter.Refund(rvm.Gas(refund))
	} else if refund < 0 {
		c.meter.SubRefund(rvm.Gas(-refund))
	}

	c.state.Set(c.env.ContractAddress, key, value)
	c.pc++
}

func (c *Core) opJump() {
	dest := c.stack.pop()
	if dest >= uint64(len(c.code)) {
		c.fail(rvm.InvalidJumpError(dest))
		return
	}
	c.pc = dest
}

func (c *Core) opJumpi() {
	dest := c.stack.pop()
	condition := c.stack.pop()
	if condition == 0 {
		c.pc++
		return
	}
	if dest >= uint64(len(c.code)) {
		c.fail(rvm.InvalidJumpError(dest))
		return
	}
	c.pc = dest
}

func (c *Core) opLog(topicCount int) {
	offset := c.stack.pop()
	size := c.stack.pop()
	topics := make([]rvm.Hash, topicCount)
	for i := 0; i < topicCount; i++ {
		var topic rvm.Hash
		binary.BigEndian.PutUint64(topic[24:], c.stack.pop())
		topics[i] = topic
	}

	// The static price covers the per-log and per-topic parts; the data is
	// charged here.
	if !c.useGas(8 * size) {
		return
	}
	data, err := c.memory.slice(offset, size, c.meter)
	if err != nil {
		c.fail(err)
		return
	}
	payload := make([]byte, len(data))
	copy(payload, data)

	c.logs = append(c.logs, rvm.Log{
		Address: c.env.ContractAddress,
		Topics:  topics,
		Data:    payload,
	})
	c.pc++
}

func (c *Core) opReturn(exit status) {
	offset := c.stack.pop()
	size := c.stack.pop()
	data, err := c.memory.slice(offset, size, c.meter)
	if err != nil {
		c.fail(err)
		return
	}
	c.returnData = make([]byte, len(data))
	copy(c.returnData, data)
	c.status = exit
}

func (c *Core) opSelfDestruct() {
	beneficiary := addressFromWord(c.stack.pop())
	balance := c.state.GetBalance(c.env.ContractAddress)
	if beneficiary != c.env.ContractAddress {
		c.state.SetBalance(beneficiary, c.state.GetBalance(beneficiary)+balance)
	}
	c.state.DeleteAccount(c.env.ContractAddress)
	c.status = statusSelfDestructed
}
