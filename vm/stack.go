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
	"fmt"
	"strings"
	"sync"

	"github.com/GhostKellz/rvm/rvm"
)

// stack is the fixed-capacity word stack used by the interpreter. Boundaries
// are not checked here; the interpreter validates the stack usage of every
// instruction against the static usage table before dispatching it.
//
// Stacks are reused through a pool to avoid repeated allocation. Obtain one
// with NewStack() and return it with ReturnStack(s). The stack itself is not
// thread-safe; NewStack() and ReturnStack() are.
type stack struct {
	data         [rvm.MaxStackSize]uint64
	stackPointer int
}

// push adds the given value to the top of the stack.
func (s *stack) push(value uint64) {
	s.data[s.stackPointer] = value
	s.stackPointer++
}

// pop removes and returns the top element of the stack.
func (s *stack) pop() uint64 {
	s.stackPointer--
	return s.data[s.stackPointer]
}

// peek returns the top element of the stack without removing it.
func (s *stack) peek() uint64 {
	return s.data[s.stackPointer-1]
}

// peekN returns the n-th element from the top of the stack without removing
// it. The top element is at index 0, so peekN(0) is equivalent to peek().
func (s *stack) peekN(n int) uint64 {
	return s.data[s.stackPointer-n-1]
}

// len returns the number of elements on the stack.
func (s *stack) len() int {
	return s.stackPointer
}

// swap exchanges the top element with the n-th element from the top. The top
// element is at index 0, so swap(0) is a no-op.
func (s *stack) swap(n int) {
	top := s.stackPointer - 1
	s.data[top-n], s.data[top] = s.data[top], s.data[top-n]
}

// dup duplicates the n-th element from the top and pushes it to the top of
// the stack. The top element is at index 0.
func (s *stack) dup(n int) {
	s.data[s.stackPointer] = s.data[s.stackPointer-n-1]
	s.stackPointer++
}

func (s *stack) String() string {
	b := strings.Builder{}
	for i := 0; i < s.len(); i++ {
		fmt.Fprintf(&b, "    [%4d] 0x%016x\n", s.len()-i-1, s.peekN(i))
	}
	return b.String()
}

// ------------------ Stack Pool ------------------

var stackPool = sync.Pool{
	New: func() any {
		return &stack{}
	},
}

// NewStack returns an empty stack instance from a reuse pool.
func NewStack() *stack {
	return stackPool.Get().(*stack)
}

// ReturnStack returns the stack to the reuse pool. Any stack may only be
// returned once to avoid concurrent re-use. This is not checked internally.
func ReturnStack(s *stack) {
	s.stackPointer = 0
	stackPool.Put(s)
}
