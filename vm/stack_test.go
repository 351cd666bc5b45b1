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
	"testing"

	"github.com/GhostKellz/rvm/rvm"
)

func TestStack_ZeroStackIsEmpty(t *testing.T) {
	var s stack
	if want, got := 0, s.len(); want != got {
		t.Errorf("expected an empty stack, got %d elements", got)
	}
}

func TestStack_PushAndPopCanUseFullCapacity(t *testing.T) {
	var s stack
	for i := 0; i < rvm.MaxStackSize; i++ {
		s.push(uint64(i))
	}
	if want, got := rvm.MaxStackSize, s.len(); want != got {
		t.Fatalf("expected %d elements, got %d", want, got)
	}
	for i := rvm.MaxStackSize - 1; i >= 0; i-- {
		if want, got := uint64(i), s.pop(); want != got {
			t.Fatalf("expected popped value %d, got %d", want, got)
		}
	}
}

func TestStack_SwapExchangesTopWithSelectedElement(t *testing.T) {
	// n => expected order after swap(n), top first
	tests := map[int][]uint64{
		1: {2, 3, 1, 0},
		2: {1, 2, 3, 0},
		3: {0, 2, 1, 3},
	}
	for n, want := range tests {
		var s stack
		for i := 0; i < 4; i++ {
			s.push(uint64(i))
		}
		s.swap(n)
		for i, value := range want {
			if got := s.peekN(i); value != got {
				t.Errorf("swap(%d): expected element %d to be %d, got %d", n, i, value, got)
			}
		}
	}
}

func TestStack_DupCopiesSelectedElement(t *testing.T) {
	var s stack
	s.push(10)
	s.push(20)
	s.dup(1)
	if want, got := uint64(10), s.peek(); want != got {
		t.Errorf("expected duplicated value %d, got %d", want, got)
	}
	if want, got := 3, s.len(); want != got {
		t.Errorf("expected %d elements, got %d", want, got)
	}
}

func TestStack_PoolReturnsEmptyStacks(t *testing.T) {
	s := NewStack()
	s.push(42)
	ReturnStack(s)

	s = NewStack()
	defer ReturnStack(s)
	if want, got := 0, s.len(); want != got {
		t.Errorf("expected a pooled stack to be empty, got %d elements", got)
	}
}
