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
	"errors"
	"testing"

	"github.com/GhostKellz/rvm/rvm"
)

func TestState_UnwrittenSlotsReadAsZero(t *testing.T) {
	st := New()
	if want, got := uint64(0), st.Get(rvm.Address{1}, 1); want != got {
		t.Errorf("expected value %d, got %d", want, got)
	}
}

func TestState_SetAndGetRoundTrip(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.Set(addr, 1, 42)
	if want, got := uint64(42), st.Get(addr, 1); want != got {
		t.Errorf("expected value %d, got %d", want, got)
	}
}

func TestState_FirstWriteCapturesOriginalValue(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.Set(addr, 1, 10)
	st.Commit()

	st.Set(addr, 1, 20)
	st.Set(addr, 1, 30)
	if want, got := uint64(10), st.OriginalValue(addr, 1); want != got {
		t.Errorf("expected original value %d, got %d", want, got)
	}
	if want, got := uint64(30), st.Get(addr, 1); want != got {
		t.Errorf("expected current value %d, got %d", want, got)
	}
}

func TestState_RevertUndoesWritesSinceLastCommit(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.Set(addr, 1, 10)
	st.Set(addr, 2, 20)
	st.Commit()

	st.Set(addr, 1, 100)
	st.Set(addr, 2, 0)
	st.Set(addr, 3, 300)
	st.Revert()

	if want, got := uint64(10), st.Get(addr, 1); want != got {
		t.Errorf("expected restored value %d, got %d", want, got)
	}
	if want, got := uint64(20), st.Get(addr, 2); want != got {
		t.Errorf("expected restored value %d, got %d", want, got)
	}
	if want, got := uint64(0), st.Get(addr, 3); want != got {
		t.Errorf("expected fresh slot to be deleted, got %d", got)
	}
}

func TestState_CommitClearsOriginalTracking(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.Set(addr, 1, 10)
	st.Commit()
	if changes := st.StorageChanges(addr); len(changes) != 0 {
		t.Errorf("expected no changes after commit, got %v", changes)
	}
	if want, got := uint64(10), st.OriginalValue(addr, 1); want != got {
		t.Errorf("expected original to equal current after commit, got %d", got)
	}
}

func TestState_StorageChangesListModifiedSlotsOnly(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.Set(addr, 1, 10)
	st.Commit()

	st.Set(addr, 1, 20)
	st.Set(addr, 2, 5)
	st.Set(addr, 2, 0) // written back to its original zero

	changes := st.StorageChanges(addr)
	if want, got := 1, len(changes); want != got {
		t.Fatalf("expected %d change, got %d: %v", want, got, changes)
	}
	change := changes[0]
	if change.Key != 1 || change.PreviousValue != 10 || change.NewValue != 20 {
		t.Errorf("unexpected change record: %+v", change)
	}
}

func TestState_SnapshotsAreIndependentOfTheLiveState(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.Set(addr, 1, 10)
	st.SetBalance(addr, 100)
	st.SetNonce(addr, 7)
	st.SetContract(addr, rvm.Contract{
		Address: addr,
		Storage: map[rvm.Key]rvm.Value{{1}: {2}},
		Balance: 100,
	})

	snapshot := st.CreateSnapshot()

	st.Set(addr, 1, 99)
	st.SetBalance(addr, 0)
	st.SetNonce(addr, 8)
	st.DeleteAccount(addr)

	st.RestoreSnapshot(snapshot)
	if want, got := uint64(10), st.Get(addr, 1); want != got {
		t.Errorf("expected restored storage value %d, got %d", want, got)
	}
	if want, got := uint64(100), st.GetBalance(addr); want != got {
		t.Errorf("expected restored balance %d, got %d", want, got)
	}
	if want, got := uint64(7), st.GetNonce(addr); want != got {
		t.Errorf("expected restored nonce %d, got %d", want, got)
	}
	if _, ok := st.GetContract(addr); !ok {
		t.Errorf("expected restored contract record")
	}
}

func TestState_TransferMovesBalanceAtomically(t *testing.T) {
	st := New()
	a := rvm.Address{1}
	b := rvm.Address{2}
	st.SetBalance(a, 1000)
	st.SetBalance(b, 500)

	if err := st.Transfer(a, b, 300); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	if want, got := uint64(700), st.GetBalance(a); want != got {
		t.Errorf("expected balance %d, got %d", want, got)
	}
	if want, got := uint64(800), st.GetBalance(b); want != got {
		t.Errorf("expected balance %d, got %d", want, got)
	}

	err := st.Transfer(a, b, 10_000)
	var insufficient *rvm.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected an insufficient-balance error, got %v", err)
	}
	if want, got := uint64(700), insufficient.Available; want != got {
		t.Errorf("expected available %d, got %d", want, got)
	}
	if want, got := uint64(10_000), insufficient.Required; want != got {
		t.Errorf("expected required %d, got %d", want, got)
	}
	if want, got := uint64(700), st.GetBalance(a); want != got {
		t.Errorf("failed transfer changed the balance: want %d, got %d", want, got)
	}
	if want, got := uint64(800), st.GetBalance(b); want != got {
		t.Errorf("failed transfer changed the balance: want %d, got %d", want, got)
	}
}

func TestState_NonceOperations(t *testing.T) {
	st := New()
	addr := rvm.Address{1}

	if want, got := uint64(0), st.GetNonce(addr); want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
	st.IncrementNonce(addr)
	if want, got := uint64(1), st.GetNonce(addr); want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
	st.SetNonce(addr, 10)
	if want, got := uint64(10), st.GetNonce(addr); want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
}

func TestState_AccountExists(t *testing.T) {
	tests := map[string]struct {
		setup func(*State, rvm.Address)
		want  bool
	}{
		"unknown address": {setup: func(*State, rvm.Address) {}, want: false},
		"has balance": {setup: func(st *State, addr rvm.Address) {
			st.SetBalance(addr, 1)
		}, want: true},
		"has zero balance entry": {setup: func(st *State, addr rvm.Address) {
			st.SetBalance(addr, 0)
		}, want: true},
		"has contract": {setup: func(st *State, addr rvm.Address) {
			st.SetContract(addr, rvm.Contract{Address: addr})
		}, want: true},
		"has nonce": {setup: func(st *State, addr rvm.Address) {
			st.SetNonce(addr, 1)
		}, want: true},
		"zero nonce only": {setup: func(st *State, addr rvm.Address) {
			st.SetNonce(addr, 0)
		}, want: false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			st := New()
			addr := rvm.Address{1}
			test.setup(st, addr)
			if want, got := test.want, st.AccountExists(addr); want != got {
				t.Errorf("expected account existence %t, got %t", want, got)
			}
		})
	}
}

func TestState_DeleteAccountRemovesEveryTrace(t *testing.T) {
	st := New()
	addr := rvm.Address{1}
	st.SetBalance(addr, 100)
	st.SetNonce(addr, 1)
	st.SetContract(addr, rvm.Contract{Address: addr})
	st.Set(addr, 1, 42)
	st.Commit()

	st.DeleteAccount(addr)
	if st.AccountExists(addr) {
		t.Errorf("expected account to be gone")
	}
	if want, got := uint64(0), st.Get(addr, 1); want != got {
		t.Errorf("expected storage to be gone, got %d", got)
	}
}

func TestState_GetAccountMaterializesLazily(t *testing.T) {
	st := New()
	addr := rvm.Address{1}

	account := st.GetAccount(addr)
	if account.Balance != 0 || account.Nonce != 0 || account.CodeHash != nil || account.StorageRoot != nil {
		t.Errorf("expected the zero account, got %+v", account)
	}

	st.SetBalance(addr, 10)
	st.SetContract(addr, rvm.Contract{Address: addr})
	account = st.GetAccount(addr)
	if want, got := uint64(10), account.Balance; want != got {
		t.Errorf("expected balance %d, got %d", want, got)
	}
	if account.CodeHash == nil {
		t.Errorf("expected a code hash for a contract account")
	}
}
