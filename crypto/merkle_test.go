// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package crypto

import (
	"testing"

	"github.com/GhostKellz/rvm/rvm"
)

func TestMerkleRoot_TrivialTrees(t *testing.T) {
	if want, got := (rvm.Hash{}), MerkleRoot(nil); want != got {
		t.Errorf("expected the zero root for an empty tree, got %v", got)
	}
	leaf := rvm.Hash{1, 2, 3}
	if want, got := leaf, MerkleRoot([]rvm.Hash{leaf}); want != got {
		t.Errorf("expected the single leaf as root, got %v", got)
	}
}

func TestMerkleRoot_IsDeterministic(t *testing.T) {
	leaves := []rvm.Hash{{1}, {2}, {3}, {4}}
	if MerkleRoot(leaves) != MerkleRoot(leaves) {
		t.Errorf("root computation is not deterministic")
	}
	if MerkleRoot(leaves) == (rvm.Hash{}) {
		t.Errorf("root of a non-empty tree should not be zero")
	}
}

func TestMerkleRoot_CarriesOddLeafUnchanged(t *testing.T) {
	leaves := []rvm.Hash{{1}, {2}, {3}}
	// The odd third leaf pairs with the hash of the first two at the second
	// level.
	want := hashPair(hashPair(leaves[0], leaves[1]), leaves[2])
	if got := MerkleRoot(leaves); want != got {
		t.Errorf("expected root %v, got %v", want, got)
	}
}

func TestVerifyMerkleProof_AcceptsSiblingPaths(t *testing.T) {
	leaves := []rvm.Hash{{1}, {2}, {3}, {4}}
	root := MerkleRoot(leaves)

	proofs := map[uint64][]rvm.Hash{
		0: {leaves[1], hashPair(leaves[2], leaves[3])},
		1: {leaves[0], hashPair(leaves[2], leaves[3])},
		2: {leaves[3], hashPair(leaves[0], leaves[1])},
		3: {leaves[2], hashPair(leaves[0], leaves[1])},
	}
	for index, proof := range proofs {
		if !VerifyMerkleProof(leaves[index], proof, root, index) {
			t.Errorf("expected the proof for leaf %d to verify", index)
		}
	}
}

func TestVerifyMerkleProof_RejectsWrongLeafAndIndex(t *testing.T) {
	leaves := []rvm.Hash{{1}, {2}, {3}, {4}}
	root := MerkleRoot(leaves)
	proof := []rvm.Hash{leaves[1], hashPair(leaves[2], leaves[3])}

	if VerifyMerkleProof(rvm.Hash{9}, proof, root, 0) {
		t.Errorf("expected a proof with the wrong leaf to fail")
	}
	if VerifyMerkleProof(leaves[0], proof, root, 1) {
		t.Errorf("expected a proof with the wrong index to fail")
	}
	if VerifyMerkleProof(leaves[0], proof, rvm.Hash{9}, 0) {
		t.Errorf("expected a proof against the wrong root to fail")
	}
}
