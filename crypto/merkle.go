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

import "github.com/GhostKellz/rvm/rvm"

// MerkleRoot computes the root of a binary Keccak256 tree over the given
// leaves. An odd leaf at the end of a level is carried up unchanged. The
// root of an empty tree is the zero hash; the root of a single leaf is the
// leaf itself.
func MerkleRoot(leaves []rvm.Hash) rvm.Hash {
	if len(leaves) == 0 {
		return rvm.Hash{}
	}

	level := make([]rvm.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]rvm.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// VerifyMerkleProof checks the given sibling path against a root. The least
// significant bit of the running index selects the combination order at each
// step; the index is halved after every proof element.
func VerifyMerkleProof(leaf rvm.Hash, proof []rvm.Hash, root rvm.Hash, index uint64) bool {
	current := leaf
	for _, sibling := range proof {
		if index%2 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		index /= 2
	}
	return current == root
}

func hashPair(left, right rvm.Hash) rvm.Hash {
	var combined [64]byte
	copy(combined[:32], left[:])
	copy(combined[32:], right[:])
	return Keccak256(combined[:])
}
