// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package services

import (
	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/rvm"
)

// L2Service queues layer-2 submissions and verifies batch inclusion proofs.
type L2Service struct {
	pending []rvm.Hash
	settled uint64
}

// NewL2Service creates an empty layer-2 endpoint.
func NewL2Service() *L2Service {
	return &L2Service{}
}

// Submit queues a transaction payload and returns its hash.
func (s *L2Service) Submit(payload []byte) rvm.Hash {
	hash := crypto.Keccak256(payload)
	s.pending = append(s.pending, hash)
	return hash
}

// VerifyBatch checks a batch inclusion proof: the sibling path of the leaf
// at the given index against the batch root.
func (s *L2Service) VerifyBatch(root, leaf rvm.Hash, proof []rvm.Hash, index uint64) bool {
	return crypto.VerifyMerkleProof(leaf, proof, root, index)
}

// StateSync settles the pending submissions and returns how many were
// settled.
func (s *L2Service) StateSync() int {
	count := len(s.pending)
	s.settled += uint64(count)
	s.pending = s.pending[:0]
	return count
}

// Pending returns the hashes of queued, unsettled submissions.
func (s *L2Service) Pending() []rvm.Hash {
	return s.pending
}

// Settled returns how many submissions have been settled in total.
func (s *L2Service) Settled() uint64 {
	return s.settled
}

// BridgeMessage is a cross-chain transfer record.
type BridgeMessage struct {
	Chain   uint64
	Nonce   uint64
	Payload []byte
}

// BridgeService records cross-chain messages in both directions. Outbound
// messages are assigned ascending nonces; inbound messages are deduplicated
// by their source chain and nonce.
type BridgeService struct {
	outbound  []BridgeMessage
	inbound   map[bridgeKey]BridgeMessage
	nextNonce uint64
}

type bridgeKey struct {
	chain uint64
	nonce uint64
}

// NewBridgeService creates an empty bridge endpoint.
func NewBridgeService() *BridgeService {
	return &BridgeService{inbound: map[bridgeKey]BridgeMessage{}}
}

// Send records an outbound message to the given chain and returns its nonce.
func (s *BridgeService) Send(destChain uint64, payload []byte) uint64 {
	nonce := s.nextNonce
	s.nextNonce++
	s.outbound = append(s.outbound, BridgeMessage{
		Chain:   destChain,
		Nonce:   nonce,
		Payload: append([]byte{}, payload...),
	})
	return nonce
}

// Receive records an inbound message. A message with a chain and nonce seen
// before is rejected.
func (s *BridgeService) Receive(sourceChain, nonce uint64, payload []byte) error {
	key := bridgeKey{chain: sourceChain, nonce: nonce}
	if _, seen := s.inbound[key]; seen {
		return rvm.UnknownError("bridge message already received")
	}
	s.inbound[key] = BridgeMessage{
		Chain:   sourceChain,
		Nonce:   nonce,
		Payload: append([]byte{}, payload...),
	}
	return nil
}

// Outbound returns the recorded outbound messages.
func (s *BridgeService) Outbound() []BridgeMessage {
	return s.outbound
}
