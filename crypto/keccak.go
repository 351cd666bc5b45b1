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
	"encoding/binary"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"

	"github.com/GhostKellz/rvm/rvm"
)

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

type keccakHasher interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}

// Keccak256 computes the Keccak256 hash of the given data.
func Keccak256(data []byte) rvm.Hash {
	hasher := keccakHasherPool.Get().(keccakHasher)
	hasher.Reset()
	_, _ = hasher.Write(data) // keccak256 never returns an error
	var res rvm.Hash
	_, _ = hasher.Read(res[:]) // keccak256 never returns an error
	keccakHasherPool.Put(hasher)
	return res
}

// Keccak256Uint64 computes the Keccak256 hash of the given data and returns
// its first 8 bytes as a big-endian machine word.
func Keccak256Uint64(data []byte) uint64 {
	hash := Keccak256(data)
	return binary.BigEndian.Uint64(hash[:8])
}

// HashCache is an LRU governed fixed-capacity cache for Keccak256 hashes.
// The cache maintains hashes for hashed input data of size 32 and 64, which
// are the vast majority of values hashed when running storage and address
// related instructions. Other input sizes bypass the cache.
type HashCache struct {
	cache32 *lru.Cache[[32]byte, rvm.Hash]
	cache64 *lru.Cache[[64]byte, rvm.Hash]
}

// NewHashCache creates a HashCache with the given capacities of entries.
func NewHashCache(capacity32, capacity64 int) (*HashCache, error) {
	cache32, err := lru.New[[32]byte, rvm.Hash](capacity32)
	if err != nil {
		return nil, err
	}
	cache64, err := lru.New[[64]byte, rvm.Hash](capacity64)
	if err != nil {
		return nil, err
	}
	return &HashCache{cache32: cache32, cache64: cache64}, nil
}

// Hash fetches a cached hash or computes and caches the hash for the
// provided data.
func (h *HashCache) Hash(data []byte) rvm.Hash {
	if len(data) == 32 {
		var key [32]byte
		copy(key[:], data)
		if hash, found := h.cache32.Get(key); found {
			return hash
		}
		hash := Keccak256(data)
		h.cache32.Add(key, hash)
		return hash
	}
	if len(data) == 64 {
		var key [64]byte
		copy(key[:], data)
		if hash, found := h.cache64.Get(key); found {
			return hash
		}
		hash := Keccak256(data)
		h.cache64.Add(key, hash)
		return hash
	}
	return Keccak256(data)
}
