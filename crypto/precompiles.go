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
	"crypto/sha256"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/ripemd160"

	"github.com/GhostKellz/rvm/rvm"
)

// Precompile addresses.
const (
	PrecompileEcrecover = 0x01
	PrecompileSha256    = 0x02
	PrecompileRipemd160 = 0x03
	PrecompileIdentity  = 0x04
)

// PrecompileGas returns the gas charged for invoking the precompile at the
// given address with an input of the given length.
func PrecompileGas(address byte, inputLen int) (rvm.Gas, error) {
	words := rvm.SizeInWords(uint64(inputLen))
	switch address {
	case PrecompileEcrecover:
		return 3000, nil
	case PrecompileSha256:
		return 60 + 12*words, nil
	case PrecompileRipemd160:
		return 600 + 120*words, nil
	case PrecompileIdentity:
		return 15 + 3*words, nil
	}
	return 0, rvm.InvalidPrecompileError(address)
}

// RunPrecompile executes the precompile at the given address. The gas charge
// is the caller's responsibility, see PrecompileGas.
func RunPrecompile(address byte, input []byte) ([]byte, error) {
	switch address {
	case PrecompileEcrecover:
		return precompiledEcrecover(input), nil
	case PrecompileSha256:
		hash := sha256.Sum256(input)
		return hash[:], nil
	case PrecompileRipemd160:
		hasher := ripemd160.New()
		hasher.Write(input)
		// The 20-byte digest is right-aligned into a 32-byte word.
		result := make([]byte, 32)
		copy(result[12:], hasher.Sum(nil))
		return result, nil
	case PrecompileIdentity:
		result := make([]byte, len(input))
		copy(result, input)
		return result, nil
	}
	return nil, rvm.InvalidPrecompileError(address)
}

// precompiledEcrecover implements the address-recovery precompile over a
// 128-byte input of hash, v, r and s words. Invalid input and failed
// recoveries yield a zero-filled 32-byte output rather than an error.
func precompiledEcrecover(input []byte) []byte {
	zero := make([]byte, 32)
	if len(input) != 128 {
		return zero
	}

	var hash rvm.Hash
	copy(hash[:], input[:32])

	v := new(uint256.Int).SetBytes(input[32:64])
	if !v.IsUint64() || (v.Uint64() != 27 && v.Uint64() != 28) {
		return zero
	}
	recoveryID := byte(v.Uint64() - 27)

	var signature [64]byte
	copy(signature[:32], input[64:96])  // r
	copy(signature[32:], input[96:128]) // s

	key, err := Ecrecover(hash, signature, recoveryID)
	if err != nil {
		return zero
	}

	addr := PublicKeyToAddress(key)
	result := make([]byte, 32)
	copy(result[12:], addr[:])
	return result
}
