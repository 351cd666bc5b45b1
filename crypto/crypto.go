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

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/GhostKellz/rvm/rvm"
)

// Ecrecover recovers the 64-byte uncompressed secp256k1 public key that
// produced the given signature over the given 32-byte message hash. Any
// parse or recovery failure is reported as an invalid signature.
func Ecrecover(hash rvm.Hash, signature [64]byte, recoveryID byte) ([64]byte, error) {
	var key [64]byte
	if recoveryID > 3 {
		return key, rvm.ErrInvalidSignature
	}

	// The compact signature format carries the recovery code in its first
	// byte, offset by 27 for uncompressed keys.
	compact := make([]byte, 65)
	compact[0] = recoveryID + 27
	copy(compact[1:], signature[:])

	pub, _, err := ecdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return key, rvm.ErrInvalidSignature
	}

	serialized := pub.SerializeUncompressed()
	if len(serialized) != 65 || serialized[0] != 0x04 {
		return key, rvm.ErrInvalidSignature
	}
	copy(key[:], serialized[1:])
	return key, nil
}

// PublicKeyToAddress derives an account address as the low 20 bytes of the
// Keccak256 hash of the 64-byte uncompressed public key.
func PublicKeyToAddress(publicKey [64]byte) rvm.Address {
	hash := Keccak256(publicKey[:])
	var addr rvm.Address
	copy(addr[:], hash[12:])
	return addr
}

// VerifySignature reports whether the given signature over the given hash
// was produced by the key behind the expected address.
func VerifySignature(hash rvm.Hash, signature [64]byte, recoveryID byte, expected rvm.Address) (bool, error) {
	key, err := Ecrecover(hash, signature, recoveryID)
	if err != nil {
		return false, err
	}
	return PublicKeyToAddress(key) == expected, nil
}

// CreateAddress derives the address of a contract deployed by the given
// creator at the given nonce.
func CreateAddress(creator rvm.Address, nonce uint64) rvm.Address {
	data := make([]byte, len(creator)+8)
	copy(data, creator[:])
	binary.BigEndian.PutUint64(data[len(creator):], nonce)
	hash := Keccak256(data)
	var addr rvm.Address
	copy(addr[:], hash[12:])
	return addr
}

// Create2Address derives the address of a contract deployed with an explicit
// salt and init-code hash.
func Create2Address(creator rvm.Address, salt rvm.Hash, initCodeHash rvm.Hash) rvm.Address {
	data := make([]byte, 0, 1+len(creator)+len(salt)+len(initCodeHash))
	data = append(data, 0xff)
	data = append(data, creator[:]...)
	data = append(data, salt[:]...)
	data = append(data, initCodeHash[:]...)
	hash := Keccak256(data)
	var addr rvm.Address
	copy(addr[:], hash[12:])
	return addr
}
