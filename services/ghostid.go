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
	"crypto/ed25519"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/rvm"
)

// Algorithm identifies the signature scheme of an identity key. The numeric
// values double as the algorithm tag of signature blobs.
type Algorithm byte

const (
	AlgorithmEd25519   Algorithm = 0
	AlgorithmSecp256k1 Algorithm = 1
)

// PublicKey is a key with its signature scheme.
type PublicKey struct {
	Bytes     []byte
	Algorithm Algorithm
}

// IdentityRecord binds an identity id to its key, domains and metadata.
type IdentityRecord struct {
	Id        string
	PublicKey PublicKey
	Domains   []string
	Metadata  map[string]string
}

// VerificationResult is the outcome of an identity signature check.
type VerificationResult struct {
	Verified  bool
	Record    *IdentityRecord
	Error     string
	Timestamp uint64
}

// Fetcher looks up identities not present in the local cache. Implementations
// own their retry and timeout policy.
type Fetcher interface {
	FetchGhostId(id string) (IdentityRecord, error)
}

// identityCacheSize bounds the in-process identity cache.
const identityCacheSize = 4096

// GhostIdService is the in-process identity endpoint: a cache of identity
// records in front of an optional external fetcher, plus derivation of new
// identities from raw public keys.
type GhostIdService struct {
	cache   *lru.Cache[string, IdentityRecord]
	fetcher Fetcher

	// Now provides the timestamps of verification results; replaceable for
	// deterministic tests.
	Now func() uint64
}

// NewGhostIdService creates an identity service backed by the given fetcher.
// A nil fetcher restricts the service to locally created identities.
func NewGhostIdService(fetcher Fetcher) *GhostIdService {
	cache, err := lru.New[string, IdentityRecord](identityCacheSize)
	if err != nil {
		panic(err) // only fails for non-positive sizes
	}
	return &GhostIdService{
		cache:   cache,
		fetcher: fetcher,
		Now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// ValidGhostIdFormat reports whether the given id is 32 lowercase hex
// characters.
func ValidGhostIdFormat(id string) bool {
	if len(id) != 32 {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// VerifySignature checks a signature blob of the form
// algorithm_tag[1] | signature[64] | recovery_id[1] against the identity's
// key. Failures of the check itself are reported through the result record;
// only infrastructural problems surface as errors.
func (s *GhostIdService) VerifySignature(id string, message, blob []byte) (VerificationResult, error) {
	if !ValidGhostIdFormat(id) {
		return VerificationResult{
			Error:     rvm.InvalidGhostIdFormatError(id).Error(),
			Timestamp: s.Now(),
		}, nil
	}

	record, err := s.lookup(id)
	if err != nil {
		return VerificationResult{
			Error:     err.Error(),
			Timestamp: s.Now(),
		}, nil
	}

	if len(blob) < 66 {
		return VerificationResult{
			Error:     "invalid signature data length",
			Timestamp: s.Now(),
		}, nil
	}

	verified, err := s.verifyWithRecord(&record, message, blob)
	if err != nil {
		return VerificationResult{
			Error:     err.Error(),
			Timestamp: s.Now(),
		}, nil
	}

	result := VerificationResult{Verified: verified, Timestamp: s.Now()}
	if verified {
		result.Record = &record
	}
	return result, nil
}

func (s *GhostIdService) verifyWithRecord(record *IdentityRecord, message, blob []byte) (bool, error) {
	algorithm := Algorithm(blob[0])
	signature := blob[1:65]
	recoveryID := blob[65]

	switch algorithm {
	case AlgorithmSecp256k1:
		hash := crypto.Keccak256(message)
		var sig [64]byte
		copy(sig[:], signature)
		key, err := crypto.Ecrecover(hash, sig, recoveryID)
		if err != nil {
			return false, nil
		}
		return string(key[:]) == string(record.PublicKey.Bytes), nil
	case AlgorithmEd25519:
		if len(record.PublicKey.Bytes) != ed25519.PublicKeySize {
			return false, rvm.ErrInvalidSignature
		}
		return ed25519.Verify(ed25519.PublicKey(record.PublicKey.Bytes), message, signature), nil
	}
	return false, rvm.ErrInvalidSignature
}

// Verify reports whether the signature blob verifies against the identity's
// key.
func (s *GhostIdService) Verify(id string, message, signature []byte) (bool, error) {
	result, err := s.VerifySignature(id, message, signature)
	if err != nil {
		return false, err
	}
	return result.Verified, nil
}

// Resolve derives the canonical address of the identity as the low 20 bytes
// of the Keccak256 hash of its public key. Unknown identities report as not
// found without an error.
func (s *GhostIdService) Resolve(id string) (rvm.Address, bool, error) {
	if !ValidGhostIdFormat(id) {
		return rvm.Address{}, false, rvm.InvalidGhostIdFormatError(id)
	}
	record, err := s.lookup(id)
	if err != nil {
		return rvm.Address{}, false, nil
	}
	hash := crypto.Keccak256(record.PublicKey.Bytes)
	var addr rvm.Address
	copy(addr[:], hash[12:])
	return addr, true, nil
}

// Create derives a new identity from the given public key: the id is the
// hex of the first 16 bytes of the Blake3 hash of the key. The record is
// cached and the id returned.
func (s *GhostIdService) Create(publicKey []byte, domains []string, metadata map[string]string) (string, error) {
	digest := blake3.Sum256(publicKey)
	id := hex.EncodeToString(digest[:16])

	record := IdentityRecord{
		Id: id,
		PublicKey: PublicKey{
			Bytes:     append([]byte{}, publicKey...),
			Algorithm: AlgorithmEd25519,
		},
		Domains:  domains,
		Metadata: metadata,
	}
	s.cache.Add(id, record)
	return id, nil
}

// Lookup returns the cached record of the given identity.
func (s *GhostIdService) Lookup(id string) (IdentityRecord, bool) {
	return s.cache.Get(id)
}

func (s *GhostIdService) lookup(id string) (IdentityRecord, error) {
	if record, found := s.cache.Get(id); found {
		return record, nil
	}
	if s.fetcher == nil {
		return IdentityRecord{}, rvm.GhostIdNotFoundError(id)
	}
	record, err := s.fetcher.FetchGhostId(id)
	if err != nil {
		return IdentityRecord{}, err
	}
	s.cache.Add(id, record)
	return record, nil
}

// StubFetcher is an in-process fetcher serving a fixed set of identities.
type StubFetcher struct {
	Records map[string]IdentityRecord
}

// FetchGhostId returns the stubbed record of the given id.
func (f *StubFetcher) FetchGhostId(id string) (IdentityRecord, error) {
	if record, ok := f.Records[id]; ok {
		return record, nil
	}
	return IdentityRecord{}, rvm.GhostIdNotFoundError(id)
}
