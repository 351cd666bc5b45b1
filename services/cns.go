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
	"strings"
	"time"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/rvm"
)

// ghostChainTLDs is the set of top-level domains served by the name service.
var ghostChainTLDs = []string{".ghost", ".gcc", ".spirit", ".mana"}

// domainRegistrationPeriod is the validity period of a fresh registration.
const domainRegistrationPeriod = 365 * 24 * time.Hour

// DomainRecord is a registered name with its bindings.
type DomainRecord struct {
	Name         string
	Address      rvm.Address
	Owner        rvm.Address
	RegisteredAt uint64
	ExpiresAt    uint64
	GhostId      string
	Records      map[string]string
}

// ResolutionResult is the outcome of a domain lookup.
type ResolutionResult struct {
	Resolved bool
	Address  *rvm.Address
	Record   *DomainRecord
	Error    string
}

// CnsService is the in-process name service: an authoritative registry of
// domains in the served TLD set, with a reverse index from addresses to
// names.
type CnsService struct {
	domains map[string]*DomainRecord
	reverse map[rvm.Address]string

	// Now provides registration and expiry timestamps; replaceable for
	// deterministic tests.
	Now func() uint64
}

// NewCnsService creates an empty name service.
func NewCnsService() *CnsService {
	return &CnsService{
		domains: map[string]*DomainRecord{},
		reverse: map[rvm.Address]string{},
		Now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// IsGhostChainDomain reports whether the name carries one of the served
// TLDs.
func IsGhostChainDomain(name string) bool {
	for _, tld := range ghostChainTLDs {
		if strings.HasSuffix(name, tld) {
			return true
		}
	}
	return false
}

// DomainToAddress derives a deterministic address for a name outside the
// registry: the low 20 bytes of its Keccak256 hash, with the first byte
// marking it as a domain address.
func DomainToAddress(name string) rvm.Address {
	hash := crypto.Keccak256([]byte(name))
	var addr rvm.Address
	copy(addr[:], hash[12:])
	addr[0] = 0xdd
	return addr
}

// ResolveDomain looks up a name. Names outside the served TLD set, unknown
// names and expired registrations report as unresolved through the result
// record.
func (s *CnsService) ResolveDomain(name string) ResolutionResult {
	if name == "" || !strings.Contains(name, ".") {
		return ResolutionResult{Error: "invalid domain format"}
	}
	if !IsGhostChainDomain(name) {
		return ResolutionResult{Error: "domain not in served namespace"}
	}
	record, ok := s.domains[name]
	if !ok {
		return ResolutionResult{Error: "domain not found"}
	}
	if record.ExpiresAt <= s.Now() {
		return ResolutionResult{Error: "domain has expired"}
	}
	addr := record.Address
	return ResolutionResult{Resolved: true, Address: &addr, Record: record}
}

// Resolve looks up a name and returns its bound address.
func (s *CnsService) Resolve(name string) (rvm.Address, bool, error) {
	result := s.ResolveDomain(name)
	if !result.Resolved {
		return rvm.Address{}, false, nil
	}
	return *result.Address, true, nil
}

// Register binds a fresh name to a target address under the given owner.
// The registration expires one year after creation.
func (s *CnsService) Register(name string, owner, target rvm.Address, identity string) error {
	if !IsGhostChainDomain(name) {
		return rvm.InvalidDomainNameError(name)
	}
	if _, exists := s.domains[name]; exists {
		return rvm.DomainRegistrationError(name + " already registered")
	}
	now := s.Now()
	s.domains[name] = &DomainRecord{
		Name:         name,
		Address:      target,
		Owner:        owner,
		RegisteredAt: now,
		ExpiresAt:    now + uint64(domainRegistrationPeriod/time.Second),
		GhostId:      identity,
		Records:      map[string]string{},
	}
	s.reverse[target] = name
	return nil
}

// Update rebinds the record of a name, authorized by its owner. A nil
// target leaves the binding unchanged; given records are merged into the
// existing set.
func (s *CnsService) Update(name string, owner rvm.Address, newTarget *rvm.Address, records map[string]string) error {
	record, ok := s.domains[name]
	if !ok {
		return rvm.DomainNotFoundError(name)
	}
	if record.Owner != owner {
		return rvm.UnauthorizedDomainOperationError("not owner of " + name)
	}
	if newTarget != nil {
		delete(s.reverse, record.Address)
		record.Address = *newTarget
		s.reverse[*newTarget] = name
	}
	for key, value := range records {
		record.Records[key] = value
	}
	return nil
}

// Owner returns the owner of a registered name.
func (s *CnsService) Owner(name string) (rvm.Address, bool) {
	record, ok := s.domains[name]
	if !ok {
		return rvm.Address{}, false
	}
	return record.Owner, true
}

// ReverseLookup returns the name bound to the given address.
func (s *CnsService) ReverseLookup(addr rvm.Address) (string, bool) {
	name, ok := s.reverse[addr]
	return name, ok
}
