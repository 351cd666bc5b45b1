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
	"encoding/hex"
	"encoding/json"

	"github.com/GhostKellz/rvm/crypto"
	"github.com/GhostKellz/rvm/rvm"
)

// AgentRecord is a deployed agent.
type AgentRecord struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Code []byte `json:"code"`
}

// AgentRegistry keeps deployed agents and routes their invocations to a
// configured hook. Without a hook, invocations yield an empty result.
type AgentRegistry struct {
	agents map[string]AgentRecord
	hook   rvm.AgentHook
}

// NewAgentRegistry creates an empty registry routing calls to the given
// hook; a nil hook is allowed.
func NewAgentRegistry(hook rvm.AgentHook) *AgentRegistry {
	return &AgentRegistry{agents: map[string]AgentRecord{}, hook: hook}
}

// Deploy registers an agent under an id derived from its name and code.
func (r *AgentRegistry) Deploy(name string, code []byte) (string, error) {
	data := append([]byte(name), code...)
	hash := crypto.Keccak256(data)
	id := hex.EncodeToString(hash[:16])
	r.agents[id] = AgentRecord{
		Id:   id,
		Name: name,
		Code: append([]byte{}, code...),
	}
	return id, nil
}

// Call invokes a deployed agent through the configured hook.
func (r *AgentRegistry) Call(id string, input []byte) ([]byte, error) {
	record, ok := r.agents[id]
	if !ok {
		return nil, rvm.UnknownError("agent not found: " + id)
	}
	if r.hook == nil {
		return nil, nil
	}
	return r.hook.OnAgentCall(record.Name, input)
}

// Query returns the serialized record of a deployed agent.
func (r *AgentRegistry) Query(id string) ([]byte, error) {
	record, ok := r.agents[id]
	if !ok {
		return nil, rvm.UnknownError("agent not found: " + id)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, rvm.SerializationError(err.Error())
	}
	return data, nil
}

// SetHook replaces the invocation hook.
func (r *AgentRegistry) SetHook(hook rvm.AgentHook) {
	r.hook = hook
}

// Registry bundles the host service endpoints of one machine instance.
type Registry struct {
	GhostId *GhostIdService
	Cns     *CnsService
	Tokens  *TokenLedger
	L2      *L2Service
	Bridge  *BridgeService
	Agents  *AgentRegistry
}

// NewRegistry creates a full set of in-process services. A nil fetcher
// restricts identities to locally created ones; a nil agent hook makes
// agent calls yield empty results.
func NewRegistry(fetcher Fetcher, agentHook rvm.AgentHook) *Registry {
	return &Registry{
		GhostId: NewGhostIdService(fetcher),
		Cns:     NewCnsService(),
		Tokens:  NewTokenLedger(),
		L2:      NewL2Service(),
		Bridge:  NewBridgeService(),
		Agents:  NewAgentRegistry(agentHook),
	}
}
