// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rvm

//go:generate mockgen -source hooks.go -destination hooks_mock.go -package rvm

// PreExecuteHook is consulted by the runtime before bytecode is handed to an
// interpreter. Returning an error aborts the execution before any gas is
// charged.
type PreExecuteHook interface {
	OnPreExecute(code []byte, env ExecutionEnvironment) error
}

// AgentHook handles agent invocations requested by executing programs. The
// function name identifies the deployed agent; the returned bytes become the
// call result visible to the program.
type AgentHook interface {
	OnAgentCall(function string, params []byte) ([]byte, error)
}

// StorageEventHook observes storage writes performed during an execution.
type StorageEventHook interface {
	OnStorageEvent(addr Address, key, value uint64)
}
