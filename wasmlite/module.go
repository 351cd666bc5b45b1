// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package wasmlite

import (
	"encoding/json"

	"github.com/GhostKellz/rvm/rvm"
)

// Function is a single callable unit of a module.
type Function struct {
	Name    string      `json:"name"`
	Params  []ValueType `json:"params"`
	Returns []ValueType `json:"returns"`
	Body    []byte      `json:"body"`
	Locals  []ValueType `json:"locals"`
}

// Module is a loadable unit of functions, globals and memory configuration.
type Module struct {
	Version     uint32              `json:"version"`
	Functions   []Function          `json:"functions"`
	Globals     []Value             `json:"globals"`
	MemoryPages uint32              `json:"memory_pages"`
	Exports     map[string]int      `json:"exports"`
	Imports     map[string]Function `json:"imports"`
}

// EncodeModule serializes a module for transfer.
func EncodeModule(module *Module) ([]byte, error) {
	data, err := json.Marshal(module)
	if err != nil {
		return nil, rvm.SerializationError(err.Error())
	}
	return data, nil
}

// DecodeModule parses a serialized module.
func DecodeModule(data []byte) (*Module, error) {
	var module Module
	if err := json.Unmarshal(data, &module); err != nil {
		return nil, rvm.DeserializationError(err.Error())
	}
	return &module, nil
}

// DemoModule creates a minimal module exporting an add(i32, i32) -> i32
// function.
func DemoModule() *Module {
	add := Function{
		Name:    "add",
		Params:  []ValueType{TypeI32, TypeI32},
		Returns: []ValueType{TypeI32},
		Body: []byte{
			0x20, 0x00, // local.get 0
			0x20, 0x01, // local.get 1
			0x6a, // i32.add
			0x0f, // return
		},
	}
	return &Module{
		Version:     1,
		Functions:   []Function{add},
		MemoryPages: 1,
		Exports:     map[string]int{"add": 0},
	}
}
