// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package runtime

import (
	"fmt"

	"github.com/dsnet/golib/unitconv"

	"github.com/GhostKellz/rvm/rvm"
)

// Config parameterizes a runtime instance.
type Config struct {
	// MaxGasLimit is the gas limit applied to executions entered through
	// Execute.
	MaxGasLimit rvm.Gas
	// EnablePrecompiles allows invoking the built-in precompiled contracts.
	EnablePrecompiles bool
	// EnableAgentAPIs allows programs to reach deployed agents.
	EnableAgentAPIs bool
	// DebugMode enables verbose execution accounting.
	DebugMode bool
}

// DefaultConfig returns the canonical runtime configuration.
func DefaultConfig() Config {
	return Config{
		MaxGasLimit:       rvm.DefaultGasLimit,
		EnablePrecompiles: true,
		EnableAgentAPIs:   true,
	}
}

// Stats accumulates execution statistics of one runtime.
type Stats struct {
	TotalExecutions      uint64
	TotalGasUsed         uint64
	SuccessfulExecutions uint64
	FailedExecutions     uint64
}

// AverageGasPerExecution returns the mean gas consumption per execution.
func (s Stats) AverageGasPerExecution() uint64 {
	if s.TotalExecutions == 0 {
		return 0
	}
	return s.TotalGasUsed / s.TotalExecutions
}

func (s Stats) String() string {
	return fmt.Sprintf("%d executions (%d ok, %d failed), %sgas total, %sgas/execution",
		s.TotalExecutions, s.SuccessfulExecutions, s.FailedExecutions,
		unitconv.FormatPrefix(float64(s.TotalGasUsed), unitconv.SI, 1),
		unitconv.FormatPrefix(float64(s.AverageGasPerExecution()), unitconv.SI, 1),
	)
}

func (s *Stats) record(result rvm.ExecutionResult) {
	s.TotalExecutions++
	s.TotalGasUsed += result.GasUsed
	if result.Success {
		s.SuccessfulExecutions++
	} else {
		s.FailedExecutions++
	}
}
