// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"kanso/internal/ast"
	"kanso/internal/ir"
	"kanso/internal/parser"
	"kanso/internal/semantic"
)

// loadContract reads path, parses it, and runs semantic analysis, returning
// the resulting AST and the context registry internal/ir.NewBuilder needs.
// Mirrors ir_test.go's parseAndAnalyzeContract helper, the established
// pattern for driving parser.ParseSource -> semantic.Analyzer together.
func loadContract(path string) (*ast.Contract, *semantic.ContextRegistry, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	contract, parseErrors, scanErrors := parser.ParseSource(path, string(source))
	if len(scanErrors) > 0 {
		return nil, nil, fmt.Errorf("%d scan error(s) in %s, first: %s", len(scanErrors), path, scanErrors[0].Message)
	}
	if len(parseErrors) > 0 {
		return nil, nil, fmt.Errorf("%d parse error(s) in %s", len(parseErrors), path)
	}
	if contract == nil {
		return nil, nil, fmt.Errorf("%s produced no contract", path)
	}

	analyzer := semantic.NewAnalyzer()
	semErrors := analyzer.Analyze(contract)
	if len(semErrors) > 0 {
		return nil, nil, fmt.Errorf("%d semantic error(s) in %s, first: %s", len(semErrors), path, semErrors[0].Message)
	}

	return contract, analyzer.GetContext(), nil
}

// buildRawProgram converts contract straight to IR, bypassing
// BuildProgram's optimization pipeline -- the entry point the dump
// subcommand needs so it can run internal/cse on its own terms instead of
// whatever the pipeline's fixed ordering would do.
func buildRawProgram(contract *ast.Contract, context *semantic.ContextRegistry) *ir.Program {
	return ir.NewBuilder(context).Build(contract)
}
