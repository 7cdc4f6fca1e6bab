// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kanso/internal/cse"
	"kanso/internal/ir"
)

var runFlags cseFlags

func init() {
	cmd := newRunCmd()
	registerCSEFlags(cmd, &runFlags)
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.ka>",
		Short: "Build and optimize a contract, printing the final IR",
		Long: `run parses a .ka file, runs semantic analysis, builds its IR, and
runs the full optimization pipeline (constant folding, checked-arithmetic
normalization, CSE, dead-code elimination), printing the optimized IR.

Example:
  kanso-cse run token.ka
  kanso-cse run token.ka --no-cse
  kanso-cse run token.ka --random-cse 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
}

func runRun(args []string) error {
	path := args[0]

	printVerbose("Parsing and analyzing %s\n", path)
	contract, context, err := loadContract(path)
	if err != nil {
		return err
	}

	cfg, err := runFlags.toConfig()
	if err != nil {
		return fmt.Errorf("invalid CSE flags: %w", err)
	}

	printVerbose("Building IR and running the optimization pipeline\n")
	program := buildRawProgram(contract, context)

	// Mirrors ir.NewOptimizationPipeline()'s fixed ordering, but swaps the
	// hardcoded cse.DefaultConfig() its CSEPass uses for the flag-driven one
	// built above, so every heuristic (including Random/Replay/RL, otherwise
	// unreachable without a driver) can be exercised end-to-end.
	(&ir.ConstantFolding{}).Apply(program)
	(&ir.CheckedArithmeticOptimization{}).Apply(program)
	cse.Run(program, cfg)
	(&ir.DeadCodeElimination{}).Apply(program)

	if jsonOut {
		return printJSON(map[string]interface{}{
			"contract": program.Contract,
			"ir":       ir.PrintProgram(program),
		})
	}

	printInfo("%s", ir.PrintProgram(program))
	return nil
}
