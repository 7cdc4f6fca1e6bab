// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kanso/internal/cse"
	"kanso/internal/ir"
)

var dumpFlags cseFlags

func init() {
	cmd := newDumpCmd()
	registerCSEFlags(cmd, &dumpFlags)
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file.ka>",
		Short: "Run CSE in isolation and report its candidate table",
		Long: `dump parses a .ka file, runs constant folding and checked-arithmetic
normalization (the two passes CSE depends on), then stops right after CSE
and prints one record per candidate discovered: its index, promotion class,
def/use counts, and whether it was live across a call.

Example:
  kanso-cse dump token.ka
  kanso-cse dump token.ka --json
  kanso-cse dump token.ka --rl-cse-verbose --rl-cse 0.1,0.2,...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
}

func runDump(args []string) error {
	path := args[0]

	printVerbose("Parsing and analyzing %s\n", path)
	contract, context, err := loadContract(path)
	if err != nil {
		return err
	}

	cfg, err := dumpFlags.toConfig()
	if err != nil {
		return fmt.Errorf("invalid CSE flags: %w", err)
	}

	program := buildRawProgram(contract, context)
	(&ir.ConstantFolding{}).Apply(program)
	(&ir.CheckedArithmeticOptimization{}).Apply(program)

	_, reports := cse.RunWithReport(program, cfg)

	if jsonOut {
		return printJSON(reports)
	}

	printCandidateTable(reports)
	return nil
}

func printCandidateTable(reports []cse.CandidateReport) {
	if len(reports) == 0 {
		printInfo("No CSE candidates found.\n")
		return
	}

	header := color.New(color.Bold).Sprintf("%-20s %-5s %-6s %-12s %-4s %-4s %-10s %s",
		"FUNCTION", "IDX", "CONST", "CLASS", "DEF", "USE", "LIVEXCALL", "PROMOTED")
	printInfo("%s\n", header)

	for _, r := range reports {
		promoted := color.New(color.FgRed).Sprint("no")
		if r.Promoted {
			promoted = color.New(color.FgGreen).Sprint("yes")
		}
		constMark := ""
		if r.IsSharedConst {
			constMark = "yes"
		}
		printInfo("%-20s %-5d %-6s %-12s %-4d %-4d %-10t %s\n",
			r.Function, r.Index, constMark, r.Class, r.DefCount, r.UseCount, r.LiveAcrossCall, promoted)
	}
}
