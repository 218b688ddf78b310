// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"

	"github.com/fatih/color"

	"reserveguard/internal/rules"
)

func runRules(args []string) int {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	path := fs.String("rules", "", "rule set file to check; prints the default rules when empty")
	table := fs.Bool("table", false, "list the compiled signatures with their selectors")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if *path == "" && !*table {
		fmt.Print(rules.DefaultSource())
		return exitOK
	}

	rs, name, err := loadRules(*path, 0)
	if err != nil {
		return fail("%v", err)
	}
	m, err := rules.Compile(rs)
	if err != nil {
		return fail("%v", err)
	}

	if *table {
		for _, r := range m.Table() {
			fmt.Printf("%-12s %s  %-45s amount=%d recipient=%d\n", r.Kind, r.Selector, r.Signature, r.Amount, r.Recipient)
		}
	}
	color.Green("%s: %d transfer and %d safe-wrapper signatures, %d workers", name, len(rs.Transfers), len(rs.SafeWrappers), rs.Workers)
	return exitOK
}
