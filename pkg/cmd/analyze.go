// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/consensys/go-karr/pkg/karr"
	"github.com/consensys/go-karr/pkg/rules"
)

// analyzeCmd discovers linear invariants for a rule file and prints them.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] rule_file",
	Short: "Discover linear invariants of a Horn rule set.",
	Long: "Parse a rule file, run the Karr analysis over it and print one invariant\n" +
		"per predicate.  With --rules, the annotated rule set is printed as well.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		cfg, err := ReadConfig(GetString(cmd, "config"))
		if err != nil {
			log.Fatal(err)
		}
		//
		bytes, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}
		//
		src, err := rules.ParseString(string(bytes))
		if err != nil {
			log.Fatal(err)
		}
		//
		finder := karr.NewInvariantFinder(cfg)
		//
		annotated, err := finder.Transform(src)
		if err != nil {
			log.Fatal(err)
		}
		//
		printInvariants(finder)
		//
		if GetFlag(cmd, "rules") {
			fmt.Println()
			fmt.Print(annotated.String())
		}
	},
}

func printInvariants(finder *karr.InvariantFinder) {
	var (
		invariants = finder.Invariants()
		preds      = make([]rules.Pred, 0, len(invariants))
		// Decorate output only when attached to a terminal.
		tty = term.IsTerminal(int(os.Stdout.Fd()))
	)
	//
	for p := range invariants {
		preds = append(preds, p)
	}
	//
	sort.Slice(preds, func(i, j int) bool {
		return preds[i].Name < preds[j].Name ||
			(preds[i].Name == preds[j].Name && preds[i].Arity < preds[j].Arity)
	})
	//
	for _, p := range preds {
		if tty {
			fmt.Printf("\033[1m%s\033[0m: %s\n", p, invariants[p])
		} else {
			fmt.Printf("%s: %s\n", p, invariants[p])
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("rules", false, "print the annotated rule set")
	analyzeCmd.Flags().String("config", "", "load engine limits from a YAML file")
}
