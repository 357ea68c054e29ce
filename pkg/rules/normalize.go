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
package rules

import (
	"fmt"

	"github.com/consensys/go-karr/pkg/ast"
)

// Normalize produces an equivalent rule set in which every head argument is
// a distinct variable and every body-atom argument is a variable.  Compound
// arguments (and repeated head variables) are replaced by fresh variables
// linked back through equality constraints.  Facts are left untouched, as
// their ground arguments feed the fact path of the evaluator directly.
func (s *Set) Normalize() *Set {
	dst := NewSet()
	dst.InheritPredicates(s)
	//
	for _, r := range s.rules {
		if r.IsFact() {
			dst.Add(r)
		} else {
			dst.Add(normalizeRule(r))
		}
	}
	//
	return dst
}

func normalizeRule(r *Rule) *Rule {
	var (
		nr   = Rule{Name: r.Name}
		next = r.NumVars()
		seen = make(map[uint]bool)
	)
	// Head arguments become distinct variables.
	nr.Head = Atom{Pred: r.Head.Pred, Args: make([]ast.Expr, len(r.Head.Args))}
	//
	for i, arg := range r.Head.Args {
		if v, ok := arg.(*ast.Var); ok && !seen[v.Index] {
			seen[v.Index] = true
			nr.Head.Args[i] = arg
		} else {
			fresh := freshVar(&next)
			nr.Head.Args[i] = fresh
			nr.Constraints = append(nr.Constraints, &ast.Eq{Lhs: fresh, Rhs: arg})
		}
	}
	// Body-atom arguments become variables (repetition is fine here, as the
	// evaluator links every argument position independently).
	for _, atom := range r.Body {
		natom := Atom{Pred: atom.Pred, Args: make([]ast.Expr, len(atom.Args)), Negated: atom.Negated}
		//
		for i, arg := range atom.Args {
			if _, ok := arg.(*ast.Var); ok {
				natom.Args[i] = arg
			} else {
				fresh := freshVar(&next)
				natom.Args[i] = fresh
				nr.Constraints = append(nr.Constraints, &ast.Eq{Lhs: fresh, Rhs: arg})
			}
		}
		//
		nr.Body = append(nr.Body, natom)
	}
	//
	nr.Constraints = append(nr.Constraints, r.Constraints...)
	//
	return &nr
}

func freshVar(next *uint) *ast.Var {
	v := ast.NewVar(*next, fmt.Sprintf("v%d", *next))
	*next = *next + 1
	//
	return v
}
