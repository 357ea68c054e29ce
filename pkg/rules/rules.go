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

// Package rules provides the representation of Horn-clause rule sets over
// integer tuples, along with the preprocessing transforms applied around
// invariant discovery (normalisation, loop counters, reversal).
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/consensys/go-karr/pkg/ast"
)

// Pred identifies a predicate by name and arity.  Predicates are compared by
// value, hence two atoms mentioning "p/2" always agree on their predicate.
type Pred struct {
	Name  string
	Arity uint
}

// NewPred constructs a predicate identity from a name and arity.
func NewPred(name string, arity uint) Pred {
	return Pred{Name: name, Arity: arity}
}

func (p Pred) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.Arity)
}

// Atom represents an application of a predicate to argument expressions,
// possibly under negation.
type Atom struct {
	Pred    Pred
	Args    []ast.Expr
	Negated bool
}

// NewAtom constructs a (positive) atom for a given predicate and arguments.
func NewAtom(name string, args ...ast.Expr) Atom {
	return Atom{Pred: NewPred(name, uint(len(args))), Args: args}
}

func (a Atom) String() string {
	var builder strings.Builder
	//
	if a.Negated {
		builder.WriteString("¬")
	}
	//
	builder.WriteString(a.Pred.Name)
	builder.WriteString("(")
	//
	for i, arg := range a.Args {
		if i != 0 {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(arg.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// Rule represents a Horn clause "head :- body, constraints" where the body
// consists of uninterpreted atoms and the constraints are interpreted
// arithmetic conditions.  A rule with an empty body and no constraints whose
// head arguments are all numerals is a fact.
type Rule struct {
	// Name is an optional label, used only for display.
	Name string
	// Head of the rule.
	Head Atom
	// Body holds the uninterpreted atoms of the rule.
	Body []Atom
	// Constraints holds the interpreted conditions of the rule.
	Constraints []ast.Expr
}

// IsFact checks whether this rule is a ground fact.
func (r *Rule) IsFact() bool {
	if len(r.Body) != 0 || len(r.Constraints) != 0 {
		return false
	}
	//
	for _, arg := range r.Head.Args {
		if _, ok := ast.IsNumeral(arg); !ok {
			return false
		}
	}
	//
	return true
}

// NumVars determines the number of variables of this rule, i.e. one more
// than the largest variable index mentioned anywhere in it.
func (r *Rule) NumVars() uint {
	vars := make(map[uint]bool)
	//
	for _, arg := range r.Head.Args {
		ast.Vars(arg, vars)
	}
	//
	for _, atom := range r.Body {
		for _, arg := range atom.Args {
			ast.Vars(arg, vars)
		}
	}
	//
	for _, c := range r.Constraints {
		ast.Vars(c, vars)
	}
	//
	n := uint(0)
	//
	for v := range vars {
		if v+1 > n {
			n = v + 1
		}
	}
	//
	return n
}

func (r *Rule) String() string {
	var builder strings.Builder
	//
	builder.WriteString(r.Head.String())
	//
	if len(r.Body) == 0 && len(r.Constraints) == 0 {
		builder.WriteString(".")
		return builder.String()
	}
	//
	builder.WriteString(" :- ")
	//
	first := true
	//
	for _, atom := range r.Body {
		if !first {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(atom.String())
		//
		first = false
	}
	//
	for _, c := range r.Constraints {
		if !first {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(c.String())
		//
		first = false
	}
	//
	builder.WriteString(".")
	//
	return builder.String()
}

// Set represents an ordered collection of rules, together with the set of
// predicates it ranges over.  Predicates can be declared without having any
// rules (e.g. after transforms drop rules).
type Set struct {
	rules []*Rule
	preds map[Pred]bool
}

// NewSet constructs an empty rule set.
func NewSet() *Set {
	return &Set{preds: make(map[Pred]bool)}
}

// Add appends a rule to this set, declaring every predicate it mentions.
func (s *Set) Add(r *Rule) {
	s.rules = append(s.rules, r)
	s.preds[r.Head.Pred] = true
	//
	for _, atom := range r.Body {
		s.preds[atom.Pred] = true
	}
}

// Declare records a predicate as part of this set, without adding any rule.
func (s *Set) Declare(p Pred) {
	s.preds[p] = true
}

// Rules returns the rules of this set, in insertion order.
func (s *Set) Rules() []*Rule { return s.rules }

// Preds returns the declared predicates, ordered by name then arity for
// stable output.
func (s *Set) Preds() []Pred {
	preds := make([]Pred, 0, len(s.preds))
	//
	for p := range s.preds {
		preds = append(preds, p)
	}
	//
	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Name != preds[j].Name {
			return preds[i].Name < preds[j].Name
		}
		//
		return preds[i].Arity < preds[j].Arity
	})
	//
	return preds
}

// HasNegation checks whether any rule in this set contains a negated atom.
func (s *Set) HasNegation() bool {
	for _, r := range s.rules {
		for _, atom := range r.Body {
			if atom.Negated {
				return true
			}
		}
	}
	//
	return false
}

// InheritPredicates declares in this set every predicate declared in some
// other set.
func (s *Set) InheritPredicates(other *Set) {
	for p := range other.preds {
		s.preds[p] = true
	}
}

func (s *Set) String() string {
	var builder strings.Builder
	//
	for _, r := range s.rules {
		builder.WriteString(r.String())
		builder.WriteString("\n")
	}
	//
	return builder.String()
}
