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

// LoopCounter widens every predicate with a trailing counter column, which
// exposes additional linear structure to the invariant analysis: facts start
// the counter at zero and every derivation step increments it.  The
// transform is inverted (after invariants have been harvested) by Revert.
type LoopCounter struct {
	widened  map[Pred]Pred
	narrowed map[Pred]Pred
}

// NewLoopCounter constructs a fresh loop-counter transform.
func NewLoopCounter() *LoopCounter {
	return &LoopCounter{
		widened:  make(map[Pred]Pred),
		narrowed: make(map[Pred]Pred),
	}
}

// Apply widens every predicate of the source set with a counter column and
// rewrites its rules accordingly.
func (lc *LoopCounter) Apply(src *Set) *Set {
	for _, p := range src.Preds() {
		wp := NewPred(p.Name, p.Arity+1)
		lc.widened[p] = wp
		lc.narrowed[wp] = p
	}
	//
	dst := NewSet()
	//
	for wp := range lc.narrowed {
		dst.Declare(wp)
	}
	//
	for _, r := range src.Rules() {
		dst.Add(lc.applyRule(r))
	}
	//
	return dst
}

func (lc *LoopCounter) applyRule(r *Rule) *Rule {
	nr := Rule{Name: r.Name, Constraints: r.Constraints}
	//
	if len(r.Body) == 0 {
		// Initialisation rule (or fact): counter starts at zero.
		nr.Head = lc.widenAtom(r.Head, ast.NewNum(0))
		return &nr
	}
	// Every body atom receives a fresh counter variable; the head counter is
	// one more than the first body counter.
	next := r.NumVars()
	//
	for i, atom := range r.Body {
		counter := ast.NewVar(next+uint(i), fmt.Sprintf("k%d", i))
		nr.Body = append(nr.Body, lc.widenAtom(atom, counter))
	}
	//
	head := ast.Sum(ast.NewVar(next, "k0"), ast.NewNum(1))
	nr.Head = lc.widenAtom(r.Head, head)
	//
	return &nr
}

func (lc *LoopCounter) widenAtom(a Atom, counter ast.Expr) Atom {
	args := make([]ast.Expr, len(a.Args)+1)
	copy(args, a.Args)
	args[len(a.Args)] = counter
	//
	return Atom{Pred: lc.widened[a.Pred], Args: args, Negated: a.Negated}
}

// Revert narrows every widened predicate back to its original signature by
// dropping the counter argument from every atom.  Interpreted constraints
// are kept: a counter variable they mention simply becomes a free (hence
// existentially quantified) variable of the rule body.
func (lc *LoopCounter) Revert(src *Set) *Set {
	dst := NewSet()
	//
	for wp, p := range lc.narrowed {
		if src.preds[wp] {
			dst.Declare(p)
		}
	}
	//
	for _, r := range src.Rules() {
		nr := Rule{Name: r.Name, Head: lc.narrowAtom(r.Head), Constraints: r.Constraints}
		//
		for _, atom := range r.Body {
			nr.Body = append(nr.Body, lc.narrowAtom(atom))
		}
		//
		dst.Add(&nr)
	}
	//
	return dst
}

func (lc *LoopCounter) narrowAtom(a Atom) Atom {
	p, ok := lc.narrowed[a.Pred]
	//
	if !ok {
		return a
	}
	//
	return Atom{Pred: p, Args: a.Args[:p.Arity], Negated: a.Negated}
}

// RevertInvariant maps an invariant discovered for a widened predicate back
// to the original predicate.  Conjuncts mentioning the counter column (or
// anything beyond the original arity) are dropped; every remaining conjunct
// holds of the original predicate since each one is valid independently.
func (lc *LoopCounter) RevertInvariant(p Pred, inv ast.Expr) (Pred, ast.Expr, bool) {
	op, ok := lc.narrowed[p]
	//
	if !ok {
		return p, inv, false
	}
	//
	var kept []ast.Expr
	//
	for _, conj := range ast.FlattenAnd(inv) {
		vars := make(map[uint]bool)
		ast.Vars(conj, vars)
		//
		inRange := true
		//
		for v := range vars {
			if v >= op.Arity {
				inRange = false
				break
			}
		}
		//
		if inRange {
			kept = append(kept, conj)
		}
	}
	//
	return op, ast.Conjoin(kept...), true
}
