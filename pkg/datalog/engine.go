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
package datalog

import (
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/rules"
)

// ErrCancelled is returned when evaluation is abandoned because the cancel
// flag was raised.
var ErrCancelled = errors.New("cancelled")

// DefaultMaxRounds bounds chaotic iteration unless overridden.  A run which
// exhausts the bound has not saturated, and its relations must not be
// trusted as invariants.
const DefaultMaxRounds = 256

// Engine evaluates a rule set bottom-up over an abstract domain supplied as
// a plugin.  Relations are materialised lazily: a predicate obtains one the
// first time a fact or derivation reaches it.
type Engine struct {
	plugin    Plugin
	relations map[rules.Pred]Relation
	compiled  []*compiledRule
	union     UnionFn
	maxRounds uint
	cancelled atomic.Bool
}

// NewEngine constructs an engine over the given relation plugin.
func NewEngine(plugin Plugin) *Engine {
	return &Engine{
		plugin:    plugin,
		relations: make(map[rules.Pred]Relation),
		union:     plugin.MkUnionFn(),
		maxRounds: DefaultMaxRounds,
	}
}

// SetMaxRounds bounds the number of chaotic-iteration rounds.
func (e *Engine) SetMaxRounds(n uint) {
	if n > 0 {
		e.maxRounds = n
	}
}

// Cancel raises the cancellation flag; Saturate observes it between rounds.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

// Relation returns the relation currently associated with a predicate, or
// nil if the predicate was never derived into.
func (e *Engine) Relation(p rules.Pred) Relation {
	return e.relations[p]
}

// Load normalises and compiles a rule set, and installs its facts.  Rule
// sets containing negated atoms are rejected.
func (e *Engine) Load(src *rules.Set) error {
	if src.HasNegation() {
		return errors.New("negated atoms are not supported")
	}
	//
	normalized := src.Normalize()
	//
	for _, r := range normalized.Rules() {
		if r.IsFact() {
			e.addFact(r)
		} else {
			cr, err := e.compileRule(r)
			if err != nil {
				return err
			}
			//
			e.compiled = append(e.compiled, cr)
		}
	}
	//
	return nil
}

// Saturate runs chaotic iteration until no rule grows any relation, the
// round budget is exhausted, or cancellation.  It reports whether a fixed
// point was actually reached.
func (e *Engine) Saturate() (bool, error) {
	for round := uint(0); round < e.maxRounds; round++ {
		if e.cancelled.Load() {
			return false, ErrCancelled
		}
		//
		changed := false
		//
		for _, cr := range e.compiled {
			if derived := e.applyRule(cr); derived != nil {
				changed = e.merge(cr.head, derived) || changed
			}
		}
		//
		log.Debugf("datalog round %d (changed=%t)", round, changed)
		//
		if !changed {
			return true, nil
		}
	}
	//
	log.Debugf("datalog run exhausted %d rounds without saturating", e.maxRounds)
	//
	return false, nil
}

func (e *Engine) addFact(r *rules.Rule) {
	rel := e.plugin.MkEmpty(IntSignature(r.Head.Pred.Arity))
	rel.AddFact(r.Head.Args)
	e.merge(r.Head.Pred, rel)
}

// merge unions a derived relation into the head predicate's relation,
// reporting whether anything changed.  An empty derivation still
// materialises an (empty) relation for the head, so that predicates proved
// infeasible are distinguishable from predicates never derived into.
func (e *Engine) merge(head rules.Pred, derived Relation) bool {
	if derived.Empty() {
		if e.relations[head] == nil {
			e.relations[head] = derived
		}
		//
		return false
	}
	//
	cur := e.relations[head]
	//
	if cur == nil {
		e.relations[head] = derived
		return true
	}
	//
	delta := e.plugin.MkEmpty(derived.Signature())
	e.union(cur, derived, delta)
	//
	return !delta.Empty()
}

// compiledRule holds the operation closures for one rule, precompiled so
// that repeated rounds reapply them without re-deriving anything.
type compiledRule struct {
	head rules.Pred
	// sig of the head relation
	headSig Signature
	// sig of the accumulator (one column per rule variable)
	accSig Signature
	// per body atom: its predicate, the join closure and the projection
	// dropping the atom's columns again
	bodyPreds []rules.Pred
	joins     []JoinFn
	unjoins   []TransformerFn
	// filters applied once all atoms are joined
	filters []MutatorFn
	// projection onto the head variables, followed by renames putting them
	// into head order
	headProject TransformerFn
	renames     []TransformerFn
}

func (e *Engine) compileRule(r *rules.Rule) (*compiledRule, error) {
	var (
		nvars = r.NumVars()
		cr    = compiledRule{
			head:    r.Head.Pred,
			headSig: IntSignature(r.Head.Pred.Arity),
			accSig:  IntSignature(nvars),
		}
	)
	// Body atoms: each is joined against the accumulator with one link per
	// argument position, then its columns are projected away again.
	for _, atom := range r.Body {
		var (
			arity = atom.Pred.Arity
			cols1 = make([]uint, arity)
			cols2 = make([]uint, arity)
		)
		//
		for i, arg := range atom.Args {
			v, ok := arg.(*ast.Var)
			if !ok {
				return nil, errors.Errorf("unnormalised atom argument %s", arg)
			}
			//
			cols1[i] = v.Index
			cols2[i] = uint(i)
		}
		//
		join := e.plugin.MkJoinFn(cr.accSig, IntSignature(arity), cols1, cols2)
		unjoin := e.plugin.MkProjectFn(IntSignature(nvars+arity), spanOf(nvars, arity))
		//
		cr.bodyPreds = append(cr.bodyPreds, atom.Pred)
		cr.joins = append(cr.joins, join)
		cr.unjoins = append(cr.unjoins, unjoin)
	}
	// Interpreted constraints: simple variable equalities map onto the
	// dedicated filters, everything else onto the interpreted filter.
	for _, c := range r.Constraints {
		cr.filters = append(cr.filters, e.compileFilter(cr.accSig, c))
	}
	// Head: project onto the head variables, then rename into head order.
	headVars := make([]uint, len(r.Head.Args))
	//
	for i, arg := range r.Head.Args {
		v, ok := arg.(*ast.Var)
		if !ok {
			return nil, errors.Errorf("unnormalised head argument %s", arg)
		}
		//
		headVars[i] = v.Index
	}
	//
	cr.headProject = e.plugin.MkProjectFn(cr.accSig, complementOf(nvars, headVars))
	//
	for _, cycle := range renameCycles(headVars) {
		cr.renames = append(cr.renames, e.plugin.MkRenameFn(cr.headSig, cycle))
	}
	//
	return &cr, nil
}

func (e *Engine) compileFilter(sig Signature, c ast.Expr) MutatorFn {
	if eq, ok := c.(*ast.Eq); ok {
		lv, lok := eq.Lhs.(*ast.Var)
		rv, rok := eq.Rhs.(*ast.Var)
		//
		switch {
		case lok && rok:
			return e.plugin.MkFilterIdenticalFn(sig, []uint{lv.Index, rv.Index})
		case lok && isNumeral(eq.Rhs):
			return e.plugin.MkFilterEqualFn(sig, lv.Index, eq.Rhs)
		case rok && isNumeral(eq.Lhs):
			return e.plugin.MkFilterEqualFn(sig, rv.Index, eq.Lhs)
		}
	}
	//
	return e.plugin.MkFilterInterpretedFn(sig, c)
}

func (e *Engine) applyRule(cr *compiledRule) Relation {
	acc := e.plugin.MkFull(nil, cr.accSig)
	//
	for i, pred := range cr.bodyPreds {
		rel := e.relations[pred]
		//
		if rel == nil {
			// Never derived into: no derivation (and no relation) yet.
			return nil
		} else if rel.Empty() {
			// Empty body atom: the derivation is empty, which is worth
			// recording against the head.
			return e.plugin.MkEmpty(cr.headSig)
		}
		//
		acc = cr.unjoins[i](cr.joins[i](acc, rel))
	}
	//
	for _, filter := range cr.filters {
		filter(acc)
	}
	//
	acc = cr.headProject(acc)
	//
	for _, rename := range cr.renames {
		acc = rename(acc)
	}
	//
	return acc
}

func isNumeral(e ast.Expr) bool {
	_, ok := ast.IsNumeral(e)
	return ok
}

// spanOf returns the column indices [start, start+count).
func spanOf(start, count uint) []uint {
	span := make([]uint, count)
	//
	for i := uint(0); i < count; i++ {
		span[i] = start + i
	}
	//
	return span
}

// complementOf returns, in ascending order, the columns of [0, n) not
// mentioned in keep.
func complementOf(n uint, keep []uint) []uint {
	kept := make(map[uint]bool)
	//
	for _, k := range keep {
		kept[k] = true
	}
	//
	var removed []uint
	//
	for i := uint(0); i < n; i++ {
		if !kept[i] {
			removed = append(removed, i)
		}
	}
	//
	return removed
}

// renameCycles decomposes the permutation taking the ascending ordering of
// headVars to the given ordering into cycles suitable for the rename
// operator (which moves the value at cycle[i+1] into position cycle[i]).
func renameCycles(headVars []uint) [][]uint {
	var (
		k      = uint(len(headVars))
		sorted = make([]uint, k)
		perm   = make([]uint, k)
	)
	//
	copy(sorted, headVars)
	sortUints(sorted)
	// position of each variable in the target (head) ordering
	target := make(map[uint]uint)
	//
	for j, v := range headVars {
		target[v] = uint(j)
	}
	// perm[i] = destination of the value currently in column i
	for i, v := range sorted {
		perm[i] = target[v]
	}
	//
	var (
		cycles  [][]uint
		visited = make([]bool, k)
	)
	//
	for i := uint(0); i < k; i++ {
		if visited[i] || perm[i] == i {
			visited[i] = true
			continue
		}
		//
		var orbit []uint
		//
		for j := i; !visited[j]; j = perm[j] {
			visited[j] = true
			orbit = append(orbit, j)
		}
		// The rename operator walks its cycle against the permutation
		// direction, hence the orbit is reversed.
		for lo, hi := 0, len(orbit)-1; lo < hi; lo, hi = lo+1, hi-1 {
			orbit[lo], orbit[hi] = orbit[hi], orbit[lo]
		}
		//
		cycles = append(cycles, orbit)
	}
	//
	return cycles
}

func sortUints(v []uint) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}
