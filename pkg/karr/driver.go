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
package karr

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/datalog"
	"github.com/consensys/go-karr/pkg/rules"
)

// Config controls the invariant finder.
type Config struct {
	// Enabled turns the transform on; when off, Transform is the identity.
	Enabled bool
	// MaxRounds bounds chaotic iteration per saturation pass.
	MaxRounds uint
	// MaxSteps bounds each Hilbert-basis saturation run.
	MaxSteps uint
}

// DefaultConfig returns the enabled configuration with default budgets.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// InvariantFinder discovers, for every predicate of a rule set, a
// conjunction of linear (in)equalities holding of every derivable tuple,
// and rewrites the rule set so that each body atom carries its predicate's
// invariant as an extra interpreted conjunct.
type InvariantFinder struct {
	cfg    Config
	plugin *Plugin
	// invariants over the widened (loop-counter) predicates
	invariants map[rules.Pred]ast.Expr
	// invariants reverted onto the original predicates
	reverted map[rules.Pred]ast.Expr
	// converter grafting the reverted invariants onto a model
	converter *AddInvariantModelConverter
	//
	cancelled atomic.Bool
	engine    atomic.Pointer[datalog.Engine]
}

// NewInvariantFinder constructs a finder with the given configuration.
func NewInvariantFinder(cfg Config) *InvariantFinder {
	plugin := NewPlugin()
	//
	if cfg.MaxSteps != 0 {
		plugin.SetMaxSteps(cfg.MaxSteps)
	}
	//
	return &InvariantFinder{
		cfg:        cfg,
		plugin:     plugin,
		invariants: make(map[rules.Pred]ast.Expr),
		reverted:   make(map[rules.Pred]ast.Expr),
	}
}

// Cancel aborts the analysis from another thread: the flag is observed
// before each saturation pass, forwarded to the running evaluator and to
// the saturator.
func (f *InvariantFinder) Cancel() {
	f.cancelled.Store(true)
	//
	if e := f.engine.Load(); e != nil {
		e.Cancel()
	}
	//
	f.plugin.SetCancel(true)
}

// Invariants returns the discovered invariants, keyed by the original
// predicates.  Only meaningful after a successful Transform.
func (f *InvariantFinder) Invariants() map[rules.Pred]ast.Expr {
	result := make(map[rules.Pred]ast.Expr, len(f.reverted))
	//
	for p, inv := range f.reverted {
		result[p] = inv
	}
	//
	return result
}

// ModelConverter returns a converter which grafts the discovered
// invariants onto predicate interpretations of a post-solve model.  Only
// meaningful after a successful Transform.
func (f *InvariantFinder) ModelConverter() datalog.ModelConverter {
	return f.converter
}

// Transform runs the analysis over a rule set and returns the annotated
// set.  Unsupported inputs (negated atoms) are returned unchanged; when the
// transform is disabled it is the identity.  On cancellation it returns
// nil together with ErrCancelled, and nothing was learned.
func (f *InvariantFinder) Transform(src *rules.Set) (*rules.Set, error) {
	if !f.cfg.Enabled {
		return src, nil
	}
	//
	if src.HasNegation() {
		log.Debugf("karr: rule set contains negation, skipping")
		return src, nil
	}
	//
	lc := rules.NewLoopCounter()
	srcLoop := lc.Apply(src)
	// Forward pass
	if err := f.getInvariants(srcLoop); err != nil {
		return nil, err
	}
	// Backward pass, strengthening invariants using reversed flow
	if err := f.getInvariants(rules.Backwards(srcLoop)); err != nil {
		return nil, err
	}
	// Annotate rule bodies with the invariants of their atoms
	annotated := f.updateRules(srcLoop)
	// Undo the loop-counter widening
	result := lc.Revert(annotated)
	result.InheritPredicates(src)
	// Revert the recorded invariants alongside, and expose them through the
	// model converter.
	f.converter = NewAddInvariantModelConverter()
	//
	for p, inv := range f.invariants {
		op, oinv, ok := lc.RevertInvariant(p, inv)
		//
		if !ok || ast.IsTrue(oinv) {
			continue
		}
		//
		if prev, exists := f.reverted[op]; exists {
			oinv = ast.Conjoin(prev, oinv)
		}
		//
		f.reverted[op] = oinv
	}
	//
	for p, inv := range f.reverted {
		f.converter.Add(p, inv)
	}
	//
	return result, nil
}

// getInvariants runs one saturation pass over a rule set and harvests a
// constraint formula for every materialised relation.  A pass which fails
// to reach a fixed point within budget contributes nothing: its relations
// underapproximate nothing and may not be trusted.
func (f *InvariantFinder) getInvariants(src *rules.Set) error {
	if f.cancelled.Load() {
		return datalog.ErrCancelled
	}
	//
	engine := datalog.NewEngine(f.plugin)
	//
	if f.cfg.MaxRounds != 0 {
		engine.SetMaxRounds(f.cfg.MaxRounds)
	}
	//
	f.engine.Store(engine)
	defer f.engine.Store(nil)
	//
	if err := engine.Load(src); err != nil {
		log.Debugf("karr: cannot evaluate rule set: %v", err)
		return nil
	}
	//
	saturated, err := engine.Saturate()
	//
	if err != nil {
		return err
	} else if !saturated {
		log.Debugf("karr: pass did not saturate, discarding")
		return nil
	}
	//
	for _, p := range src.Preds() {
		rel := engine.Relation(p)
		//
		if rel == nil {
			continue
		}
		//
		fml := rel.ToFormula()
		//
		if ast.IsTrue(fml) {
			continue
		}
		//
		if prev, ok := f.invariants[p]; ok {
			fml = ast.Conjoin(prev, fml)
		}
		//
		log.Debugf("karr: invariant for %s: %s", p, fml)
		f.invariants[p] = fml
	}
	//
	return nil
}

// updateRules appends, to every rule body, the invariant of each body
// atom's predicate instantiated with the atom's arguments.
func (f *InvariantFinder) updateRules(src *rules.Set) *rules.Set {
	dst := rules.NewSet()
	dst.InheritPredicates(src)
	//
	for _, r := range src.Rules() {
		nr := rules.Rule{Name: r.Name, Head: r.Head, Body: r.Body}
		nr.Constraints = append(nr.Constraints, r.Constraints...)
		//
		for _, atom := range r.Body {
			inv, ok := f.invariants[atom.Pred]
			//
			if !ok {
				continue
			}
			//
			sub := make(map[uint]ast.Expr, len(atom.Args))
			//
			for j, arg := range atom.Args {
				sub[uint(j)] = arg
			}
			//
			nr.Constraints = append(nr.Constraints, ast.SafeReplace(inv, sub))
		}
		//
		dst.Add(&nr)
	}
	//
	return dst
}
