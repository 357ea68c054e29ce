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
	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/datalog"
	"github.com/consensys/go-karr/pkg/hilbert"
	"github.com/consensys/go-karr/pkg/rules"
)

// Plugin manufactures karr relations and the operation closures the
// evaluator applies to them.  All relations of one plugin share a single
// saturator instance, which is reset per dualization.  Operation closures
// only accept relations of this kind: handed a foreign relation, closures
// producing relations return nil and mutators do nothing, leaving the
// evaluator to fall back to a generic domain.
type Plugin struct {
	hb       *hilbert.Solver
	dualizer *Dualizer
}

// NewPlugin constructs a plugin around a fresh saturator.
func NewPlugin() *Plugin {
	hb := hilbert.NewSolver()
	//
	return &Plugin{hb: hb, dualizer: NewDualizer(hb)}
}

// Name returns the symbolic name this plugin registers under.
func (p *Plugin) Name() string { return "karr_relation" }

// SetCancel forwards cancellation to the saturator.
func (p *Plugin) SetCancel(f bool) {
	p.dualizer.SetCancel(f)
}

// SetMaxSteps bounds the work of each saturation run.
func (p *Plugin) SetMaxSteps(n uint) {
	p.hb.SetMaxSteps(n)
}

// MkEmpty creates a relation denoting the empty set.
func (p *Plugin) MkEmpty(sig datalog.Signature) datalog.Relation {
	return newRelation(p, nil, sig, true)
}

// MkFull creates a relation denoting every tuple of the signature.
func (p *Plugin) MkFull(decl *rules.Pred, sig datalog.Signature) datalog.Relation {
	return newRelation(p, decl, sig, false)
}

// MkJoinFn creates a join closure over the given operand signatures.
func (p *Plugin) MkJoinFn(sig1, sig2 datalog.Signature, cols1, cols2 []uint) datalog.JoinFn {
	sig := make(datalog.Signature, 0, len(sig1)+len(sig2))
	sig = append(sig, sig1...)
	sig = append(sig, sig2...)
	//
	return func(r1, r2 datalog.Relation) datalog.Relation {
		k1, ok1 := r1.(*Relation)
		k2, ok2 := r2.(*Relation)
		//
		if !ok1 || !ok2 {
			return nil
		}
		//
		result := newRelation(p, nil, sig, false)
		result.join(k1, k2, cols1, cols2)
		//
		return result
	}
}

// MkProjectFn creates a projection closure removing the given (ascending)
// columns.
func (p *Plugin) MkProjectFn(sig datalog.Signature, removed []uint) datalog.TransformerFn {
	rsig := datalog.IntSignature(sig.Width() - uint(len(removed)))
	//
	return func(r datalog.Relation) datalog.Relation {
		k, ok := r.(*Relation)
		//
		if !ok {
			return nil
		}
		//
		result := newRelation(p, nil, rsig, false)
		result.project(k, removed)
		//
		return result
	}
}

// MkRenameFn creates a renaming closure applying the given cyclic column
// permutation.
func (p *Plugin) MkRenameFn(sig datalog.Signature, cycle []uint) datalog.TransformerFn {
	return func(r datalog.Relation) datalog.Relation {
		k, ok := r.(*Relation)
		//
		if !ok {
			return nil
		}
		//
		result := newRelation(p, nil, sig, false)
		result.rename(k, cycle)
		//
		return result
	}
}

// MkUnionFn creates a union closure.
func (p *Plugin) MkUnionFn() datalog.UnionFn {
	return func(dst, src, delta datalog.Relation) {
		kdst, ok1 := dst.(*Relation)
		ksrc, ok2 := src.(*Relation)
		//
		if !ok1 || !ok2 {
			return
		}
		//
		var kdelta *Relation
		//
		if delta != nil {
			if kdelta, ok1 = delta.(*Relation); !ok1 {
				return
			}
		}
		//
		kdst.union(ksrc, kdelta)
	}
}

// MkFilterIdenticalFn creates a filter forcing the given columns to hold
// identical values.
func (p *Plugin) MkFilterIdenticalFn(sig datalog.Signature, cols []uint) datalog.MutatorFn {
	return func(r datalog.Relation) {
		if k, ok := r.(*Relation); ok {
			k.filterIdentical(cols)
		}
	}
}

// MkFilterEqualFn creates a filter pinning a column to a value.  The value
// is vetted once, when the closure is created.
func (p *Plugin) MkFilterEqualFn(sig datalog.Signature, col uint, value ast.Expr) datalog.MutatorFn {
	_, valid := ast.IsNumeral(value)
	//
	return func(r datalog.Relation) {
		if k, ok := r.(*Relation); ok && valid {
			k.filterEqual(col, value)
		}
	}
}

// MkFilterInterpretedFn creates a filter constraining a relation by an
// interpreted condition.
func (p *Plugin) MkFilterInterpretedFn(sig datalog.Signature, cond ast.Expr) datalog.MutatorFn {
	return func(r datalog.Relation) {
		if k, ok := r.(*Relation); ok {
			k.filterInterpreted(cond)
		}
	}
}
