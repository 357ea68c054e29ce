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
	"math/big"
	"strings"

	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/datalog"
	"github.com/consensys/go-karr/pkg/rules"
)

// Relation is the abstract value attached to a predicate: a set of integer
// tuples maintained lazily in constraint form (ineqs) and/or generator form
// (basis).  At least one form is valid for a non-empty relation; mutating
// one form invalidates the other, and the invalid form is re-derived on
// demand through the plugin's dualizer.
type Relation struct {
	plugin *Plugin
	sig    datalog.Signature
	// decl optionally identifies the predicate this relation belongs to;
	// it is used only to label output.
	decl *rules.Pred
	// empty, when set, means the relation denotes no tuples and the other
	// fields are meaningless.
	empty bool
	// ineqs is the constraint form {x | A·x + b =/>= 0}.
	ineqs      Matrix
	ineqsValid bool
	// basis is the generator form: an initial point (constant one) plus
	// direction vectors (constant zero), all tagged equality.
	basis      Matrix
	basisValid bool
}

func newRelation(plugin *Plugin, decl *rules.Pred, sig datalog.Signature, isEmpty bool) *Relation {
	return &Relation{
		plugin:     plugin,
		sig:        sig,
		decl:       decl,
		empty:      isEmpty,
		ineqsValid: !isEmpty,
	}
}

// Signature returns the tuple signature of this relation.
func (r *Relation) Signature() datalog.Signature { return r.sig }

// Empty checks whether this relation denotes the empty set.
func (r *Relation) Empty() bool { return r.empty }

// Width returns the number of columns of this relation.
func (r *Relation) Width() uint { return r.sig.Width() }

// Clone produces a deep copy.
func (r *Relation) Clone() datalog.Relation {
	nr := newRelation(r.plugin, r.decl, r.sig, r.empty)
	nr.copyFrom(r)
	//
	return nr
}

func (r *Relation) copyFrom(other *Relation) {
	r.ineqs = other.ineqs.Clone()
	r.basis = other.basis.Clone()
	r.ineqsValid = other.ineqsValid
	r.basisValid = other.basisValid
	r.empty = other.empty
}

// AddFact pins each integer-numeral component of the fact to its column.
// This may only be called on a freshly created empty relation; non-numeral
// components leave their column unconstrained.
func (r *Relation) AddFact(fact []ast.Expr) {
	r.empty = false
	r.ineqsValid = true
	r.basisValid = false
	//
	for i, f := range fact {
		if n, ok := ast.IsNumeral(f); ok {
			row := NewRow(r.Width())
			row.Coeffs[i].SetInt64(1)
			row.Const.Neg(ratFromInt(n))
			row.IsEq = true
			r.ineqs.AddRow(row)
		}
	}
}

// ToFormula renders this relation as a symbolic constraint over its column
// variables: false when empty, otherwise the conjunction of its constraint
// rows.
func (r *Relation) ToFormula() ast.Expr {
	if r.empty {
		return ast.False()
	}
	//
	var emitter FormulaEmitter
	//
	ineqs := r.Ineqs()
	// Re-derivation may discover emptiness.
	if r.empty {
		return ast.False()
	}
	//
	return emitter.EmitMatrix(ineqs)
}

func (r *Relation) String() string {
	var builder strings.Builder
	//
	if r.decl != nil {
		builder.WriteString(r.decl.String())
		builder.WriteString("\n")
	}
	//
	if r.empty {
		builder.WriteString("empty\n")
		return builder.String()
	}
	//
	if r.ineqsValid {
		builder.WriteString("ineqs:\n")
		builder.WriteString(r.ineqs.String())
	}
	//
	if r.basisValid {
		builder.WriteString("basis:\n")
		builder.WriteString(r.basis.String())
	}
	//
	return builder.String()
}

// Ineqs materialises and returns the constraint form.
func (r *Relation) Ineqs() *Matrix {
	if !r.ineqsValid {
		if !r.basisValid {
			panic("relation has no valid representation")
		}
		//
		r.plugin.dualizer.DualizeH(&r.ineqs, &r.basis, r.Width())
		r.ineqsValid = true
	}
	//
	return &r.ineqs
}

// Basis materialises and returns the generator form.  If the constraints
// turn out infeasible the relation becomes empty.
func (r *Relation) Basis() *Matrix {
	if !r.basisValid {
		if !r.ineqsValid {
			panic("relation has no valid representation")
		}
		//
		if r.plugin.dualizer.DualizeI(&r.basis, &r.ineqs, r.Width()) {
			r.basisValid = true
		} else {
			r.empty = true
		}
	}
	//
	return &r.basis
}

// join makes this relation the join of r1 and r2: the columns of r1
// followed by the columns of r2, with cols1[i] equated to cols2[i] for each
// linked pair.  Built in constraint form by padding, shifting and linking.
func (r *Relation) join(r1, r2 *Relation, cols1, cols2 []uint) {
	if r1.empty || r2.empty {
		r.empty = true
		return
	}
	//
	var (
		m1 = r1.Ineqs()
		m2 = r2.Ineqs()
		n1 = r1.Width()
		n  = r.Width()
	)
	//
	r.ineqs.Reset()
	// Zero-pad rows of r1
	for i := uint(0); i < m1.Size(); i++ {
		src := m1.Row(i)
		row := NewRow(n)
		//
		for j := range src.Coeffs {
			row.Coeffs[j].Set(&src.Coeffs[j])
		}
		//
		row.Const.Set(&src.Const)
		row.IsEq = src.IsEq
		r.ineqs.AddRow(row)
	}
	// Shift rows of r2
	for i := uint(0); i < m2.Size(); i++ {
		src := m2.Row(i)
		row := NewRow(n)
		//
		for j := range src.Coeffs {
			row.Coeffs[n1+uint(j)].Set(&src.Coeffs[j])
		}
		//
		row.Const.Set(&src.Const)
		row.IsEq = src.IsEq
		r.ineqs.AddRow(row)
	}
	// Link column pairs
	for i := range cols1 {
		row := NewRow(n)
		row.Coeffs[cols1[i]].SetInt64(1)
		row.Coeffs[n1+cols2[i]].SetInt64(-1)
		row.IsEq = true
		r.ineqs.AddRow(row)
	}
	//
	r.ineqsValid = true
	r.basisValid = false
	r.empty = false
	//
	if r1.decl != nil {
		r.decl = r1.decl
	}
	//
	if r2.decl != nil {
		r.decl = r2.decl
	}
}

// project makes this relation the projection of src with the given columns
// (in ascending order) removed.  Works in generator form, where dropping
// components of every generator yields generators of the projection.
func (r *Relation) project(src *Relation, removed []uint) {
	if src.empty {
		r.empty = true
		return
	}
	//
	basis := src.Basis()
	//
	if src.empty {
		r.empty = true
		return
	}
	//
	r.basis.Reset()
	//
	for i := uint(0); i < basis.Size(); i++ {
		var (
			from = basis.Row(i)
			row  = NewRow(from.Width() - uint(len(removed)))
			k    = 0
			next = 0
		)
		//
		for j := range from.Coeffs {
			if k < len(removed) && uint(j) == removed[k] {
				k++
			} else {
				row.Coeffs[next].Set(&from.Coeffs[j])
				next++
			}
		}
		//
		row.Const.Set(&from.Const)
		row.IsEq = true
		r.basis.AddRow(row)
	}
	//
	r.basisValid = true
	r.ineqsValid = false
	r.empty = false
	r.decl = src.decl
}

// rename applies a cyclic column permutation to whichever representations
// are currently valid, preserving their validity.
func (r *Relation) rename(src *Relation, cycle []uint) {
	if src.empty {
		r.empty = true
		return
	}
	//
	r.ineqs.Reset()
	r.basis.Reset()
	r.ineqsValid = src.ineqsValid
	r.basisValid = src.basisValid
	r.empty = false
	//
	if r.ineqsValid {
		r.ineqs.Append(&src.ineqs)
		renameMatrix(&r.ineqs, cycle)
	}
	//
	if r.basisValid {
		r.basis.Append(&src.basis)
		renameMatrix(&r.basis, cycle)
	}
	//
	r.decl = src.decl
}

func renameMatrix(m *Matrix, cycle []uint) {
	for i := uint(0); i < m.Size(); i++ {
		var (
			row = m.Row(i)
			tmp big.Rat
		)
		//
		tmp.Set(&row.Coeffs[cycle[0]])
		//
		for j := 0; j+1 < len(cycle); j++ {
			row.Coeffs[cycle[j]].Set(&row.Coeffs[cycle[j+1]])
		}
		//
		row.Coeffs[cycle[len(cycle)-1]].Set(&tmp)
	}
}

func ratFromInt(n *big.Int) *big.Rat {
	return new(big.Rat).SetInt(n)
}

// union unions the generator set of src into this relation.  When anything
// was added and delta is non-nil, delta receives a copy of the updated
// relation, signalling change to the fixed-point loop.
func (r *Relation) union(src *Relation, delta *Relation) {
	if src.empty {
		if delta != nil {
			delta.empty = true
		}
		//
		return
	}
	//
	m := src.Basis()
	//
	if src.empty {
		if delta != nil {
			delta.empty = true
		}
		//
		return
	}
	// Adopt wholesale when this relation is empty.
	if r.empty {
		r.basis = m.Clone()
		r.basisValid = true
		r.ineqsValid = false
		r.empty = false
		//
		if delta != nil {
			delta.copyFrom(r)
		}
		//
		return
	}
	//
	n := r.Basis()
	// Materialisation may prove this side infeasible after all.
	if r.empty {
		r.basis = m.Clone()
		r.basisValid = true
		r.ineqsValid = false
		r.empty = false
		//
		if delta != nil {
			delta.copyFrom(r)
		}
		//
		return
	}
	//
	size0 := n.Size()
	//
	for i := uint(0); i < m.Size(); i++ {
		if !n.Contains(m.Row(i)) {
			n.AddRow(m.Row(i).Clone())
		}
	}
	//
	r.ineqsValid = false
	//
	if n.Size() != size0 && delta != nil {
		delta.copyFrom(r)
	}
}

// filterIdentical constrains the given columns to hold identical values.
func (r *Relation) filterIdentical(cols []uint) {
	if r.empty || len(cols) < 2 {
		return
	}
	//
	m := r.Ineqs()
	//
	for _, col := range cols[1:] {
		if col == cols[0] {
			continue
		}
		//
		row := NewRow(r.Width())
		row.Coeffs[cols[0]].SetInt64(1)
		row.Coeffs[col].SetInt64(-1)
		row.IsEq = true
		m.AddRow(row)
	}
	//
	r.basisValid = false
}

// filterEqual pins a column to an integer value.  Non-numeral values are
// ignored, which is sound.
func (r *Relation) filterEqual(col uint, value ast.Expr) {
	n, ok := ast.IsNumeral(value)
	//
	if !ok || r.empty {
		return
	}
	//
	m := r.Ineqs()
	//
	row := NewRow(r.Width())
	row.Coeffs[col].SetInt64(1)
	row.Const.Neg(ratFromInt(n))
	row.IsEq = true
	m.AddRow(row)
	//
	r.basisValid = false
}

// filterInterpreted constrains this relation by an interpreted condition,
// keeping whichever conjuncts parse as linear constraints.
func (r *Relation) filterInterpreted(cond ast.Expr) {
	if r.empty {
		return
	}
	//
	parser := NewConstraintParser(r.Width())
	parser.Parse(r.Ineqs(), cond)
	//
	r.basisValid = false
}
