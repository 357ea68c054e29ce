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

// Package datalog provides a bottom-up evaluator for Horn rule sets over an
// abstract relational domain.  The domain itself is supplied as a plugin
// which manufactures relations and closures for the relational algebra
// (join, project, rename, union and filters); the evaluator merely drives
// those closures under chaotic iteration until saturation.
package datalog

import (
	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/rules"
)

// Sort describes the type of one column of a relation signature.
type Sort uint8

const (
	// IntSort is the sort of integer-valued columns.  It is the only sort
	// the abstract domains of this module interpret.
	IntSort Sort = iota
)

// Signature describes the column sorts of a relation.
type Signature []Sort

// IntSignature constructs a signature of n integer columns.
func IntSignature(n uint) Signature {
	return make(Signature, n)
}

// Width returns the number of columns of this signature.
func (s Signature) Width() uint { return uint(len(s)) }

// Relation is an abstract value denoting a set of integer tuples.
type Relation interface {
	// Signature returns the tuple signature of this relation.
	Signature() Signature
	// Empty checks whether this relation denotes the empty set.
	Empty() bool
	// Clone produces a deep, independently mutable copy.
	Clone() Relation
	// AddFact adds a single ground tuple.  This may only be called on a
	// freshly created empty relation.
	AddFact(fact []ast.Expr)
	// ToFormula renders this relation as a symbolic constraint over its
	// column variables.
	ToFormula() ast.Expr
	// String produces a human-readable rendering for debug output.
	String() string
}

// JoinFn computes the join of two relations as a fresh relation.
type JoinFn func(r1, r2 Relation) Relation

// TransformerFn computes a fresh relation from an existing one (projection,
// renaming).
type TransformerFn func(r Relation) Relation

// UnionFn destructively unions src into dst.  When delta is non-nil and dst
// grew, delta receives a copy of the updated dst; otherwise delta remains
// (or becomes) empty.
type UnionFn func(dst, src, delta Relation)

// MutatorFn destructively filters a relation in place.
type MutatorFn func(r Relation)

// Plugin manufactures relations of one particular kind together with the
// operation closures the evaluator applies to them.  Factories return nil
// closures when handed relations of a foreign kind.
type Plugin interface {
	// Name returns the symbolic name this plugin registers under.
	Name() string
	// MkEmpty creates a relation denoting the empty set.
	MkEmpty(sig Signature) Relation
	// MkFull creates a relation denoting every tuple of the signature.  The
	// declaration, when given, is used only to label output.
	MkFull(decl *rules.Pred, sig Signature) Relation
	// MkJoinFn creates a join closure for the given operand signatures,
	// linking cols1 of the first operand with cols2 of the second.
	MkJoinFn(sig1, sig2 Signature, cols1, cols2 []uint) JoinFn
	// MkProjectFn creates a projection closure removing the given columns,
	// which must be in ascending order.
	MkProjectFn(sig Signature, removed []uint) TransformerFn
	// MkRenameFn creates a renaming closure applying the given cyclic
	// column permutation.
	MkRenameFn(sig Signature, cycle []uint) TransformerFn
	// MkUnionFn creates a union closure.
	MkUnionFn() UnionFn
	// MkFilterIdenticalFn creates a filter forcing the given columns to
	// hold identical values.
	MkFilterIdenticalFn(sig Signature, cols []uint) MutatorFn
	// MkFilterEqualFn creates a filter forcing a column to equal a value.
	MkFilterEqualFn(sig Signature, col uint, value ast.Expr) MutatorFn
	// MkFilterInterpretedFn creates a filter constraining a relation by an
	// interpreted condition over its column variables.
	MkFilterInterpretedFn(sig Signature, cond ast.Expr) MutatorFn
}
