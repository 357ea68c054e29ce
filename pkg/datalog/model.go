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
	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/rules"
)

// FuncInterp is the functional interpretation of a predicate within a
// model: a default ("else") value, possibly partial.
type FuncInterp struct {
	// Partial indicates the interpretation has no meaningful default.
	Partial bool
	// Else is the default value of the interpretation.
	Else ast.Expr
}

// Model maps predicates to their functional interpretations after solving.
type Model struct {
	interps map[rules.Pred]*FuncInterp
}

// NewModel constructs an empty model.
func NewModel() *Model {
	return &Model{interps: make(map[rules.Pred]*FuncInterp)}
}

// Interp returns the interpretation of a predicate, or nil if it has none.
func (m *Model) Interp(p rules.Pred) *FuncInterp {
	return m.interps[p]
}

// SetInterp records the interpretation of a predicate.
func (m *Model) SetInterp(p rules.Pred, f *FuncInterp) {
	m.interps[p] = f
}

// Translator maps predicates and expressions between contexts, allowing a
// model converter to be cloned across them.
type Translator struct {
	Pred func(rules.Pred) rules.Pred
	Expr func(ast.Expr) ast.Expr
}

// ModelConverter post-processes a model produced by the outer solver.
type ModelConverter interface {
	// Apply rewrites the given model in place.
	Apply(m *Model)
	// Translate clones this converter through the given translator.
	Translate(tr Translator) ModelConverter
}
