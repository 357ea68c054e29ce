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
	"github.com/consensys/go-karr/pkg/rules"
)

// AddInvariantModelConverter conjoins discovered invariants into the
// functional interpretations of their predicates after the outer solver has
// produced a model.
type AddInvariantModelConverter struct {
	preds []rules.Pred
	invs  []ast.Expr
}

// NewAddInvariantModelConverter constructs an empty converter.
func NewAddInvariantModelConverter() *AddInvariantModelConverter {
	return &AddInvariantModelConverter{}
}

// Add records an invariant for a predicate.  Trivially true invariants are
// not recorded.
func (c *AddInvariantModelConverter) Add(p rules.Pred, inv ast.Expr) {
	if !ast.IsTrue(inv) {
		c.preds = append(c.preds, p)
		c.invs = append(c.invs, inv)
	}
}

// Apply rewrites the model: a total interpretation has the invariant
// conjoined into its default, a partial interpretation is left untouched,
// and a missing interpretation is created with default false.
func (c *AddInvariantModelConverter) Apply(m *datalog.Model) {
	for i, p := range c.preds {
		f := m.Interp(p)
		//
		if f == nil {
			// fragile: assume that relation was pruned by being infeasible.
			m.SetInterp(p, &datalog.FuncInterp{Else: ast.False()})
			continue
		}
		//
		if !f.Partial {
			f.Else = ast.Conjoin(f.Else, c.invs[i])
		}
	}
}

// Translate clones this converter across contexts, mapping every recorded
// predicate and invariant through the given translator.
func (c *AddInvariantModelConverter) Translate(tr datalog.Translator) datalog.ModelConverter {
	nc := NewAddInvariantModelConverter()
	//
	for i, p := range c.preds {
		nc.Add(tr.Pred(p), tr.Expr(c.invs[i]))
	}
	//
	return nc
}
