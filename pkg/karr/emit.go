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

	"github.com/consensys/go-karr/pkg/ast"
)

// FormulaEmitter renders a matrix back into a symbolic conjunction of
// linear (in)equalities over the relation's column variables.
type FormulaEmitter struct{}

// EmitMatrix renders a whole matrix as a conjunction.  An empty matrix
// renders as true (no constraints).
func (e *FormulaEmitter) EmitMatrix(m *Matrix) ast.Expr {
	conjs := make([]ast.Expr, 0, m.Size())
	//
	for i := uint(0); i < m.Size(); i++ {
		conjs = append(conjs, e.EmitRow(m.Row(i)))
	}
	//
	return ast.Conjoin(conjs...)
}

// EmitRow renders one row as "sum(coeffs * vars) + const ⋈ 0" with zero
// coefficients elided, unit coefficients rendered bare and minus-one
// coefficients as negation.
func (e *FormulaEmitter) EmitRow(r *Row) ast.Expr {
	var (
		one = big.NewInt(1)
		sum []ast.Expr
	)
	// Rows are emitted over the integers.
	coeffs, constant := r.Scaled()
	//
	for j, c := range coeffs {
		if c.Sign() == 0 {
			continue
		}
		//
		v := ast.NewVar(uint(j), "")
		//
		switch {
		case c.Cmp(one) == 0:
			sum = append(sum, v)
		case c.CmpAbs(one) == 0:
			sum = append(sum, &ast.Neg{Arg: v})
		default:
			sum = append(sum, &ast.Mul{Lhs: ast.NewNumFromBig(c), Rhs: v})
		}
	}
	//
	if constant.Sign() != 0 {
		sum = append(sum, ast.NewNumFromBig(constant))
	}
	//
	var lhs ast.Expr
	//
	if len(sum) == 0 {
		lhs = ast.NewNum(0)
	} else if len(sum) == 1 {
		lhs = sum[0]
	} else {
		lhs = ast.Sum(sum...)
	}
	//
	if r.IsEq {
		return &ast.Eq{Lhs: lhs, Rhs: ast.NewNum(0)}
	}
	//
	return &ast.Ge{Lhs: lhs, Rhs: ast.NewNum(0)}
}
