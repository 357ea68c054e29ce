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

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-karr/pkg/ast"
)

// ConstraintParser recognises linear (in)equalities in symbolic form and
// emits matrix rows for them.  Atoms which are not recognised are silently
// ignored: dropping a constraint only weakens the relation, which is sound.
type ConstraintParser struct {
	width uint
}

// NewConstraintParser constructs a parser for constraints over a given
// number of columns.
func NewConstraintParser(width uint) *ConstraintParser {
	return &ConstraintParser{width: width}
}

// Parse flattens a condition into its conjuncts and appends a matrix row
// for every conjunct it recognises.
func (p *ConstraintParser) Parse(dst *Matrix, cond ast.Expr) {
	for _, conj := range ast.FlattenAnd(cond) {
		if !p.parseAtom(dst, conj) {
			log.Debugf("karr: ignoring unrecognised atom %s", conj)
		}
	}
}

func (p *ConstraintParser) parseAtom(dst *Matrix, e ast.Expr) bool {
	var (
		one  = big.NewRat(1, 1)
		mone = big.NewRat(-1, 1)
		row  = NewRow(p.width)
	)
	//
	switch t := e.(type) {
	case *ast.Eq:
		// e1 = e2  ~~>  e1 - e2 = 0
		if p.linear(&row, t.Lhs, one) && p.linear(&row, t.Rhs, mone) {
			row.IsEq = true
			dst.AddRow(row)
			//
			return true
		}
	case *ast.Le:
		// e1 <= e2  ~~>  e2 - e1 >= 0
		return p.addGe(dst, row, t.Lhs, t.Rhs, false)
	case *ast.Ge:
		// e1 >= e2  ~~>  e1 - e2 >= 0
		return p.addGe(dst, row, t.Rhs, t.Lhs, false)
	case *ast.Lt:
		// e1 < e2  ~~>  e2 - e1 - 1 >= 0 (integer tightening)
		return p.addGe(dst, row, t.Lhs, t.Rhs, true)
	case *ast.Gt:
		// e1 > e2  ~~>  e1 - e2 - 1 >= 0
		return p.addGe(dst, row, t.Rhs, t.Lhs, true)
	case *ast.Not:
		switch n := t.Arg.(type) {
		case *ast.Lt:
			// not(e2 < e1)  ~~>  e2 >= e1
			return p.addGe(dst, row, n.Rhs, n.Lhs, false)
		case *ast.Gt:
			// not(e1 > e2)  ~~>  e2 >= e1
			return p.addGe(dst, row, n.Lhs, n.Rhs, false)
		case *ast.Le:
			// not(e2 <= e1)  ~~>  e2 > e1
			return p.addGe(dst, row, n.Rhs, n.Lhs, true)
		case *ast.Ge:
			// not(e1 >= e2)  ~~>  e2 > e1
			return p.addGe(dst, row, n.Lhs, n.Rhs, true)
		}
	case *ast.Or:
		return p.parseDisjunction(dst, t)
	}
	//
	return false
}

// addGe emits the inequality hi - lo >= 0, decrementing the constant by one
// when the source comparison was strict.
func (p *ConstraintParser) addGe(dst *Matrix, row Row, lo, hi ast.Expr, strict bool) bool {
	var (
		one  = big.NewRat(1, 1)
		mone = big.NewRat(-1, 1)
	)
	//
	if !p.linear(&row, lo, mone) || !p.linear(&row, hi, one) {
		return false
	}
	//
	if strict {
		row.Const.Sub(&row.Const, one)
	}
	//
	row.IsEq = false
	dst.AddRow(row)
	//
	return true
}

// parseDisjunction recognises (v = n1) or (v = n2) over a single variable
// and two integer constants, approximating it by the convex hull
// min(n1,n2) <= v <= max(n1,n2).
func (p *ConstraintParser) parseDisjunction(dst *Matrix, or *ast.Or) bool {
	if len(or.Args) != 2 {
		return false
	}
	//
	v1, n1, ok1 := varEqualsNumeral(or.Args[0])
	v2, n2, ok2 := varEqualsNumeral(or.Args[1])
	//
	if !ok1 || !ok2 || v1 != v2 || v1 >= p.width {
		return false
	}
	//
	if n1.Cmp(n2) > 0 {
		n1, n2 = n2, n1
	}
	// v - n1 >= 0
	lower := NewRow(p.width)
	lower.Coeffs[v1].SetInt64(1)
	lower.Const.Neg(new(big.Rat).SetInt(n1))
	lower.IsEq = false
	dst.AddRow(lower)
	// -v + n2 >= 0
	upper := NewRow(p.width)
	upper.Coeffs[v1].SetInt64(-1)
	upper.Const.SetInt(n2)
	upper.IsEq = false
	dst.AddRow(upper)
	//
	return true
}

// varEqualsNumeral recognises v = n (or n = v) for a variable v and integer
// numeral n.
func varEqualsNumeral(e ast.Expr) (uint, *big.Int, bool) {
	eq, ok := e.(*ast.Eq)
	//
	if !ok {
		return 0, nil, false
	}
	//
	lhs, rhs := eq.Lhs, eq.Rhs
	//
	if _, ok := lhs.(*ast.Var); !ok {
		lhs, rhs = rhs, lhs
	}
	//
	v, ok := lhs.(*ast.Var)
	if !ok {
		return 0, nil, false
	}
	//
	n, ok := ast.IsNumeral(rhs)
	if !ok {
		return 0, nil, false
	}
	//
	return v.Index, n, true
}

// linear accumulates mul * e into the row, failing on anything which is not
// a linear integer term.
func (p *ConstraintParser) linear(row *Row, e ast.Expr, mul *big.Rat) bool {
	switch t := e.(type) {
	case *ast.Var:
		if t.Index >= p.width {
			return false
		}
		//
		row.Coeffs[t.Index].Add(&row.Coeffs[t.Index], mul)
		//
		return true
	case *ast.Num:
		var n big.Rat
		//
		n.SetInt(&t.Value)
		n.Mul(&n, mul)
		row.Const.Add(&row.Const, &n)
		//
		return true
	case *ast.Add:
		for _, arg := range t.Args {
			if !p.linear(row, arg, mul) {
				return false
			}
		}
		//
		return true
	case *ast.Sub:
		var neg big.Rat
		//
		neg.Neg(mul)
		//
		return p.linear(row, t.Lhs, mul) && p.linear(row, t.Rhs, &neg)
	case *ast.Mul:
		if n, ok := ast.IsNumeral(t.Lhs); ok {
			return p.linear(row, t.Rhs, mulByInt(mul, n))
		} else if n, ok := ast.IsNumeral(t.Rhs); ok {
			return p.linear(row, t.Lhs, mulByInt(mul, n))
		}
		//
		return false
	case *ast.Neg:
		var neg big.Rat
		//
		neg.Neg(mul)
		//
		return p.linear(row, t.Arg, &neg)
	default:
		return false
	}
}

func mulByInt(mul *big.Rat, n *big.Int) *big.Rat {
	var r big.Rat
	//
	r.SetInt(n)
	r.Mul(&r, mul)
	//
	return &r
}
