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
	"testing"

	"github.com/consensys/go-karr/pkg/ast"
)

func Test_Parse_01(t *testing.T) {
	// x0 = 5
	checkParse(t, eq(v(0), n(5)), mkRow(t, true, -5, 1, 0))
}

func Test_Parse_02(t *testing.T) {
	// x0 = x1
	checkParse(t, eq(v(0), v(1)), mkRow(t, true, 0, 1, -1))
}

func Test_Parse_03(t *testing.T) {
	// x0 <= x1  ~~>  x1 - x0 >= 0
	checkParse(t, &ast.Le{Lhs: v(0), Rhs: v(1)}, mkRow(t, false, 0, -1, 1))
}

func Test_Parse_04(t *testing.T) {
	// x0 >= x1  ~~>  x0 - x1 >= 0
	checkParse(t, &ast.Ge{Lhs: v(0), Rhs: v(1)}, mkRow(t, false, 0, 1, -1))
}

func Test_Parse_05(t *testing.T) {
	// x0 < x1  ~~>  x1 - x0 - 1 >= 0
	checkParse(t, &ast.Lt{Lhs: v(0), Rhs: v(1)}, mkRow(t, false, -1, -1, 1))
}

func Test_Parse_06(t *testing.T) {
	// x0 > x1  ~~>  x0 - x1 - 1 >= 0
	checkParse(t, &ast.Gt{Lhs: v(0), Rhs: v(1)}, mkRow(t, false, -1, 1, -1))
}

func Test_Parse_07(t *testing.T) {
	// not(x0 < x1)  ~~>  x0 - x1 >= 0
	checkParse(t, &ast.Not{Arg: &ast.Lt{Lhs: v(0), Rhs: v(1)}}, mkRow(t, false, 0, 1, -1))
}

func Test_Parse_08(t *testing.T) {
	// not(x0 > x1)  ~~>  x1 - x0 >= 0
	checkParse(t, &ast.Not{Arg: &ast.Gt{Lhs: v(0), Rhs: v(1)}}, mkRow(t, false, 0, -1, 1))
}

func Test_Parse_09(t *testing.T) {
	// not(x0 <= x1)  ~~>  x0 - x1 - 1 >= 0
	checkParse(t, &ast.Not{Arg: &ast.Le{Lhs: v(0), Rhs: v(1)}}, mkRow(t, false, -1, 1, -1))
}

func Test_Parse_10(t *testing.T) {
	// not(x0 >= x1)  ~~>  x1 - x0 - 1 >= 0
	checkParse(t, &ast.Not{Arg: &ast.Ge{Lhs: v(0), Rhs: v(1)}}, mkRow(t, false, -1, -1, 1))
}

func Test_Parse_11(t *testing.T) {
	// 2*x0 + 3 = x1
	atom := eq(ast.Sum(&ast.Mul{Lhs: n(2), Rhs: v(0)}, n(3)), v(1))
	checkParse(t, atom, mkRow(t, true, 3, 2, -1))
}

func Test_Parse_12(t *testing.T) {
	// x0 - (x1 - 2) = 0
	atom := eq(&ast.Sub{Lhs: v(0), Rhs: &ast.Sub{Lhs: v(1), Rhs: n(2)}}, n(0))
	checkParse(t, atom, mkRow(t, true, 2, 1, -1))
}

func Test_Parse_13(t *testing.T) {
	// -x0 = x1
	atom := eq(&ast.Neg{Arg: v(0)}, v(1))
	checkParse(t, atom, mkRow(t, true, 0, -1, -1))
}

func Test_Parse_14(t *testing.T) {
	// (x0 = 1) or (x0 = 3)  ~~>  x0 >= 1 and x0 <= 3
	var (
		parser = NewConstraintParser(2)
		m      Matrix
		atom   = &ast.Or{Args: []ast.Expr{eq(v(0), n(1)), eq(n(3), v(0))}}
	)
	//
	parser.Parse(&m, atom)
	//
	if m.Size() != 2 {
		t.Fatalf("expected two rows, got %d", m.Size())
	}
	//
	lower := mkRow(t, false, -1, 1, 0)
	upper := mkRow(t, false, 3, -1, 0)
	//
	if !m.Contains(&lower) || !m.Contains(&upper) {
		t.Errorf("convex hull rows missing:\n%s", m.String())
	}
}

func Test_Parse_15(t *testing.T) {
	// A disjunction over distinct variables is not recognised.
	checkIgnored(t, &ast.Or{Args: []ast.Expr{eq(v(0), n(1)), eq(v(1), n(3))}})
}

func Test_Parse_16(t *testing.T) {
	// A non-linear product is not recognised.
	checkIgnored(t, eq(&ast.Mul{Lhs: v(0), Rhs: v(1)}, n(0)))
}

func Test_Parse_17(t *testing.T) {
	// Conjunctions are flattened into one row per conjunct.
	var (
		parser = NewConstraintParser(2)
		m      Matrix
		cond   = ast.Conjoin(eq(v(0), n(1)), eq(v(1), n(2)))
	)
	//
	parser.Parse(&m, cond)
	//
	if m.Size() != 2 {
		t.Errorf("expected two rows, got %d", m.Size())
	}
}

func Test_Parse_18(t *testing.T) {
	// Filtering by true adds no constraints.
	var (
		parser = NewConstraintParser(2)
		m      Matrix
	)
	//
	parser.Parse(&m, ast.True())
	//
	if m.Size() != 0 {
		t.Errorf("expected no rows, got %d", m.Size())
	}
}

// Round trips: an emitted row, re-parsed, denotes the same row.

func Test_ParseRoundTrip_01(t *testing.T) {
	checkRoundTrip(t, mkRow(t, true, -5, 1, 0))
}

func Test_ParseRoundTrip_02(t *testing.T) {
	checkRoundTrip(t, mkRow(t, false, 0, 1, -1))
}

func Test_ParseRoundTrip_03(t *testing.T) {
	checkRoundTrip(t, mkRow(t, false, -1, -1, 1))
}

func Test_ParseRoundTrip_04(t *testing.T) {
	checkRoundTrip(t, mkRow(t, true, 3, 2, -7))
}

func Test_ParseRoundTrip_05(t *testing.T) {
	checkRoundTrip(t, mkRow(t, false, 2, 0, 0))
}

func checkParse(t *testing.T, atom ast.Expr, want Row) {
	t.Helper()
	//
	var (
		parser = NewConstraintParser(want.Width())
		m      Matrix
	)
	//
	parser.Parse(&m, atom)
	//
	if m.Size() != 1 {
		t.Fatalf("expected one row for %s, got %d", atom, m.Size())
	}
	//
	if !m.Row(0).Equals(&want) {
		t.Errorf("parsing %s gave %sexpected %s", atom, m.String(), displayRow(&want))
	}
}

func checkIgnored(t *testing.T, atom ast.Expr) {
	t.Helper()
	//
	var (
		parser = NewConstraintParser(2)
		m      Matrix
	)
	//
	parser.Parse(&m, atom)
	//
	if m.Size() != 0 {
		t.Errorf("expected %s to be ignored, got %s", atom, m.String())
	}
}

func checkRoundTrip(t *testing.T, row Row) {
	t.Helper()
	//
	var (
		emitter FormulaEmitter
		parser  = NewConstraintParser(row.Width())
		m       Matrix
	)
	//
	parser.Parse(&m, emitter.EmitRow(&row))
	//
	if m.Size() != 1 {
		t.Fatalf("round trip of %s produced %d rows", displayRow(&row), m.Size())
	}
	//
	if !m.Row(0).Equals(&row) {
		t.Errorf("round trip of %s gave %s", displayRow(&row), m.String())
	}
}

func v(i uint) *ast.Var { return ast.NewVar(i, "") }

func n(v int64) *ast.Num { return ast.NewNum(v) }

func eq(lhs, rhs ast.Expr) *ast.Eq { return &ast.Eq{Lhs: lhs, Rhs: rhs} }
