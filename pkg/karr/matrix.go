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

// Package karr implements an abstract domain of linear arithmetic relations
// over integer tuples, in the lineage of Karr's method.  A relation is
// maintained in two mutually derivable representations: a constraint form
// (rows A·x + b = 0 or A·x + b >= 0) and a generator form (an initial point
// plus direction vectors), with conversion between the two performed by an
// integer Hilbert-basis saturation.
package karr

import (
	"fmt"
	"math/big"
	"strings"
)

// Row is one linear constraint (or generator) of a matrix: a coefficient
// vector, a constant and an equality tag.  As a constraint it denotes
// Coeffs·x + Const = 0 when IsEq holds, and Coeffs·x + Const >= 0 otherwise.
type Row struct {
	Coeffs []big.Rat
	Const  big.Rat
	IsEq   bool
}

// NewRow constructs a zeroed equality row of a given width.
func NewRow(width uint) Row {
	return Row{Coeffs: make([]big.Rat, width), IsEq: true}
}

// Width returns the number of coefficients of this row.
func (r *Row) Width() uint { return uint(len(r.Coeffs)) }

// Clone produces a deep copy of this row.
func (r *Row) Clone() Row {
	var nr Row
	//
	nr.Coeffs = make([]big.Rat, len(r.Coeffs))
	//
	for i := range r.Coeffs {
		nr.Coeffs[i].Set(&r.Coeffs[i])
	}
	//
	nr.Const.Set(&r.Const)
	nr.IsEq = r.IsEq
	//
	return nr
}

// Equals checks componentwise equality of two rows (coefficients, constant
// and tag).
func (r *Row) Equals(other *Row) bool {
	if r.IsEq != other.IsEq || len(r.Coeffs) != len(other.Coeffs) {
		return false
	}
	//
	if r.Const.Cmp(&other.Const) != 0 {
		return false
	}
	//
	for i := range r.Coeffs {
		if r.Coeffs[i].Cmp(&other.Coeffs[i]) != 0 {
			return false
		}
	}
	//
	return true
}

// Scaled clears denominators, returning integer coefficients and constant
// scaled by the least common multiple of all denominators in the row.  For
// (in)equalities against zero this preserves the solution set exactly.
func (r *Row) Scaled() ([]*big.Int, *big.Int) {
	lcm := big.NewInt(1)
	//
	for i := range r.Coeffs {
		lcm.Mul(lcm, lcmScale(lcm, r.Coeffs[i].Denom()))
	}
	//
	lcm.Mul(lcm, lcmScale(lcm, r.Const.Denom()))
	//
	coeffs := make([]*big.Int, len(r.Coeffs))
	//
	for i := range r.Coeffs {
		coeffs[i] = scaleRat(&r.Coeffs[i], lcm)
	}
	//
	return coeffs, scaleRat(&r.Const, lcm)
}

// lcmScale determines the factor by which acc must grow to also be a
// multiple of d.
func lcmScale(acc *big.Int, d *big.Int) *big.Int {
	var gcd, factor big.Int
	//
	gcd.GCD(nil, nil, acc, d)
	factor.Div(d, &gcd)
	//
	return &factor
}

// scaleRat computes q * scale, which must be integral.
func scaleRat(q *big.Rat, scale *big.Int) *big.Int {
	var r big.Rat
	//
	r.SetInt(scale)
	r.Mul(&r, q)
	//
	if !r.IsInt() {
		panic("row scaling failed to clear denominators")
	}
	//
	return new(big.Int).Set(r.Num())
}

// Matrix is an ordered sequence of rows of a common width.  It is a plain
// value container: all algebraic logic lives with its clients.
type Matrix struct {
	rows []Row
}

// Reset removes all rows.
func (m *Matrix) Reset() {
	m.rows = nil
}

// Size returns the number of rows.
func (m *Matrix) Size() uint { return uint(len(m.rows)) }

// Row returns the ith row for in-place access.
func (m *Matrix) Row(i uint) *Row { return &m.rows[i] }

// AddRow appends a row, taking ownership of it.
func (m *Matrix) AddRow(r Row) {
	m.rows = append(m.rows, r)
}

// Append appends deep copies of all rows of another matrix.
func (m *Matrix) Append(other *Matrix) {
	for i := range other.rows {
		m.rows = append(m.rows, other.rows[i].Clone())
	}
}

// Clone produces a deep copy of this matrix.
func (m *Matrix) Clone() Matrix {
	var nm Matrix
	//
	nm.Append(m)
	//
	return nm
}

// Contains checks whether some row of this matrix equals the given row.
func (m *Matrix) Contains(r *Row) bool {
	for i := range m.rows {
		if m.rows[i].Equals(r) {
			return true
		}
	}
	//
	return false
}

func (m *Matrix) String() string {
	var builder strings.Builder
	//
	for i := range m.rows {
		builder.WriteString(displayRow(&m.rows[i]))
		builder.WriteString("\n")
	}
	//
	return builder.String()
}

// displayRow renders a row in the compact "a*x0 + b*x1 >= c" style used for
// debug output.
func displayRow(r *Row) string {
	var (
		builder strings.Builder
		first   = true
		one     = big.NewRat(1, 1)
		mone    = big.NewRat(-1, 1)
	)
	//
	for j := range r.Coeffs {
		c := &r.Coeffs[j]
		//
		if c.Sign() == 0 {
			continue
		}
		//
		if !first && c.Sign() > 0 {
			builder.WriteString("+ ")
		}
		//
		if c.Cmp(mone) == 0 {
			builder.WriteString("- ")
		} else if c.Cmp(one) != 0 {
			builder.WriteString(c.RatString())
			builder.WriteString("*")
		}
		//
		builder.WriteString(fmt.Sprintf("x%d ", j))
		//
		first = false
	}
	//
	if first {
		builder.WriteString("0 ")
	}
	//
	if r.IsEq {
		builder.WriteString("= ")
	} else {
		builder.WriteString(">= ")
	}
	//
	var neg big.Rat
	//
	neg.Neg(&r.Const)
	builder.WriteString(neg.RatString())
	//
	return builder.String()
}
