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

	"github.com/consensys/go-karr/pkg/hilbert"
)

// Dualizer converts between the constraint form and the generator (basis)
// form of a relation, by saturating linear systems through an integer
// Hilbert-basis solver.  It is defensive around the solver: any panic or
// undecided outcome degrades to "no information", which is sound.
type Dualizer struct {
	hb *hilbert.Solver
}

// NewDualizer constructs a dualizer around a given saturator instance.
func NewDualizer(hb *hilbert.Solver) *Dualizer {
	return &Dualizer{hb: hb}
}

// SetCancel forwards cancellation to the underlying saturator.
func (d *Dualizer) SetCancel(f bool) {
	d.hb.SetCancel(f)
}

// DualizeI converts constraint form into basis form.  It returns false iff
// the constraints were proved infeasible, in which case the relation is
// empty.  An undecided saturation yields an empty basis, i.e. top.
func (d *Dualizer) DualizeI(dst *Matrix, src *Matrix, width uint) bool {
	dst.Reset()
	d.hb.Reset()
	// Feed A·x + b ⋈ 0 as A·x ⋈ -b.
	for i := uint(0); i < src.Size(); i++ {
		var (
			row          = src.Row(i)
			coeffs, bval = row.Scaled()
		)
		//
		rhs := new(big.Int).Neg(bval)
		//
		if row.IsEq {
			d.hb.AddEq(coeffs, rhs)
		} else {
			d.hb.AddGe(coeffs, rhs)
		}
	}
	//
	for i := uint(0); i < width; i++ {
		d.hb.SetIsInt(i)
	}
	//
	result := d.saturate()
	//
	if result == hilbert.Unsat {
		return false
	} else if result == hilbert.Undef {
		log.Debugf("karr: dualizeI undecided, treating as top")
		return true
	}
	// The first initial solution anchors the affine part; every further
	// initial solution is widened into the difference direction from the
	// anchor, since the saturator does not promise those differences are
	// otherwise representable.
	var first []*big.Int
	//
	for i := uint(0); i < d.hb.BasisSize(); i++ {
		soln, initial := d.hb.BasisSolution(i)
		//
		switch {
		case initial && first == nil:
			first = soln
			dst.AddRow(basisRow(soln, true))
		case initial:
			diff := make([]*big.Int, len(soln))
			zero := true
			//
			for j := range soln {
				diff[j] = new(big.Int).Sub(soln[j], first[j])
				zero = zero && diff[j].Sign() == 0
			}
			//
			if !zero {
				dst.AddRow(basisRow(diff, false))
			}
		default:
			dst.AddRow(basisRow(soln, false))
		}
	}
	//
	return true
}

// DualizeH converts basis form into constraint form.  Each generator row
// (v, β) becomes the membership constraint v·a + β·b >= 0 over an unknown
// constraint (a, b); the minimal solutions of that dual system are exactly
// the constraint rows valid for every generated point.  An empty basis, an
// undecided saturation or an infeasibility all yield an empty result (top).
func (d *Dualizer) DualizeH(dst *Matrix, src *Matrix, width uint) {
	dst.Reset()
	//
	if src.Size() == 0 {
		return
	}
	//
	d.hb.Reset()
	// Homogenise each generator by appending its constant.
	for i := uint(0); i < src.Size(); i++ {
		var (
			row          = src.Row(i)
			coeffs, bval = row.Scaled()
		)
		//
		coeffs = append(coeffs, bval)
		d.hb.AddGe(coeffs, big.NewInt(0))
	}
	//
	for i := uint(0); i <= width; i++ {
		d.hb.SetIsInt(i)
	}
	//
	if d.saturate() != hilbert.Sat {
		log.Debugf("karr: dualizeH inconclusive, treating as top")
		return
	}
	// Collect the dual rays, then merge antipodal pairs into equalities.
	var rays []dualRay
	//
	for i := uint(0); i < d.hb.BasisSize(); i++ {
		soln, initial := d.hb.BasisSolution(i)
		//
		if initial {
			continue
		}
		//
		ray := dualRay{coeffs: soln[:width], constant: soln[width]}
		// Elide tautologies 0·x + b >= 0.
		if allZero(ray.coeffs) {
			continue
		}
		//
		rays = append(rays, ray)
	}
	//
	for i := range rays {
		if rays[i].used {
			continue
		}
		//
		rays[i].used = true
		isEq := false
		//
		for j := i + 1; j < len(rays); j++ {
			if !rays[j].used && antipodal(&rays[i], &rays[j]) {
				rays[j].used = true
				isEq = true
				//
				break
			}
		}
		//
		row := NewRow(width)
		//
		for j, c := range rays[i].coeffs {
			row.Coeffs[j].SetInt(c)
		}
		//
		row.Const.SetInt(rays[i].constant)
		row.IsEq = isEq
		dst.AddRow(row)
	}
}

type dualRay struct {
	coeffs   []*big.Int
	constant *big.Int
	used     bool
}

func antipodal(a, b *dualRay) bool {
	var neg big.Int
	//
	if neg.Neg(b.constant); a.constant.Cmp(&neg) != 0 {
		return false
	}
	//
	for i := range a.coeffs {
		if neg.Neg(b.coeffs[i]); a.coeffs[i].Cmp(&neg) != 0 {
			return false
		}
	}
	//
	return true
}

func allZero(v []*big.Int) bool {
	for _, x := range v {
		if x.Sign() != 0 {
			return false
		}
	}
	//
	return true
}

// saturate invokes the solver, collapsing panics to Undef.
func (d *Dualizer) saturate() (result hilbert.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("karr: saturator panic: %v", r)
			result = hilbert.Undef
		}
	}()
	//
	return d.hb.Saturate()
}

func basisRow(soln []*big.Int, initial bool) Row {
	row := NewRow(uint(len(soln)))
	//
	for j, c := range soln {
		row.Coeffs[j].SetInt(c)
	}
	//
	if initial {
		row.Const.SetInt64(1)
	}
	//
	row.IsEq = true
	//
	return row
}
