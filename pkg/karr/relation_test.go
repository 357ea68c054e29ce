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
	"github.com/consensys/go-karr/pkg/datalog"
)

func Test_Relation_AddFact_01(t *testing.T) {
	// Adding the fact (3, 5) pins both columns.
	r := mkFact(t, 3, 5)
	//
	var (
		first  = mkRow(t, true, -3, 1, 0)
		second = mkRow(t, true, -5, 0, 1)
	)
	//
	if !r.Ineqs().Contains(&first) || !r.Ineqs().Contains(&second) {
		t.Errorf("fact columns not pinned:\n%s", r.String())
	}
}

func Test_Relation_AddFact_02(t *testing.T) {
	// Non-numeral components leave their column unconstrained.
	p := NewPlugin()
	r := p.MkEmpty(datalog.IntSignature(2)).(*Relation)
	r.AddFact([]ast.Expr{ast.NewVar(0, "y"), ast.NewNum(7)})
	//
	if r.Ineqs().Size() != 1 {
		t.Errorf("expected a single pinned column:\n%s", r.String())
	}
}

func Test_Relation_Clone_01(t *testing.T) {
	// A clone is semantically equal and independently mutable.
	r := mkFact(t, 4)
	c := r.Clone().(*Relation)
	//
	if c.Empty() != r.Empty() || c.Ineqs().Size() != r.Ineqs().Size() {
		t.Fatal("clone differs from original")
	}
	//
	c.filterEqual(0, ast.NewNum(9))
	//
	if r.Ineqs().Size() != 1 {
		t.Error("mutating the clone affected the original")
	}
}

func Test_Relation_Join_01(t *testing.T) {
	// Empty absorbs join on either side.
	var (
		p     = NewPlugin()
		empty = p.MkEmpty(datalog.IntSignature(1))
		full  = p.MkFull(nil, datalog.IntSignature(1))
		join  = p.MkJoinFn(datalog.IntSignature(1), datalog.IntSignature(1), nil, nil)
	)
	//
	if !join(empty, full).Empty() || !join(full, empty).Empty() {
		t.Error("join with empty must be empty")
	}
}

func Test_Relation_Join_02(t *testing.T) {
	// Joining pinned facts stacks their constraints side by side.
	var (
		p    = NewPlugin()
		r1   = mkFact(t, 3)
		r2   = mkFact(t, 5)
		join = p.MkJoinFn(datalog.IntSignature(1), datalog.IntSignature(1), nil, nil)
	)
	//
	r := join(r1, r2).(*Relation)
	//
	var (
		first  = mkRow(t, true, -3, 1, 0)
		second = mkRow(t, true, -5, 0, 1)
	)
	//
	if !r.Ineqs().Contains(&first) || !r.Ineqs().Contains(&second) {
		t.Errorf("join lost constraints:\n%s", r.String())
	}
}

func Test_Relation_Join_03(t *testing.T) {
	// Linked columns are equated.
	var (
		p    = NewPlugin()
		r1   = mkFact(t, 3)
		r2   = p.MkFull(nil, datalog.IntSignature(1))
		join = p.MkJoinFn(datalog.IntSignature(1), datalog.IntSignature(1), []uint{0}, []uint{0})
	)
	//
	r := join(r1, r2).(*Relation)
	link := mkRow(t, true, 0, 1, -1)
	//
	if !r.Ineqs().Contains(&link) {
		t.Errorf("join link missing:\n%s", r.String())
	}
}

func Test_Relation_Project_01(t *testing.T) {
	// Projecting away every column yields the trivially-true relation.
	var (
		p       = NewPlugin()
		r       = mkFact(t, 3, 5)
		project = p.MkProjectFn(datalog.IntSignature(2), []uint{0, 1})
	)
	//
	res := project(r).(*Relation)
	//
	if res.Empty() || res.Width() != 0 {
		t.Fatalf("expected non-empty relation of width 0")
	}
	//
	if !ast.IsTrue(res.ToFormula()) {
		t.Errorf("expected true, got %s", res.ToFormula())
	}
}

func Test_Relation_Project_02(t *testing.T) {
	// Projecting the second column of the fact (3, 5) leaves x = 3.
	var (
		p       = NewPlugin()
		r       = mkFact(t, 3, 5)
		project = p.MkProjectFn(datalog.IntSignature(2), []uint{1})
	)
	//
	res := project(r).(*Relation)
	pinned := mkRow(t, true, 1, 3)
	//
	if !res.Basis().Contains(&pinned) {
		t.Errorf("projection lost the pinned point:\n%s", res.String())
	}
}

func Test_Relation_Project_03(t *testing.T) {
	// Projecting an infeasible relation discovers emptiness.
	var (
		p       = NewPlugin()
		r       = p.MkFull(nil, datalog.IntSignature(1)).(*Relation)
		project = p.MkProjectFn(datalog.IntSignature(1), []uint{0})
	)
	//
	r.filterEqual(0, ast.NewNum(0))
	r.filterEqual(0, ast.NewNum(1))
	//
	if !project(r).Empty() {
		t.Error("expected projection of infeasible relation to be empty")
	}
}

func Test_Relation_Rename_01(t *testing.T) {
	// Renaming x0 - x1 = 0 by the cycle (0,1,2) yields x2 - x0 = 0.
	var (
		p      = NewPlugin()
		r      = p.MkFull(nil, datalog.IntSignature(3)).(*Relation)
		rename = p.MkRenameFn(datalog.IntSignature(3), []uint{0, 1, 2})
	)
	//
	r.filterInterpreted(eq(v(0), v(1)))
	//
	res := rename(r).(*Relation)
	want := mkRow(t, true, 0, -1, 0, 1)
	//
	if res.Ineqs().Size() != 1 || !res.Ineqs().Contains(&want) {
		t.Errorf("unexpected rename result:\n%s", res.String())
	}
}

func Test_Relation_Rename_02(t *testing.T) {
	// A cyclic rename followed by its inverse is the identity.
	var (
		p       = NewPlugin()
		r       = p.MkFull(nil, datalog.IntSignature(3)).(*Relation)
		rename  = p.MkRenameFn(datalog.IntSignature(3), []uint{0, 1, 2})
		inverse = p.MkRenameFn(datalog.IntSignature(3), []uint{2, 1, 0})
	)
	//
	r.filterInterpreted(eq(v(0), v(1)))
	//
	res := inverse(rename(r)).(*Relation)
	want := mkRow(t, true, 0, 1, -1, 0)
	//
	if res.Ineqs().Size() != 1 || !res.Ineqs().Contains(&want) {
		t.Errorf("rename round trip broken:\n%s", res.String())
	}
}

func Test_Relation_Union_01(t *testing.T) {
	// Union with an empty source changes nothing and marks delta empty.
	var (
		p     = NewPlugin()
		r     = mkFact(t, 1)
		src   = p.MkEmpty(datalog.IntSignature(1))
		delta = p.MkEmpty(datalog.IntSignature(1))
		union = p.MkUnionFn()
	)
	//
	union(r, src, delta)
	//
	if delta.(*Relation).Empty() != true {
		t.Error("expected empty delta")
	}
}

func Test_Relation_Union_02(t *testing.T) {
	// Union is idempotent: unioning a relation with its own clone changes
	// nothing.
	var (
		p     = NewPlugin()
		r     = mkFact(t, 1)
		union = p.MkUnionFn()
		delta = p.MkEmpty(datalog.IntSignature(1))
	)
	//
	union(r, r.Clone(), delta)
	//
	if !delta.Empty() {
		t.Errorf("union with self must not grow:\n%s", r.String())
	}
}

func Test_Relation_Union_03(t *testing.T) {
	// Union is extensive: every generator of the source ends up in the
	// destination, and growth is signalled through delta.
	var (
		p     = NewPlugin()
		r     = mkFact(t, 0)
		src   = mkFact(t, 1)
		union = p.MkUnionFn()
		delta = p.MkEmpty(datalog.IntSignature(1))
	)
	//
	union(r, src, delta)
	//
	if delta.Empty() {
		t.Fatal("expected delta to signal change")
	}
	//
	srcBasis := src.Basis()
	//
	for i := uint(0); i < srcBasis.Size(); i++ {
		if !r.Basis().Contains(srcBasis.Row(i)) {
			t.Errorf("source generator missing: %s", displayRow(srcBasis.Row(i)))
		}
	}
	// A second identical union is a no-op.
	delta2 := p.MkEmpty(datalog.IntSignature(1))
	union(r, src, delta2)
	//
	if !delta2.Empty() {
		t.Error("second union must not grow")
	}
}

func Test_Relation_Union_04(t *testing.T) {
	// Unioning into an empty relation adopts the source wholesale.
	var (
		p     = NewPlugin()
		r     = p.MkEmpty(datalog.IntSignature(1)).(*Relation)
		src   = mkFact(t, 2)
		union = p.MkUnionFn()
	)
	//
	union(r, src, nil)
	//
	if r.Empty() {
		t.Fatal("expected relation to become non-empty")
	}
	//
	point := mkRow(t, true, 1, 2)
	//
	if !r.Basis().Contains(&point) {
		t.Errorf("adopted basis missing the point:\n%s", r.String())
	}
}

func Test_Relation_Filter_01(t *testing.T) {
	// Filtering a full relation by true leaves it full.
	var (
		p = NewPlugin()
		r = p.MkFull(nil, datalog.IntSignature(2)).(*Relation)
	)
	//
	r.filterInterpreted(ast.True())
	//
	if r.Ineqs().Size() != 0 {
		t.Errorf("expected no constraints:\n%s", r.String())
	}
}

func Test_Relation_Filter_02(t *testing.T) {
	// filterIdentical equates columns against the first.
	var (
		p = NewPlugin()
		r = p.MkFull(nil, datalog.IntSignature(3)).(*Relation)
	)
	//
	r.filterIdentical([]uint{0, 1, 2})
	//
	var (
		first  = mkRow(t, true, 0, 1, -1, 0)
		second = mkRow(t, true, 0, 1, 0, -1)
	)
	//
	if !r.Ineqs().Contains(&first) || !r.Ineqs().Contains(&second) {
		t.Errorf("identical filter rows missing:\n%s", r.String())
	}
}

func Test_Relation_Filter_03(t *testing.T) {
	// filterEqual ignores non-numeral values.
	var (
		p = NewPlugin()
		r = p.MkFull(nil, datalog.IntSignature(1)).(*Relation)
	)
	//
	r.filterEqual(0, ast.NewVar(0, "y"))
	//
	if r.Ineqs().Size() != 0 {
		t.Errorf("expected non-numeral filter to be ignored:\n%s", r.String())
	}
}

func Test_Relation_Consistency_01(t *testing.T) {
	// Re-deriving the constraint form from the basis preserves the
	// denoted set for a pinned fact.
	r := mkFact(t, 4)
	// Force basis materialisation, then drop the constraint form.
	r.Basis()
	r.ineqsValid = false
	//
	var (
		pinned  = mkRow(t, true, -4, 1)
		flipped = mkRow(t, true, 4, -1)
	)
	//
	if !r.Ineqs().Contains(&pinned) && !r.Ineqs().Contains(&flipped) {
		t.Errorf("constraint form lost the pinned point:\n%s", r.String())
	}
}

func Test_Relation_ToFormula_01(t *testing.T) {
	// An empty relation renders as false; a full relation as true.
	p := NewPlugin()
	//
	if !ast.IsFalse(p.MkEmpty(datalog.IntSignature(1)).ToFormula()) {
		t.Error("empty relation must render false")
	}
	//
	if !ast.IsTrue(p.MkFull(nil, datalog.IntSignature(1)).ToFormula()) {
		t.Error("full relation must render true")
	}
}

func Test_Relation_ForeignKind_01(t *testing.T) {
	// Operation closures reject relations of a foreign kind.
	var (
		p       = NewPlugin()
		foreign = fakeRelation{}
		join    = p.MkJoinFn(datalog.IntSignature(1), datalog.IntSignature(1), nil, nil)
		project = p.MkProjectFn(datalog.IntSignature(1), nil)
	)
	//
	if join(foreign, foreign) != nil || project(foreign) != nil {
		t.Error("foreign relations must be rejected")
	}
}

// fakeRelation is a stand-in for a relation of another plugin kind.
type fakeRelation struct{}

func (fakeRelation) Signature() datalog.Signature { return nil }
func (fakeRelation) Empty() bool                  { return true }
func (fakeRelation) Clone() datalog.Relation      { return fakeRelation{} }
func (fakeRelation) AddFact(fact []ast.Expr)      {}
func (fakeRelation) ToFormula() ast.Expr          { return ast.True() }
func (fakeRelation) String() string               { return "fake" }

// mkFact builds a relation pinning the given integer point.
func mkFact(t *testing.T, values ...int64) *Relation {
	t.Helper()
	//
	var (
		p    = NewPlugin()
		r    = p.MkEmpty(datalog.IntSignature(uint(len(values)))).(*Relation)
		args = make([]ast.Expr, len(values))
	)
	//
	for i, v := range values {
		args[i] = ast.NewNum(v)
	}
	//
	r.AddFact(args)
	//
	return r
}
