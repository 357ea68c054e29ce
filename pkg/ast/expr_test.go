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
package ast

import (
	"testing"
)

func Test_Conjoin_01(t *testing.T) {
	if !IsTrue(Conjoin()) {
		t.Error("empty conjunction must be true")
	}
}

func Test_Conjoin_02(t *testing.T) {
	if !IsFalse(Conjoin(True(), False(), True())) {
		t.Error("conjunction with false must be false")
	}
}

func Test_Conjoin_03(t *testing.T) {
	e := &Eq{Lhs: NewVar(0, "x"), Rhs: NewNum(1)}
	//
	if Conjoin(True(), e) != e {
		t.Error("true is the unit of conjunction")
	}
}

func Test_Conjoin_04(t *testing.T) {
	var (
		e1 = &Eq{Lhs: NewVar(0, "x"), Rhs: NewNum(1)}
		e2 = &Ge{Lhs: NewVar(1, "y"), Rhs: NewNum(0)}
		e3 = Conjoin(e1, Conjoin(e2, True()))
	)
	//
	conjs := FlattenAnd(e3)
	//
	if len(conjs) != 2 || conjs[0] != e1 || conjs[1] != e2 {
		t.Errorf("unexpected flattening: %v", conjs)
	}
}

func Test_Flatten_01(t *testing.T) {
	if len(FlattenAnd(True())) != 0 {
		t.Error("true flattens to nothing")
	}
}

func Test_Flatten_02(t *testing.T) {
	conjs := FlattenAnd(False())
	//
	if len(conjs) != 1 || !IsFalse(conjs[0]) {
		t.Error("false flattens to itself")
	}
}

func Test_Replace_01(t *testing.T) {
	// Simultaneous substitution: x ↦ y, y ↦ x swaps the variables.
	var (
		x = NewVar(0, "x")
		y = NewVar(1, "y")
		e = &Eq{Lhs: x, Rhs: &Add{Args: []Expr{y, NewNum(1)}}}
	)
	//
	r := SafeReplace(e, map[uint]Expr{0: y, 1: x})
	//
	if r.String() != "y = (x + 1)" {
		t.Errorf("unexpected substitution result: %s", r)
	}
}

func Test_Replace_02(t *testing.T) {
	// An empty substitution is the identity.
	e := &Ge{Lhs: NewVar(0, "x"), Rhs: NewNum(0)}
	//
	if SafeReplace(e, nil) != e {
		t.Error("empty substitution must be the identity")
	}
}

func Test_Replace_03(t *testing.T) {
	// Replacement terms are not themselves rewritten.
	var (
		x = NewVar(0, "x")
		e = &Eq{Lhs: x, Rhs: NewNum(0)}
		r = SafeReplace(e, map[uint]Expr{0: NewVar(0, "x")})
	)
	//
	if r.String() != "x = 0" {
		t.Errorf("unexpected substitution result: %s", r)
	}
}

func Test_Vars_01(t *testing.T) {
	var (
		e = &And{Args: []Expr{
			&Eq{Lhs: NewVar(0, "x"), Rhs: NewVar(2, "z")},
			&Ge{Lhs: &Neg{Arg: NewVar(1, "y")}, Rhs: NewNum(0)},
		}}
		vars = make(map[uint]bool)
	)
	//
	Vars(e, vars)
	//
	if len(vars) != 3 || !vars[0] || !vars[1] || !vars[2] {
		t.Errorf("unexpected variable set: %v", vars)
	}
}

func Test_String_01(t *testing.T) {
	e := &And{Args: []Expr{
		&Eq{Lhs: NewVar(0, ""), Rhs: NewNum(3)},
		&Ge{Lhs: NewVar(1, ""), Rhs: NewNum(0)},
	}}
	//
	if e.String() != "(x0 = 3 ∧ x1 >= 0)" {
		t.Errorf("unexpected rendering: %s", e)
	}
}

func Test_Numeral_01(t *testing.T) {
	if n, ok := IsNumeral(NewNum(-7)); !ok || n.Int64() != -7 {
		t.Error("numeral recognition failed")
	}
	//
	if _, ok := IsNumeral(NewVar(0, "x")); ok {
		t.Error("variables are not numerals")
	}
}
