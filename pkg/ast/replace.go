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

// SafeReplace simultaneously substitutes variables (by index) with
// replacement expressions throughout a given expression.  Substitution is
// simultaneous: replacement expressions are never themselves rewritten, so
// cyclic substitutions (e.g. x ↦ y, y ↦ x) behave as expected.
func SafeReplace(e Expr, sub map[uint]Expr) Expr {
	if len(sub) == 0 {
		return e
	}
	//
	return replace(e, sub)
}

func replace(e Expr, sub map[uint]Expr) Expr {
	switch t := e.(type) {
	case *Num, *Bool:
		return e
	case *Var:
		if r, ok := sub[t.Index]; ok {
			return r
		}
		//
		return e
	case *Add:
		return &Add{Args: replaceAll(t.Args, sub)}
	case *Sub:
		return &Sub{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *Mul:
		return &Mul{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *Neg:
		return &Neg{Arg: replace(t.Arg, sub)}
	case *Eq:
		return &Eq{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *Le:
		return &Le{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *Lt:
		return &Lt{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *Ge:
		return &Ge{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *Gt:
		return &Gt{Lhs: replace(t.Lhs, sub), Rhs: replace(t.Rhs, sub)}
	case *And:
		return &And{Args: replaceAll(t.Args, sub)}
	case *Or:
		return &Or{Args: replaceAll(t.Args, sub)}
	case *Not:
		return &Not{Arg: replace(t.Arg, sub)}
	default:
		panic("unknown expression")
	}
}

func replaceAll(args []Expr, sub map[uint]Expr) []Expr {
	nargs := make([]Expr, len(args))
	//
	for i, arg := range args {
		nargs[i] = replace(arg, sub)
	}
	//
	return nargs
}

// Vars determines the set of variable indices occurring in a given
// expression, accumulating them into the given set.
func Vars(e Expr, vars map[uint]bool) {
	switch t := e.(type) {
	case *Num, *Bool:
	case *Var:
		vars[t.Index] = true
	case *Add:
		varsAll(t.Args, vars)
	case *Sub:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *Mul:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *Neg:
		Vars(t.Arg, vars)
	case *Eq:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *Le:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *Lt:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *Ge:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *Gt:
		Vars(t.Lhs, vars)
		Vars(t.Rhs, vars)
	case *And:
		varsAll(t.Args, vars)
	case *Or:
		varsAll(t.Args, vars)
	case *Not:
		Vars(t.Arg, vars)
	default:
		panic("unknown expression")
	}
}

func varsAll(args []Expr, vars map[uint]bool) {
	for _, arg := range args {
		Vars(arg, vars)
	}
}
