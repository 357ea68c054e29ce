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
package rules

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/consensys/go-karr/pkg/ast"
	"github.com/consensys/go-karr/pkg/sexp"
)

// ParseString parses a rule set from its s-expression surface syntax.  The
// accepted forms are:
//
//	(fact (p 1 2))
//	(rule (p (+ x 1) y) ((p x y) (<= x 10)))
//
// Body items whose head symbol is a comparison or boolean operator are
// interpreted constraints; anything else is an uninterpreted atom, and
// (not (p ...)) marks a negated atom.
func ParseString(text string) (*Set, error) {
	terms, err := sexp.ParseAll(text)
	//
	if err != nil {
		return nil, errors.Wrap(err, "malformed rule file")
	}
	//
	set := NewSet()
	//
	for _, term := range terms {
		list := term.AsList()
		//
		switch {
		case list == nil:
			return nil, errors.Errorf("unexpected symbol %q at top level", term.String())
		case list.MatchSymbol("fact"):
			if err := parseFact(set, list); err != nil {
				return nil, err
			}
		case list.MatchSymbol("rule"):
			if err := parseRule(set, list); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("unexpected declaration %s", list.String())
		}
	}
	//
	return set, nil
}

// scope maps variable names to indices whilst parsing a single rule.
type scope struct {
	indices map[string]uint
}

func newScope() *scope {
	return &scope{indices: make(map[string]uint)}
}

func (s *scope) lookup(name string) *ast.Var {
	index, ok := s.indices[name]
	//
	if !ok {
		index = uint(len(s.indices))
		s.indices[name] = index
	}
	//
	return ast.NewVar(index, name)
}

func parseFact(set *Set, list *sexp.List) error {
	if list.Len() != 2 || list.Get(1).AsList() == nil {
		return errors.Errorf("malformed fact %s", list.String())
	}
	//
	atom, err := parseAtom(list.Get(1).AsList(), newScope())
	if err != nil {
		return err
	}
	//
	for _, arg := range atom.Args {
		if _, ok := ast.IsNumeral(arg); !ok {
			return errors.Errorf("fact %s has non-numeral argument %s", list.String(), arg)
		}
	}
	//
	set.Add(&Rule{Head: atom})
	//
	return nil
}

func parseRule(set *Set, list *sexp.List) error {
	if list.Len() != 3 || list.Get(1).AsList() == nil || list.Get(2).AsList() == nil {
		return errors.Errorf("malformed rule %s", list.String())
	}
	//
	var (
		sc   = newScope()
		rule Rule
		err  error
	)
	//
	if rule.Head, err = parseAtom(list.Get(1).AsList(), sc); err != nil {
		return err
	}
	//
	for _, item := range list.Get(2).AsList().Elements {
		ilist := item.AsList()
		if ilist == nil {
			return errors.Errorf("malformed body item %s", item.String())
		}
		//
		if interpreted(ilist) {
			cond, err := parseCondition(ilist, sc)
			if err != nil {
				return err
			}
			//
			rule.Constraints = append(rule.Constraints, cond)
		} else if ilist.MatchSymbol("not") {
			if ilist.Len() != 2 || ilist.Get(1).AsList() == nil {
				return errors.Errorf("malformed negation %s", ilist.String())
			}
			//
			atom, err := parseAtom(ilist.Get(1).AsList(), sc)
			if err != nil {
				return err
			}
			//
			atom.Negated = true
			rule.Body = append(rule.Body, atom)
		} else {
			atom, err := parseAtom(ilist, sc)
			if err != nil {
				return err
			}
			//
			rule.Body = append(rule.Body, atom)
		}
	}
	//
	set.Add(&rule)
	//
	return nil
}

// interpreted checks whether a body item is an interpreted condition, based
// on its head symbol.
func interpreted(list *sexp.List) bool {
	if list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		return false
	}
	//
	switch list.Get(0).AsSymbol().Value {
	case "=", "<=", "<", ">=", ">", "and", "or":
		return true
	case "not":
		// Negated comparison (e.g. (not (< x y))) is interpreted; negated
		// atoms are not.
		inner := list.Len() == 2 && list.Get(1).AsList() != nil
		return inner && interpreted(list.Get(1).AsList())
	}
	//
	return false
}

func parseAtom(list *sexp.List, sc *scope) (Atom, error) {
	if list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		return Atom{}, errors.Errorf("malformed atom %s", list.String())
	}
	//
	var (
		name = list.Get(0).AsSymbol().Value
		args = make([]ast.Expr, list.Len()-1)
		err  error
	)
	//
	for i := 1; i < list.Len(); i++ {
		if args[i-1], err = parseExpr(list.Get(i), sc); err != nil {
			return Atom{}, err
		}
	}
	//
	return NewAtom(name, args...), nil
}

func parseExpr(term sexp.SExp, sc *scope) (ast.Expr, error) {
	if symbol := term.AsSymbol(); symbol != nil {
		var value big.Int
		//
		if _, ok := value.SetString(symbol.Value, 10); ok {
			return ast.NewNumFromBig(&value), nil
		}
		//
		return sc.lookup(symbol.Value), nil
	}
	//
	list := term.AsList()
	//
	if list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		return nil, errors.Errorf("malformed expression %s", term.String())
	}
	//
	op := list.Get(0).AsSymbol().Value
	//
	args := make([]ast.Expr, list.Len()-1)
	//
	for i := 1; i < list.Len(); i++ {
		var err error
		//
		if args[i-1], err = parseExpr(list.Get(i), sc); err != nil {
			return nil, err
		}
	}
	//
	switch {
	case op == "+":
		return ast.Sum(args...), nil
	case op == "-" && len(args) == 1:
		return &ast.Neg{Arg: args[0]}, nil
	case op == "-" && len(args) == 2:
		return &ast.Sub{Lhs: args[0], Rhs: args[1]}, nil
	case op == "*" && len(args) == 2:
		return &ast.Mul{Lhs: args[0], Rhs: args[1]}, nil
	default:
		return nil, errors.Errorf("unknown operator %q in %s", op, term.String())
	}
}

func parseCondition(list *sexp.List, sc *scope) (ast.Expr, error) {
	op := list.Get(0).AsSymbol().Value
	//
	switch op {
	case "and", "or":
		args := make([]ast.Expr, list.Len()-1)
		//
		for i := 1; i < list.Len(); i++ {
			arg := list.Get(i).AsList()
			if arg == nil {
				return nil, errors.Errorf("malformed condition %s", list.String())
			}
			//
			var err error
			//
			if args[i-1], err = parseCondition(arg, sc); err != nil {
				return nil, err
			}
		}
		//
		if op == "and" {
			return &ast.And{Args: args}, nil
		}
		//
		return &ast.Or{Args: args}, nil
	case "not":
		if list.Len() != 2 || list.Get(1).AsList() == nil {
			return nil, errors.Errorf("malformed negation %s", list.String())
		}
		//
		arg, err := parseCondition(list.Get(1).AsList(), sc)
		if err != nil {
			return nil, err
		}
		//
		return &ast.Not{Arg: arg}, nil
	}
	// Binary comparison
	if list.Len() != 3 {
		return nil, errors.Errorf("malformed comparison %s", list.String())
	}
	//
	lhs, err := parseExpr(list.Get(1), sc)
	if err != nil {
		return nil, err
	}
	//
	rhs, err := parseExpr(list.Get(2), sc)
	if err != nil {
		return nil, err
	}
	//
	switch op {
	case "=":
		return &ast.Eq{Lhs: lhs, Rhs: rhs}, nil
	case "<=":
		return &ast.Le{Lhs: lhs, Rhs: rhs}, nil
	case "<":
		return &ast.Lt{Lhs: lhs, Rhs: rhs}, nil
	case ">=":
		return &ast.Ge{Lhs: lhs, Rhs: rhs}, nil
	case ">":
		return &ast.Gt{Lhs: lhs, Rhs: rhs}, nil
	default:
		return nil, errors.Errorf("unknown comparison %q", op)
	}
}
