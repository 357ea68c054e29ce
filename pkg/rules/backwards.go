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

// Backwards reverses the information flow of a rule set: for every rule with
// k uninterpreted body atoms it produces k rules, each obtained by swapping
// the head with one body atom whilst keeping the interpreted constraints.
// Facts and body-less rules contribute nothing.
func Backwards(src *Set) *Set {
	dst := NewSet()
	dst.InheritPredicates(src)
	//
	for _, r := range src.Rules() {
		for i := range r.Body {
			if r.Body[i].Negated {
				continue
			}
			//
			nr := Rule{Name: r.Name, Head: r.Body[i], Constraints: r.Constraints}
			nr.Body = append(nr.Body, r.Head)
			//
			for j, atom := range r.Body {
				if j != i {
					nr.Body = append(nr.Body, atom)
				}
			}
			//
			dst.Add(&nr)
		}
	}
	//
	return dst
}
