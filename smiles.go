/*
 * smiles.go, part of gopenff.
 *
 * Copyright 2026 The gopenff authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package chem

import (
	"strings"
	"unicode"
)

//Elements of the SMILES organic subset, longest first.
var organicSubset = []string{"Cl", "Br", "B", "C", "N", "O", "P", "S", "F", "I"}

//SymbolsFromSMILES returns the element symbols of the atoms written in the (CM)SMILES string s,
//in order. Hydrogens are only included when they are written, either as atoms or as
//hydrogen counts of bracket atoms. Implicit hydrogens are not returned.
func SymbolsFromSMILES(s string) ([]string, error) {
	ret := make([]string, 0, len(s)/2)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, newError("SymbolsFromSMILES", "unclosed bracket atom at position %d in %q", i, s)
			}
			syms, err := bracketAtom(s[i+1 : i+end])
			if err != nil {
				return nil, newError("SymbolsFromSMILES", "%s in %q", err.Error(), s)
			}
			ret = append(ret, syms...)
			i += end + 1
		case unicode.IsLetter(rune(c)):
			sym := ""
			for _, o := range organicSubset {
				if strings.HasPrefix(s[i:], o) {
					sym = o
					break
				}
			}
			if sym == "" {
				//aromatic organic atoms are lowercase
				switch c {
				case 'b', 'c', 'n', 'o', 'p', 's':
					sym = strings.ToUpper(string(c))
				default:
					return nil, newError("SymbolsFromSMILES", "unexpected character %q at position %d in %q", c, i, s)
				}
			}
			ret = append(ret, sym)
			i += len(sym)
		default:
			//bonds, branches, ring closures, dots...
			i++
		}
	}
	return ret, nil
}

//bracketAtom parses the inside of a bracket atom.
func bracketAtom(b string) ([]string, error) {
	i := 0
	for i < len(b) && unicode.IsDigit(rune(b[i])) { //isotope
		i++
	}
	if i >= len(b) {
		return nil, newError("bracketAtom", "empty bracket atom [%s]", b)
	}
	var sym string
	if i+1 < len(b) && unicode.IsUpper(rune(b[i])) && unicode.IsLower(rune(b[i+1])) && AtomicNumber(b[i:i+2]) != 0 {
		sym = b[i : i+2]
	} else if i+1 < len(b) && unicode.IsLower(rune(b[i])) && AtomicNumber(b[i:i+2]) != 0 && (b[i:i+2] == "se" || b[i:i+2] == "as") {
		sym = strings.ToUpper(b[i:i+1]) + b[i+1:i+2]
	} else {
		sym = strings.ToUpper(b[i : i+1])
		if AtomicNumber(sym) == 0 {
			return nil, newError("bracketAtom", "unknown element in [%s]", b)
		}
	}
	ret := []string{sym}
	i += len(sym)
	for i < len(b) && b[i] == '@' {
		i++
	}
	if sym != "H" && i < len(b) && b[i] == 'H' {
		i++
		n := 1
		if i < len(b) && unicode.IsDigit(rune(b[i])) {
			n = int(b[i] - '0')
		}
		for k := 0; k < n; k++ {
			ret = append(ret, "H")
		}
	}
	return ret, nil
}
