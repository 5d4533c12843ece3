/*
 * atomicdata.go, part of gopenff.
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

import "strings"

//Element symbols, indexed by atomic number. Index 0 is a dummy atom.
var symbols = [...]string{"X",
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe", "Cs", "Ba", "La", "Ce", "Pr", "Nd",
	"Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb",
	"Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
	"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm",
	"Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

//MaxAtomicNumber is the largest atomic number known to the package.
const MaxAtomicNumber = len(symbols) - 1

var symbolZ = func() map[string]int {
	ret := make(map[string]int, len(symbols))
	for i, v := range symbols {
		ret[v] = i
	}
	return ret
}()

//Symbol returns the element symbol for the atomic number z, or
//an empty string if z is not a valid atomic number.
func Symbol(z int) string {
	if z < 1 || z > MaxAtomicNumber {
		return ""
	}
	return symbols[z]
}

//AtomicNumber returns the atomic number for the element symbol s.
//The symbol is matched case-insensitively. It returns 0 if the symbol is unknown.
func AtomicNumber(s string) int {
	if len(s) == 0 {
		return 0
	}
	s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	z := symbolZ[s]
	return z
}

//CovalentRadius returns the covalent radius for the element s, in A,
//and false if no radius is tabulated for it.
func CovalentRadius(s string) (float64, bool) {
	r, ok := symbolCovrad[s]
	return r, ok
}

//A map for assigning mass to elements.
//Note that just common elements are present
var symbolMass = map[string]float64{
	"H":  1.008,
	"B":  10.81,
	"C":  12.01,
	"O":  16.00,
	"N":  14.01,
	"P":  30.97,
	"S":  32.06,
	"Se": 78.96,
	"K":  39.1,
	"Ca": 40.08,
	"Mg": 24.30,
	"Cl": 35.45,
	"Na": 22.99,
	"Li": 6.94,
	"Cu": 63.55,
	"Zn": 65.38,
	"Co": 58.93,
	"Fe": 55.84,
	"Mn": 54.94,
	"Cr": 51.996,
	"Si": 28.08,
	"Be": 9.012,
	"F":  18.998,
	"Br": 79.904,
	"I":  126.90,
}

//Mass returns the standard atomic mass of the element s and false if
//it is not tabulated.
func Mass(s string) (float64, bool) {
	m, ok := symbolMass[s]
	return m, ok
}

//A map for assigning covalent radii to elements
//Values from Cordero et al., 2008 (DOI:10.1039/B801115J)
var symbolCovrad = map[string]float64{
	"H":  0.31,
	"He": 0.28,
	"Li": 1.28,
	"Be": 0.96,
	"B":  0.84,
	"C":  0.76, //the sp3 radius
	"N":  0.71,
	"O":  0.66,
	"F":  0.57,
	"Ne": 0.58,
	"Na": 1.66,
	"Mg": 1.41,
	"Al": 1.21,
	"Si": 1.11,
	"P":  1.07,
	"S":  1.05,
	"Cl": 1.02,
	"Ar": 1.06,
	"K":  2.03,
	"Ca": 1.76,
	"Cr": 1.39,
	"Mn": 1.61, //hs
	"Fe": 1.52, //hs
	"Co": 1.5,  // hs
	"Ni": 1.24,
	"Cu": 1.32,
	"Zn": 1.22,
	"Ge": 1.20,
	"As": 1.19,
	"Se": 1.20,
	"Br": 1.20,
	"I":  1.39,
}

//Acceptor and donor heavy atoms for hydrogen bonds.
var hbondHeavy = map[string]bool{
	"N": true,
	"O": true,
	"F": true,
}
