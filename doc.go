/*
 * doc.go, part of gopenff.
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

/*Package chem is the chemistry kernel of gopenff. It provides the molecular graph used by the
native backend (atoms, bonds, formal charges, aromaticity and partial charges) and a few
geometric and topological checks over the coordinates carried by result records.



	**Capabilities**


    Builds molecules atom by atom and bond by bond, validating every bond endpoint.

    Perceives covalent connectivity from cartesian coordinates, using the covalent
	radii of Cordero et al. and a multiplicative tolerance.

    Calculates RMSD between conformers after an optimal (Kabsch) superposition.

    Finds tetrahedral stereocentres and checks whether their 3D geometry is good enough
	to perceive the stereochemistry.

    Finds intramolecular hydrogen bonds.

    Extracts element symbols from (CM)SMILES strings.


Coordinates are held in the v3.Matrix type, based on gonum's Dense. Each row of a
v3.Matrix represents one point in space, in Angstrom.*/
package chem
