/*
 * units.go, part of gopenff.
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

//Package units wraps the unit registry and the quantities of openff-units.
//A Quantity is a magnitude, scalar or array, tagged with a physical unit.
package units

import (
	"fmt"

	"github.com/rmera/gopenff/foreign"
)

const module = "openff.units"

var (
	magnitude      = foreign.NewProp[any]("magnitude")
	quantityUnits  = foreign.NewProp[*foreign.Handle]("units")
	dimensionality = foreign.NewProp[string]("dimensionality")
)

//UnitRegistry is the registry of known units. Its attributes are units.
type UnitRegistry struct {
	h *foreign.Handle
}

//Registry returns the application unit registry, openff.units.unit.
func Registry(ip *foreign.Interpreter) (*UnitRegistry, error) {
	h, err := ip.Import(module, "unit")
	if err != nil {
		return nil, err
	}
	return &UnitRegistry{h: h}, nil
}

func (R *UnitRegistry) Handle() *foreign.Handle {
	if R == nil {
		return nil
	}
	return R.h
}

//Unit returns the unit registered with the given name, like nanometer or elementary_charge.
func (R *UnitRegistry) Unit(name string) (*Unit, error) {
	h, err := foreign.GetAttr[*foreign.Handle](R, name)
	if err != nil {
		return nil, err
	}
	return &Unit{h: h}, nil
}

//Parse builds a unit from an expression like "kilocalorie / mole / angstrom ** 2".
func (R *UnitRegistry) Parse(expr string) (*Unit, error) {
	h, err := foreign.Call[*foreign.Handle](R, "Unit", expr)
	if err != nil {
		return nil, err
	}
	return &Unit{h: h}, nil
}

func (R *UnitRegistry) Release() error {
	return R.h.Release()
}

//Unit is a physical unit.
type Unit struct {
	h *foreign.Handle
}

//UnitFromHandle wraps h, which must hold a unit.
func UnitFromHandle(h *foreign.Handle) *Unit {
	return &Unit{h: h}
}

func (U *Unit) Handle() *foreign.Handle {
	if U == nil {
		return nil
	}
	return U.h
}

//Name returns the name of the unit, as printed by the runtime.
func (U *Unit) Name() (string, error) {
	return foreign.Call[string](U, "__str__")
}

//Dimensionality returns the dimensions of the unit, like "[length]".
func (U *Unit) Dimensionality() (string, error) {
	return dimensionality.Get(U)
}

//IsCompatibleWith returns true if quantities in U can be converted to other.
func (U *Unit) IsCompatibleWith(other *Unit) (bool, error) {
	return foreign.Call[bool](U, "is_compatible_with", other)
}

func (U *Unit) Release() error {
	return U.h.Release()
}

//Quantity is a magnitude with units.
type Quantity struct {
	h *foreign.Handle
}

//NewQuantity returns a quantity with the given magnitude, which can be a number or a slice
//of numbers, in unit. The unit can be a *Unit or the name of a unit.
func NewQuantity(ip *foreign.Interpreter, magnitude any, unit any) (*Quantity, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, "Quantity", nil, magnitude, unit)
	if err != nil {
		return nil, err
	}
	return &Quantity{h: h}, nil
}

//ParseQuantity builds a quantity from a string like "1.0 * kilocalorie / mole".
func ParseQuantity(ip *foreign.Interpreter, s string) (*Quantity, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, "Quantity", nil, s)
	if err != nil {
		return nil, err
	}
	return &Quantity{h: h}, nil
}

//QuantityFromHandle wraps h, which must hold a quantity. The quantity takes ownership of h.
func QuantityFromHandle(h *foreign.Handle) *Quantity {
	return &Quantity{h: h}
}

func (Q *Quantity) Handle() *foreign.Handle {
	if Q == nil {
		return nil
	}
	return Q.h
}

//Magnitude returns the magnitude of the quantity, in its own units. Scalar
//quantities give a slice of length 1.
func (Q *Quantity) Magnitude() ([]float64, error) {
	v, err := magnitude.Get(Q)
	if err != nil {
		return nil, err
	}
	return floats(Q, "magnitude", v)
}

//Scalar returns the magnitude of a scalar quantity, in its own units.
func (Q *Quantity) Scalar() (float64, error) {
	return foreign.GetAttr[float64](Q, "magnitude")
}

//MagnitudeAs returns the magnitude of the quantity converted to unit.
func (Q *Quantity) MagnitudeAs(unit any) ([]float64, error) {
	v, err := foreign.Call[any](Q, "m_as", unit)
	if err != nil {
		return nil, err
	}
	return floats(Q, "m_as", v)
}

//Units returns the units of the quantity.
func (Q *Quantity) Units() (*Unit, error) {
	h, err := quantityUnits.Get(Q)
	if err != nil {
		return nil, err
	}
	return &Unit{h: h}, nil
}

//UnitName returns the name of the units of the quantity.
func (Q *Quantity) UnitName() (string, error) {
	u, err := Q.Units()
	if err != nil {
		return "", err
	}
	defer u.Release()
	return u.Name()
}

//To returns a new quantity, Q converted to unit.
func (Q *Quantity) To(unit any) (*Quantity, error) {
	h, err := foreign.Call[*foreign.Handle](Q, "to", unit)
	if err != nil {
		return nil, err
	}
	return &Quantity{h: h}, nil
}

//String returns the quantity as printed by the runtime, or a description of the error.
func (Q *Quantity) String() string {
	s, err := foreign.Call[string](Q, "__str__")
	if err != nil {
		return fmt.Sprintf("<quantity: %s>", err)
	}
	return s
}

func (Q *Quantity) Release() error {
	return Q.h.Release()
}

//floats interprets a magnitude, a number or a list of numbers.
func floats(Q *Quantity, name string, v any) ([]float64, error) {
	switch t := v.(type) {
	case float64:
		return []float64{t}, nil
	case int64:
		return []float64{float64(t)}, nil
	}
	ret, err := foreign.Convert[[]float64](Q.h.Interpreter(), v)
	if err != nil {
		return nil, foreign.Errorf(foreign.KindConversion, Q.h.Class(), name, "magnitude is not a number or a list of numbers: %v", err)
	}
	return ret, nil
}
