/*
 * parameters.go, part of gopenff.
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

package smirnoff

import (
	"go.uber.org/multierr"

	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/units"
)

var (
	tagName = foreign.NewProp[string]("TAGNAME")
	paramID = foreign.NewRWProp[string]("id")
	smirks  = foreign.NewRWProp[string]("smirks")
)

//ParameterHandler is the section of a force field with the parameters of one kind of
//interaction, like Bonds or ProperTorsions.
type ParameterHandler struct {
	h *foreign.Handle
}

//NewParameterHandler returns a new handler of the given class, like "ProperTorsionHandler",
//with the given section attributes (version, potential, ...).
func NewParameterHandler(ip *foreign.Interpreter, class string, attrs foreign.Kwargs) (*ParameterHandler, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module+".parameters", class, attrs)
	if err != nil {
		return nil, err
	}
	return &ParameterHandler{h: h}, nil
}

func (P *ParameterHandler) Handle() *foreign.Handle {
	if P == nil {
		return nil
	}
	return P.h
}

//TagName returns the tag of the handler's section, like "ProperTorsions".
func (P *ParameterHandler) TagName() (string, error) {
	return tagName.Get(P)
}

//Parameters returns the parameters of the handler, in order. They
//must be released by the caller.
func (P *ParameterHandler) Parameters() ([]*Parameter, error) {
	list, err := foreign.GetAttr[*foreign.Handle](P, "parameters")
	if err != nil {
		return nil, err
	}
	defer list.Release()
	hs, err := foreign.Call[[]*foreign.Handle](list, "copy")
	if err != nil {
		return nil, err
	}
	ret := make([]*Parameter, len(hs))
	for i, h := range hs {
		ret[i] = &Parameter{h: h}
	}
	return ret, nil
}

//NParameters returns the number of parameters in the handler.
func (P *ParameterHandler) NParameters() (int, error) {
	list, err := foreign.GetAttr[*foreign.Handle](P, "parameters")
	if err != nil {
		return 0, err
	}
	defer list.Release()
	return foreign.Call[int](list, "__len__")
}

//GetParameter returns the parameter with the given id, or nil if there is none.
func (P *ParameterHandler) GetParameter(id string) (*Parameter, error) {
	hs, err := foreign.Call[[]*foreign.Handle](P, "get_parameter", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, nil
	}
	//ids are unique within a handler, but release any extra just in case
	if err := foreign.ReleaseAll(hs[1:]...); err != nil {
		hs[0].Release()
		return nil, err
	}
	return &Parameter{h: hs[0]}, nil
}

//ClearParameters removes all the parameters of the handler.
func (P *ParameterHandler) ClearParameters() error {
	list, err := foreign.GetAttr[*foreign.Handle](P, "parameters")
	if err != nil {
		return err
	}
	_, err = foreign.Call[any](list, "clear")
	return multierr.Append(err, list.Release())
}

//AddParameter appends a copy of p to the handler. Parameters with a SMIRKS already
//present in the handler are rejected by the toolkit.
func (P *ParameterHandler) AddParameter(p *Parameter) error {
	c, err := p.Copy()
	if err != nil {
		return err
	}
	_, err = foreign.CallKw[any](P, "add_parameter", foreign.Kwargs{"parameter": c})
	return multierr.Append(err, c.Release())
}

//add appends p itself, not a copy, to the handler, even if its SMIRKS is already there.
func (P *ParameterHandler) add(p *Parameter) error {
	_, err := foreign.CallKw[any](P, "add_parameter", foreign.Kwargs{"parameter": p, "allow_duplicate_smirks": true})
	return err
}

//AddParameterKw appends a new parameter built from its attributes, like
//{"smirks": ..., "id": ..., "k": ...}.
func (P *ParameterHandler) AddParameterKw(attrs map[string]any) error {
	_, err := foreign.CallKw[any](P, "add_parameter", foreign.Kwargs{"parameter_kwargs": attrs})
	return err
}

func (P *ParameterHandler) Release() error {
	return P.h.Release()
}

//Parameter is one parameter of a handler: a SMIRKS pattern, an id and the
//force constants and other attributes.
type Parameter struct {
	h *foreign.Handle
}

func (P *Parameter) Handle() *foreign.Handle {
	if P == nil {
		return nil
	}
	return P.h
}

//Copy returns a deep copy of the parameter. The toolkit adds parameters to handlers
//without copying them, so a parameter shared by two handlers changes in both.
func (P *Parameter) Copy() (*Parameter, error) {
	h, err := foreign.ImportCall[*foreign.Handle](P.h.Interpreter(), "copy", "deepcopy", nil, P)
	if err != nil {
		return nil, err
	}
	return &Parameter{h: h}, nil
}

func (P *Parameter) ID() (string, error) {
	return paramID.Get(P)
}

func (P *Parameter) SetID(id string) error {
	return paramID.Set(P, id)
}

func (P *Parameter) SMIRKS() (string, error) {
	return smirks.Get(P)
}

func (P *Parameter) SetSMIRKS(s string) error {
	return smirks.Set(P, s)
}

//K returns all the force constants of the parameter, in the units they are
//written in. Handlers with a single constant per parameter (bonds, angles) give a
//slice of length 1.
func (P *Parameter) K() ([]float64, error) {
	v, err := foreign.GetAttr[any](P, "k")
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		l = []any{v}
	}
	ret := make([]float64, 0, len(l))
	var errs error
	for _, e := range l {
		switch t := e.(type) {
		case float64:
			ret = append(ret, t)
		case int64:
			ret = append(ret, float64(t))
		case *foreign.Handle:
			f, err := units.QuantityFromHandle(t).Scalar()
			errs = multierr.Append(errs, multierr.Append(err, t.Release()))
			ret = append(ret, f)
		default:
			errs = multierr.Append(errs, foreign.Errorf(foreign.KindConversion, P.h.Class(), "k", "a force constant can't be a %T", e))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return ret, nil
}

//Dict returns the attributes of the parameter.
func (P *Parameter) Dict() (map[string]any, error) {
	return foreign.Call[map[string]any](P, "to_dict")
}

func (P *Parameter) Release() error {
	return P.h.Release()
}
