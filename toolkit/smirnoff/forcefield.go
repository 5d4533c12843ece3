/*
 * forcefield.go, part of gopenff.
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

//Package smirnoff wraps the SMIRNOFF force fields of the OpenFF toolkit: the force field itself,
//its parameter handlers and their parameters. It also has the helpers to port parameters
//from one force field to another.
package smirnoff

import (
	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/toolkit"
)

const module = "openff.toolkit.typing.engines.smirnoff"

var (
	aromaticityModel   = foreign.NewRWProp[string]("aromaticity_model")
	author             = foreign.NewRWProp[string]("author")
	date               = foreign.NewRWProp[string]("date")
	registeredHandlers = foreign.NewProp[[]string]("registered_parameter_handlers")
)

//ForceField is a SMIRNOFF force field.
type ForceField struct {
	h *foreign.Handle
}

//Load reads a force field from sources, which can be file names, names of force fields
//installed with the toolkit, or XML strings. The sources are read in order.
func Load(ip *foreign.Interpreter, sources ...string) (*ForceField, error) {
	args := make([]any, len(sources))
	for i, v := range sources {
		args[i] = v
	}
	h, err := foreign.ImportCall[*foreign.Handle](ip, module, "ForceField", nil, args...)
	if err != nil {
		return nil, err
	}
	return &ForceField{h: h}, nil
}

//AvailableForceFields returns the names of the force fields that Load can find.
func AvailableForceFields(ip *foreign.Interpreter) ([]string, error) {
	return foreign.ImportCall[[]string](ip, module, "get_available_force_fields", nil)
}

//ForceFieldFromHandle wraps h, which must hold a force field. The force field takes ownership of h.
func ForceFieldFromHandle(h *foreign.Handle) *ForceField {
	return &ForceField{h: h}
}

func (F *ForceField) Handle() *foreign.Handle {
	if F == nil {
		return nil
	}
	return F.h
}

func (F *ForceField) AromaticityModel() (string, error) {
	return aromaticityModel.Get(F)
}

func (F *ForceField) SetAromaticityModel(model string) error {
	return aromaticityModel.Set(F, model)
}

func (F *ForceField) Author() (string, error) {
	return author.Get(F)
}

func (F *ForceField) SetAuthor(a string) error {
	return author.Set(F, a)
}

func (F *ForceField) Date() (string, error) {
	return date.Get(F)
}

func (F *ForceField) SetDate(d string) error {
	return date.Set(F, d)
}

//RegisteredParameterHandlers returns the tags of the handlers of the force field, in order.
func (F *ForceField) RegisteredParameterHandlers() ([]string, error) {
	return registeredHandlers.Get(F)
}

//GetParameterHandler returns the handler for tag, like "Bonds" or "ProperTorsions".
//If the force field has none, an empty one is created and registered.
func (F *ForceField) GetParameterHandler(tag string) (*ParameterHandler, error) {
	h, err := foreign.Call[*foreign.Handle](F, "get_parameter_handler", tag)
	if err != nil {
		return nil, err
	}
	return &ParameterHandler{h: h}, nil
}

//RegisterParameterHandler adds h to the force field. There can be only one handler per tag.
func (F *ForceField) RegisterParameterHandler(h *ParameterHandler) error {
	_, err := foreign.Call[any](F, "register_parameter_handler", h)
	return err
}

//DeregisterParameterHandler removes the handler with the given tag.
func (F *ForceField) DeregisterParameterHandler(tag string) error {
	_, err := foreign.Call[any](F, "deregister_parameter_handler", tag)
	return err
}

//GetParameterIOHandler returns the reader/writer for format, like "XML".
func (F *ForceField) GetParameterIOHandler(format string) (*IOHandler, error) {
	h, err := foreign.Call[*foreign.Handle](F, "get_parameter_io_handler", format)
	if err != nil {
		return nil, err
	}
	return &IOHandler{h: h}, nil
}

//RegisterParameterIOHandler adds an IO handler to the force field. There can be only one per format.
func (F *ForceField) RegisterParameterIOHandler(h *IOHandler) error {
	_, err := foreign.Call[any](F, "register_parameter_io_handler", h)
	return err
}

//ParseSources adds the parameters in sources to the force field.
func (F *ForceField) ParseSources(sources ...string) error {
	_, err := foreign.Call[any](F, "parse_sources", sources)
	return err
}

//ParseSmirnoffFromSource returns the contents of source as a nested dictionary, without
//modifying the force field.
func (F *ForceField) ParseSmirnoffFromSource(source string) (map[string]any, error) {
	return foreign.Call[map[string]any](F, "parse_smirnoff_from_source", source)
}

//ToString returns the force field in SMIRNOFF XML.
func (F *ForceField) ToString() (string, error) {
	return foreign.Call[string](F, "to_string")
}

//ToFile writes the force field to filename. The format is taken from the extension.
//The contents of the file are the same as those returned by ToString.
func (F *ForceField) ToFile(filename string) error {
	_, err := foreign.Call[any](F, "to_file", filename)
	return err
}

//CreateOpenMMSystem parametrizes top and returns the resulting OpenMM system.
func (F *ForceField) CreateOpenMMSystem(top *toolkit.Topology) (*foreign.Handle, error) {
	return foreign.Call[*foreign.Handle](F, "create_openmm_system", top)
}

//CreateInterchange parametrizes top and returns the resulting Interchange object.
func (F *ForceField) CreateInterchange(top *toolkit.Topology) (*foreign.Handle, error) {
	return foreign.Call[*foreign.Handle](F, "create_interchange", top)
}

//LabelMolecules returns, for each molecule of top, the parameters assigned to it, by handler tag.
func (F *ForceField) LabelMolecules(top *toolkit.Topology) ([]map[string]any, error) {
	return foreign.Call[[]map[string]any](F, "label_molecules", top)
}

//GetPartialCharges returns the partial charges that the force field assigns to mol.
func (F *ForceField) GetPartialCharges(mol *toolkit.Molecule) (*foreign.Handle, error) {
	return foreign.Call[*foreign.Handle](F, "get_partial_charges", mol)
}

func (F *ForceField) Release() error {
	return F.h.Release()
}

//IOHandler reads and writes force fields in one format.
type IOHandler struct {
	h *foreign.Handle
}

//NewXMLIOHandler returns the SMIRNOFF XML IO handler.
func NewXMLIOHandler(ip *foreign.Interpreter) (*IOHandler, error) {
	h, err := foreign.ImportCall[*foreign.Handle](ip, module+".io", "XMLParameterIOHandler", nil)
	if err != nil {
		return nil, err
	}
	return &IOHandler{h: h}, nil
}

func (I *IOHandler) Handle() *foreign.Handle {
	if I == nil {
		return nil
	}
	return I.h
}

//Format returns the name of the format, like "XML".
func (I *IOHandler) Format() (string, error) {
	return foreign.GetAttr[string](I, "_FORMAT")
}

//ParseString parses data into a nested dictionary.
func (I *IOHandler) ParseString(data string) (map[string]any, error) {
	return foreign.Call[map[string]any](I, "parse_string", data)
}

func (I *IOHandler) Release() error {
	return I.h.Release()
}
