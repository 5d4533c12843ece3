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

package native

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rmera/gopenff/foreign"
)

//dimensions, in order: length, mass, time, amount, charge, angle, temperature.
type dims [7]int8

var dimNames = [...]string{"[length]", "[mass]", "[time]", "[substance]", "[charge]", "[angle]", "[temperature]"}

func (d dims) String() string {
	parts := make([]string, 0, len(d))
	for i, e := range d {
		switch {
		case e == 0:
			continue
		case e == 1:
			parts = append(parts, dimNames[i])
		default:
			parts = append(parts, fmt.Sprintf("%s ** %d", dimNames[i], e))
		}
	}
	if len(parts) == 0 {
		return "dimensionless"
	}
	return strings.Join(parts, " * ")
}

//unitObj is a unit of measure: a factor to the SI (or SI-like) base units, and a dimensionality.
type unitObj struct {
	name   string
	factor float64
	dim    dims
}

func (u *unitObj) class() *class { return unitClass }

func (u *unitObj) compatible(o *unitObj) bool { return u.dim == o.dim }

var (
	dLength = dims{1}
	dMass   = dims{0, 1}
	dTime   = dims{0, 0, 1}
	dAmount = dims{0, 0, 0, 1}
	dCharge = dims{0, 0, 0, 0, 1}
	dAngle  = dims{0, 0, 0, 0, 0, 1}
	dTemp   = dims{0, 0, 0, 0, 0, 0, 1}
	dEnergy = dims{2, 1, -2}
)

type baseUnit struct {
	factor float64
	dim    dims
}

const (
	avogadro = 6.02214076e23
	eCharge  = 1.602176634e-19
)

var baseUnits = map[string]baseUnit{
	"meter":             {1, dLength},
	"nanometer":         {1e-9, dLength},
	"angstrom":          {1e-10, dLength},
	"picometer":         {1e-12, dLength},
	"bohr":              {5.29177210903e-11, dLength},
	"gram":              {1e-3, dMass},
	"kilogram":          {1, dMass},
	"dalton":            {1.66053906660e-27, dMass},
	"second":            {1, dTime},
	"picosecond":        {1e-12, dTime},
	"femtosecond":       {1e-15, dTime},
	"mole":              {avogadro, dAmount},
	"joule":             {1, dEnergy},
	"kilojoule":         {1e3, dEnergy},
	"calorie":           {4.184, dEnergy},
	"kilocalorie":       {4184, dEnergy},
	"hartree":           {4.3597447222071e-18, dEnergy},
	"electron_volt":     {eCharge, dEnergy},
	"elementary_charge": {eCharge, dCharge},
	"coulomb":           {1, dCharge},
	"radian":            {1, dAngle},
	"degree":            {math.Pi / 180, dAngle},
	"kelvin":            {1, dTemp},
	"dimensionless":     {1, dims{}},
}

//The amount unit counts entities, so "per mole" quantities are per-entity quantities divided by
//the Avogadro constant, as in the OpenFF unit registry.
var aliases = map[string]string{
	"m":           "meter",
	"nm":          "nanometer",
	"Å":           "angstrom",
	"angstroms":   "angstrom",
	"pm":          "picometer",
	"a0":          "bohr",
	"bohr_radius": "bohr",
	"g":           "gram",
	"kg":          "kilogram",
	"Da":          "dalton",
	"amu":         "dalton",
	"s":           "second",
	"ps":          "picosecond",
	"fs":          "femtosecond",
	"mol":         "mole",
	"J":           "joule",
	"kJ":          "kilojoule",
	"cal":         "calorie",
	"kcal":        "kilocalorie",
	"E_h":         "hartree",
	"eV":          "electron_volt",
	"e":           "elementary_charge",
	"C":           "coulomb",
	"rad":         "radian",
	"deg":         "degree",
	"K":           "kelvin",
}

//derived units that are spelled as a single name.
var derived = map[string]string{
	"kilocalorie_per_mole": "kilocalorie / mole",
	"kilojoule_per_mole":   "kilojoule / mole",
}

//lookupUnit returns the unit with the given name or alias.
func lookupUnit(name string) (*unitObj, bool) {
	if full, ok := aliases[name]; ok {
		name = full
	}
	if expr, ok := derived[name]; ok {
		u, err := parseUnit(expr)
		if err != nil {
			return nil, false
		}
		u.name = name
		return u, true
	}
	b, ok := baseUnits[name]
	if !ok {
		return nil, false
	}
	return &unitObj{name: name, factor: b.factor, dim: b.dim}, true
}

type unitParser struct {
	toks []string
	pos  int
}

func tokenizeUnit(s string) ([]string, error) {
	toks := make([]string, 0, 8)
	r := []rune(s)
	for i := 0; i < len(r); {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '*' && i+1 < len(r) && r[i+1] == '*':
			toks = append(toks, "**")
			i += 2
		case c == '^':
			toks = append(toks, "**")
			i++
		case strings.ContainsRune("*/()", c):
			toks = append(toks, string(c))
			i++
		case c == '-' || c == '+' || c == '.' || unicode.IsDigit(c):
			j := i + 1
			for j < len(r) && (unicode.IsDigit(r[j]) || r[j] == '.' || r[j] == 'e' || r[j] == 'E' || ((r[j] == '-' || r[j] == '+') && (r[j-1] == 'e' || r[j-1] == 'E'))) {
				j++
			}
			toks = append(toks, string(r[i:j]))
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(r) && (unicode.IsLetter(r[j]) || unicode.IsDigit(r[j]) || r[j] == '_') {
				j++
			}
			toks = append(toks, string(r[i:j]))
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in unit expression %q", c, s)
		}
	}
	return toks, nil
}

//parseUnit parses expressions like "kilocalorie / mole / angstrom ** 2" or "angstrom**-2 * mole**-1 * kilocalorie".
func parseUnit(s string) (*unitObj, error) {
	toks, err := tokenizeUnit(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return &unitObj{name: "dimensionless", factor: 1}, nil
	}
	p := &unitParser{toks: toks}
	u, err := p.expr()
	if err != nil {
		return nil, fmt.Errorf("%s in unit expression %q", err.Error(), s)
	}
	if p.pos != len(toks) {
		return nil, fmt.Errorf("unexpected %q in unit expression %q", toks[p.pos], s)
	}
	if len(toks) == 1 {
		u.name = canonicalName(toks[0])
	} else {
		u.name = p.render()
	}
	return u, nil
}

func canonicalName(n string) string {
	if full, ok := aliases[n]; ok {
		return full
	}
	return n
}

func (p *unitParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *unitParser) expr() (*unitObj, error) {
	u, err := p.power()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != "*" && op != "/" {
			return u, nil
		}
		p.pos++
		v, err := p.power()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			u = mulUnits(u, v, 1)
		} else {
			u = mulUnits(u, v, -1)
		}
	}
}

func (p *unitParser) power() (*unitObj, error) {
	u, err := p.atom()
	if err != nil {
		return nil, err
	}
	if p.peek() != "**" {
		return u, nil
	}
	p.pos++
	e, err := strconv.Atoi(p.peek())
	if err != nil {
		return nil, fmt.Errorf("bad exponent %q", p.peek())
	}
	p.pos++
	return powUnit(u, e), nil
}

func (p *unitParser) atom() (*unitObj, error) {
	t := p.peek()
	p.pos++
	switch {
	case t == "":
		return nil, fmt.Errorf("unexpected end")
	case t == "(":
		u, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("missing ')'")
		}
		p.pos++
		return u, nil
	case unicode.IsDigit(rune(t[0])):
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		return &unitObj{factor: f}, nil
	}
	u, ok := lookupUnit(t)
	if !ok {
		return nil, fmt.Errorf("'%s' is not defined in the unit registry", t)
	}
	return u, nil
}

//render writes the parsed expression back with canonical names and spacing.
func (p *unitParser) render() string {
	var sb strings.Builder
	for i, t := range p.toks {
		switch t {
		case "*", "/", "**":
			sb.WriteString(" " + t + " ")
		case "(", ")":
			sb.WriteString(t)
		default:
			if i > 0 && p.toks[i-1] == "**" {
				sb.WriteString(t)
				continue
			}
			sb.WriteString(canonicalName(t))
		}
	}
	return sb.String()
}

func mulUnits(a, b *unitObj, sign int8) *unitObj {
	ret := &unitObj{factor: a.factor * math.Pow(b.factor, float64(sign))}
	for i := range ret.dim {
		ret.dim[i] = a.dim[i] + sign*b.dim[i]
	}
	return ret
}

func powUnit(a *unitObj, e int) *unitObj {
	ret := &unitObj{factor: math.Pow(a.factor, float64(e))}
	for i := range ret.dim {
		ret.dim[i] = a.dim[i] * int8(e)
	}
	return ret
}

//quantity is a magnitude, a number or a list of numbers, with a unit.
type quantity struct {
	mag  any //float64 or []float64
	unit *unitObj
}

func (q *quantity) class() *class { return quantityClass }

func (q *quantity) String() string {
	return formatMagnitude(q.mag) + " " + q.unit.name
}

//in returns the magnitude of q in the unit u.
func (q *quantity) in(u *unitObj) (any, error) {
	if !q.unit.compatible(u) {
		return nil, fmt.Errorf("DimensionalityError: cannot convert from '%s' (%s) to '%s' (%s)", q.unit.name, q.unit.dim, u.name, u.dim)
	}
	r := q.unit.factor / u.factor
	switch m := q.mag.(type) {
	case float64:
		return m * r, nil
	case []float64:
		ret := make([]float64, len(m))
		for i, v := range m {
			ret[i] = v * r
		}
		return ret, nil
	}
	return nil, fmt.Errorf("bad magnitude %T", q.mag)
}

//pyFloat formats v the way python's str() does for floats.
func pyFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatMagnitude(m any) string {
	switch t := m.(type) {
	case float64:
		return pyFloat(t)
	case []float64:
		parts := make([]string, len(t))
		for i, v := range t {
			parts[i] = pyFloat(v)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprint(m)
}

//parseQuantity parses strings like "1.09 * angstrom" or "529.5 angstrom**-2 * mole**-1 * kilocalorie".
func parseQuantity(s string) (*quantity, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && strings.ContainsRune("0123456789+-.eE", rune(s[end])) {
		//an 'e' right after the number starts a unit (e.g. "1 e"), unless an exponent follows
		if (s[end] == 'e' || s[end] == 'E') && (end+1 >= len(s) || !strings.ContainsRune("0123456789+-", rune(s[end+1]))) {
			break
		}
		end++
	}
	if end == 0 {
		return nil, fmt.Errorf("no magnitude in quantity %q", s)
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return nil, fmt.Errorf("bad magnitude in quantity %q", s)
	}
	rest := strings.TrimSpace(s[end:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "*"))
	if strings.HasPrefix(rest, "*") {
		return nil, fmt.Errorf("bad quantity %q", s)
	}
	u, err := parseUnit(rest)
	if err != nil {
		return nil, err
	}
	return &quantity{mag: v, unit: u}, nil
}

//toUnit interprets v as a unit: a unit object or a unit expression.
func toUnit(b *Backend, v any) (*unitObj, error) {
	switch t := v.(type) {
	case string:
		return parseUnit(t)
	case foreign.Ref:
		o, err := b.lookup(t)
		if err != nil {
			return nil, err
		}
		if u, ok := o.(*unitObj); ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("expected a unit, got %s", typeName(v))
}

//toQuantity interprets v as a quantity in unit u: a quantity object, or a plain number taken to be in u.
func toQuantity(b *Backend, v any, u *unitObj) (*quantity, error) {
	switch t := v.(type) {
	case int64:
		return &quantity{mag: float64(t), unit: u}, nil
	case float64:
		return &quantity{mag: t, unit: u}, nil
	case string:
		return parseQuantity(t)
	case foreign.Ref:
		o, err := b.lookup(t)
		if err != nil {
			return nil, err
		}
		if q, ok := o.(*quantity); ok {
			return q, nil
		}
	}
	return nil, fmt.Errorf("expected a quantity, got %s", typeName(v))
}

func floats(v any) ([]float64, bool) {
	l, ok := v.([]any)
	if !ok {
		return nil, false
	}
	ret := make([]float64, len(l))
	for i, e := range l {
		switch t := e.(type) {
		case int64:
			ret[i] = float64(t)
		case float64:
			ret[i] = t
		default:
			return nil, false
		}
	}
	return ret, true
}

func convError(self object, name string, err error) error {
	return foreign.Errorf(foreign.KindExternal, self.class().name, name, "%s", err.Error())
}

var unitClass = &class{
	name: "Unit",
	props: map[string]prop{
		"dimensionality": {get: func(b *Backend, self object) (any, error) {
			return self.(*unitObj).dim.String(), nil
		}},
	},
	methods: map[string]method{
		"__str__": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			return self.(*unitObj).name, nil
		},
		"is_compatible_with": func(b *Backend, self object, a *args) (any, error) {
			v, err := a.required(0, "other")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			o, err := toUnit(b, v)
			if err != nil {
				return nil, a.err("%s", err.Error())
			}
			return self.(*unitObj).compatible(o), nil
		},
	},
}

var quantityClass = &class{
	name: "Quantity",
	props: map[string]prop{
		"magnitude": {get: func(b *Backend, self object) (any, error) {
			return self.(*quantity).mag, nil
		}},
		"m": {get: func(b *Backend, self object) (any, error) {
			return self.(*quantity).mag, nil
		}},
		"units": {get: func(b *Backend, self object) (any, error) {
			return self.(*quantity).unit, nil
		}},
	},
	methods: map[string]method{
		"m_as": func(b *Backend, self object, a *args) (any, error) {
			v, err := a.required(0, "units")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			u, err := toUnit(b, v)
			if err != nil {
				return nil, a.err("%s", err.Error())
			}
			m, err := self.(*quantity).in(u)
			if err != nil {
				return nil, convError(self, "m_as", err)
			}
			return m, nil
		},
		"to": func(b *Backend, self object, a *args) (any, error) {
			v, err := a.required(0, "other")
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			u, err := toUnit(b, v)
			if err != nil {
				return nil, a.err("%s", err.Error())
			}
			m, err := self.(*quantity).in(u)
			if err != nil {
				return nil, convError(self, "to", err)
			}
			return &quantity{mag: m, unit: u}, nil
		},
		"__str__": func(b *Backend, self object, a *args) (any, error) {
			if err := a.done(); err != nil {
				return nil, err
			}
			return self.(*quantity).String(), nil
		},
	},
	new: func(b *Backend, _ object, a *args) (any, error) {
		v, err := a.required(0, "value")
		if err != nil {
			return nil, err
		}
		uv, hasUnit := a.get(1, "units")
		if err := a.done(); err != nil {
			return nil, err
		}
		if !hasUnit || uv == nil {
			s, ok := v.(string)
			if !ok {
				return nil, a.err("a quantity without units needs a string value")
			}
			q, err := parseQuantity(s)
			if err != nil {
				return nil, external(nil, "Quantity", "%s", err.Error())
			}
			return q, nil
		}
		u, err := toUnit(b, uv)
		if err != nil {
			return nil, external(nil, "Quantity", "%s", err.Error())
		}
		switch t := v.(type) {
		case int64:
			return &quantity{mag: float64(t), unit: u}, nil
		case float64:
			return &quantity{mag: t, unit: u}, nil
		}
		if fs, ok := floats(v); ok {
			return &quantity{mag: fs, unit: u}, nil
		}
		return nil, a.err("argument 'value': expected a number or a list of numbers, got %s", typeName(v))
	},
}

//registry is the unit registry: its attributes are units.
type registry struct{}

func (registry) class() *class { return registryClass }

var theRegistry = &registry{}

var registryClass = &class{
	name: "UnitRegistry",
	dynamic: func(b *Backend, self object, name string) (any, bool, error) {
		u, ok := lookupUnit(name)
		if !ok {
			return nil, false, foreign.Errorf(foreign.KindNoSuchAttribute, "UnitRegistry", name, "UndefinedUnitError: '%s' is not defined in the unit registry", name)
		}
		return u, true, nil
	},
	methods: map[string]method{
		"Unit": func(b *Backend, self object, a *args) (any, error) {
			s, err := a.str(0, "expr", nil)
			if err != nil {
				return nil, err
			}
			if err := a.done(); err != nil {
				return nil, err
			}
			u, err := parseUnit(s)
			if err != nil {
				return nil, external(self, "Unit", "UndefinedUnitError: %s", err.Error())
			}
			return u, nil
		},
		"Quantity": func(b *Backend, self object, a *args) (any, error) {
			return quantityClass.new(b, nil, a)
		},
	},
}
