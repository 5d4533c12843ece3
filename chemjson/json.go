/*
 * json.go, part of gopenff.
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

package chemjson

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/rmera/gopenff/foreign"
)

//The operations understood by the worker.
const (
	OpHello   = "hello" //imports the modules in Args and reports the worker's versions
	OpImport  = "import"
	OpGetAttr = "getattr"
	OpSetAttr = "setattr"
	OpCall    = "call"
	OpRelease = "release"
	OpClose   = "close"
)

//Keys of the wire form of a reference.
const (
	refKey   = "$ref"
	classKey = "$class"
)

//Request is one message to the worker. Obj, Args, Kwargs and Value are wire values
//(see EncodeValue).
type Request struct {
	ID     uint64         `json:"id"`
	Op     string         `json:"op"`
	Module string         `json:"module,omitempty"`
	Name   string         `json:"name,omitempty"`
	Obj    any            `json:"obj,omitempty"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
	Value  any            `json:"value"`
}

//Response is the answer of the worker to the request with the same ID.
//Exactly one of Result and Error is meaningful.
type Response struct {
	ID     uint64 `json:"id"`
	Result any    `json:"result"`
	Error  *Error `json:"error,omitempty"`
}

//Error is an exception raised in the worker, ready to be serialized.
type Error struct {
	deco      []string
	Kind      string `json:"kind"` //one of the Kind* constants
	Type      string `json:"type"` //the class of the exception
	Message   string `json:"message"`
	Traceback string `json:"traceback,omitempty"`
}

//The kinds of errors a worker reports.
const (
	KindNoSuchAttribute = "no_such_attribute"
	KindNoSuchMethod    = "no_such_method"
	KindConversion      = "conversion"
	KindExternal        = "external"
	KindStartup         = "startup"
	KindReleased        = "released"
)

var kinds = map[string]foreign.Kind{
	KindNoSuchAttribute: foreign.KindNoSuchAttribute,
	KindNoSuchMethod:    foreign.KindNoSuchMethod,
	KindConversion:      foreign.KindConversion,
	KindExternal:        foreign.KindExternal,
	KindStartup:         foreign.KindStartup,
	KindReleased:        foreign.KindReleased,
}

//Error implements the error interface
func (J *Error) Error() string {
	if J.Type == "" {
		return J.Message
	}
	return J.Type + ": " + J.Message
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (J *Error) Decorate(dec string) []string {
	if dec == "" {
		return J.deco
	}
	J.deco = append(J.deco, dec)
	return J.deco
}

//Foreign returns the error as a *foreign.Error for the given class and attribute or method.
//Unknown kinds become external errors.
func (J *Error) Foreign(class, name string) *foreign.Error {
	k, ok := kinds[J.Kind]
	if !ok {
		k = foreign.KindExternal
	}
	ret := foreign.Errorf(k, class, name, "%s", J.Message)
	ret.Type = J.Type
	return ret
}

//EncodeValue returns the wire form of the canonical foreign value v.
func EncodeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, int64, string:
		return t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("chemjson: %v can't be sent", t)
		}
		return t, nil
	case foreign.Ref:
		return map[string]any{refKey: t.ID, classKey: t.Class}, nil
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			var err error
			if ret[i], err = EncodeValue(e); err != nil {
				return nil, err
			}
		}
		return ret, nil
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			if k == refKey {
				return nil, fmt.Errorf("chemjson: dictionaries can't have the key %q", refKey)
			}
			var err error
			if ret[k], err = EncodeValue(e); err != nil {
				return nil, err
			}
		}
		return ret, nil
	}
	return nil, fmt.Errorf("chemjson: %T is not a canonical foreign value", v)
}

//DecodeValue turns a decoded wire value, with numbers as json.Number, into a canonical
//foreign value. Integral numbers become int64, all others float64.
func DecodeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string:
		return t, nil
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := t.Int64(); err == nil {
				return i, nil
			}
		}
		return t.Float64()
	case float64:
		return t, nil
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			var err error
			if ret[i], err = DecodeValue(e); err != nil {
				return nil, err
			}
		}
		return ret, nil
	case map[string]any:
		if id, ok := t[refKey]; ok {
			return decodeRef(id, t[classKey])
		}
		ret := make(map[string]any, len(t))
		for k, e := range t {
			var err error
			if ret[k], err = DecodeValue(e); err != nil {
				return nil, err
			}
		}
		return ret, nil
	}
	return nil, fmt.Errorf("chemjson: unexpected %T in a message", v)
}

func decodeRef(id, class any) (foreign.Ref, error) {
	n, ok := id.(json.Number)
	if !ok {
		return foreign.Ref{}, fmt.Errorf("chemjson: reference id %v is not a number", id)
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return foreign.Ref{}, fmt.Errorf("chemjson: bad reference id %s", n)
	}
	c, _ := class.(string)
	return foreign.Ref{ID: uint64(i), Class: c}, nil
}

//Encoder writes messages, one per line.
type Encoder struct {
	out io.Writer
}

func NewEncoder(out io.Writer) *Encoder {
	return &Encoder{out: out}
}

//Send serializes the request and writes it to the underlying writer.
func (E *Encoder) Send(r *Request) error {
	line, err := json.MarshalWithOption(r, json.DisableHTMLEscape())
	if err != nil {
		return fmt.Errorf("chemjson: request %d: %w", r.ID, err)
	}
	line = append(line, '\n')
	_, err = E.out.Write(line)
	return err
}

//Reply serializes the response and writes it to the underlying writer. The result must
//already be in wire form.
func (E *Encoder) Reply(r *Response) error {
	line, err := json.MarshalWithOption(r, json.DisableHTMLEscape())
	if err != nil {
		return fmt.Errorf("chemjson: response %d: %w", r.ID, err)
	}
	line = append(line, '\n')
	_, err = E.out.Write(line)
	return err
}

//Decoder reads messages, one per line.
type Decoder struct {
	in *bufio.Reader
}

func NewDecoder(in io.Reader) *Decoder {
	return &Decoder{in: bufio.NewReader(in)}
}

//readLine returns the next line, which must be a JSON object with an id. Lines that are
//not, like stray prints of the worker, are returned in the error.
func (D *Decoder) readLine() ([]byte, error) {
	line, err := D.in.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		if err != io.EOF {
			return nil, err
		}
	}
	line = bytes.TrimSpace(line)
	if !gjson.ValidBytes(line) || !gjson.GetBytes(line, "id").Exists() {
		return nil, fmt.Errorf("chemjson: unexpected line: %q", truncate(line, 200))
	}
	return line, nil
}

func unmarshal(line []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("chemjson: message %d: %w", gjson.GetBytes(line, "id").Uint(), err)
	}
	return nil
}

//Next reads the next response. Its result is decoded with DecodeValue.
func (D *Decoder) Next() (*Response, error) {
	line, err := D.readLine()
	if err != nil {
		return nil, err
	}
	resp := new(Response)
	if err := unmarshal(line, resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		resp.Result = nil
		return resp, nil
	}
	if resp.Result, err = DecodeValue(resp.Result); err != nil {
		return nil, fmt.Errorf("chemjson: response %d: %w", resp.ID, err)
	}
	return resp, nil
}

//NextRequest reads the next request, for workers written in Go. The values in it are
//decoded with DecodeValue.
func (D *Decoder) NextRequest() (*Request, error) {
	line, err := D.readLine()
	if err != nil {
		return nil, err
	}
	r := new(Request)
	if err := unmarshal(line, r); err != nil {
		return nil, err
	}
	var args any
	if r.Obj != nil {
		if r.Obj, err = DecodeValue(r.Obj); err != nil {
			return nil, err
		}
	}
	if args, err = DecodeValue(r.Args); err != nil {
		return nil, err
	}
	r.Args, _ = args.([]any)
	if r.Kwargs != nil {
		kw, err := DecodeValue(r.Kwargs)
		if err != nil {
			return nil, err
		}
		r.Kwargs = kw.(map[string]any)
	}
	if r.Value, err = DecodeValue(r.Value); err != nil {
		return nil, err
	}
	return r, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
