/*
 * bridge_test.go, part of gopenff.
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

package pybridge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rmera/gopenff/chemjson"
	"github.com/rmera/gopenff/foreign"
	"github.com/rmera/gopenff/toolkit/smirnoff"
)

//TestHelperProcess is not a real test. It is the fake worker started by the other tests.
func TestHelperProcess(Te *testing.T) {
	if os.Getenv("GOPENFF_HELPER_WORKER") != "1" {
		return
	}
	fakeWorker(os.Stdin, os.Stdout)
	os.Exit(0)
}

//fakeWorker mimics worker.py. "types.SimpleNamespace" builds objects whose attributes
//are the keyword arguments, with a keys method. Importing "crash" kills the worker.
func fakeWorker(in io.Reader, out io.Writer) {
	dec := chemjson.NewDecoder(in)
	enc := chemjson.NewEncoder(out)
	objects := map[uint64]map[string]any{}
	var counter uint64
	export := func(o map[string]any, class string) any {
		counter++
		objects[counter] = o
		v, _ := chemjson.EncodeValue(foreign.Ref{ID: counter, Class: class})
		return v
	}
	fmt.Fprintln(os.Stderr, "fake worker ready")
	for {
		req, err := dec.NextRequest()
		if err != nil {
			return
		}
		resp := &chemjson.Response{ID: req.ID}
		fail := func(kind, typ, msg string) {
			resp.Error = &chemjson.Error{Kind: kind, Type: typ, Message: msg}
		}
		var obj map[string]any
		if ref, ok := req.Obj.(foreign.Ref); ok {
			if obj, ok = objects[ref.ID]; !ok {
				fail(chemjson.KindReleased, "KeyError", fmt.Sprintf("no object with reference %d", ref.ID))
				enc.Reply(resp)
				continue
			}
		}
		switch req.Op {
		case chemjson.OpHello:
			for _, m := range req.Args {
				if m == "missing" {
					fail(chemjson.KindStartup, "ModuleNotFoundError", "No module named 'missing'")
				}
			}
			if resp.Error == nil {
				resp.Result = map[string]any{"python": "fake"}
			}
		case chemjson.OpImport:
			switch req.Module + "." + req.Name {
			case "math.pi":
				resp.Result = 3.141592653589793
			case "types.SimpleNamespace":
				resp.Result = export(map[string]any{"$class": true}, "SimpleNamespace")
			case "crash.":
				os.Exit(3)
			default:
				fail(chemjson.KindNoSuchAttribute, "AttributeError", "module has no attribute "+req.Name)
			}
		case chemjson.OpGetAttr:
			v, ok := obj[req.Name]
			if !ok {
				fail(chemjson.KindNoSuchAttribute, "AttributeError", "no attribute "+req.Name)
			}
			resp.Result, _ = chemjson.EncodeValue(v)
		case chemjson.OpSetAttr:
			obj[req.Name] = req.Value
		case chemjson.OpCall:
			switch {
			case req.Name == "" && obj["$class"] == true:
				o := make(map[string]any)
				for k, v := range req.Kwargs {
					o[k] = v
				}
				resp.Result = export(o, "SimpleNamespace")
			case req.Name == "keys":
				keys := make([]string, 0, len(obj))
				for k := range obj {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				l := make([]any, len(keys))
				for i, k := range keys {
					l[i] = k
				}
				resp.Result = l
			default:
				fail(chemjson.KindNoSuchMethod, "AttributeError", "no method "+req.Name)
			}
		case chemjson.OpRelease:
			delete(objects, req.Obj.(foreign.Ref).ID)
		case chemjson.OpClose:
			enc.Reply(resp)
			return
		}
		enc.Reply(resp)
	}
}

func helperConfig(modules ...string) Config {
	return Config{
		Command: []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		Env:     []string{"GOPENFF_HELPER_WORKER=1"},
		Modules: modules,
	}
}

func TestBridge(Te *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := helperConfig("openff.toolkit")
	cfg.Logger = zap.New(core)
	b, err := Start(cfg)
	require.NoError(Te, err)
	assert.Equal(Te, "fake", b.Versions()["python"])
	ip := foreign.NewInterpreter(b)

	pi, err := foreign.ImportValue[float64](ip, "math", "pi")
	require.NoError(Te, err)
	assert.InDelta(Te, 3.14159, pi, 1e-5)

	ns, err := foreign.ImportCall[*foreign.Handle](ip, "types", "SimpleNamespace", foreign.Kwargs{"author": "J. Doe", "n": 3})
	require.NoError(Te, err)
	assert.Equal(Te, "SimpleNamespace", ns.Class())
	n, err := foreign.GetAttr[int](ns, "n")
	require.NoError(Te, err)
	assert.Equal(Te, 3, n)
	require.NoError(Te, foreign.SetAttr(ns, "date", false))
	date, err := foreign.GetAttr[bool](ns, "date")
	require.NoError(Te, err)
	assert.False(Te, date)
	keys, err := foreign.Call[[]string](ns, "keys")
	require.NoError(Te, err)
	assert.Equal(Te, []string{"author", "date", "n"}, keys)

	_, err = foreign.GetAttr[string](ns, "title")
	assert.True(Te, errors.Is(err, foreign.ErrNoSuchAttribute))
	assert.Contains(Te, err.Error(), "SimpleNamespace.title")
	_, err = foreign.Call[any](ns, "frobnicate")
	assert.True(Te, errors.Is(err, foreign.ErrNoSuchMethod))

	require.NoError(Te, ns.Release())
	assert.Error(Te, b.Release(ns.Ref()), "the worker forgets released objects")

	require.NoError(Te, ip.Close())
	_, err = b.Import("math", "pi")
	assert.True(Te, errors.Is(err, foreign.ErrReleased))
	assert.NoError(Te, b.Close())
	assert.NotZero(Te, logs.FilterField(zap.String("stderr", "fake worker ready")).Len(), "worker stderr is logged")
}

func TestStartupErrors(Te *testing.T) {
	_, err := Start(helperConfig("openff.toolkit", "missing"))
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, foreign.ErrStartup))
	assert.Contains(Te, err.Error(), "ModuleNotFoundError")
	assert.Contains(Te, err.Error(), "fake worker ready", "the worker output explains the failure")

	_, err = Start(Config{Python: "/nonexistent/python", Modules: []string{}})
	assert.True(Te, errors.Is(err, foreign.ErrStartup))

	cfg := helperConfig()
	cfg.Env = nil //runs the tests instead of a worker
	_, err = Start(cfg)
	assert.True(Te, errors.Is(err, foreign.ErrStartup))
}

func TestWorkerCrash(Te *testing.T) {
	b, err := Start(helperConfig())
	require.NoError(Te, err)
	_, err = b.Import("crash", "")
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	assert.Contains(Te, err.Error(), "the worker exited")
	_, err = b.Import("math", "pi")
	assert.True(Te, errors.Is(err, foreign.ErrExternal), "no retries")
	assert.NoError(Te, b.Close())
}

func TestTempScript(Te *testing.T) {
	b, err := Start(helperConfig())
	require.NoError(Te, err)
	require.NotEmpty(Te, b.tmp)
	data, err := os.ReadFile(b.tmp)
	require.NoError(Te, err)
	assert.Equal(Te, workerScript, data)
	require.NoError(Te, b.Close())
	_, err = os.Stat(b.tmp)
	assert.True(Te, os.IsNotExist(err))
}

//The embedded worker, run by a real Python, with standard library modules only.
func TestPythonWorker(Te *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		Te.Skip("python3 not found")
	}
	b, err := Start(Config{Python: python, Modules: []string{"json", "math"}})
	require.NoError(Te, err)
	ip := foreign.NewInterpreter(b)
	defer ip.Close()
	pi, err := foreign.ImportValue[float64](ip, "math", "pi")
	require.NoError(Te, err)
	assert.InDelta(Te, 3.14159, pi, 1e-5)
	ns, err := foreign.ImportCall[*foreign.Handle](ip, "types", "SimpleNamespace", foreign.Kwargs{"k": []float64{1.5, 2.5}})
	require.NoError(Te, err)
	k, err := foreign.GetAttr[[]float64](ns, "k")
	require.NoError(Te, err)
	assert.Equal(Te, []float64{1.5, 2.5}, k)
	s, err := foreign.ImportCall[string](ip, "json", "dumps", foreign.Kwargs{"sort_keys": true}, map[string]any{"b": 1, "a": nil})
	require.NoError(Te, err)
	assert.Equal(Te, `{"a": null, "b": 1}`, s)
	_, err = foreign.ImportCall[any](ip, "math", "sqrt", nil, -1.0)
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	assert.Contains(Te, err.Error(), "ValueError")
	_, err = foreign.ImportValue[any](ip, "no_such_module_here", "x")
	assert.True(Te, errors.Is(err, foreign.ErrStartup))
	require.NoError(Te, ns.Release())

	_, err = Start(Config{Python: python, Modules: []string{"no_such_module_here"}})
	assert.True(Te, errors.Is(err, foreign.ErrStartup))
}

//stubParameters stands in for the parameters module of the toolkit, with what the
//smirnoff facades use. ParameterList subclasses list, as in the toolkit.
const stubParameters = `import enum


class DuplicateParameterError(Exception):
    pass


class ParameterList(list):
    pass


class ProperTorsionType:
    def __init__(self, smirks, id, k=0.0):
        self.smirks = smirks
        self.id = id
        self.k = k


class ProperTorsionHandler:
    TAGNAME = "ProperTorsions"

    def __init__(self, version=None):
        self.version = version
        self._parameters = ParameterList()

    @property
    def parameters(self):
        return self._parameters

    def add_parameter(self, parameter_kwargs=None, parameter=None, allow_duplicate_smirks=False):
        if parameter is None:
            parameter = ProperTorsionType(**parameter_kwargs)
        if not allow_duplicate_smirks and any(p.smirks == parameter.smirks for p in self._parameters):
            raise DuplicateParameterError("a parameter SMIRKS pattern %s already exists" % parameter.smirks)
        self._parameters.append(parameter)

    def get_parameter(self, parameter_attrs):
        return [p for p in self._parameters if all(getattr(p, k) == v for k, v in parameter_attrs.items())]


class Status(str, enum.Enum):
    complete = "complete"
    error = "error"
`

//stubToolkit writes a fake openff.toolkit package and returns the directory to put in PYTHONPATH.
func stubToolkit(Te *testing.T) string {
	Te.Helper()
	dir := Te.TempDir()
	for name, src := range map[string]string{
		"openff/__init__.py":                                   "",
		"openff/toolkit/__init__.py":                           "__version__ = \"0.0\"\n",
		"openff/toolkit/typing/__init__.py":                    "",
		"openff/toolkit/typing/engines/__init__.py":            "",
		"openff/toolkit/typing/engines/smirnoff/__init__.py":   "",
		"openff/toolkit/typing/engines/smirnoff/parameters.py": stubParameters,
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(Te, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(Te, os.WriteFile(path, []byte(src), 0o644))
	}
	return dir
}

//The embedded worker, run by a real Python, driven through the smirnoff facades.
func TestPythonWorkerToolkit(Te *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		Te.Skip("python3 not found")
	}
	b, err := Start(Config{Python: python, Modules: []string{"openff.toolkit"}, Env: []string{"PYTHONPATH=" + stubToolkit(Te)}})
	require.NoError(Te, err)
	assert.Equal(Te, map[string]any{"openff.toolkit": "0.0"}, b.Versions()["modules"])
	ip := foreign.NewInterpreter(b)
	defer ip.Close()

	h, err := smirnoff.NewParameterHandler(ip, "ProperTorsionHandler", foreign.Kwargs{"version": "0.4"})
	require.NoError(Te, err)
	defer h.Release()
	tag, err := h.TagName()
	require.NoError(Te, err)
	assert.Equal(Te, "ProperTorsions", tag)
	smirks := []string{"[*:1]-[#6X4:2]-[#6X4:3]-[*:4]", "[*:1]-[#6X4:2]-[#8X2:3]-[*:4]"}
	for i, sm := range smirks {
		require.NoError(Te, h.AddParameterKw(map[string]any{"smirks": sm, "id": fmt.Sprintf("t%d", i+1), "k": 0.1}))
	}

	//list subclasses stay in the worker
	list, err := foreign.GetAttr[*foreign.Handle](h, "parameters")
	require.NoError(Te, err)
	assert.Equal(Te, "ParameterList", list.Class())
	require.NoError(Te, list.Release())
	n, err := h.NParameters()
	require.NoError(Te, err)
	assert.Equal(Te, 2, n)
	params, err := h.Parameters()
	require.NoError(Te, err)
	require.Len(Te, params, 2)
	defer foreign.ReleaseAll(params...)
	id, err := params[1].ID()
	require.NoError(Te, err)
	assert.Equal(Te, "t2", id)
	k, err := params[1].K()
	require.NoError(Te, err)
	assert.Equal(Te, []float64{0.1}, k)

	ids, err := smirnoff.AppendParameters(h, params[:1])
	require.NoError(Te, err)
	assert.Equal(Te, []string{"t1", "t2", "t1x"}, ids)
	id, err = params[0].ID()
	require.NoError(Te, err)
	assert.Equal(Te, "t1", id, "the worker got a copy")

	//exceptions
	err = h.AddParameterKw(map[string]any{"smirks": smirks[0], "id": "t3"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	var fe *foreign.Error
	require.True(Te, errors.As(err, &fe))
	assert.Equal(Te, "ProperTorsionHandler", fe.Class)
	assert.Equal(Te, "add_parameter", fe.Name)
	assert.Contains(Te, err.Error(), "DuplicateParameterError")
	_, err = smirnoff.NewParameterHandler(ip, "ProperTorsionHandler", foreign.Kwargs{"potential": "k*(1+cos(periodicity*theta-phase))"})
	assert.True(Te, errors.Is(err, foreign.ErrExternal))
	assert.Contains(Te, err.Error(), "TypeError")

	//enumeration members are objects, with a value
	status, err := ip.Import("openff.toolkit.typing.engines.smirnoff.parameters", "Status")
	require.NoError(Te, err)
	defer status.Release()
	member, err := foreign.GetAttr[*foreign.Handle](status, "complete")
	require.NoError(Te, err)
	assert.Equal(Te, "Status", member.Class())
	v, err := foreign.GetAttr[string](member, "value")
	require.NoError(Te, err)
	assert.Equal(Te, "complete", v)
	require.NoError(Te, member.Release())

	require.NoError(Te, h.ClearParameters())
	n, err = h.NParameters()
	require.NoError(Te, err)
	assert.Zero(Te, n)
}
