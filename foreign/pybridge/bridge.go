/*
 * bridge.go, part of gopenff.
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

//Package pybridge runs the OpenFF toolkits in a Python worker process and implements
//foreign.Backend on top of it. The worker speaks the chemjson protocol on its standard
//input and output. Its standard error is logged, line by line, at debug level.
//
//A Bridge is not safe for concurrent use. Wrap it in a foreign.Interpreter, which
//serializes all the calls.
package pybridge

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rmera/gopenff/chemjson"
	"github.com/rmera/gopenff/foreign"
)

//go:embed worker.py
var workerScript []byte

//DefaultModules are imported by the worker at startup.
var DefaultModules = []string{"openff.toolkit", "openff.qcsubmit.results", "openff.units", "qcportal"}

//The time the worker has to exit after being told to.
const closeTimeout = 10 * time.Second

//The number of stderr lines kept to explain a failure.
const tailLines = 20

//Config sets how the worker is started.
type Config struct {
	Python  string   //the Python interpreter, "python3" by default
	Command []string //if set, replaces Python, e.g. {"conda", "run", "-n", "openff", "python"}
	Script  string   //the worker script. The embedded one is used if empty
	Env     []string //added to the environment of the worker, as KEY=value
	Dir     string   //the working directory of the worker
	Modules []string //imported at startup, DefaultModules if nil
	Logger  *zap.Logger
}

//Bridge is a running worker.
type Bridge struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	enc      *chemjson.Encoder
	dec      *chemjson.Decoder
	tmp      string //the temporary script, removed on Close
	next     uint64
	log      *zap.Logger
	broken   error
	closed   bool
	stderr   *tail
	done     chan struct{}
	versions map[string]any
}

//tail keeps the last lines written by the worker to its standard error.
type tail struct {
	mu    sync.Mutex
	lines []string
}

func (t *tail) add(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, s)
	if len(t.lines) > tailLines {
		t.lines = t.lines[len(t.lines)-tailLines:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

func startupErr(format string, args ...interface{}) *foreign.Error {
	return foreign.Errorf(foreign.KindStartup, "", "", format, args...)
}

//Start starts the worker and imports the configured modules in it.
//All failures, including missing Python packages, are startup errors.
func Start(cfg Config) (*Bridge, error) {
	b := &Bridge{log: cfg.Logger, stderr: new(tail), done: make(chan struct{})}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	script := cfg.Script
	if script == "" {
		f, err := os.CreateTemp("", "gopenff-worker-*.py")
		if err != nil {
			return nil, startupErr("writing the worker script: %s", err)
		}
		_, err = f.Write(workerScript)
		if err = multierr.Append(err, f.Close()); err != nil {
			os.Remove(f.Name())
			return nil, startupErr("writing the worker script: %s", err)
		}
		script = f.Name()
		b.tmp = script
	}
	argv := cfg.Command
	if len(argv) == 0 {
		python := cfg.Python
		if python == "" {
			python = "python3"
		}
		argv = []string{python}
	}
	args := append(append([]string{}, argv[1:]...), "-u", script)
	b.cmd = exec.Command(argv[0], args...)
	b.cmd.Dir = cfg.Dir
	b.cmd.Env = append(append(os.Environ(), "PYTHONUNBUFFERED=1"), cfg.Env...)
	var err error
	var stdout, stderr io.ReadCloser
	if b.stdin, err = b.cmd.StdinPipe(); err != nil {
		return nil, b.abort(err)
	}
	if stdout, err = b.cmd.StdoutPipe(); err != nil {
		return nil, b.abort(err)
	}
	if stderr, err = b.cmd.StderrPipe(); err != nil {
		return nil, b.abort(err)
	}
	if err = b.cmd.Start(); err != nil {
		return nil, b.abort(err)
	}
	go b.readStderr(stderr)
	b.enc = chemjson.NewEncoder(b.stdin)
	b.dec = chemjson.NewDecoder(stdout)
	modules := cfg.Modules
	if modules == nil {
		modules = DefaultModules
	}
	mods := make([]any, len(modules))
	for i, m := range modules {
		mods[i] = m
	}
	v, err := b.do(&chemjson.Request{Op: chemjson.OpHello, Args: mods}, "worker")
	if err != nil {
		var ferr *foreign.Error
		if errors.As(err, &ferr) && ferr.Kind != foreign.KindStartup {
			ferr.Kind = foreign.KindStartup
		}
		return nil, b.abort(err)
	}
	b.versions, _ = v.(map[string]any)
	b.log.Info("foreign runtime started", zap.Int("pid", b.cmd.Process.Pid), zap.Any("versions", b.versions))
	return b, nil
}

//abort kills the worker, if started, and cleans up after a failed start.
func (b *Bridge) abort(err error) error {
	if b.cmd != nil && b.cmd.Process != nil {
		b.cmd.Process.Kill()
		<-b.done
		b.cmd.Wait()
	}
	if b.tmp != "" {
		os.Remove(b.tmp)
	}
	b.closed = true
	var ferr *foreign.Error
	if !errors.As(err, &ferr) {
		ferr = startupErr("starting the worker: %s", err)
	}
	if s := b.stderr.String(); s != "" {
		ferr.Message += "\nworker output:\n" + s
	}
	return ferr
}

func (b *Bridge) readStderr(r io.Reader) {
	defer close(b.done)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		b.stderr.add(sc.Text())
		b.log.Debug("worker", zap.String("stderr", sc.Text()))
	}
}

//Versions returns the version of Python and of the modules imported at startup.
func (b *Bridge) Versions() map[string]any {
	return b.versions
}

//do sends the request and waits for its response. A worker that dies or breaks the
//protocol can't be used anymore.
func (b *Bridge) do(req *chemjson.Request, class string) (any, error) {
	if b.closed {
		return nil, foreign.Errorf(foreign.KindReleased, class, req.Name, "the worker was closed")
	}
	if b.broken != nil {
		return nil, foreign.Errorf(foreign.KindExternal, class, req.Name, "the worker is unusable: %s", b.broken)
	}
	b.next++
	req.ID = b.next
	if err := b.enc.Send(req); err != nil {
		return nil, b.fail(err, class, req.Name)
	}
	resp, err := b.dec.Next()
	if err != nil {
		if err == io.EOF {
			err = errors.New("the worker exited")
		}
		return nil, b.fail(err, class, req.Name)
	}
	if resp.ID != req.ID {
		return nil, b.fail(fmt.Errorf("response %d to request %d", resp.ID, req.ID), class, req.Name)
	}
	if resp.Error != nil {
		if resp.Error.Traceback != "" {
			b.log.Debug("foreign exception", zap.String("class", class), zap.String("name", req.Name), zap.String("traceback", resp.Error.Traceback))
		}
		return nil, resp.Error.Foreign(class, req.Name)
	}
	return resp.Result, nil
}

func (b *Bridge) fail(err error, class, name string) error {
	b.broken = err
	b.log.Error("foreign runtime failed", zap.Error(err), zap.String("stderr", b.stderr.String()))
	return &foreign.Error{Kind: foreign.KindExternal, Class: class, Name: name, Cause: err}
}

func encodeRef(obj foreign.Ref) any {
	v, _ := chemjson.EncodeValue(obj)
	return v
}

func (b *Bridge) Import(module, name string) (any, error) {
	return b.do(&chemjson.Request{Op: chemjson.OpImport, Module: module, Name: name}, module)
}

func (b *Bridge) GetAttr(obj foreign.Ref, name string) (any, error) {
	return b.do(&chemjson.Request{Op: chemjson.OpGetAttr, Obj: encodeRef(obj), Name: name}, obj.Class)
}

func (b *Bridge) SetAttr(obj foreign.Ref, name string, value any) error {
	v, err := chemjson.EncodeValue(value)
	if err != nil {
		return foreign.Errorf(foreign.KindConversion, obj.Class, name, "%s", err)
	}
	_, err = b.do(&chemjson.Request{Op: chemjson.OpSetAttr, Obj: encodeRef(obj), Name: name, Value: v}, obj.Class)
	return err
}

func (b *Bridge) Call(obj foreign.Ref, method string, args []any, kwargs map[string]any) (any, error) {
	req := &chemjson.Request{Op: chemjson.OpCall, Obj: encodeRef(obj), Name: method}
	if len(args) > 0 {
		a, err := chemjson.EncodeValue(args)
		if err != nil {
			return nil, foreign.Errorf(foreign.KindConversion, obj.Class, method, "%s", err)
		}
		req.Args = a.([]any)
	}
	if len(kwargs) > 0 {
		kw, err := chemjson.EncodeValue(kwargs)
		if err != nil {
			return nil, foreign.Errorf(foreign.KindConversion, obj.Class, method, "%s", err)
		}
		req.Kwargs = kw.(map[string]any)
	}
	return b.do(req, obj.Class)
}

func (b *Bridge) Release(obj foreign.Ref) error {
	_, err := b.do(&chemjson.Request{Op: chemjson.OpRelease, Obj: encodeRef(obj)}, obj.Class)
	return err
}

//Close tells the worker to exit and waits for it. The worker is killed if it doesn't
//exit in time. Closing twice does nothing.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	var err error
	if b.broken == nil {
		_, err = b.do(&chemjson.Request{Op: chemjson.OpClose}, "worker")
	}
	b.closed = true
	err = multierr.Append(err, b.stdin.Close())
	//stderr is closed by the worker when it exits
	select {
	case <-b.done:
	case <-time.After(closeTimeout):
		err = multierr.Append(err, fmt.Errorf("pybridge: the worker didn't exit in %s, killed", closeTimeout))
		b.cmd.Process.Kill()
		<-b.done
	}
	if werr := b.cmd.Wait(); b.broken == nil {
		err = multierr.Append(err, werr)
	}
	if b.tmp != "" {
		err = multierr.Append(err, os.Remove(b.tmp))
	}
	return err
}
