/*
 * zio.go, part of gopenff.
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

//Package zio opens and creates files that may be compressed. The compression is
//chosen from the file extension: .gz for gzip, .zst or .zstd for zstandard, and
//anything else for plain files.
package zio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

//Format is a compression format.
type Format int

const (
	Plain Format = iota
	Gzip
	Zstd
)

//FormatOf deduces the compression format from the name of a file.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	}
	return Plain
}

//TrimExt removes the compression extension, if any, from name.
func TrimExt(name string) string {
	if FormatOf(name) == Plain {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

//Why couldn't *zstd.Decoder implement io.ReadCloser?
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

//readCloser closes the decompressor and the underlying file.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var err error
	for _, c := range r.closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

//Open opens the file name for reading, decompressing it if needed.
func Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewReader(f)
	var dec io.ReadCloser
	switch FormatOf(name) {
	case Gzip:
		dec, err = gzip.NewReader(buf)
	case Zstd:
		var z *zstd.Decoder
		z, err = zstd.NewReader(buf)
		if err == nil {
			dec = zstdReadCloser{z}
		}
	default:
		return &readCloser{Reader: buf, closers: []io.Closer{f}}, nil
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readCloser{Reader: dec, closers: []io.Closer{dec, f}}, nil
}

//ReadFile reads the whole file name, decompressing it if needed.
func ReadFile(name string) ([]byte, error) {
	r, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

//writeCloser flushes the compressor before closing the file.
type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (w *writeCloser) Close() error {
	var err error
	for _, c := range w.closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

//Create creates the file name, compressing what is written to it according to its extension.
func Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	var enc io.WriteCloser
	switch FormatOf(name) {
	case Gzip:
		enc = gzip.NewWriter(f)
	case Zstd:
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	default:
		return f, nil
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return &writeCloser{Writer: enc, closers: []io.Closer{enc, f}}, nil
}

//WriteFile writes data to the file name, compressing it according to its extension.
func WriteFile(name string, data []byte) error {
	w, err := Create(name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
