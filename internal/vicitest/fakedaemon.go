// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// Package vicitest provides a minimal scripted peer for exercising a VICI
// client against raw framed packets without a real charon daemon.
package vicitest

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
)

// FakeDaemon is a UNIX domain socket listener that accepts exactly one
// connection and hands it to a caller-supplied script function, running on
// its own goroutine so the test's own Client can dial and converse with it
// synchronously.
type FakeDaemon struct {
	t    *testing.T
	ln   *net.UnixListener
	Path string
	done chan struct{}
}

// Start creates a FakeDaemon listening on a fresh socket path under t's
// temp directory and runs script against the one connection it accepts.
func Start(t *testing.T, script func(conn net.Conn)) *FakeDaemon {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "charon.vici")

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		t.Fatalf("vicitest: resolve addr: %v", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		t.Fatalf("vicitest: listen: %v", err)
	}

	d := &FakeDaemon{t: t, ln: ln, Path: path, done: make(chan struct{})}

	go func() {
		defer close(d.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(conn)
	}()

	t.Cleanup(func() {
		ln.Close()
		os.Remove(path)
	})

	return d
}

// Wait blocks until the accepted connection's script returns.
func (d *FakeDaemon) Wait() {
	<-d.done
}

// WriteFrame writes a length-prefixed frame of payload to w, for use inside
// a script function.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r, for use inside a
// script function.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
