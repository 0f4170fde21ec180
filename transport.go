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

package govici

import (
	"encoding/binary"
	"errors"
	"io"
)

// DefaultFrameCap is the default upper bound, in bytes, on a single
// frame's payload, chosen to match the conventional and tested VICI
// message size of 512 KiB (spec.md §3, §4.2).
const DefaultFrameCap = 512 * 1024

// Transport implements the 32-bit big-endian length-prefixed framing VICI
// carries its packets in, over any byte stream. It is kept independent of
// net.Conn so the framing logic can be exercised against a bytes.Buffer or
// io.Pipe in tests without a real socket.
type Transport struct {
	rw       io.ReadWriter
	FrameCap uint32
}

// NewTransport wraps rw with VICI's length-prefixed framing, applying the
// default frame cap.
func NewTransport(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw, FrameCap: DefaultFrameCap}
}

// WriteFrame writes payload prefixed by its 4-byte big-endian length. The
// prefix and payload are written as a single logical unit: partial writes
// on the underlying stream are retried until the whole frame is sent or an
// error occurs.
func (t *Transport) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return &TransportError{Kind: Io, Err: errors.New("empty frame payload")}
	}
	if uint32(len(payload)) > t.cap() {
		return &TransportError{Kind: OversizedFrame, Len: uint32(len(payload)), Cap: t.cap()}
	}

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	for len(frame) > 0 {
		n, err := t.rw.Write(frame)
		if err != nil {
			return &TransportError{Kind: Io, Err: err}
		}
		frame = frame[n:]
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and returns its payload.
func (t *Transport) ReadFrame() ([]byte, error) {
	var lenBuf [4]byte
	if err := t.readFull(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, &TransportError{Kind: Io, Err: errors.New("zero-length frame")}
	}
	if n > t.cap() {
		return nil, &TransportError{Kind: OversizedFrame, Len: n, Cap: t.cap()}
	}

	buf := make([]byte, n)
	if err := t.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *Transport) readFull(buf []byte) error {
	_, err := io.ReadFull(t.rw, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &TransportError{Kind: Eof, Err: err}
		}
		return &TransportError{Kind: Io, Err: err}
	}
	return nil
}

func (t *Transport) cap() uint32 {
	if t.FrameCap == 0 {
		return DefaultFrameCap
	}
	return t.FrameCap
}
