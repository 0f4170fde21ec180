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
	"errors"
	"fmt"
)

// CodecKind identifies the kind of failure encountered while encoding or
// decoding a message or packet.
type CodecKind int

const (
	Truncated CodecKind = iota
	UnknownTag
	UnknownPacketType
	NestingMismatch
	ListContainsSection
	Unterminated
	NameLength
	ValueLength
	Trailing
)

func (k CodecKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case UnknownTag:
		return "unknown tag"
	case UnknownPacketType:
		return "unknown packet type"
	case NestingMismatch:
		return "nesting mismatch"
	case ListContainsSection:
		return "list contains section"
	case Unterminated:
		return "unterminated"
	case NameLength:
		return "invalid name length"
	case ValueLength:
		return "invalid value length"
	case Trailing:
		return "trailing bytes"
	default:
		return "codec error"
	}
}

// CodecError reports a failure decoding or encoding the message or packet
// wire format. Byte carries the offending tag or opcode when applicable.
type CodecError struct {
	Kind CodecKind
	Byte byte
}

func (e *CodecError) Error() string {
	switch e.Kind {
	case UnknownTag:
		return fmt.Sprintf("vici: %s: 0x%02x", e.Kind, e.Byte)
	case UnknownPacketType:
		return fmt.Sprintf("vici: %s: 0x%02x", e.Kind, e.Byte)
	default:
		return fmt.Sprintf("vici: %s", e.Kind)
	}
}

// TransportKind identifies the kind of failure encountered on the framed
// transport.
type TransportKind int

const (
	Eof TransportKind = iota
	OversizedFrame
	Io
)

// TransportError reports a failure reading or writing a framed packet.
type TransportError struct {
	Kind TransportKind
	Len  uint32
	Cap  uint32
	Err  error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case Eof:
		return "vici: transport: unexpected eof"
	case OversizedFrame:
		return fmt.Sprintf("vici: transport: frame of %d bytes exceeds cap of %d", e.Len, e.Cap)
	default:
		return fmt.Sprintf("vici: transport: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientErrorKind identifies the kind of failure a Client operation
// encountered above the transport layer.
type ClientErrorKind int

const (
	UnknownCommand ClientErrorKind = iota
	UnknownEvent
	UnexpectedPacket
	UnexpectedEvent
	Broken
	PeerCredMismatch
)

// ClientError reports a protocol-level failure of a Client operation.
type ClientError struct {
	Kind ClientErrorKind
	// Name carries the command or event name for UnknownCommand,
	// UnknownEvent, and UnexpectedEvent.
	Name string
	// Got and Expected describe an UnexpectedPacket violation.
	Got, Expected string
	Err           error
}

func (e *ClientError) Error() string {
	switch e.Kind {
	case UnknownCommand:
		return fmt.Sprintf("vici: unknown command: %s", e.Name)
	case UnknownEvent:
		return fmt.Sprintf("vici: unknown event: %s", e.Name)
	case UnexpectedPacket:
		return fmt.Sprintf("vici: unexpected packet: got %s, expected %s", e.Got, e.Expected)
	case UnexpectedEvent:
		return fmt.Sprintf("vici: unexpected event for unsubscribed name: %s", e.Name)
	case Broken:
		return "vici: client is broken, reconnect required"
	case PeerCredMismatch:
		return fmt.Sprintf("vici: peer credential mismatch: %v", e.Err)
	default:
		return "vici: client error"
	}
}

func (e *ClientError) Unwrap() error { return e.Err }

// ErrBroken is the sentinel comparable via errors.Is against any
// ClientError with Kind == Broken, matching spec.md's distinction between
// the two recoverable kinds (UnknownCommand, UnknownEvent) and every other
// kind, which is terminal.
var ErrBroken = &ClientError{Kind: Broken}

func (e *ClientError) Is(target error) bool {
	var ce *ClientError
	if !errors.As(target, &ce) {
		return false
	}
	return e.Kind == ce.Kind
}
