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

import "fmt"

// PacketType is one of the eight opcodes in the VICI packet framing layer.
type PacketType byte

const (
	CmdRequest       PacketType = 0
	CmdResponse      PacketType = 1
	CmdUnknown       PacketType = 2
	EventRegister    PacketType = 3
	EventUnregister  PacketType = 4
	EventConfirm     PacketType = 5
	EventUnknownType PacketType = 6
	EventPacket      PacketType = 7
)

func (t PacketType) String() string {
	switch t {
	case CmdRequest:
		return "CMD_REQUEST"
	case CmdResponse:
		return "CMD_RESPONSE"
	case CmdUnknown:
		return "CMD_UNKNOWN"
	case EventRegister:
		return "EVENT_REGISTER"
	case EventUnregister:
		return "EVENT_UNREGISTER"
	case EventConfirm:
		return "EVENT_CONFIRM"
	case EventUnknownType:
		return "EVENT_UNKNOWN"
	case EventPacket:
		return "EVENT"
	default:
		return fmt.Sprintf("PacketType(0x%02x)", byte(t))
	}
}

// IsNamed reports whether packets of this type carry a leading
// length-prefixed name before their (optional) message payload.
func (t PacketType) IsNamed() bool {
	switch t {
	case CmdRequest, EventRegister, EventUnregister, EventPacket:
		return true
	default:
		return false
	}
}

// Packet is a parsed VICI packet: an opcode, an optional name (present iff
// Type.IsNamed()), and an optional message payload.
type Packet struct {
	Type    PacketType
	Name    string
	Message *Message
}

// EncodePacket serializes p into its wire bytes, excluding the 4-byte
// transport length prefix.
func EncodePacket(p *Packet) ([]byte, error) {
	out := []byte{byte(p.Type)}

	if p.Type.IsNamed() {
		var err error
		out, err = encodeName(out, p.Name)
		if err != nil {
			return nil, err
		}
	}

	if p.Message != nil {
		body, err := p.Message.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	}

	return out, nil
}

// DecodePacket parses buf, the exact payload of one transport frame, into
// a Packet.
func DecodePacket(buf []byte) (*Packet, error) {
	if len(buf) < 1 {
		return nil, &CodecError{Kind: Truncated}
	}
	opcode := buf[0]
	if opcode > byte(EventPacket) {
		return nil, &CodecError{Kind: UnknownPacketType, Byte: opcode}
	}
	t := PacketType(opcode)
	rest := buf[1:]

	p := &Packet{Type: t}

	if t.IsNamed() {
		name, next, err := decodeName(rest)
		if err != nil {
			return nil, err
		}
		p.Name = name
		rest = next
	}

	if len(rest) > 0 {
		msg, err := DecodeMessage(rest)
		if err != nil {
			return nil, err
		}
		p.Message = msg
	}

	return p, nil
}
