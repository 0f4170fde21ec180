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
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongswan/govici/internal/vicitest"
)

func dialFake(t *testing.T, path string) *Client {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn, ConnectOptions{})
}

func TestClient_CallRoundTrip(t *testing.T) {
	d := vicitest.Start(t, func(conn net.Conn) {
		buf, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		req, err := DecodePacket(buf)
		if err != nil || req.Type != CmdRequest || req.Name != "version" {
			return
		}
		resp := &Packet{Type: CmdResponse, Message: NewMessage().AddKVString("daemon", "charon")}
		body, _ := EncodePacket(resp)
		vicitest.WriteFrame(conn, body)
	})

	c := dialFake(t, d.Path)
	msg, err := c.Call("version", NewMessage())
	require.NoError(t, err)
	val, ok := msg.Get("daemon")
	require.True(t, ok)
	assert.Equal(t, "charon", val)

	d.Wait()
}

func TestClient_UnknownCommand(t *testing.T) {
	d := vicitest.Start(t, func(conn net.Conn) {
		_, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		resp := &Packet{Type: CmdUnknown}
		body, _ := EncodePacket(resp)
		vicitest.WriteFrame(conn, body)

		buf2, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		req2, err := DecodePacket(buf2)
		if err != nil || req2.Type != CmdRequest {
			return
		}
		resp2 := &Packet{Type: CmdResponse, Message: NewMessage()}
		body2, _ := EncodePacket(resp2)
		vicitest.WriteFrame(conn, body2)
	})

	c := dialFake(t, d.Path)
	_, err := c.Call("bogus", NewMessage())
	require.Error(t, err)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, UnknownCommand, ce.Kind)

	// A rejected-but-in-protocol command does not break the connection.
	_, err2 := c.Call("version", NewMessage())
	assert.NoError(t, err2)

	d.Wait()
}

func TestClient_RegisterConfirmAndEvent(t *testing.T) {
	d := vicitest.Start(t, func(conn net.Conn) {
		buf, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		reg, err := DecodePacket(buf)
		if err != nil || reg.Type != EventRegister {
			return
		}
		ack := &Packet{Type: EventConfirm}
		body, _ := EncodePacket(ack)
		vicitest.WriteFrame(conn, body)

		ev := &Packet{Type: EventPacket, Name: reg.Name, Message: NewMessage().AddKVString("up", "1")}
		body2, _ := EncodePacket(ev)
		vicitest.WriteFrame(conn, body2)
	})

	c := dialFake(t, d.Path)
	require.NoError(t, c.Register("ike-updown"))

	got, err := c.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "ike-updown", got.Name)

	d.Wait()
}

func TestClient_UnexpectedPacketBreaksClient(t *testing.T) {
	d := vicitest.Start(t, func(conn net.Conn) {
		_, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		// Reply with an EventConfirm where a CmdResponse was expected.
		resp := &Packet{Type: EventConfirm}
		body, _ := EncodePacket(resp)
		vicitest.WriteFrame(conn, body)
	})

	c := dialFake(t, d.Path)
	_, err := c.Call("version", NewMessage())
	require.Error(t, err)

	_, err2 := c.Call("version", NewMessage())
	require.Error(t, err2)
	assert.True(t, errors.Is(err2, ErrBroken))

	d.Wait()
}

func TestClient_EventInterleavedWithCall(t *testing.T) {
	d := vicitest.Start(t, func(conn net.Conn) {
		buf, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		reg, err := DecodePacket(buf)
		if err != nil || reg.Type != EventRegister {
			return
		}
		ack := &Packet{Type: EventConfirm}
		ab, _ := EncodePacket(ack)
		vicitest.WriteFrame(conn, ab)

		// An event for the now-subscribed name arrives while the client is
		// awaiting a CMD_RESPONSE for an unrelated call.
		ev := &Packet{Type: EventPacket, Name: "ike-updown", Message: NewMessage()}
		body, _ := EncodePacket(ev)
		vicitest.WriteFrame(conn, body)

		reqBuf, err := vicitest.ReadFrame(conn)
		if err != nil {
			return
		}
		req, err := DecodePacket(reqBuf)
		if err != nil || req.Type != CmdRequest {
			return
		}
		resp := &Packet{Type: CmdResponse, Message: NewMessage()}
		rb, _ := EncodePacket(resp)
		vicitest.WriteFrame(conn, rb)
	})

	c := dialFake(t, d.Path)
	require.NoError(t, c.Register("ike-updown"))

	_, err := c.Call("version", NewMessage())
	require.NoError(t, err)

	ev, ok, err := c.TryNextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ike-updown", ev.Name)

	d.Wait()
}
