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
	"container/list"
	"errors"
	"net"
	"sync"
	"time"
)

// clientState tracks where a Client sits in the synchronous request/reply
// protocol charon expects: at most one outstanding Call at a time, and no
// further use of the connection once it has seen an I/O or protocol error
// it cannot recover from.
type clientState int

const (
	stateIdle clientState = iota
	stateAwaitingReply
	stateBroken
)

// ConnectOptions configures a Client beyond the bare socket path.
type ConnectOptions struct {
	// Logger, if set, receives frame-level trace output.
	Logger Logger

	// FrameCap overrides the transport's maximum frame size. Zero means
	// DefaultFrameCap.
	FrameCap uint32

	// VerifyPeerUID, if non-nil, causes Connect to check the connecting
	// charon process's effective UID via SO_PEERCRED before returning,
	// failing with a ClientError{Kind: PeerCredMismatch} on mismatch.
	VerifyPeerUID *int
}

// Event is one asynchronous EVENT packet delivered outside of a Call.
type Event struct {
	Name    string
	Message *Message
}

// Client is a single, synchronous connection to charon's VICI socket. A
// Client is not safe for concurrent use by multiple goroutines issuing
// Call/Register/Unregister/ReadEvent at once: the protocol itself is
// half-duplex per connection, so callers needing concurrency should open
// multiple Clients.
type Client struct {
	conn      net.Conn
	transport *Transport
	logger    Logger

	mu      sync.Mutex
	state   clientState
	events  *list.List // queue of *Event, delivered in arrival order
	subs    map[string]struct{}
	brokeBy error
}

// Connect opens a new Client against the UNIX domain socket at path.
func Connect(path string, opts ConnectOptions) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, &TransportError{Kind: Io, Err: err}
	}

	if opts.VerifyPeerUID != nil {
		if uc, ok := conn.(*net.UnixConn); ok {
			if verr := verifyPeerUID(uc, *opts.VerifyPeerUID); verr != nil {
				conn.Close()
				return nil, verr
			}
		}
	}

	return NewClient(conn, opts), nil
}

// NewClient wraps an already-established connection (typically a
// *net.UnixConn from Connect, or a net.Conn dialed directly in tests) as a
// Client.
// conn's peer credentials, if any, are assumed already verified by the
// caller.
func NewClient(conn net.Conn, opts ConnectOptions) *Client {
	t := NewTransport(conn)
	if opts.FrameCap != 0 {
		t.FrameCap = opts.FrameCap
	}
	return &Client{
		conn:      conn,
		transport: t,
		logger:    opts.Logger,
		events:    list.New(),
		subs:      make(map[string]struct{}),
	}
}

// Close closes the underlying connection. Close is safe to call more than
// once.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SetDeadline sets the read and write deadline on the underlying
// connection, per net.Conn.SetDeadline. A deadline that elapses mid-Call
// surfaces as a TransportError{Kind: Io} and does NOT put the Client into
// the Broken state: the caller's next Call may simply retry, since no
// partial frame was consumed from the wire by the time the timeout fired
// at the call boundary. Once bytes of a frame have been partially read or
// written, though, the connection's framing is no longer trustworthy and
// the Client is broken regardless of the underlying error's kind.
func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline on the underlying connection.
func (c *Client) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

// enterCall transitions Idle -> AwaitingReply, failing if the Client is
// Broken or already has a Call outstanding.
func (c *Client) enterCall() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateBroken:
		return c.brokeBy
	case stateAwaitingReply:
		return &ClientError{Kind: UnexpectedPacket, Got: "call in progress", Expected: "idle"}
	}
	c.state = stateAwaitingReply
	return nil
}

func (c *Client) leaveCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateAwaitingReply {
		c.state = stateIdle
	}
}

// breakWith transitions the Client to Broken, recording err as the reason
// returned by every subsequent operation.
func (c *Client) breakWith(err error) error {
	c.mu.Lock()
	c.state = stateBroken
	c.brokeBy = &ClientError{Kind: Broken, Err: err}
	broke := c.brokeBy
	c.mu.Unlock()
	return broke
}

// wireErr handles an error surfaced directly from Transport.WriteFrame or
// Transport.ReadFrame. A deadline expiring is recoverable: net's contract
// for SetDeadline guarantees a timed-out Read or Write has not consumed or
// emitted a partial frame on this connection, so the stream is still
// frame-aligned and the Client can be reused for a subsequent Call. Any
// other I/O error, and any decode error, means the byte stream can no
// longer be trusted to be frame-aligned, so the Client is broken.
func (c *Client) wireErr(err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		var ne net.Error
		if errors.As(te.Err, &ne) && ne.Timeout() {
			return te
		}
	}
	return c.breakWith(err)
}

// sendPacket encodes and writes p as a single frame.
func (c *Client) sendPacket(p *Packet) error {
	body, err := EncodePacket(p)
	if err != nil {
		return c.breakWith(err)
	}
	c.debugf("vici: -> %s %q", p.Type, p.Name)
	if err := c.transport.WriteFrame(body); err != nil {
		return c.wireErr(err)
	}
	return nil
}

// recvPacket reads and decodes the next frame as a Packet. EVENT packets
// for a name the Client is subscribed to are queued rather than returned,
// and recvPacket loops past them until a non-EVENT packet arrives or the
// connection fails. An EVENT for a name the Client never registered for is
// a protocol violation (spec §4.3's buffering rule: unsubscribed events
// are rejected, never silently dropped), and breaks the Client.
func (c *Client) recvPacket() (*Packet, error) {
	for {
		buf, err := c.transport.ReadFrame()
		if err != nil {
			return nil, c.wireErr(err)
		}
		p, err := DecodePacket(buf)
		if err != nil {
			return nil, c.breakWith(err)
		}
		c.debugf("vici: <- %s %q", p.Type, p.Name)

		if p.Type == EventPacket {
			c.mu.Lock()
			_, subscribed := c.subs[p.Name]
			if subscribed {
				c.events.PushBack(&Event{Name: p.Name, Message: p.Message})
			}
			c.mu.Unlock()
			if !subscribed {
				return nil, c.breakWith(&ClientError{Kind: UnexpectedEvent, Name: p.Name})
			}
			continue
		}
		return p, nil
	}
}

// Call issues a named command with the given request message and returns
// charon's response message.
func (c *Client) Call(command string, request *Message) (*Message, error) {
	if err := c.enterCall(); err != nil {
		return nil, err
	}
	defer c.leaveCall()

	if err := c.sendPacket(&Packet{Type: CmdRequest, Name: command, Message: request}); err != nil {
		return nil, err
	}

	p, err := c.recvPacket()
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case CmdResponse:
		return p.Message, nil
	case CmdUnknown:
		return nil, &ClientError{Kind: UnknownCommand, Name: command}
	default:
		return nil, c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: p.Type.String(), Expected: "CMD_RESPONSE"})
	}
}

// StreamHandler is invoked once per event-section message received while a
// CallStreaming request is outstanding.
type StreamHandler func(section string, msg *Message)

// CallStreaming issues command like Call, but additionally treats every
// EVENT packet bearing the name eventName as a streamed section of the
// response, invoking handler for each, until the final CMD_RESPONSE
// arrives. This matches the streaming list-event convention charon's
// stroke-derived commands (e.g. list-sas, list-conns) use: many EVENT
// packets, one implicit trailing reply.
func (c *Client) CallStreaming(command string, request *Message, eventName string, handler StreamHandler) (*Message, error) {
	if err := c.enterCall(); err != nil {
		return nil, err
	}
	defer c.leaveCall()

	if err := c.sendPacket(&Packet{Type: EventRegister, Name: eventName}); err != nil {
		return nil, err
	}
	if ack, err := c.recvPacket(); err != nil {
		return nil, err
	} else if ack.Type != EventConfirm {
		return nil, c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: ack.Type.String(), Expected: "EVENT_CONFIRM"})
	}

	unregister := func() error {
		if err := c.sendPacket(&Packet{Type: EventUnregister, Name: eventName}); err != nil {
			return err
		}
		ack, err := c.recvPacket()
		if err != nil {
			return err
		}
		if ack.Type != EventConfirm {
			return c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: ack.Type.String(), Expected: "EVENT_CONFIRM"})
		}
		return nil
	}

	if err := c.sendPacket(&Packet{Type: CmdRequest, Name: command, Message: request}); err != nil {
		return nil, err
	}

	for {
		buf, err := c.transport.ReadFrame()
		if err != nil {
			return nil, c.wireErr(err)
		}
		p, err := DecodePacket(buf)
		if err != nil {
			return nil, c.breakWith(err)
		}
		c.debugf("vici: <- %s %q", p.Type, p.Name)

		switch {
		case p.Type == EventPacket && p.Name == eventName:
			if handler != nil {
				handler(p.Name, p.Message)
			}
		case p.Type == EventPacket:
			c.mu.Lock()
			_, subscribed := c.subs[p.Name]
			if subscribed {
				c.events.PushBack(&Event{Name: p.Name, Message: p.Message})
			}
			c.mu.Unlock()
			if !subscribed {
				return nil, c.breakWith(&ClientError{Kind: UnexpectedEvent, Name: p.Name})
			}
		case p.Type == CmdResponse:
			if err := unregister(); err != nil {
				return nil, err
			}
			return p.Message, nil
		case p.Type == CmdUnknown:
			_ = unregister()
			return nil, &ClientError{Kind: UnknownCommand, Name: command}
		default:
			return nil, c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: p.Type.String(), Expected: "CMD_RESPONSE"})
		}
	}
}

// Register subscribes the connection to events named name. Once
// registered, matching EVENT packets are queued for ReadEvent/TryNextEvent
// until Unregister is called.
func (c *Client) Register(name string) error {
	if err := c.enterCall(); err != nil {
		return err
	}
	defer c.leaveCall()

	if err := c.sendPacket(&Packet{Type: EventRegister, Name: name}); err != nil {
		return err
	}
	p, err := c.recvPacket()
	if err != nil {
		return err
	}
	switch p.Type {
	case EventConfirm:
		c.mu.Lock()
		c.subs[name] = struct{}{}
		c.mu.Unlock()
		return nil
	case EventUnknownType:
		return &ClientError{Kind: UnknownEvent, Name: name}
	default:
		return c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: p.Type.String(), Expected: "EVENT_CONFIRM"})
	}
}

// Unregister cancels a prior Register for name.
func (c *Client) Unregister(name string) error {
	if err := c.enterCall(); err != nil {
		return err
	}
	defer c.leaveCall()

	if err := c.sendPacket(&Packet{Type: EventUnregister, Name: name}); err != nil {
		return err
	}
	p, err := c.recvPacket()
	if err != nil {
		return err
	}
	switch p.Type {
	case EventConfirm:
		c.mu.Lock()
		delete(c.subs, name)
		c.mu.Unlock()
		return nil
	case EventUnknownType:
		return &ClientError{Kind: UnknownEvent, Name: name}
	default:
		return c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: p.Type.String(), Expected: "EVENT_CONFIRM"})
	}
}

// ReadEvent blocks until an event arrives for a subscribed name, reading
// and queuing frames off the wire as needed, and returns it.
func (c *Client) ReadEvent() (*Event, error) {
	for {
		if ev, ok := c.popEvent(); ok {
			return ev, nil
		}
		if err := c.fillOneEvent(); err != nil {
			return nil, err
		}
	}
}

// TryNextEvent returns a previously queued event without blocking on the
// wire, or (nil, false, nil) if none is queued.
func (c *Client) TryNextEvent() (*Event, bool, error) {
	ev, ok := c.popEvent()
	return ev, ok, nil
}

func (c *Client) popEvent() (*Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	front := c.events.Front()
	if front == nil {
		return nil, false
	}
	c.events.Remove(front)
	return front.Value.(*Event), true
}

// fillOneEvent blocks for exactly one frame off the wire outside of a Call,
// queuing it as an event. It is an error to call this while a Call is
// outstanding on this Client; callers drive event delivery and Call from
// the same goroutine, as the protocol is half-duplex per connection.
func (c *Client) fillOneEvent() error {
	c.mu.Lock()
	if c.state == stateBroken {
		err := c.brokeBy
		c.mu.Unlock()
		return err
	}
	if c.state == stateAwaitingReply {
		c.mu.Unlock()
		return &ClientError{Kind: UnexpectedPacket, Got: "call in progress", Expected: "idle"}
	}
	c.mu.Unlock()

	buf, err := c.transport.ReadFrame()
	if err != nil {
		return c.wireErr(err)
	}
	p, err := DecodePacket(buf)
	if err != nil {
		return c.breakWith(err)
	}
	if p.Type != EventPacket {
		return c.breakWith(&ClientError{Kind: UnexpectedPacket, Got: p.Type.String(), Expected: "EVENT"})
	}
	c.mu.Lock()
	_, subscribed := c.subs[p.Name]
	if subscribed {
		c.events.PushBack(&Event{Name: p.Name, Message: p.Message})
	}
	c.mu.Unlock()
	if !subscribed {
		return c.breakWith(&ClientError{Kind: UnexpectedEvent, Name: p.Name})
	}
	return nil
}
