package aespclient

import (
	"context"

	"github.com/huegli/atticd/internal/wire"
)

// Ping round-trips a PING/PONG, useful as a liveness check independent of
// any emulator state.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, wire.NewMessage(wire.TypePing, nil), wire.TypePong)

	return err
}

// Pause asks the emulator to pause execution. The server acknowledges with
// ACK; there is no dedicated pause-response payload (spec §4 "Control
// messages").
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.call(ctx, wire.NewMessage(wire.TypePause, nil), wire.TypeAck)

	return err
}

// Resume asks the emulator to resume execution after a Pause.
func (c *Client) Resume(ctx context.Context) error {
	_, err := c.call(ctx, wire.NewMessage(wire.TypeResume, nil), wire.TypeAck)

	return err
}

// Reset asks for a cold or warm reset.
func (c *Client) Reset(ctx context.Context, cold bool) error {
	payload := wire.EncodeReset(wire.ResetPayload{Cold: cold})
	_, err := c.call(ctx, wire.NewMessage(wire.TypeReset, payload), wire.TypeAck)

	return err
}

// Status requests the emulator's run state and attached disk drives.
func (c *Client) Status(ctx context.Context) (wire.StatusPayload, error) {
	msg, err := c.call(ctx, wire.NewMessage(wire.TypeStatus, nil), wire.TypeStatus)
	if err != nil {
		return wire.StatusPayload{}, err
	}

	status, ok := wire.ParseStatus(msg.Payload)
	if !ok {
		return wire.StatusPayload{}, errMalformedResponse(wire.TypeStatus)
	}

	return status, nil
}

// Info requests a free-text description of the emulator build.
func (c *Client) Info(ctx context.Context) (string, error) {
	msg, err := c.call(ctx, wire.NewMessage(wire.TypeInfo, nil), wire.TypeInfo)
	if err != nil {
		return "", err
	}

	info, ok := wire.ParseInfo(msg.Payload)
	if !ok {
		return "", errMalformedResponse(wire.TypeInfo)
	}

	return info.Text, nil
}

// Registers requests the current 6502 register file.
func (c *Client) Registers(ctx context.Context) (wire.RegistersPayload, error) {
	msg, err := c.call(ctx, wire.NewMessage(wire.TypeRegistersRead, nil), wire.TypeRegistersRead)
	if err != nil {
		return wire.RegistersPayload{}, err
	}

	regs, ok := wire.ParseRegisters(msg.Payload)
	if !ok {
		return wire.RegistersPayload{}, errMalformedResponse(wire.TypeRegistersRead)
	}

	return regs, nil
}

// SetRegisters writes the 6502 register file.
func (c *Client) SetRegisters(ctx context.Context, regs wire.RegistersPayload) error {
	payload := wire.EncodeRegisters(regs)
	_, err := c.call(ctx, wire.NewMessage(wire.TypeRegistersWrite, payload), wire.TypeAck)

	return err
}

// ReadMemory requests count bytes starting at addr.
func (c *Client) ReadMemory(ctx context.Context, addr, count uint16) ([]byte, error) {
	req := wire.EncodeMemoryReadRequest(wire.MemoryReadRequestPayload{Addr: addr, Count: count})

	msg, err := c.call(ctx, wire.NewMessage(wire.TypeMemoryRead, req), wire.TypeMemoryRead)
	if err != nil {
		return nil, err
	}

	resp, ok := wire.ParseMemoryReadResponse(msg.Payload)
	if !ok {
		return nil, errMalformedResponse(wire.TypeMemoryRead)
	}

	return resp.Bytes, nil
}

// WriteMemory writes bytes starting at addr.
func (c *Client) WriteMemory(ctx context.Context, addr uint16, bytes []byte) error {
	payload := wire.EncodeMemoryWrite(wire.MemoryWritePayload{Addr: addr, Bytes: bytes})
	_, err := c.call(ctx, wire.NewMessage(wire.TypeMemoryWrite, payload), wire.TypeAck)

	return err
}

// BootFile asks the emulator to mount and boot path.
func (c *Client) BootFile(ctx context.Context, path string) (wire.BootFileResponsePayload, error) {
	req := wire.EncodeBootFileRequest(wire.BootFileRequestPayload{Path: path})

	msg, err := c.call(ctx, wire.NewMessage(wire.TypeBootFile, req), wire.TypeBootFile)
	if err != nil {
		return wire.BootFileResponsePayload{}, err
	}

	resp, ok := wire.ParseBootFileResponse(msg.Payload)
	if !ok {
		return wire.BootFileResponsePayload{}, errMalformedResponse(wire.TypeBootFile)
	}

	return resp, nil
}

// SetBreakpoint arms a breakpoint at addr.
func (c *Client) SetBreakpoint(ctx context.Context, addr uint16) error {
	payload := wire.EncodeBreakpointAddr(wire.BreakpointAddrPayload{Addr: addr})
	_, err := c.call(ctx, wire.NewMessage(wire.TypeBreakpointSet, payload), wire.TypeAck)

	return err
}

// ClearBreakpoint disarms a breakpoint at addr.
func (c *Client) ClearBreakpoint(ctx context.Context, addr uint16) error {
	payload := wire.EncodeBreakpointAddr(wire.BreakpointAddrPayload{Addr: addr})
	_, err := c.call(ctx, wire.NewMessage(wire.TypeBreakpointClear, payload), wire.TypeAck)

	return err
}

// ListBreakpoints requests every currently armed breakpoint. The request
// and response share a type byte with the unsolicited HIT notification
// (see dispatch in client.go): while this call is waiting, the next
// message of that type is taken as its reply, so a HIT that arrives in
// that window completes this call instead of reaching the event handler.
func (c *Client) ListBreakpoints(ctx context.Context) ([]uint16, error) {
	msg, err := c.call(ctx, wire.NewMessage(wire.TypeBreakpointListOrHit, nil), wire.TypeBreakpointListOrHit)
	if err != nil {
		return nil, err
	}

	list, ok := wire.ParseBreakpointList(msg.Payload)
	if !ok {
		return nil, errMalformedResponse(wire.TypeBreakpointListOrHit)
	}

	return list.Addrs, nil
}

// KeyDown sends a key-press event; there is no server acknowledgement for
// input messages (spec §4 "Input messages are fire-and-forget").
func (c *Client) KeyDown(ctx context.Context, p wire.KeyDownPayload) error {
	return c.sendInput(ctx, wire.NewMessage(wire.TypeKeyDown, wire.EncodeKeyDown(p)))
}

// KeyUp sends a key-release event.
func (c *Client) KeyUp(ctx context.Context, p wire.KeyDownPayload) error {
	return c.sendInput(ctx, wire.NewMessage(wire.TypeKeyUp, wire.EncodeKeyDown(p)))
}

// Joystick sends a joystick state update.
func (c *Client) Joystick(ctx context.Context, p wire.JoystickPayload) error {
	return c.sendInput(ctx, wire.NewMessage(wire.TypeJoystick, wire.EncodeJoystick(p)))
}

// ConsoleKeys sends a console key (START/SELECT/OPTION) state update.
func (c *Client) ConsoleKeys(ctx context.Context, p wire.ConsoleKeysPayload) error {
	return c.sendInput(ctx, wire.NewMessage(wire.TypeConsoleKeys, wire.EncodeConsoleKeys(p)))
}

// Paddle sends a paddle-controller position update.
func (c *Client) Paddle(ctx context.Context, p wire.PaddlePayload) error {
	return c.sendInput(ctx, wire.NewMessage(wire.TypePaddle, wire.EncodePaddle(p)))
}

// SendMessage writes msg on the control channel without registering a
// pending waiter: a primitive, fire-and-forget send for callers that need
// to emit a message no typed helper covers (spec §4.4 "Public operations",
// "send_message(msg)").
func (c *Client) SendMessage(ctx context.Context, msg wire.Message) error {
	return c.sendInput(ctx, msg)
}

// sendInput writes a fire-and-forget frame without registering a pending
// waiter.
func (c *Client) sendInput(ctx context.Context, msg wire.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errNotConnected
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	_, err := conn.Write(wire.Encode(msg))

	return err
}
