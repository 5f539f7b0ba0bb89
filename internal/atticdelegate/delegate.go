// Package atticdelegate is a minimal in-memory stand-in for the real
// Atari 800 XL emulator: enough 6502-register and memory bookkeeping to
// answer every AESP control message meaningfully, for tests and for
// cmd/atticd when no real emulator core is linked in.
//
// Grounded on the teacher's src/appserver.go sample application, which
// plays the same role for the AGW protocol: a reference implementation of
// the delegate-side callbacks (there, on_C_connection_received,
// agw_cb_D_connected_data, ...) good enough to demonstrate the protocol
// without a real TNC attached. This is not a game console; it is the
// smallest thing that correctly speaks the wire protocol.
package atticdelegate

import (
	"context"
	"fmt"
	"sync"

	"github.com/huegli/atticd/internal/aespserver"
	"github.com/huegli/atticd/internal/logx"
	"github.com/huegli/atticd/internal/wire"
)

const memorySize = 1 << 16

// Emulator implements aespserver.Delegate over an in-memory machine
// state. It is safe for concurrent use.
type Emulator struct {
	log *logx.Logger
	srv aespserver.Broadcaster

	mu                sync.Mutex
	mem               [memorySize]byte
	regs              wire.RegistersPayload
	running           bool
	drives            map[byte]string
	breakpoints       map[uint16]bool
	lastInjectedBasic []byte
	lastInjectedKeys  []byte
}

// New builds an Emulator with all registers zeroed and no drives mounted.
func New(log *logx.Logger) *Emulator {
	if log == nil {
		log = logx.New("atticdelegate")
	}

	return &Emulator{
		log:         log,
		running:     true,
		drives:      make(map[byte]string),
		breakpoints: make(map[uint16]bool),
	}
}

// AttachServer gives the emulator a handle to unicast responses. Must be
// called before the server starts accepting connections.
func (e *Emulator) AttachServer(srv aespserver.Broadcaster) {
	e.srv = srv
}

func (e *Emulator) OnConnect(id aespserver.ClientID, ch aespserver.Channel) {
	e.log.Info("client connected", "client", id, "channel", ch)
}

func (e *Emulator) OnDisconnect(id aespserver.ClientID, ch aespserver.Channel) {
	e.log.Info("client disconnected", "client", id, "channel", ch)
}

// LastInjectedBasic returns the decoded bytes of the most recent "inject
// basic" program, or nil if none has been injected yet.
func (e *Emulator) LastInjectedBasic() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastInjectedBasic
}

// LastInjectedKeys returns the decoded bytes of the most recent "inject
// keys" keystroke sequence, or nil if none has been injected yet.
func (e *Emulator) LastInjectedKeys() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastInjectedKeys
}

func (e *Emulator) reply(id aespserver.ClientID, ch aespserver.Channel, msg wire.Message) error {
	return e.srv.Send(id, ch, msg)
}

func (e *Emulator) ack() wire.Message {
	return wire.NewMessage(wire.TypeAck, nil)
}

// OnMessage answers every defined control message with the machine's
// current (simulated) state; input messages are accepted and ignored
// since this fixture drives no actual CPU.
func (e *Emulator) OnMessage(_ context.Context, id aespserver.ClientID, ch aespserver.Channel, msg wire.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch msg.Type {
	case wire.TypeStatus:
		drives := make([]wire.DriveStatus, 0, len(e.drives))
		for d, name := range e.drives {
			drives = append(drives, wire.DriveStatus{Drive: d, Name: name})
		}

		payload := wire.EncodeStatus(wire.StatusPayload{IsRunning: e.running, Drives: drives})

		return e.reply(id, ch, wire.NewMessage(wire.TypeStatus, payload))

	case wire.TypeInfo:
		payload := wire.EncodeInfo(wire.InfoPayload{Text: "atticd reference emulator fixture"})

		return e.reply(id, ch, wire.NewMessage(wire.TypeInfo, payload))

	case wire.TypePause:
		e.running = false

		return e.reply(id, ch, e.ack())

	case wire.TypeResume:
		e.running = true

		return e.reply(id, ch, e.ack())

	case wire.TypeReset:
		reset, ok := wire.ParseReset(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed RESET payload")
		}

		if reset.Cold {
			e.mem = [memorySize]byte{}
			e.regs = wire.RegistersPayload{}
		}

		e.running = true

		return e.reply(id, ch, e.ack())

	case wire.TypeRegistersRead:
		payload := wire.EncodeRegisters(e.regs)

		return e.reply(id, ch, wire.NewMessage(wire.TypeRegistersRead, payload))

	case wire.TypeRegistersWrite:
		regs, ok := wire.ParseRegisters(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed REGISTERS_WRITE payload")
		}

		e.regs = regs

		return e.reply(id, ch, e.ack())

	case wire.TypeMemoryRead:
		req, ok := wire.ParseMemoryReadRequest(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed MEMORY_READ payload")
		}

		bytes := make([]byte, req.Count)
		for i := range bytes {
			bytes[i] = e.mem[(int(req.Addr)+i)%memorySize]
		}

		payload := wire.EncodeMemoryReadResponse(wire.MemoryReadResponsePayload{Addr: req.Addr, Bytes: bytes})

		return e.reply(id, ch, wire.NewMessage(wire.TypeMemoryRead, payload))

	case wire.TypeMemoryWrite:
		w, ok := wire.ParseMemoryWrite(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed MEMORY_WRITE payload")
		}

		for i, b := range w.Bytes {
			e.mem[(int(w.Addr)+i)%memorySize] = b
		}

		return e.reply(id, ch, e.ack())

	case wire.TypeBreakpointSet:
		addr, ok := wire.ParseBreakpointAddr(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed BREAKPOINT_SET payload")
		}

		e.breakpoints[addr.Addr] = true

		return e.reply(id, ch, e.ack())

	case wire.TypeBreakpointClear:
		addr, ok := wire.ParseBreakpointAddr(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed BREAKPOINT_CLEAR payload")
		}

		delete(e.breakpoints, addr.Addr)

		return e.reply(id, ch, e.ack())

	case wire.TypeBreakpointListOrHit:
		addrs := make([]uint16, 0, len(e.breakpoints))
		for a := range e.breakpoints {
			addrs = append(addrs, a)
		}

		payload := wire.EncodeBreakpointList(wire.BreakpointListPayload{Addrs: addrs})

		return e.reply(id, ch, wire.NewMessage(wire.TypeBreakpointListOrHit, payload))

	case wire.TypeBootFile:
		req, ok := wire.ParseBootFileRequest(msg.Payload)
		if !ok {
			return fmt.Errorf("atticdelegate: malformed BOOT_FILE payload")
		}

		e.drives[1] = req.Path
		payload := wire.EncodeBootFileResponse(wire.BootFileResponsePayload{Status: 0, Message: "booted " + req.Path})

		return e.reply(id, ch, wire.NewMessage(wire.TypeBootFile, payload))

	case wire.TypeKeyDown, wire.TypeKeyUp, wire.TypeJoystick, wire.TypeConsoleKeys, wire.TypePaddle:
		return nil

	default:
		return nil
	}
}
