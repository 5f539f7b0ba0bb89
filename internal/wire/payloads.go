package wire

import "encoding/binary"

// This file provides the typed field parsers for every message type that
// carries structured data (spec §4.1). Each parser is total: given any
// byte slice it either returns the decoded fields with ok=true, or a zero
// value with ok=false when the payload is too short to contain its fields.
// None of them allocate beyond what's needed to hold the result, and none
// of them panic on short input.

// KeyDownPayload carries a raw key character/code plus shift/control
// modifier flags. Shared by KEY_DOWN and KEY_UP.
type KeyDownPayload struct {
	KeyChar byte
	KeyCode byte
	Shift   bool
	Control bool
}

func ParseKeyDown(payload []byte) (KeyDownPayload, bool) {
	if len(payload) < 3 {
		return KeyDownPayload{}, false
	}

	flags := payload[2]

	return KeyDownPayload{
		KeyChar: payload[0],
		KeyCode: payload[1],
		Shift:   flags&0x01 != 0,
		Control: flags&0x02 != 0,
	}, true
}

func EncodeKeyDown(p KeyDownPayload) []byte {
	var flags byte
	if p.Shift {
		flags |= 0x01
	}

	if p.Control {
		flags |= 0x02
	}

	return []byte{p.KeyChar, p.KeyCode, flags}
}

// JoystickPayload carries one port's directional and trigger state.
type JoystickPayload struct {
	Port    byte
	Up      bool
	Down    bool
	Left    bool
	Right   bool
	Trigger bool
}

func ParseJoystick(payload []byte) (JoystickPayload, bool) {
	if len(payload) < 2 {
		return JoystickPayload{}, false
	}

	bits := payload[1]

	return JoystickPayload{
		Port:    payload[0],
		Up:      bits&0x01 != 0,
		Down:    bits&0x02 != 0,
		Left:    bits&0x04 != 0,
		Right:   bits&0x08 != 0,
		Trigger: bits&0x10 != 0,
	}, true
}

func EncodeJoystick(p JoystickPayload) []byte {
	var bits byte
	if p.Up {
		bits |= 0x01
	}

	if p.Down {
		bits |= 0x02
	}

	if p.Left {
		bits |= 0x04
	}

	if p.Right {
		bits |= 0x08
	}

	if p.Trigger {
		bits |= 0x10
	}

	return []byte{p.Port, bits}
}

// ConsoleKeysPayload carries the START/SELECT/OPTION console key state.
type ConsoleKeysPayload struct {
	Start  bool
	Select bool
	Option bool
}

func ParseConsoleKeys(payload []byte) (ConsoleKeysPayload, bool) {
	if len(payload) < 1 {
		return ConsoleKeysPayload{}, false
	}

	flags := payload[0]

	return ConsoleKeysPayload{
		Start:  flags&0x01 != 0,
		Select: flags&0x02 != 0,
		Option: flags&0x04 != 0,
	}, true
}

func EncodeConsoleKeys(p ConsoleKeysPayload) []byte {
	var flags byte
	if p.Start {
		flags |= 0x01
	}

	if p.Select {
		flags |= 0x02
	}

	if p.Option {
		flags |= 0x04
	}

	return []byte{flags}
}

// PaddlePayload carries one paddle's position, 0..228.
type PaddlePayload struct {
	Number   byte
	Position byte
}

func ParsePaddle(payload []byte) (PaddlePayload, bool) {
	if len(payload) < 2 {
		return PaddlePayload{}, false
	}

	return PaddlePayload{Number: payload[0], Position: payload[1]}, true
}

func EncodePaddle(p PaddlePayload) []byte {
	return []byte{p.Number, p.Position}
}

// ResetPayload distinguishes a cold boot from a warm reset.
type ResetPayload struct {
	Cold bool
}

func ParseReset(payload []byte) (ResetPayload, bool) {
	if len(payload) < 1 {
		return ResetPayload{}, false
	}

	return ResetPayload{Cold: payload[0] == 0x01}, true
}

func EncodeReset(p ResetPayload) []byte {
	if p.Cold {
		return []byte{0x01}
	}

	return []byte{0x00}
}

// AckPayload echoes the type byte being acknowledged.
type AckPayload struct {
	ReferencedType MessageType
}

func ParseAck(payload []byte) (AckPayload, bool) {
	if len(payload) < 1 {
		return AckPayload{}, false
	}

	return AckPayload{ReferencedType: MessageType(payload[0])}, true
}

func EncodeAck(p AckPayload) []byte {
	return []byte{byte(p.ReferencedType)}
}

// ErrorPayload carries a numeric error code plus a free-text UTF-8 message.
type ErrorPayload struct {
	Code    byte
	Message string
}

func ParseError(payload []byte) (ErrorPayload, bool) {
	if len(payload) < 1 {
		return ErrorPayload{}, false
	}

	return ErrorPayload{Code: payload[0], Message: string(payload[1:])}, true
}

func EncodeError(p ErrorPayload) []byte {
	buf := make([]byte, 1+len(p.Message))
	buf[0] = p.Code
	copy(buf[1:], p.Message)

	return buf
}

// DriveStatus names one mounted (or empty) disk drive in a STATUS response.
type DriveStatus struct {
	Drive byte
	Name  string
}

// StatusPayload is the STATUS response body: running flag plus a variable
// number of drive entries.
type StatusPayload struct {
	IsRunning bool
	Drives    []DriveStatus
}

func ParseStatus(payload []byte) (StatusPayload, bool) {
	if len(payload) < 1 {
		return StatusPayload{}, false
	}

	result := StatusPayload{IsRunning: payload[0] != 0}
	rest := payload[1:]

	for len(rest) > 0 {
		if len(rest) < 2 {
			return StatusPayload{}, false
		}

		drive := rest[0]
		nameLen := int(rest[1])
		rest = rest[2:]

		if len(rest) < nameLen {
			return StatusPayload{}, false
		}

		result.Drives = append(result.Drives, DriveStatus{Drive: drive, Name: string(rest[:nameLen])})
		rest = rest[nameLen:]
	}

	return result, true
}

func EncodeStatus(p StatusPayload) []byte {
	buf := make([]byte, 0, 1+len(p.Drives)*8)

	if p.IsRunning {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}

	for _, d := range p.Drives {
		buf = append(buf, d.Drive, byte(len(d.Name)))
		buf = append(buf, d.Name...)
	}

	return buf
}

// RegistersPayload carries the full 6502 register file. Used for both the
// REGISTERS_READ response and the REGISTERS_WRITE request (a write supplies
// the same shape, and every register in it is written).
type RegistersPayload struct {
	A, X, Y, S, P byte
	PC            uint16
	Reserved      byte
}

func ParseRegisters(payload []byte) (RegistersPayload, bool) {
	if len(payload) < 8 {
		return RegistersPayload{}, false
	}

	return RegistersPayload{
		A:        payload[0],
		X:        payload[1],
		Y:        payload[2],
		S:        payload[3],
		P:        payload[4],
		PC:       binary.BigEndian.Uint16(payload[5:7]),
		Reserved: payload[7],
	}, true
}

func EncodeRegisters(p RegistersPayload) []byte {
	buf := make([]byte, 8)
	buf[0], buf[1], buf[2], buf[3], buf[4] = p.A, p.X, p.Y, p.S, p.P
	binary.BigEndian.PutUint16(buf[5:7], p.PC)
	buf[7] = p.Reserved

	return buf
}

// BreakpointAddrPayload is the shape shared by BREAKPOINT_SET,
// BREAKPOINT_CLEAR, and the server->client HIT notification.
type BreakpointAddrPayload struct {
	Addr uint16
}

func ParseBreakpointAddr(payload []byte) (BreakpointAddrPayload, bool) {
	if len(payload) < 2 {
		return BreakpointAddrPayload{}, false
	}

	return BreakpointAddrPayload{Addr: binary.BigEndian.Uint16(payload[0:2])}, true
}

func EncodeBreakpointAddr(p BreakpointAddrPayload) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, p.Addr)

	return buf
}

// BreakpointListPayload is the server->client LIST response: every
// currently-set breakpoint address.
type BreakpointListPayload struct {
	Addrs []uint16
}

func ParseBreakpointList(payload []byte) (BreakpointListPayload, bool) {
	if len(payload)%2 != 0 {
		return BreakpointListPayload{}, false
	}

	result := BreakpointListPayload{Addrs: make([]uint16, 0, len(payload)/2)}

	for i := 0; i < len(payload); i += 2 {
		result.Addrs = append(result.Addrs, binary.BigEndian.Uint16(payload[i:i+2]))
	}

	return result, true
}

func EncodeBreakpointList(p BreakpointListPayload) []byte {
	buf := make([]byte, len(p.Addrs)*2)
	for i, addr := range p.Addrs {
		binary.BigEndian.PutUint16(buf[i*2:i*2+2], addr)
	}

	return buf
}

// FrameConfigPayload announces the dimensions and rate of the video stream.
type FrameConfigPayload struct {
	Width  uint16
	Height uint16
	BPP    byte
	FPS    byte
}

func ParseFrameConfig(payload []byte) (FrameConfigPayload, bool) {
	if len(payload) < 6 {
		return FrameConfigPayload{}, false
	}

	return FrameConfigPayload{
		Width:  binary.BigEndian.Uint16(payload[0:2]),
		Height: binary.BigEndian.Uint16(payload[2:4]),
		BPP:    payload[4],
		FPS:    payload[5],
	}, true
}

func EncodeFrameConfig(p FrameConfigPayload) []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint16(buf[0:2], p.Width)
	binary.BigEndian.PutUint16(buf[2:4], p.Height)
	buf[4] = p.BPP
	buf[5] = p.FPS

	return buf
}

// AudioConfigPayload announces the PCM format of the audio stream.
type AudioConfigPayload struct {
	SampleRate    uint32
	BitsPerSample byte
	Channels      byte
}

func ParseAudioConfig(payload []byte) (AudioConfigPayload, bool) {
	if len(payload) < 6 {
		return AudioConfigPayload{}, false
	}

	return AudioConfigPayload{
		SampleRate:    binary.BigEndian.Uint32(payload[0:4]),
		BitsPerSample: payload[4],
		Channels:      payload[5],
	}, true
}

func EncodeAudioConfig(p AudioConfigPayload) []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint32(buf[0:4], p.SampleRate)
	buf[4] = p.BitsPerSample
	buf[5] = p.Channels

	return buf
}

// AudioSyncPayload carries the video frame number an audio chunk aligns to.
type AudioSyncPayload struct {
	FrameNumber uint64
}

func ParseAudioSync(payload []byte) (AudioSyncPayload, bool) {
	if len(payload) < 8 {
		return AudioSyncPayload{}, false
	}

	return AudioSyncPayload{FrameNumber: binary.BigEndian.Uint64(payload[0:8])}, true
}

func EncodeAudioSync(p AudioSyncPayload) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, p.FrameNumber)

	return buf
}

// BootFileRequestPayload names a disk image path to boot from.
type BootFileRequestPayload struct {
	Path string
}

func ParseBootFileRequest(payload []byte) (BootFileRequestPayload, bool) {
	return BootFileRequestPayload{Path: string(payload)}, true
}

func EncodeBootFileRequest(p BootFileRequestPayload) []byte {
	return []byte(p.Path)
}

// BootFileResponsePayload reports whether the boot succeeded.
type BootFileResponsePayload struct {
	Status  byte
	Message string
}

func ParseBootFileResponse(payload []byte) (BootFileResponsePayload, bool) {
	if len(payload) < 1 {
		return BootFileResponsePayload{}, false
	}

	return BootFileResponsePayload{Status: payload[0], Message: string(payload[1:])}, true
}

func EncodeBootFileResponse(p BootFileResponsePayload) []byte {
	buf := make([]byte, 1+len(p.Message))
	buf[0] = p.Status
	copy(buf[1:], p.Message)

	return buf
}

// InfoPayload is the INFO response body: an opaque UTF-8 (typically JSON)
// blob describing the emulator. The protocol core never parses it.
type InfoPayload struct {
	Text string
}

func ParseInfo(payload []byte) (InfoPayload, bool) {
	return InfoPayload{Text: string(payload)}, true
}

func EncodeInfo(p InfoPayload) []byte {
	return []byte(p.Text)
}

// MemoryReadRequestPayload names the address and byte count to read.
type MemoryReadRequestPayload struct {
	Addr  uint16
	Count uint16
}

func ParseMemoryReadRequest(payload []byte) (MemoryReadRequestPayload, bool) {
	if len(payload) < 4 {
		return MemoryReadRequestPayload{}, false
	}

	return MemoryReadRequestPayload{
		Addr:  binary.BigEndian.Uint16(payload[0:2]),
		Count: binary.BigEndian.Uint16(payload[2:4]),
	}, true
}

func EncodeMemoryReadRequest(p MemoryReadRequestPayload) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], p.Addr)
	binary.BigEndian.PutUint16(buf[2:4], p.Count)

	return buf
}

// MemoryReadResponsePayload carries the bytes read back.
type MemoryReadResponsePayload struct {
	Addr  uint16
	Bytes []byte
}

func ParseMemoryReadResponse(payload []byte) (MemoryReadResponsePayload, bool) {
	if len(payload) < 2 {
		return MemoryReadResponsePayload{}, false
	}

	return MemoryReadResponsePayload{
		Addr:  binary.BigEndian.Uint16(payload[0:2]),
		Bytes: payload[2:],
	}, true
}

func EncodeMemoryReadResponse(p MemoryReadResponsePayload) []byte {
	buf := make([]byte, 2+len(p.Bytes))
	binary.BigEndian.PutUint16(buf[0:2], p.Addr)
	copy(buf[2:], p.Bytes)

	return buf
}

// MemoryWritePayload carries an address plus the bytes to store there.
type MemoryWritePayload struct {
	Addr  uint16
	Bytes []byte
}

func ParseMemoryWrite(payload []byte) (MemoryWritePayload, bool) {
	if len(payload) < 2 {
		return MemoryWritePayload{}, false
	}

	return MemoryWritePayload{
		Addr:  binary.BigEndian.Uint16(payload[0:2]),
		Bytes: payload[2:],
	}, true
}

func EncodeMemoryWrite(p MemoryWritePayload) []byte {
	buf := make([]byte, 2+len(p.Bytes))
	binary.BigEndian.PutUint16(buf[0:2], p.Addr)
	copy(buf[2:], p.Bytes)

	return buf
}
