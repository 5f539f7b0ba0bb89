package atticdelegate

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/huegli/atticd/internal/cliproto"
	"github.com/huegli/atticd/internal/wire"
)

// HandleCLI answers the human-friendly CLI protocol against the same
// machine state OnMessage answers AESP wire requests with (spec §6
// "state save|load on the CLI targets the emulator's own snapshot
// mechanism"). It never touches the network; cmd/atticd's CLI listener
// owns framing and cliproto.Parse/FormatResponse.
func (e *Emulator) HandleCLI(cmd cliproto.Command) cliproto.Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch cmd.Kind {
	case cliproto.KindPing:
		return cliproto.NewOKLine("pong")

	case cliproto.KindVersion:
		return cliproto.NewOKLine("atticd reference emulator fixture")

	case cliproto.KindQuit, cliproto.KindShutdown:
		return cliproto.NewOK()

	case cliproto.KindPause:
		e.running = false

		return cliproto.NewOK()

	case cliproto.KindResume:
		e.running = true

		return cliproto.NewOK()

	case cliproto.KindStatus:
		if e.running {
			return cliproto.NewOKLine("running")
		}

		return cliproto.NewOKLine("paused")

	case cliproto.KindDrives:
		return e.drivesResponseLocked()

	case cliproto.KindReset:
		if cmd.Cold {
			e.mem = [memorySize]byte{}
			e.regs = wire.RegistersPayload{}
		}

		e.running = true

		return cliproto.NewOK()

	case cliproto.KindRead:
		bytes := make([]byte, cmd.Count)
		for i := range bytes {
			bytes[i] = e.mem[(int(cmd.Addr)+i)%memorySize]
		}

		return cliproto.NewOKData(bytes)

	case cliproto.KindWrite:
		for i, b := range cmd.Bytes {
			e.mem[(int(cmd.Addr)+i)%memorySize] = b
		}

		return cliproto.NewOK()

	case cliproto.KindFill:
		for a := int(cmd.Addr); a <= int(cmd.End); a++ {
			e.mem[a%memorySize] = cmd.Byte
		}

		return cliproto.NewOK()

	case cliproto.KindRegistersRead:
		return cliproto.NewOKLine(formatRegisters(e.regs))

	case cliproto.KindRegistersWrite:
		if err := applyRegisters(&e.regs, cmd.Registers); err != nil {
			return cliproto.NewErr(err.Error())
		}

		return cliproto.NewOK()

	case cliproto.KindBreakpointSet:
		e.breakpoints[cmd.Addr] = true

		return cliproto.NewOK()

	case cliproto.KindBreakpointClear:
		delete(e.breakpoints, cmd.Addr)

		return cliproto.NewOK()

	case cliproto.KindBreakpointClearAll:
		e.breakpoints = make(map[uint16]bool)

		return cliproto.NewOK()

	case cliproto.KindBreakpointList:
		addrs := make([]string, 0, len(e.breakpoints))
		for a := range e.breakpoints {
			addrs = append(addrs, fmt.Sprintf("$%04X", a))
		}

		sort.Strings(addrs)

		return cliproto.NewOKMultiline(addrs)

	case cliproto.KindBoot:
		e.drives[1] = cmd.Path

		return cliproto.NewOKLine("booted " + cmd.Path)

	case cliproto.KindMount:
		e.drives[byte(cmd.Drive)] = cmd.Path

		return cliproto.NewOK()

	case cliproto.KindUnmount:
		delete(e.drives, byte(cmd.Drive))

		return cliproto.NewOK()

	case cliproto.KindInjectBasic:
		program, err := base64.StdEncoding.DecodeString(cmd.Instruction)
		if err != nil {
			return cliproto.NewErr("invalid base64 program: " + err.Error())
		}

		e.lastInjectedBasic = program

		return cliproto.NewOK()

	case cliproto.KindInjectKeys:
		keys, err := cliproto.DecodeInjectKeys(cmd.Instruction)
		if err != nil {
			return cliproto.NewErr(err.Error())
		}

		e.lastInjectedKeys = keys

		return cliproto.NewOK()

	case cliproto.KindScreen, cliproto.KindScreenshot, cliproto.KindStep, cliproto.KindStepOver,
		cliproto.KindUntil, cliproto.KindDisassemble, cliproto.KindAssemble, cliproto.KindAsmInput,
		cliproto.KindAsmEnd, cliproto.KindStateSave, cliproto.KindStateLoad,
		cliproto.KindBasic, cliproto.KindDos:
		return cliproto.NewErr("not supported by the reference emulator fixture")

	default:
		return cliproto.NewErr("unrecognized command")
	}
}

func (e *Emulator) drivesResponseLocked() cliproto.Response {
	if len(e.drives) == 0 {
		return cliproto.NewOK()
	}

	lines := make([]string, 0, len(e.drives))
	for d, name := range e.drives {
		lines = append(lines, fmt.Sprintf("D%d: %s", d, name))
	}

	sort.Strings(lines)

	return cliproto.NewOKMultiline(lines)
}

func formatRegisters(r wire.RegistersPayload) string {
	return fmt.Sprintf("A=$%02X X=$%02X Y=$%02X S=$%02X P=$%02X PC=$%04X", r.A, r.X, r.Y, r.S, r.P, r.PC)
}

func applyRegisters(r *wire.RegistersPayload, values []cliproto.RegisterValue) error {
	for _, rv := range values {
		switch rv.Name {
		case "A":
			r.A = byte(rv.Value)
		case "X":
			r.X = byte(rv.Value)
		case "Y":
			r.Y = byte(rv.Value)
		case "S":
			r.S = byte(rv.Value)
		case "P":
			r.P = byte(rv.Value)
		case "PC":
			r.PC = rv.Value
		default:
			return fmt.Errorf("atticdelegate: unknown register %q", rv.Name)
		}
	}

	return nil
}
