package cliproto

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a Command back into its "CMD:<verb> args...\n" line.
// It is total: it renders any Command without producing an error (spec
// §4 "the formatter is total").
func Format(c Command) string {
	return "CMD:" + FormatBody(c) + "\n"
}

// FormatBody renders the "<verb> args..." portion without the CMD:
// prefix or trailing newline, for callers assembling their own framing.
func FormatBody(c Command) string {
	switch c.Kind {
	case KindPing:
		return "ping"
	case KindVersion:
		return "version"
	case KindQuit:
		return "quit"
	case KindShutdown:
		return "shutdown"
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindStatus:
		return "status"
	case KindDrives:
		return "drives"
	case KindScreen:
		if c.ATASCII {
			return "screen atascii"
		}

		return "screen"
	case KindScreenshot:
		if c.Path == "" {
			return "screenshot"
		}

		return "screenshot " + c.Path
	case KindStep:
		return fmt.Sprintf("step %d", c.Steps)
	case KindStepOver:
		return "stepover"
	case KindUntil:
		return fmt.Sprintf("until $%04X", c.Addr)
	case KindReset:
		if c.Cold {
			return "reset cold"
		}

		return "reset warm"
	case KindRead:
		return fmt.Sprintf("read $%04X %d", c.Addr, c.Count)
	case KindWrite:
		return fmt.Sprintf("write $%04X %s", c.Addr, formatByteList(c.Bytes))
	case KindFill:
		return fmt.Sprintf("fill $%04X $%04X $%02X", c.Addr, c.End, c.Byte)
	case KindRegistersRead:
		return "registers"
	case KindRegistersWrite:
		parts := make([]string, 0, len(c.Registers))
		for _, r := range c.Registers {
			parts = append(parts, fmt.Sprintf("%s=$%04X", r.Name, r.Value))
		}

		return "registers " + strings.Join(parts, " ")
	case KindBreakpointSet:
		return fmt.Sprintf("breakpoint set $%04X", c.Addr)
	case KindBreakpointClear:
		return fmt.Sprintf("breakpoint clear $%04X", c.Addr)
	case KindBreakpointClearAll:
		return "breakpoint clearall"
	case KindBreakpointList:
		return "breakpoint list"
	case KindDisassemble:
		return fmt.Sprintf("disassemble $%04X %d", c.Addr, c.Lines)
	case KindAssemble:
		if c.Instruction == "" {
			return fmt.Sprintf("assemble $%04X", c.Addr)
		}

		return fmt.Sprintf("assemble $%04X %s", c.Addr, c.Instruction)
	case KindAsmInput:
		return "asm input " + c.Instruction
	case KindAsmEnd:
		return "asm end"
	case KindMount:
		return fmt.Sprintf("mount %d %s", c.Drive, c.Path)
	case KindUnmount:
		return fmt.Sprintf("unmount %d", c.Drive)
	case KindBoot:
		return "boot " + c.Path
	case KindStateSave:
		return "state save " + c.Path
	case KindStateLoad:
		return "state load " + c.Path
	case KindInjectBasic:
		return "inject basic " + c.Instruction
	case KindInjectKeys:
		return "inject keys " + c.Instruction
	case KindBasic:
		if len(c.Args) == 0 {
			return "basic " + c.Sub
		}

		return "basic " + c.Sub + " " + strings.Join(c.Args, " ")
	case KindDos:
		if len(c.Args) == 0 {
			return "dos " + c.Sub
		}

		return "dos " + c.Sub + " " + strings.Join(c.Args, " ")
	default:
		return ""
	}
}

func formatByteList(bytes []byte) string {
	parts := make([]string, len(bytes))
	for i, b := range bytes {
		parts[i] = "$" + strconv.FormatUint(uint64(b), 16)
	}

	return strings.Join(parts, ",")
}
