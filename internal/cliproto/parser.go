package cliproto

import (
	"strconv"
	"strings"
)

// MaxLineLength is the longest CLI line accepted before the transport must
// discard it (spec §4.5 "Framing").
const MaxLineLength = 4096

// Parse turns one CLI request line (without its trailing "CMD:" prefix and
// newline) into a typed Command. It is total over syntactically valid
// input and never panics (spec Property 12): anything it rejects comes
// back as a *ParseError.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, newParseError(ErrInvalidCommand, "empty command")
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "ping":
		return NewPingCommand(), nil
	case "version":
		return NewVersionCommand(), nil
	case "quit":
		return NewQuitCommand(), nil
	case "shutdown":
		return NewShutdownCommand(), nil
	case "pause":
		return NewPauseCommand(), nil
	case "resume":
		return NewResumeCommand(), nil
	case "status":
		return NewStatusCommand(), nil
	case "drives":
		return NewDrivesCommand(), nil
	case "screen":
		if len(args) > 0 && strings.ToLower(args[0]) != "atascii" {
			return Command{}, newParseError(ErrInvalidCommand, "screen takes only an optional 'atascii' flag")
		}

		return NewScreenCommand(len(args) > 0), nil
	case "screenshot":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}

		return NewScreenshotCommand(path), nil
	case "step":
		n := 1

		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed <= 0 {
				return Command{}, newParseError(ErrInvalidStepCount, args[0])
			}

			n = parsed
		}

		return NewStepCommand(n), nil
	case "stepover", "so":
		return NewStepOverCommand(), nil
	case "until", "rununtil":
		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "until <addr>")
		}

		addr, err := parseAddr(args[0])
		if err != nil {
			return Command{}, err
		}

		return NewUntilCommand(addr), nil
	case "reset":
		cold := true

		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "cold":
				cold = true
			case "warm":
				cold = false
			default:
				return Command{}, newParseError(ErrInvalidResetType, args[0])
			}
		}

		return NewResetCommand(cold), nil
	case "read":
		if len(args) < 2 {
			return Command{}, newParseError(ErrMissingArgument, "read <addr> <count>")
		}

		addr, err := parseAddr(args[0])
		if err != nil {
			return Command{}, err
		}

		count, err := strconv.Atoi(args[1])
		if err != nil || count < 0 || count > 0xFFFF {
			return Command{}, newParseError(ErrInvalidCount, args[1])
		}

		return NewReadCommand(addr, uint16(count)), nil
	case "write":
		if len(args) < 2 {
			return Command{}, newParseError(ErrMissingArgument, "write <addr> <bytes>")
		}

		addr, err := parseAddr(args[0])
		if err != nil {
			return Command{}, err
		}

		bytes, err := parseByteList(strings.Join(args[1:], " "))
		if err != nil {
			return Command{}, err
		}

		return NewWriteCommand(addr, bytes), nil
	case "fill":
		if len(args) < 3 {
			return Command{}, newParseError(ErrMissingArgument, "fill <start> <end> <byte>")
		}

		start, err := parseAddr(args[0])
		if err != nil {
			return Command{}, err
		}

		end, err := parseAddr(args[1])
		if err != nil {
			return Command{}, err
		}

		b, err := parseByte(args[2])
		if err != nil {
			return Command{}, err
		}

		return NewFillCommand(start, end, b), nil
	case "registers":
		if len(args) == 0 {
			return NewRegistersReadCommand(), nil
		}

		regs := make([]RegisterValue, 0, len(args))

		for _, a := range args {
			rv, err := parseRegisterValue(a)
			if err != nil {
				return Command{}, err
			}

			regs = append(regs, rv)
		}

		return NewRegistersWriteCommand(regs), nil
	case "breakpoint":
		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "breakpoint set|clear|clearall|list")
		}

		switch strings.ToLower(args[0]) {
		case "set":
			if len(args) < 2 {
				return Command{}, newParseError(ErrMissingArgument, "breakpoint set <addr>")
			}

			addr, err := parseAddr(args[1])
			if err != nil {
				return Command{}, err
			}

			return NewBreakpointSetCommand(addr), nil
		case "clear":
			if len(args) < 2 {
				return Command{}, newParseError(ErrMissingArgument, "breakpoint clear <addr>")
			}

			addr, err := parseAddr(args[1])
			if err != nil {
				return Command{}, err
			}

			return NewBreakpointClearCommand(addr), nil
		case "clearall":
			return NewBreakpointClearAllCommand(), nil
		case "list":
			return NewBreakpointListCommand(), nil
		default:
			return Command{}, newParseError(ErrInvalidCommand, args[0])
		}
	case "disassemble", "disasm", "d":
		var addr uint16

		lines := 10

		if len(args) > 0 {
			a, err := parseAddr(args[0])
			if err != nil {
				return Command{}, err
			}

			addr = a
		}

		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return Command{}, newParseError(ErrInvalidValue, args[1])
			}

			lines = n
		}

		return NewDisassembleCommand(addr, lines), nil
	case "assemble", "asm", "a":
		if verb == "asm" && len(args) > 0 && strings.ToLower(args[0]) == "input" {
			return NewAsmInputCommand(strings.Join(args[1:], " ")), nil
		}

		if verb == "asm" && len(args) > 0 && strings.ToLower(args[0]) == "end" {
			return NewAsmEndCommand(), nil
		}

		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "assemble <addr> [instruction]")
		}

		addr, err := parseAddr(args[0])
		if err != nil {
			return Command{}, err
		}

		return NewAssembleCommand(addr, strings.Join(args[1:], " ")), nil
	case "mount":
		if len(args) < 2 {
			return Command{}, newParseError(ErrMissingArgument, "mount <drive> <path>")
		}

		drive, err := parseDrive(args[0])
		if err != nil {
			return Command{}, err
		}

		return NewMountCommand(drive, strings.Join(args[1:], " ")), nil
	case "unmount":
		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "unmount <drive>")
		}

		drive, err := parseDrive(args[0])
		if err != nil {
			return Command{}, err
		}

		return NewUnmountCommand(drive), nil
	case "boot":
		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "boot <path>")
		}

		return NewBootCommand(strings.Join(args, " ")), nil
	case "state":
		if len(args) < 2 {
			return Command{}, newParseError(ErrMissingArgument, "state save|load <path>")
		}

		switch strings.ToLower(args[0]) {
		case "save":
			return NewStateSaveCommand(strings.Join(args[1:], " ")), nil
		case "load":
			return NewStateLoadCommand(strings.Join(args[1:], " ")), nil
		default:
			return Command{}, newParseError(ErrInvalidCommand, args[0])
		}
	case "inject":
		if len(args) < 2 {
			return Command{}, newParseError(ErrMissingArgument, "inject basic|keys <payload>")
		}

		switch strings.ToLower(args[0]) {
		case "basic":
			return NewInjectBasicCommand(args[1]), nil
		case "keys":
			escaped := strings.Join(args[1:], " ")

			if _, err := DecodeInjectKeys(escaped); err != nil {
				return Command{}, err
			}

			return NewInjectKeysCommand(escaped), nil
		default:
			return Command{}, newParseError(ErrInvalidCommand, args[0])
		}
	case "basic":
		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "basic <sub> [args...]")
		}

		return NewBasicCommand(args[0], args[1:]), nil
	case "dos":
		if len(args) < 1 {
			return Command{}, newParseError(ErrMissingArgument, "dos <sub> [args...]")
		}

		return NewDosCommand(args[0], args[1:]), nil
	default:
		return Command{}, newParseError(ErrInvalidCommand, verb)
	}
}

// parseAddr accepts "$XXXX", "0xXXXX", or plain decimal (spec §4.5
// "address in $XXXX, 0xXXXX, or decimal").
func parseAddr(s string) (uint16, error) {
	var (
		v   uint64
		err error
	)

	switch {
	case strings.HasPrefix(s, "$"):
		v, err = strconv.ParseUint(s[1:], 16, 16)
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 16)
	default:
		v, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return 0, newParseError(ErrInvalidAddress, s)
	}

	return uint16(v), nil
}

func parseByte(s string) (byte, error) {
	s = strings.TrimPrefix(s, "$")

	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, newParseError(ErrInvalidByte, s)
	}

	return byte(v), nil
}

// parseByteList parses a comma-separated byte list, "write"'s second
// argument, each entry hex with or without a leading "$".
func parseByteList(s string) ([]byte, error) {
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		b, err := parseByte(p)
		if err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	if len(out) == 0 {
		return nil, newParseError(ErrMissingArgument, "at least one byte")
	}

	return out, nil
}

var registerNames = map[string]bool{"A": true, "X": true, "Y": true, "S": true, "P": true, "PC": true}

// parseRegisterValue parses one "NAME=VALUE" pair for "registers" in write
// mode (spec §4.5 "NAME=VALUE pairs").
func parseRegisterValue(s string) (RegisterValue, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return RegisterValue{}, newParseError(ErrInvalidRegisterFormat, s)
	}

	name = strings.ToUpper(name)
	if !registerNames[name] {
		return RegisterValue{}, newParseError(ErrInvalidRegister, name)
	}

	v, err := parseAddr(value)
	if err != nil {
		return RegisterValue{}, newParseError(ErrInvalidValue, value)
	}

	return RegisterValue{Name: name, Value: v}, nil
}

// parseDrive accepts drive numbers 1..8 (spec §4.5 "<drive:1..8>").
func parseDrive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 8 {
		return 0, newParseError(ErrInvalidDriveNumber, s)
	}

	return n, nil
}
