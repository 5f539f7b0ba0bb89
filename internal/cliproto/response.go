package cliproto

import (
	"fmt"
	"strings"
)

// RS is the Record Separator byte used as the intra-payload line delimiter
// inside a single framed CLI response line (spec §4.5 "Framing").
const RS = '\x1E'

// ResponseKind distinguishes OK from ERR response lines.
type ResponseKind int

const (
	OK ResponseKind = iota
	ErrorResponse
)

// Response is a parsed "OK:" or "ERR:" line. Payload keeps embedded \x1E
// separators; use Lines to split a multi-line OK payload.
type Response struct {
	Kind    ResponseKind
	Payload string
}

// Lines splits a multi-line OK payload on the record separator (spec §4.5
// "Response grammar").
func (r Response) Lines() []string {
	if r.Payload == "" {
		return nil
	}

	return strings.Split(r.Payload, string(rune(RS)))
}

// FormatResponse renders r as its wire line, including the trailing
// newline (spec Property 11).
func FormatResponse(r Response) string {
	switch r.Kind {
	case OK:
		return "OK:" + r.Payload + "\n"
	default:
		return "ERR:" + r.Payload + "\n"
	}
}

// NewOK builds a bare acknowledgement with no payload.
func NewOK() Response { return Response{Kind: OK} }

// NewOKLine builds a single-line OK payload.
func NewOKLine(line string) Response { return Response{Kind: OK, Payload: line} }

// NewOKData builds the "data <csv-hex-bytes>" OK payload used by memory
// reads (spec scenario 6).
func NewOKData(bytes []byte) Response {
	parts := make([]string, len(bytes))
	for i, b := range bytes {
		parts[i] = fmt.Sprintf("%02X", b)
	}

	return Response{Kind: OK, Payload: "data " + strings.Join(parts, ",")}
}

// NewOKMultiline joins lines with the record separator, for disassembly
// listings, directory listings, and variable dumps.
func NewOKMultiline(lines []string) Response {
	return Response{Kind: OK, Payload: strings.Join(lines, string(rune(RS)))}
}

// NewErr builds an ERR response from free text.
func NewErr(message string) Response { return Response{Kind: ErrorResponse, Payload: message} }

// EventKind names the three asynchronous event shapes (spec §4.5 "Event
// grammar").
type EventKind int

const (
	EventBreakpoint EventKind = iota
	EventStopped
	EventError
)

// Event is a parsed "EVENT:" line.
type Event struct {
	Kind EventKind

	Addr       uint16
	Registers  []RegisterValue
	Message    string
}

// FormatEvent renders e as its wire line.
func FormatEvent(e Event) string {
	switch e.Kind {
	case EventBreakpoint:
		parts := make([]string, 0, len(e.Registers))
		for _, r := range e.Registers {
			parts = append(parts, fmt.Sprintf("%s=$%02X", r.Name, r.Value))
		}

		return fmt.Sprintf("EVENT:breakpoint $%04X %s\n", e.Addr, strings.Join(parts, " "))
	case EventStopped:
		return fmt.Sprintf("EVENT:stopped $%04X\n", e.Addr)
	default:
		return "EVENT:error " + e.Message + "\n"
	}
}

// ParseInbound parses one server-to-client line (without its trailing
// newline) into a Response or an Event.
func ParseInbound(line string) (any, error) {
	switch {
	case strings.HasPrefix(line, "OK:"):
		return Response{Kind: OK, Payload: strings.TrimPrefix(line, "OK:")}, nil
	case strings.HasPrefix(line, "ERR:"):
		return Response{Kind: ErrorResponse, Payload: strings.TrimPrefix(line, "ERR:")}, nil
	case strings.HasPrefix(line, "EVENT:"):
		return parseEvent(strings.TrimPrefix(line, "EVENT:"))
	default:
		return nil, newParseError(ErrUnexpectedResponse, line)
	}
}

func parseEvent(body string) (Event, error) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return Event{}, newParseError(ErrUnexpectedResponse, body)
	}

	switch fields[0] {
	case "breakpoint":
		if len(fields) < 2 {
			return Event{}, newParseError(ErrMissingArgument, body)
		}

		addr, err := parseAddr(fields[1])
		if err != nil {
			return Event{}, err
		}

		regs := make([]RegisterValue, 0, len(fields)-2)

		for _, f := range fields[2:] {
			rv, err := parseRegisterValue(f)
			if err != nil {
				return Event{}, err
			}

			regs = append(regs, rv)
		}

		return Event{Kind: EventBreakpoint, Addr: addr, Registers: regs}, nil
	case "stopped":
		if len(fields) < 2 {
			return Event{}, newParseError(ErrMissingArgument, body)
		}

		addr, err := parseAddr(fields[1])
		if err != nil {
			return Event{}, err
		}

		return Event{Kind: EventStopped, Addr: addr}, nil
	case "error":
		return Event{Kind: EventError, Message: strings.TrimSpace(strings.TrimPrefix(body, "error"))}, nil
	default:
		return Event{}, newParseError(ErrUnexpectedResponse, body)
	}
}
