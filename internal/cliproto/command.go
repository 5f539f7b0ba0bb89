// Package cliproto implements the CLI text protocol's command grammar,
// response/event grammar, and line framing rules (spec §4.5): parsing and
// formatting, never networking.
//
// Grounded on the teacher's src/server.go, which parses an analogous
// line-oriented command set (the "application command" interface fed to
// AGW clients) with a big switch over a verb string; this package keeps
// that "one verb, one case" shape but returns a typed Command instead of
// acting on it directly, so the protocol core stays free of any emulator
// dependency.
package cliproto

// Kind names every verb the CLI grammar accepts (spec §4.5 "Command
// grammar").
type Kind int

const (
	KindPing Kind = iota
	KindVersion
	KindQuit
	KindShutdown
	KindPause
	KindResume
	KindStatus
	KindDrives
	KindScreen
	KindScreenshot
	KindStep
	KindStepOver
	KindUntil
	KindReset
	KindRead
	KindWrite
	KindFill
	KindRegistersRead
	KindRegistersWrite
	KindBreakpointSet
	KindBreakpointClear
	KindBreakpointClearAll
	KindBreakpointList
	KindDisassemble
	KindAssemble
	KindAsmInput
	KindAsmEnd
	KindMount
	KindUnmount
	KindBoot
	KindStateSave
	KindStateLoad
	KindInjectBasic
	KindInjectKeys
	KindBasic
	KindDos
)

// RegisterValue is one NAME=VALUE pair for "registers" in write mode.
type RegisterValue struct {
	Name  string
	Value uint16
}

// Command is the parsed, typed form of a CLI request line. Only the
// fields relevant to Kind are populated; the zero value of the rest is
// meaningless for that Kind. Parse validates arguments before it builds a
// Command; the NewXxxCommand constructors store their arguments unchecked.
// Format is total either way (spec §4 "the formatter is total").
type Command struct {
	Kind Kind

	Addr  uint16
	Count uint16
	End   uint16
	Byte  byte
	Bytes []byte
	Lines int
	Steps int
	Cold  bool
	Path  string
	Drive int
	ATASCII bool

	Instruction string
	Registers   []RegisterValue

	// Sub and Args cover the basic/dos families, whose sub-verb sets are
	// large and best handled as one pass-through shape rather than one
	// Kind per sub-verb (spec §4.5 "basic ... family", "dos ... family").
	Sub  string
	Args []string
}

func NewPingCommand() Command    { return Command{Kind: KindPing} }
func NewVersionCommand() Command { return Command{Kind: KindVersion} }
func NewQuitCommand() Command    { return Command{Kind: KindQuit} }
func NewShutdownCommand() Command { return Command{Kind: KindShutdown} }
func NewPauseCommand() Command   { return Command{Kind: KindPause} }
func NewResumeCommand() Command  { return Command{Kind: KindResume} }
func NewStatusCommand() Command  { return Command{Kind: KindStatus} }
func NewDrivesCommand() Command  { return Command{Kind: KindDrives} }

func NewScreenCommand(atascii bool) Command {
	return Command{Kind: KindScreen, ATASCII: atascii}
}

func NewScreenshotCommand(path string) Command {
	return Command{Kind: KindScreenshot, Path: path}
}

func NewStepCommand(n int) Command      { return Command{Kind: KindStep, Steps: n} }
func NewStepOverCommand() Command       { return Command{Kind: KindStepOver} }
func NewUntilCommand(addr uint16) Command { return Command{Kind: KindUntil, Addr: addr} }

func NewResetCommand(cold bool) Command { return Command{Kind: KindReset, Cold: cold} }

func NewReadCommand(addr, count uint16) Command {
	return Command{Kind: KindRead, Addr: addr, Count: count}
}

func NewWriteCommand(addr uint16, bytes []byte) Command {
	return Command{Kind: KindWrite, Addr: addr, Bytes: bytes}
}

func NewFillCommand(start, end uint16, b byte) Command {
	return Command{Kind: KindFill, Addr: start, End: end, Byte: b}
}

func NewRegistersReadCommand() Command { return Command{Kind: KindRegistersRead} }

func NewRegistersWriteCommand(regs []RegisterValue) Command {
	return Command{Kind: KindRegistersWrite, Registers: regs}
}

func NewBreakpointSetCommand(addr uint16) Command {
	return Command{Kind: KindBreakpointSet, Addr: addr}
}

func NewBreakpointClearCommand(addr uint16) Command {
	return Command{Kind: KindBreakpointClear, Addr: addr}
}

func NewBreakpointClearAllCommand() Command { return Command{Kind: KindBreakpointClearAll} }
func NewBreakpointListCommand() Command     { return Command{Kind: KindBreakpointList} }

func NewDisassembleCommand(addr uint16, lines int) Command {
	return Command{Kind: KindDisassemble, Addr: addr, Lines: lines}
}

func NewAssembleCommand(addr uint16, instruction string) Command {
	return Command{Kind: KindAssemble, Addr: addr, Instruction: instruction}
}

func NewAsmInputCommand(instruction string) Command {
	return Command{Kind: KindAsmInput, Instruction: instruction}
}

func NewAsmEndCommand() Command { return Command{Kind: KindAsmEnd} }

func NewMountCommand(drive int, path string) Command {
	return Command{Kind: KindMount, Drive: drive, Path: path}
}

func NewUnmountCommand(drive int) Command { return Command{Kind: KindUnmount, Drive: drive} }
func NewBootCommand(path string) Command  { return Command{Kind: KindBoot, Path: path} }

func NewStateSaveCommand(path string) Command { return Command{Kind: KindStateSave, Path: path} }
func NewStateLoadCommand(path string) Command { return Command{Kind: KindStateLoad, Path: path} }

func NewInjectBasicCommand(base64 string) Command {
	return Command{Kind: KindInjectBasic, Instruction: base64}
}

func NewInjectKeysCommand(escaped string) Command {
	return Command{Kind: KindInjectKeys, Instruction: escaped}
}

func NewBasicCommand(sub string, args []string) Command {
	return Command{Kind: KindBasic, Sub: sub, Args: args}
}

func NewDosCommand(sub string, args []string) Command {
	return Command{Kind: KindDos, Sub: sub, Args: args}
}
