// Command attic-cli is the human-friendly front-end over the CLI text
// protocol (spec §4.5): one-shot command execution when args are given on
// the command line, an interactive REPL otherwise, plus a "live" mode that
// forwards raw terminal keypresses as AESP input messages (SPEC_FULL.md's
// supplemented feature, grounded on the teacher's src/serial_port.go use of
// github.com/pkg/term).
//
// Grounded on the teacher's src/appserver.go AppServerMain() for flag
// parsing and the overall "parse flags, connect, loop" shape, generalized
// from a single AGWPE connection to the CLI socket plus an optional AESP
// control-channel connection for live mode.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/huegli/atticd/internal/aespclient"
	"github.com/huegli/atticd/internal/cliclient"
	"github.com/huegli/atticd/internal/cliproto"
	"github.com/huegli/atticd/internal/logx"
	"github.com/huegli/atticd/internal/wire"
)

// Exit codes per spec §6 "Exit codes".
const (
	exitOK         = 0
	exitConnection = 1
	exitParse      = 2
	exitEmulator   = 3
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)

	socketPath := fs.StringP("socket", "s", "", "Path to the attic CLI socket (default: discover the newest /tmp/attic-*.sock).")
	host := fs.StringP("host", "H", "localhost", "AESP host, for live mode.")
	controlPort := fs.Int("control-port", 47800, "AESP control channel TCP port, for live mode.")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Attic Emulator Server Protocol CLI\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [live | command args...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "With no command, runs an interactive REPL. With \"live\", forwards raw\nkeypresses as AESP input messages until 'q' is pressed.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(exitParse)
	}

	log := logx.New("attic-cli")
	log.SetLevel(charmlog.WarnLevel)

	args := fs.Args()

	if len(args) > 0 && args[0] == "live" {
		os.Exit(runLive(log, *host, *controlPort))
	}

	ctx := context.Background()

	client, err := cliclient.Connect(ctx, *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attic-cli: %v\n", err)
		os.Exit(exitConnection)
	}
	defer client.Close()

	client.SetEventHandler(func(e cliproto.Event) {
		fmt.Fprintln(os.Stderr, strings.TrimSuffix(cliproto.FormatEvent(e), "\n"))
	})

	if len(args) > 0 {
		os.Exit(runOnce(ctx, client, strings.Join(args, " ")))
	}

	os.Exit(runREPL(ctx, client))
}

// runOnce executes a single command line and returns the spec §6 exit code
// for it.
func runOnce(ctx context.Context, client *cliclient.Client, line string) int {
	cmd, err := cliproto.Parse(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)

		return exitParse
	}

	resp, err := client.Send(ctx, cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection error: %v\n", err)

		return exitConnection
	}

	printResponse(resp)

	if resp.Kind == cliproto.ErrorResponse {
		return exitEmulator
	}

	return exitOK
}

// runREPL reads command lines from stdin until EOF or a "quit"/"exit" verb,
// printing each response line (spec §4.5 "Response grammar"). It returns
// the exit code for the session: exitConnection if the socket dropped
// mid-session, exitOK otherwise.
func runREPL(ctx context.Context, client *cliclient.Client) int {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		verb := strings.ToLower(strings.Fields(line)[0])
		if verb == "quit" || verb == "exit" {
			return exitOK
		}

		cmd, err := cliproto.Parse(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", err)

			continue
		}

		resp, err := client.Send(ctx, cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection error: %v\n", err)

			return exitConnection
		}

		printResponse(resp)
	}

	return exitOK
}

func printResponse(resp cliproto.Response) {
	if resp.Kind == cliproto.ErrorResponse {
		fmt.Printf("ERR: %s\n", resp.Payload)

		return
	}

	for _, line := range resp.Lines() {
		fmt.Printf("OK: %s\n", line)
	}

	if len(resp.Lines()) == 0 {
		fmt.Println("OK")
	}
}

// runLive puts the controlling terminal into raw mode and forwards single
// keystrokes to the emulator as KEY_DOWN/KEY_UP and joystick AESP messages
// (SPEC_FULL.md's supplemented "live" feature). 'i'/'k'/'j'/'l' drive
// joystick up/down/left/right, space is the trigger, 'q' exits live mode;
// every other byte, control bytes included, is forwarded as a KEY_DOWN/KEY_UP pair,
// the way a real keyboard would generate both events for one keystroke.
func runLive(log *logx.Logger, host string, controlPort int) int {
	client := aespclient.New(aespclient.Config{
		Host:  host,
		Ports: aespclient.Ports{Control: controlPort},
		Log:   log,
	})

	ctx := context.Background()

	if err := client.Connect(ctx, false, false); err != nil {
		fmt.Fprintf(os.Stderr, "attic-cli: live: %v\n", err)

		return exitConnection
	}
	defer client.Close()

	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attic-cli: live: open tty: %v\n", err)

		return exitConnection
	}
	defer tty.Restore()
	defer tty.Close()

	fmt.Fprintln(os.Stderr, "live mode: i/k/j/l = joystick, space = trigger, q = quit")

	buf := make([]byte, 1)

	for {
		n, err := tty.Read(buf)
		if err != nil || n == 0 {
			return exitOK
		}

		b := buf[0]
		if b == 'q' {
			return exitOK
		}

		if err := forwardKey(ctx, client, b); err != nil {
			fmt.Fprintf(os.Stderr, "attic-cli: live: %v\n", err)

			return exitConnection
		}
	}
}

func forwardKey(ctx context.Context, client *aespclient.Client, b byte) error {
	switch b {
	case 'i', 'k', 'j', 'l', ' ':
		return client.Joystick(ctx, wire.JoystickPayload{
			Port:    0,
			Up:      b == 'i',
			Down:    b == 'k',
			Left:    b == 'j',
			Right:   b == 'l',
			Trigger: b == ' ',
		})
	default:
		payload := wire.KeyDownPayload{
			KeyChar: b,
			KeyCode: b,
			Shift:   b >= 'A' && b <= 'Z',
			Control: b < 0x20,
		}

		if err := client.KeyDown(ctx, payload); err != nil {
			return err
		}

		return client.KeyUp(ctx, payload)
	}
}
