package cliproto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/huegli/atticd/internal/cliproto"
)

func TestParsePingVersionQuit(t *testing.T) {
	cmd, err := cliproto.Parse("ping")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindPing, cmd.Kind)

	cmd, err = cliproto.Parse("VERSION")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindVersion, cmd.Kind)

	cmd, err = cliproto.Parse("quit")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindQuit, cmd.Kind)
}

func TestParseReadAddressForms(t *testing.T) {
	for _, addr := range []string{"$0600", "0x0600", "1536"} {
		cmd, err := cliproto.Parse("read " + addr + " 16")
		require.NoError(t, err)
		assert.Equal(t, cliproto.KindRead, cmd.Kind)
		assert.EqualValues(t, 0x0600, cmd.Addr)
		assert.EqualValues(t, 16, cmd.Count)
	}
}

func TestParseWriteBytes(t *testing.T) {
	cmd, err := cliproto.Parse("write $0600 $A9,$00,8D")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA9, 0x00, 0x8D}, cmd.Bytes)
}

func TestParseRegistersReadAndWrite(t *testing.T) {
	cmd, err := cliproto.Parse("registers")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindRegistersRead, cmd.Kind)

	cmd, err = cliproto.Parse("registers A=$01 PC=$2000")
	require.NoError(t, err)
	require.Equal(t, cliproto.KindRegistersWrite, cmd.Kind)
	require.Len(t, cmd.Registers, 2)
	assert.Equal(t, "A", cmd.Registers[0].Name)
	assert.EqualValues(t, 1, cmd.Registers[0].Value)
}

func TestParseRegistersRejectsUnknownName(t *testing.T) {
	_, err := cliproto.Parse("registers Q=$01")
	require.Error(t, err)

	var pe *cliproto.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cliproto.ErrInvalidRegister, pe.Kind)
}

func TestParseBreakpointSubcommands(t *testing.T) {
	cmd, err := cliproto.Parse("breakpoint set $2000")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindBreakpointSet, cmd.Kind)
	assert.EqualValues(t, 0x2000, cmd.Addr)

	cmd, err = cliproto.Parse("breakpoint list")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindBreakpointList, cmd.Kind)

	_, err = cliproto.Parse("breakpoint bogus")
	require.Error(t, err)
}

func TestParseStepDefaultsToOne(t *testing.T) {
	cmd, err := cliproto.Parse("step")
	require.NoError(t, err)
	assert.Equal(t, 1, cmd.Steps)

	cmd, err = cliproto.Parse("step 5")
	require.NoError(t, err)
	assert.Equal(t, 5, cmd.Steps)

	_, err = cliproto.Parse("step -1")
	require.Error(t, err)

	var pe *cliproto.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cliproto.ErrInvalidStepCount, pe.Kind)
}

func TestParseResetDefaultsToCold(t *testing.T) {
	cmd, err := cliproto.Parse("reset")
	require.NoError(t, err)
	assert.True(t, cmd.Cold)

	cmd, err = cliproto.Parse("reset warm")
	require.NoError(t, err)
	assert.False(t, cmd.Cold)

	_, err = cliproto.Parse("reset sideways")
	require.Error(t, err)
}

func TestParseMountUnmountValidatesDriveRange(t *testing.T) {
	cmd, err := cliproto.Parse("mount 1 /tmp/game.atr")
	require.NoError(t, err)
	assert.Equal(t, 1, cmd.Drive)
	assert.Equal(t, "/tmp/game.atr", cmd.Path)

	_, err = cliproto.Parse("mount 9 /tmp/game.atr")
	require.Error(t, err)

	var pe *cliproto.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cliproto.ErrInvalidDriveNumber, pe.Kind)
}

func TestParseInjectBasicKeepsRawBase64(t *testing.T) {
	cmd, err := cliproto.Parse("inject basic SGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindInjectBasic, cmd.Kind)
	assert.Equal(t, "SGVsbG8=", cmd.Instruction)
}

func TestParseInjectKeysDecodesEscapes(t *testing.T) {
	cmd, err := cliproto.Parse(`inject keys RUN\s10\n`)
	require.NoError(t, err)
	assert.Equal(t, cliproto.KindInjectKeys, cmd.Kind)
	assert.Equal(t, `RUN\s10\n`, cmd.Instruction)

	decoded, err := cliproto.DecodeInjectKeys(cmd.Instruction)
	require.NoError(t, err)
	assert.Equal(t, []byte("RUN 10\n"), decoded)
}

func TestParseInjectKeysRejectsUnknownEscape(t *testing.T) {
	_, err := cliproto.Parse(`inject keys \q`)
	require.Error(t, err)

	var pe *cliproto.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cliproto.ErrInvalidValue, pe.Kind)
}

func TestDecodeInjectKeysRecognisesEscapeAndSpace(t *testing.T) {
	decoded, err := cliproto.DecodeInjectKeys(`\e\s\\`)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1B, ' ', '\\'}, decoded)
}

func TestParseUnknownVerbIsInvalidCommand(t *testing.T) {
	_, err := cliproto.Parse("frobnicate")
	require.Error(t, err)

	var pe *cliproto.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cliproto.ErrInvalidCommand, pe.Kind)
}

func TestFormatRoundTripsRead(t *testing.T) {
	cmd := cliproto.NewReadCommand(0x0600, 16)
	line := cliproto.Format(cmd)
	assert.Equal(t, "CMD:read $0600 16\n", line)

	parsed, err := cliproto.Parse(line[len("CMD:"):])
	require.NoError(t, err)
	assert.Equal(t, cmd, parsed)
}

func TestParserNeverPanicsOnArbitraryShortInput(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "raw")

		assert.NotPanics(t, func() {
			_, _ = cliproto.Parse(string(raw))
		})
	})
}

func TestParseInboundResponsesAndEvents(t *testing.T) {
	resp, err := cliproto.ParseInbound("OK:pong")
	require.NoError(t, err)
	r, ok := resp.(cliproto.Response)
	require.True(t, ok)
	assert.Equal(t, cliproto.OK, r.Kind)
	assert.Equal(t, "pong", r.Payload)

	resp, err = cliproto.ParseInbound("ERR:no such breakpoint")
	require.NoError(t, err)
	r, ok = resp.(cliproto.Response)
	require.True(t, ok)
	assert.Equal(t, cliproto.ErrorResponse, r.Kind)

	ev, err := cliproto.ParseInbound("EVENT:stopped $0600")
	require.NoError(t, err)
	e, ok := ev.(cliproto.Event)
	require.True(t, ok)
	assert.Equal(t, cliproto.EventStopped, e.Kind)
	assert.EqualValues(t, 0x0600, e.Addr)
}

func TestOKDataFormatsCSVHex(t *testing.T) {
	resp := cliproto.NewOKData([]byte{0xA9, 0x00, 0x8D})
	assert.Equal(t, "OK:data A9,00,8D\n", cliproto.FormatResponse(resp))
}

func TestOKMultilineUsesRecordSeparator(t *testing.T) {
	resp := cliproto.NewOKMultiline([]string{"line one", "line two"})
	line := cliproto.FormatResponse(resp)
	assert.Equal(t, "OK:line one\x1Eline two\n", line)

	lines := resp.Lines()
	assert.Equal(t, []string{"line one", "line two"}, lines)
}
