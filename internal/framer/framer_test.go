package framer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/huegli/atticd/internal/framer"
	"github.com/huegli/atticd/internal/wire"
)

func TestWaitsForMoreData(t *testing.T) {
	f := framer.New()
	f.Push([]byte{0xAE, 0x50, 0x01})

	_, err, ok := f.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractsOneFrameLeavesSuffix(t *testing.T) {
	// Property 3 exercised through the framer itself: a valid frame
	// followed by an arbitrary suffix surfaces exactly one frame, and the
	// suffix stays unconsumed until more bytes complete it.
	f := framer.New()
	encoded := wire.Encode(wire.NewMessage(wire.TypePing, nil))
	suffix := []byte{0xAE, 0x50} // an incomplete second header

	f.Push(append(append([]byte{}, encoded...), suffix...))

	msg, err, ok := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire.TypePing, msg.Type)

	_, err, ok = f.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, f.Pending())
}

// End-to-end scenario 4: malformed-then-valid on the same connection.
func TestMalformedThenValidSameConnection(t *testing.T) {
	f := framer.New()
	unknown := []byte{0xAE, 0x50, 0x01, 0xFE, 0x00, 0x00, 0x00, 0x00}
	ping := []byte{0xAE, 0x50, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}

	f.Push(unknown)
	f.Push(ping)

	msg, err, ok := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire.TypePing, msg.Type)
}

func TestUnsupportedVersionDropsFrameAndContinues(t *testing.T) {
	f := framer.New()
	badVersion := []byte{0xAE, 0x50, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00}
	ping := []byte{0xAE, 0x50, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}

	f.Push(append(append([]byte{}, badVersion...), ping...))

	msg, err, ok := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire.TypePing, msg.Type)
}

func TestInvalidMagicIsFatal(t *testing.T) {
	f := framer.New()
	f.Push([]byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00})

	_, err, ok := f.Next()
	require.Error(t, err)
	assert.False(t, ok)

	var fatal *framer.FatalError
	assert.ErrorAs(t, err, &fatal)
}

// End-to-end scenario 5: an oversized header is fatal even though far fewer
// than length bytes have actually arrived.
func TestOversizedFrameIsFatalWithoutWaitingForPayload(t *testing.T) {
	f := framer.New()
	header := []byte{0xAE, 0x50, 0x01, 0x60, 0x02, 0x00, 0x00, 0x00} // length = 32 MiB
	f.Push(header)

	_, err, ok := f.Next()
	require.Error(t, err)
	assert.False(t, ok)

	var fatal *framer.FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestFeedingOneByteAtATimeStillAssemblesFrame(t *testing.T) {
	f := framer.New()
	encoded := wire.Encode(wire.NewMessage(wire.TypeStatus, []byte{0x01, 0x00}))

	var got *wire.Message

	for _, b := range encoded {
		f.Push([]byte{b})

		msg, err, ok := f.Next()
		require.NoError(t, err)

		if ok {
			got = &msg
		}
	}

	require.NotNil(t, got)
	assert.Equal(t, wire.TypeStatus, got.Type)
	assert.Equal(t, []byte{0x01, 0x00}, got.Payload)
}

func TestMultipleFramesInOneBufferSurfaceInOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		types := []wire.MessageType{wire.TypePing, wire.TypePong, wire.TypePause, wire.TypeResume}

		var all []byte

		var expected []wire.MessageType

		for range n {
			typ := rapid.SampledFrom(types).Draw(t, "type")
			payload := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "payload")
			all = append(all, wire.Encode(wire.NewMessage(typ, payload))...)
			expected = append(expected, typ)
		}

		f := framer.New()
		f.Push(all)

		var got []wire.MessageType

		for {
			msg, err, ok := f.Next()
			require.NoError(t, err)

			if !ok {
				break
			}

			got = append(got, msg.Type)
		}

		assert.Equal(t, expected, got)
		assert.Equal(t, 0, f.Pending())
	})
}
