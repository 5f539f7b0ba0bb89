package aespclient_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huegli/atticd/internal/aespclient"
	"github.com/huegli/atticd/internal/aespserver"
	"github.com/huegli/atticd/internal/wire"
)

// echoDelegate answers a handful of control requests the way a real
// emulator would, so the client's request/response plumbing can be
// exercised end-to-end without a TCP mock.
type echoDelegate struct {
	srv aespserver.Broadcaster
}

func (d *echoDelegate) OnMessage(_ context.Context, id aespserver.ClientID, ch aespserver.Channel, msg wire.Message) error {
	switch msg.Type {
	case wire.TypeStatus:
		payload := wire.EncodeStatus(wire.StatusPayload{IsRunning: true, Drives: []wire.DriveStatus{{Drive: 1, Name: "GAME.ATR"}}})

		return d.srv.Send(id, ch, wire.NewMessage(wire.TypeStatus, payload))
	case wire.TypeInfo:
		payload := wire.EncodeInfo(wire.InfoPayload{Text: "test emulator"})

		return d.srv.Send(id, ch, wire.NewMessage(wire.TypeInfo, payload))
	case wire.TypePause, wire.TypeResume, wire.TypeReset, wire.TypeRegistersWrite, wire.TypeMemoryWrite,
		wire.TypeBreakpointSet, wire.TypeBreakpointClear:
		return d.srv.Send(id, ch, wire.NewMessage(wire.TypeAck, []byte{byte(msg.Type)}))
	case wire.TypeBreakpointListOrHit:
		payload := wire.EncodeBreakpointList(wire.BreakpointListPayload{Addrs: []uint16{0x2000, 0x3000}})

		return d.srv.Send(id, ch, wire.NewMessage(wire.TypeBreakpointListOrHit, payload))
	default:
		return nil
	}
}

func (d *echoDelegate) OnConnect(aespserver.ClientID, aespserver.Channel)    {}
func (d *echoDelegate) OnDisconnect(aespserver.ClientID, aespserver.Channel) {}

func freeTestPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port
}

func startServerAndClient(t *testing.T) *aespclient.Client {
	t.Helper()

	del := &echoDelegate{}
	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)
	del.srv = srv

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	cli := aespclient.New(aespclient.Config{
		Host:            "127.0.0.1",
		Ports:           aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
		ResponseTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	t.Cleanup(func() { cli.Close() })

	return cli
}

func TestPingRoundTrip(t *testing.T) {
	cli := startServerAndClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, cli.Ping(ctx))
}

func TestStatusRoundTrip(t *testing.T) {
	cli := startServerAndClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	status, err := cli.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	require.Len(t, status.Drives, 1)
	assert.Equal(t, "GAME.ATR", status.Drives[0].Name)
}

func TestInfoRoundTrip(t *testing.T) {
	cli := startServerAndClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	info, err := cli.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test emulator", info)
}

func TestListBreakpointsRoundTrip(t *testing.T) {
	cli := startServerAndClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addrs, err := cli.ListBreakpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x2000, 0x3000}, addrs)
}

func TestRequestTimesOutWhenServerNeverResponds(t *testing.T) {
	del := &echoDelegate{}
	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)
	del.srv = srv

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	cli := aespclient.New(aespclient.Config{
		Host:            "127.0.0.1",
		Ports:           aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
		ResponseTimeout: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	t.Cleanup(func() { cli.Close() })

	// MemoryRead has no handler in echoDelegate, so the delegate silently
	// drops it and the client's wait should time out rather than hang.
	_, err := cli.ReadMemory(ctx, 0x600, 16)
	assert.Error(t, err)
}

func TestEventHandlerReceivesUnsolicitedBreakpointHit(t *testing.T) {
	connected := make(chan aespserver.ClientID, 1)
	del := &capturingDelegate{onConnect: func(id aespserver.ClientID) { connected <- id }}

	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	cli := aespclient.New(aespclient.Config{
		Host:  "127.0.0.1",
		Ports: aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
	})

	events := make(chan wire.Message, 1)
	cli.SetEventHandler(func(msg wire.Message) { events <- msg })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	t.Cleanup(func() { cli.Close() })

	var id aespserver.ClientID

	select {
	case id = <-connected:
	case <-time.After(time.Second):
		t.Fatal("client never connected")
	}

	// Nobody has a pending LIST request, so this unsolicited HIT must route
	// to the event handler rather than be swallowed as a stray response.
	hitPayload := wire.EncodeBreakpointAddr(wire.BreakpointAddrPayload{Addr: 0x4000})
	require.NoError(t, srv.Send(id, aespserver.Control, wire.NewMessage(wire.TypeBreakpointListOrHit, hitPayload)))

	select {
	case msg := <-events:
		assert.Equal(t, wire.TypeBreakpointListOrHit, msg.Type)

		hit, ok := wire.ParseBreakpointAddr(msg.Payload)
		require.True(t, ok)
		assert.EqualValues(t, 0x4000, hit.Addr)
	case <-time.After(time.Second):
		t.Fatal("event handler never fired")
	}
}

func TestUnsolicitedPongIsSwallowedNotEmitted(t *testing.T) {
	connected := make(chan aespserver.ClientID, 1)
	del := &capturingDelegate{onConnect: func(id aespserver.ClientID) { connected <- id }}

	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	cli := aespclient.New(aespclient.Config{
		Host:  "127.0.0.1",
		Ports: aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
	})

	events := make(chan wire.Message, 1)
	cli.SetEventHandler(func(msg wire.Message) { events <- msg })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	t.Cleanup(func() { cli.Close() })

	var id aespserver.ClientID

	select {
	case id = <-connected:
	case <-time.After(time.Second):
		t.Fatal("client never connected")
	}

	// No one has a pending Ping() call, so this PONG is a stray/unsolicited
	// one: it must be swallowed, never delivered to the event handler.
	require.NoError(t, srv.Send(id, aespserver.Control, wire.NewMessage(wire.TypePong, nil)))

	select {
	case msg := <-events:
		t.Fatalf("unsolicited PONG was delivered to the event handler: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestErrorFailsPendingRequestAndInvokesErrorHandler(t *testing.T) {
	connected := make(chan aespserver.ClientID, 1)
	del := &capturingDelegate{onConnect: func(id aespserver.ClientID) { connected <- id }}

	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	cli := aespclient.New(aespclient.Config{
		Host:            "127.0.0.1",
		Ports:           aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
		ResponseTimeout: time.Second,
	})

	errs := make(chan wire.ErrorPayload, 1)
	cli.SetErrorHandler(func(p wire.ErrorPayload) { errs <- p })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	t.Cleanup(func() { cli.Close() })

	var id aespserver.ClientID

	select {
	case id = <-connected:
	case <-time.After(time.Second):
		t.Fatal("client never connected")
	}

	done := make(chan error, 1)

	go func() {
		_, err := cli.Status(ctx)
		done <- err
	}()

	// Give Status a moment to register its pending waiter before the server
	// answers with ERROR instead of STATUS.
	time.Sleep(50 * time.Millisecond)

	errPayload := wire.EncodeError(wire.ErrorPayload{Code: 7, Message: "boom"})
	require.NoError(t, srv.Send(id, aespserver.Control, wire.NewMessage(wire.TypeError, errPayload)))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("pending request did not fail fast on ERROR")
	}

	select {
	case p := <-errs:
		assert.EqualValues(t, 7, p.Code)
		assert.Equal(t, "boom", p.Message)
	case <-time.After(time.Second):
		t.Fatal("error handler never fired")
	}
}

func TestStateHandlerFiresOncePerConnectedTransition(t *testing.T) {
	del := &echoDelegate{}
	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)
	del.srv = srv

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	cli := aespclient.New(aespclient.Config{
		Host:  "127.0.0.1",
		Ports: aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
	})

	var transitions []aespclient.State

	cli.SetStateHandler(func(s aespclient.State) { transitions = append(transitions, s) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	require.NoError(t, cli.Close())

	// Connecting->Connected crosses into Connected; Connected->Disconnecting
	// crosses back out. The later Disconnecting->Disconnected transition
	// touches Connected on neither side, so it must not fire again.
	require.Len(t, transitions, 2)
	assert.Equal(t, aespclient.Connected, transitions[0])
	assert.Equal(t, aespclient.Disconnecting, transitions[1])
}

func TestConnectAtomicallyOpensRequestedStreamsAndRollsBackOnFailure(t *testing.T) {
	del := &echoDelegate{}
	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)
	del.srv = srv

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	goodCli := aespclient.New(aespclient.Config{
		Host:  "127.0.0.1",
		Ports: aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, goodCli.Connect(ctx, true, true))
	t.Cleanup(func() { goodCli.Close() })

	frames, err := goodCli.FrameStream(ctx)
	require.NoError(t, err)
	require.NotNil(t, frames)

	pcm, err := goodCli.AudioStream(ctx)
	require.NoError(t, err)
	require.NotNil(t, pcm)

	badCli := aespclient.New(aespclient.Config{
		Host:  "127.0.0.1",
		Ports: aespclient.Ports{Control: ports.Control, Video: freeTestPort(t), Audio: ports.Audio},
	})

	err = badCli.Connect(ctx, true, false)
	assert.Error(t, err)
	assert.Equal(t, aespclient.Disconnected, badCli.State())
}

func TestFrameStreamReturnsClosedChannelWhenVideoNotRequested(t *testing.T) {
	cli := startServerAndClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frames, err := cli.FrameStream(ctx)
	require.NoError(t, err)

	select {
	case _, ok := <-frames:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("FrameStream channel never closed for an unrequested video stream")
	}
}

func TestSendMessageWritesFireAndForget(t *testing.T) {
	received := make(chan wire.Message, 1)
	del := &capturingDelegate{onConnect: func(aespserver.ClientID) {}}

	ports := aespserver.Ports{Control: freeTestPort(t), Video: freeTestPort(t), Audio: freeTestPort(t)}
	srv := aespserver.New(aespserver.Config{Host: "127.0.0.1", Ports: ports}, del)

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	del.onMessage = func(msg wire.Message) { received <- msg }

	cli := aespclient.New(aespclient.Config{
		Host:  "127.0.0.1",
		Ports: aespclient.Ports{Control: ports.Control, Video: ports.Video, Audio: ports.Audio},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cli.Connect(ctx, false, false))
	t.Cleanup(func() { cli.Close() })

	require.NoError(t, cli.SendMessage(ctx, wire.NewMessage(wire.TypePause, nil)))

	select {
	case msg := <-received:
		assert.Equal(t, wire.TypePause, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("server never received the fire-and-forget message")
	}
}

type capturingDelegate struct {
	onConnect func(aespserver.ClientID)
	onMessage func(wire.Message)
}

func (d *capturingDelegate) OnMessage(_ context.Context, _ aespserver.ClientID, _ aespserver.Channel, msg wire.Message) error {
	if d.onMessage != nil {
		d.onMessage(msg)
	}

	return nil
}
func (d *capturingDelegate) OnConnect(id aespserver.ClientID, _ aespserver.Channel) { d.onConnect(id) }
func (d *capturingDelegate) OnDisconnect(aespserver.ClientID, aespserver.Channel)   {}
