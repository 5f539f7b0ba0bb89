// Command atticd is the AESP server: it listens on the Control, Video and
// Audio TCP ports (spec §4.3, §6) and on a per-process CLI Unix socket
// (spec §4.5), answering both against a single in-memory emulator
// fixture.
//
// Grounded on the teacher's src/appserver.go AppServerMain(), which parses
// a couple of pflag options, attaches to its TNC, and then blocks;
// atticd's main follows the same "parse flags, wire the server, block
// until signalled" shape, generalized to atticd's three listeners plus
// the CLI socket.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brutella/dnssd"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/huegli/atticd/internal/aespserver"
	"github.com/huegli/atticd/internal/atticdelegate"
	"github.com/huegli/atticd/internal/cliproto"
	"github.com/huegli/atticd/internal/clisocket"
	"github.com/huegli/atticd/internal/config"
	"github.com/huegli/atticd/internal/logx"
)

// dnsSDService is the service type atticd announces under when discovery
// is enabled, the AESP analogue of the teacher's dns_sd.go
// "_kiss-tnc._tcp".
const dnsSDService = "_aesp._tcp"

func main() {
	defaults := config.Default()

	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags := config.RegisterFlags(fs, defaults)

	help := fs.BoolP("help", "?", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Attic Emulator Server Protocol daemon\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if *help {
		fs.Usage()

		return
	}

	cfg, err := config.Load(*flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atticd: %v\n", err)
		os.Exit(1)
	}

	cfg = config.Apply(cfg, fs, flags)

	log := logx.New("atticd")
	if lvl, err := charmlog.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	em := atticdelegate.New(logx.New("emulator"))

	srv := aespserver.New(aespserver.Config{
		Host: cfg.Host,
		Ports: aespserver.Ports{
			Control: cfg.ControlPort,
			Video:   cfg.VideoPort,
			Audio:   cfg.AudioPort,
		},
		Log: log,
	}, em)
	em.AttachServer(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Error("failed to start AESP listeners", "err", err)
		os.Exit(1)
	}
	defer srv.Stop()

	log.Info("AESP listening", "host", cfg.Host,
		"control", cfg.ControlPort, "video", cfg.VideoPort, "audio", cfg.AudioPort)

	if cfg.Discovery {
		announceDNSSD(log, cfg.ControlPort)
	}

	socketPath := clisocket.SocketPath(os.Getpid())

	cliLn, err := clisocket.Listen(socketPath)
	if err != nil {
		log.Error("failed to open CLI socket", "path", socketPath, "err", err)
		os.Exit(1)
	}
	defer os.Remove(socketPath)
	defer cliLn.Close()

	log.Info("CLI socket listening", "path", socketPath)

	go serveCLI(ctx, log, em, cliLn)

	<-ctx.Done()
	log.Info("shutting down")
}

// announceDNSSD advertises atticd's control endpoint over mDNS/DNS-SD, the
// AESP counterpart of the teacher's dns_sd.go dns_sd_announce: build a
// dnssd.Config, register it with a dnssd.Responder, and run the responder
// in the background for the life of the process.
func announceDNSSD(log *logx.Logger, controlPort int) {
	cfg := dnssd.Config{ //nolint:exhaustruct
		Name: "atticd",
		Type: dnsSDService,
		Port: controlPort,
	}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		log.Warn("dns-sd: failed to create service", "err", err)

		return
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		log.Warn("dns-sd: failed to create responder", "err", err)

		return
	}

	if _, err := responder.Add(svc); err != nil {
		log.Warn("dns-sd: failed to register service", "err", err)

		return
	}

	log.Info("dns-sd: announcing", "type", dnsSDService, "port", controlPort)

	go func() {
		if err := responder.Respond(context.Background()); err != nil {
			log.Warn("dns-sd: responder stopped", "err", err)
		}
	}()
}

// serveCLI accepts CLI connections until ctx is cancelled, running each on
// its own goroutine, the way srv's acceptLoop runs one goroutine per AESP
// connection.
func serveCLI(ctx context.Context, log *logx.Logger, em *atticdelegate.Emulator, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Warn("CLI accept error", "err", err)

				return
			}
		}

		go serveCLIConn(log, em, conn)
	}
}

func serveCLIConn(log *logx.Logger, em *atticdelegate.Emulator, conn net.Conn) {
	defer conn.Close()

	lc := clisocket.NewLineConn(conn)

	for {
		line, err := lc.ReadLine()
		if err != nil {
			return
		}

		resp := handleCLILine(em, line)
		if err := lc.WriteLine(strings.TrimSuffix(cliproto.FormatResponse(resp), "\n")); err != nil {
			log.Warn("CLI write error", "err", err)

			return
		}
	}
}

const cliCommandPrefix = "CMD:"

func handleCLILine(em *atticdelegate.Emulator, line string) cliproto.Response {
	if len(line) < len(cliCommandPrefix) || line[:len(cliCommandPrefix)] != cliCommandPrefix {
		return cliproto.NewErr("missing CMD: prefix")
	}

	cmd, err := cliproto.Parse(line[len(cliCommandPrefix):])
	if err != nil {
		return cliproto.NewErr(err.Error())
	}

	return em.HandleCLI(cmd)
}
