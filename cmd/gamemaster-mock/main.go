// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gamemaster-mock is a stand-in for the operator console. It serves
// the gamemaster websocket protocol on --listen (path /ws), prints a
// one-line summary of every frame a game sends, and broadcasts lines
// typed on stdin to every connected game:
//
//	cmd start_screen
//	cmd set_code {"code":"admin"}
//	audio:master-volume {"volume":0.4}
//	kick     drop every connection (games reconnect)
//	peers    list connected games
//
// It is meant for bench testing a game client without the real
// backoffice.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/console"
	"github.com/bureau-foundation/gamemaster/lib/logging"
	"github.com/bureau-foundation/gamemaster/lib/process"
	"github.com/bureau-foundation/gamemaster/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		listen     string
		codecName  string
		logLevel   string
		showHelp   bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("gamemaster-mock", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "127.0.0.1:3000", "address to serve the console websocket on")
	flagSet.StringVar(&codecName, "codec", "json", "frame encoding preferred when a game offers several (json or cbor)")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level for connection diagnostics")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if showHelp {
		fmt.Fprintf(os.Stdout, "usage: gamemaster-mock [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if showVersion {
		version.Print("gamemaster-mock")
		return nil
	}

	preferred, err := codec.ByName(codecName)
	if err != nil {
		return err
	}
	logger, err := logging.New(logLevel, "auto", os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}
	fmt.Fprintf(os.Stdout, "console listening on ws://%s/ws (codec %s)\n", listener.Addr(), preferred.Name())

	mock := newMock(preferred, logger, os.Stdout)
	return mock.serve(ctx, listener, os.Stdin)
}

// mock couples a console server to a line-oriented operator terminal.
type mock struct {
	server *console.Server
	logger *slog.Logger

	outMu sync.Mutex
	out   io.Writer
}

func newMock(preferred codec.Codec, logger *slog.Logger, out io.Writer) *mock {
	server := console.New(logger)
	server.Prefer(preferred)
	return &mock{server: server, logger: logger, out: out}
}

func (m *mock) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", m.server)
	return mux
}

// serve runs until ctx is cancelled. Operator input ending does not
// stop the server, so the mock can run with stdin closed.
func (m *mock) serve(ctx context.Context, listener net.Listener, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	httpServer := &http.Server{Handler: m.handler(), ReadHeaderTimeout: 10 * time.Second}

	var wg sync.WaitGroup
	wg.Go(func() { m.printInbound(ctx) })
	wg.Go(func() { m.printPeers(ctx) })
	go m.readCommands(in)

	serveDone := make(chan error, 1)
	go func() { serveDone <- httpServer.Serve(listener) }()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if !errors.Is(err, http.ErrServerClosed) {
			cancel()
			m.server.Close()
			wg.Wait()
			return fmt.Errorf("serving console: %w", err)
		}
	}

	shutdownContext, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	m.server.KickAll()
	m.server.Close()
	if err := httpServer.Shutdown(shutdownContext); err != nil {
		m.logger.Warn("console shutdown", "error", err)
	}
	cancel()
	wg.Wait()
	return nil
}

func (m *mock) printInbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-m.server.Inbound():
			m.printf("< %s %s\n", shortID(frame.Peer), console.Summarize(frame.Message))
		}
	}
}

func (m *mock) printPeers(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.server.Events():
			if event.Connected {
				m.printf("+ %s connected (%s)\n", shortID(event.Peer), event.Codec)
			} else {
				m.printf("- %s disconnected\n", shortID(event.Peer))
			}
		}
	}
}

func (m *mock) readCommands(in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		m.execute(scanner.Text())
	}
}

// execute handles one operator line.
func (m *mock) execute(line string) {
	switch strings.TrimSpace(line) {
	case "":
		return
	case "kick":
		m.printf("kicked %d\n", m.server.KickAll())
		return
	case "peers":
		peers := m.server.Peers()
		short := make([]string, len(peers))
		for index, peer := range peers {
			short[index] = shortID(peer)
		}
		m.printf("%d connected [%s]\n", len(peers), strings.Join(short, " "))
		return
	}

	channel, payload, err := console.ParseLine(line)
	if err != nil {
		m.printf("! %v\n", err)
		return
	}
	delivered := m.server.Broadcast(channel, payload)
	m.printf("> %s to %d\n", channel, delivered)
}

func (m *mock) printf(format string, args ...any) {
	m.outMu.Lock()
	defer m.outMu.Unlock()
	fmt.Fprintf(m.out, format, args...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
