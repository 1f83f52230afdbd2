// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/gamemaster/lib/codec"
)

// ErrUnknownPeer is returned when sending to a peer that is not
// connected.
var ErrUnknownPeer = errors.New("console: unknown peer")

const (
	writeWait     = 10 * time.Second
	inboundBuffer = 1024
)

// Frame is one inbound frame and the peer it came from.
type Frame struct {
	Peer    string
	Message codec.Message
}

// PeerEvent reports a peer connecting or disconnecting.
type PeerEvent struct {
	Peer      string
	Connected bool
	Codec     string
}

// Server is an operator console endpoint. It implements http.Handler.
type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	inbound chan Frame
	events  chan PeerEvent
	closed  chan struct{}
	once    sync.Once

	mu        sync.Mutex
	peers     map[string]*peer
	order     []string
	preferred codec.Codec
}

type peer struct {
	id      string
	ws      *websocket.Conn
	codec   codec.Codec
	writeMu sync.Mutex
}

// New returns a Server that logs on logger.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		logger: logger.With("component", "console"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		inbound: make(chan Frame, inboundBuffer),
		events:  make(chan PeerEvent, inboundBuffer),
		closed:  make(chan struct{}),
		peers:   make(map[string]*peer),
	}
}

// Prefer selects c when a connecting peer offers it among several
// subprotocols. Without a preference the peer's first known offer
// wins.
func (s *Server) Prefer(c codec.Codec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferred = c
}

// Inbound delivers every frame received from any peer, in arrival
// order per peer.
func (s *Server) Inbound() <-chan Frame {
	return s.inbound
}

// Events delivers peer connect and disconnect notifications.
func (s *Server) Events() <-chan PeerEvent {
	return s.events
}

// Peers lists connected peer ids in connection order.
func (s *Server) Peers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// ServeHTTP upgrades the request and serves the peer until it
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chosen := s.negotiate(websocket.Subprotocols(r))
	header := http.Header{}
	if len(websocket.Subprotocols(r)) > 0 {
		header.Set("Sec-Websocket-Protocol", chosen.Subprotocol())
	}
	ws, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := &peer{id: uuid.NewString(), ws: ws, codec: chosen}
	s.mu.Lock()
	s.peers[p.id] = p
	s.order = append(s.order, p.id)
	s.mu.Unlock()
	s.logger.Info("peer connected", "peer", p.id, "remote", r.RemoteAddr, "codec", chosen.Name())
	s.notify(PeerEvent{Peer: p.id, Connected: true, Codec: chosen.Name()})

	defer func() {
		s.mu.Lock()
		delete(s.peers, p.id)
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == p.id })
		s.mu.Unlock()
		ws.Close()
		s.logger.Info("peer disconnected", "peer", p.id)
		s.notify(PeerEvent{Peer: p.id, Connected: false, Codec: chosen.Name()})
	}()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		frameCodec := codec.JSON
		if messageType == websocket.BinaryMessage {
			frameCodec = codec.CBOR
		}
		message, err := frameCodec.DecodeFrame(data)
		if err != nil {
			s.logger.Warn("dropping malformed frame", "peer", p.id, "error", err)
			continue
		}
		select {
		case s.inbound <- Frame{Peer: p.id, Message: message}:
		case <-s.closed:
			return
		}
	}
}

func (s *Server) negotiate(offers []string) codec.Codec {
	s.mu.Lock()
	preferred := s.preferred
	s.mu.Unlock()

	var chosen codec.Codec
	for _, offered := range offers {
		candidate := codec.BySubprotocol(offered)
		if candidate == nil {
			continue
		}
		if preferred != nil && candidate.Name() == preferred.Name() {
			return candidate
		}
		if chosen == nil {
			chosen = candidate
		}
	}
	if chosen == nil {
		return codec.JSON
	}
	return chosen
}

// Send writes one frame to a single peer.
func (s *Server) Send(peerID, channel string, payload any) error {
	s.mu.Lock()
	p := s.peers[peerID]
	s.mu.Unlock()
	if p == nil {
		return fmt.Errorf("%w %q", ErrUnknownPeer, peerID)
	}
	return p.write(channel, payload)
}

// Broadcast writes one frame to every connected peer and reports how
// many writes succeeded.
func (s *Server) Broadcast(channel string, payload any) int {
	s.mu.Lock()
	targets := make([]*peer, 0, len(s.order))
	for _, id := range s.order {
		targets = append(targets, s.peers[id])
	}
	s.mu.Unlock()

	delivered := 0
	for _, p := range targets {
		if err := p.write(channel, payload); err != nil {
			s.logger.Warn("broadcast write failed", "peer", p.id, "channel", channel, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// KickAll closes every peer connection without a close handshake and
// reports how many were closed.
func (s *Server) KickAll() int {
	s.mu.Lock()
	targets := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		targets = append(targets, p)
	}
	s.mu.Unlock()
	for _, p := range targets {
		p.ws.Close()
	}
	return len(targets)
}

// Close drops every peer and stops delivering inbound frames.
func (s *Server) Close() {
	s.once.Do(func() { close(s.closed) })
	s.KickAll()
}

func (s *Server) notify(event PeerEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Debug("peer event dropped", "peer", event.Peer, "connected", event.Connected)
	}
}

func (p *peer) write(channel string, payload any) error {
	data, err := p.codec.EncodeFrame(channel, payload)
	if err != nil {
		return err
	}
	messageType := websocket.TextMessage
	if p.codec.Binary() {
		messageType = websocket.BinaryMessage
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:realclock socket deadline
	return p.ws.WriteMessage(messageType, data)
}
