package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gorilla/websocket"
	"log/slog"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
)

// Handler answers one decoded request frame with a response payload, a
// response RequestType, and whether the request succeeded (GenericResponse's
// status field).
type Handler func(ctx context.Context, req Frame) (payload any, respType RequestType, err error)

// Dispatcher routes frames to per-type handlers and broadcasts breakpoint
// hits and monitor samples to subscribed connections via an in-process
// pub/sub bus, grounded on debug.cc's single dispatch switch over
// Request::type() but split into a registration table - the Go idiom the
// teacher itself uses for its cobra command tree rather than a switch
// ladder.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[RequestType]Handler
	bus      *gochannel.GoChannel
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher with an empty handler table and a fresh
// in-memory pub/sub bus for breakpoint-hit and watch-value broadcast topics.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	return &Dispatcher{
		handlers: make(map[RequestType]Handler),
		bus:      bus,
		logger:   logger,
	}
}

// Handle registers the handler for a request type. Call once per type in
// spec.md 4.6's exhaustive list during orchestrator setup.
func (d *Dispatcher) Handle(t RequestType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = h
}

// Dispatch decodes one wire frame, routes it to its registered handler, and
// encodes the response frame. An unknown type or a handler error both
// produce a GenericResponse carrying StatusError, per proto.hh's
// ErrorRequest/error response convention.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) []byte {
	frame, err := DecodeFrame(raw)
	if err != nil {
		return d.errorFrame("", err)
	}
	if !frame.Request {
		return d.errorFrame(frame.Token, hgdberr.MakeError(hgdberr.ErrTransportIO, "not a request frame"))
	}

	d.mu.RLock()
	h, ok := d.handlers[frame.Type]
	d.mu.RUnlock()
	if !ok {
		return d.errorFrame(frame.Token, hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown request type %q", frame.Type))
	}

	payload, respType, err := h(ctx, frame)
	if err != nil {
		return d.errorFrame(frame.Token, err)
	}
	out, encErr := d.responseFrame(frame.Token, respType, payload)
	if encErr != nil {
		return d.errorFrame(frame.Token, encErr)
	}
	return out
}

func (d *Dispatcher) errorFrame(token string, err error) []byte {
	resp := GenericResponse{Status: StatusError, Reason: err.Error()}
	out, encErr := d.responseFrame(token, TypeError, resp)
	if encErr != nil {
		d.logger.Error("failed to encode error response", "err", encErr)
		return nil
	}
	return out
}

func (d *Dispatcher) responseFrame(token string, respType RequestType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, hgdberr.MakeError(hgdberr.ErrTransportIO, "marshal response payload: %v", err)
	}
	return EncodeFrame(Frame{Request: false, Type: respType, Token: token, Payload: raw})
}

// WatchTopic is the pub/sub topic name a "watch-<id>" client subscribes to
// for monitor sample broadcasts, per spec.md 4.6.
func WatchTopic(id uint64) string {
	return fmt.Sprintf("watch-%d", id)
}

// BreakpointHitTopic is the single topic every connected client subscribes
// to for breakpoint-hit broadcasts.
const BreakpointHitTopic = "breakpoint-hit"

// PublishMonitorValue broadcasts one watch sample to WatchTopic(id)
// subscribers. Silently drops the value if nobody is subscribed (a
// gochannel publish with no subscriber is a no-op, matching the original's
// "nobody asked, nobody told" monitor semantics).
func (d *Dispatcher) PublishMonitorValue(ctx context.Context, v MonitorValueResponse) error {
	return d.publish(ctx, WatchTopic(v.ID), v)
}

// PublishBreakpointHit broadcasts a breakpoint-hit response to every
// connection subscribed to BreakpointHitTopic.
func (d *Dispatcher) PublishBreakpointHit(ctx context.Context, hit *BreakpointHitResponse) error {
	return d.publish(ctx, BreakpointHitTopic, hit)
}

func (d *Dispatcher) publish(ctx context.Context, topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return hgdberr.MakeError(hgdberr.ErrTransportIO, "marshal broadcast payload: %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	return d.bus.Publish(topic, msg)
}

// Subscribe returns a channel of the messages published to topic, each
// carrying the raw payload bytes,
// following watermill's pull-based subscriber model; callers forward each
// message to their connection's write loop and Ack it.
func (d *Dispatcher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return d.bus.Subscribe(ctx, topic)
}

// Close shuts down the pub/sub bus.
func (d *Dispatcher) Close() error {
	return d.bus.Close()
}

// Listener accepts TCP connections, decoding and dispatching one JSON frame
// at a time from the connection's stream of JSON values and writing each
// response as one newline-terminated JSON line (grounded on proto.cc's
// line-oriented socket read loop).
type Listener struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewListener builds a Listener bound to dispatcher.
func NewListener(dispatcher *Dispatcher, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{dispatcher: dispatcher, logger: logger}
}

// Serve accepts connections on ln until ctx is cancelled, handling each on
// its own goroutine.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return hgdberr.MakeError(hgdberr.ErrTransportIO, "accept: %v", err)
			}
		}
		go l.serveConn(ctx, conn)
	}
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return
		}
		out := l.dispatcher.Dispatch(ctx, raw)
		if out == nil {
			continue
		}
		var frame Frame
		if err := json.Unmarshal(out, &frame); err != nil {
			l.logger.Error("re-decode of dispatched response failed", "err", err)
			continue
		}
		if err := enc.Encode(frame); err != nil {
			return
		}
	}
}

// WSUpgrader upgrades HTTP connections to websocket and drives the same
// Dispatcher, for browser-based clients (spec.md's "TCP or websocket"
// transport choice, mirroring the original's WSServer alongside TCPServer).
type WSUpgrader struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWSUpgrader builds a WSUpgrader bound to dispatcher.
func NewWSUpgrader(dispatcher *Dispatcher, logger *slog.Logger) *WSUpgrader {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSUpgrader{
		dispatcher: dispatcher,
		logger:     logger,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// ServeHTTP upgrades the connection and runs the same dispatch loop as a
// plain TCP connection, one JSON frame per websocket text message.
func (u *WSUpgrader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		out := u.dispatcher.Dispatch(ctx, raw)
		if out == nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}
