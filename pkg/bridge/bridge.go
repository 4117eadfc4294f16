// Package bridge exposes observable values over HTTP.
//
// A Handler serves the current value as JSON to plain GET requests and
// streams changes to websocket clients:
//
//	{"type":"snapshot","value":1}
//	{"type":"change","old":1,"new":2}
//
// Each connection registers one weak change listener on the source. Frames
// are queued on a buffered channel drained by a per-connection writer; a
// client that falls a full buffer behind is disconnected so that setters
// never block on the network.
package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/propagate/pkg/observe"
)

// Frame types.
const (
	FrameSnapshot = "snapshot"
	FrameChange   = "change"
)

// SnapshotFrame carries the value at connection time.
type SnapshotFrame[T any] struct {
	Type  string `json:"type"`
	Value T      `json:"value"`
}

// ChangeFrame carries one value change.
type ChangeFrame[T any] struct {
	Type string `json:"type"`
	Old  T      `json:"old"`
	New  T      `json:"new"`
}

// Source is what a Handler can stream.
type Source[T any] interface {
	observe.Observable
	Value() T
	AddChangeListener(l observe.ChangeListener[T])
	RemoveChangeListener(l observe.ChangeListener[T])
}

// Config holds handler settings.
type Config struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// BufferSize is the number of frames queued per connection.
	// Default: 64
	BufferSize int

	// WriteTimeout bounds each websocket write.
	// Default: 10s
	WriteTimeout time.Duration

	// ReadBufferSize and WriteBufferSize size the websocket buffers.
	// Default: 1024
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the websocket Origin header. nil accepts
	// same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:      64,
		WriteTimeout:    10 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Option configures a Handler.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithBufferSize sets the per-connection frame buffer.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithWriteTimeout sets the websocket write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) { c.WriteTimeout = d }
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) { c.CheckOrigin = fn }
}

// Handler serves one observable.
type Handler[T any] struct {
	src      Source[T]
	config   Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

// Stream creates a handler for src.
func Stream[T any](src Source[T], opts ...Option) *Handler[T] {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[T]{
		src:    src,
		config: config,
		logger: logger.With("source", src.ID()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// Clients returns the number of connected websocket clients.
func (h *Handler[T]) Clients() int {
	return int(h.clients.Load())
}

// ServeHTTP streams to websocket clients and answers other requests with a
// snapshot frame.
func (h *Handler[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		h.serveSnapshot(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, h.config.BufferSize, h.config.WriteTimeout)
	h.clients.Add(1)
	defer h.clients.Add(-1)

	// Registering before reading the snapshot means no change can fall
	// between the two.
	listener := observe.WeakChange(c, func(c *client, src observe.Observable, old, new T) {
		c.send(ChangeFrame[T]{Type: FrameChange, Old: old, New: new})
	})
	h.src.AddChangeListener(listener)
	defer h.src.RemoveChangeListener(listener)

	c.send(SnapshotFrame[T]{Type: FrameSnapshot, Value: h.src.Value()})
	go c.writeLoop(h.logger)

	h.logger.Debug("client connected", "remote", r.RemoteAddr)
	c.readLoop(h.logger)
	h.logger.Debug("client disconnected", "remote", r.RemoteAddr)
}

func (h *Handler[T]) serveSnapshot(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SnapshotFrame[T]{Type: FrameSnapshot, Value: h.src.Value()}); err != nil {
		h.logger.Error("snapshot encode failed", "error", err)
	}
}

// Mount registers h under /ws/{name} on r.
func Mount(r chi.Router, name string, h http.Handler) {
	r.Method(http.MethodGet, "/ws/"+name, h)
}

// client is one websocket connection.
type client struct {
	conn         *websocket.Conn
	out          chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func newClient(conn *websocket.Conn, buffer int, writeTimeout time.Duration) *client {
	return &client{
		conn:         conn,
		out:          make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// send queues v. A full queue closes the connection. Nothing is encoded
// for a closed client.
func (c *client) send(v any) {
	if c.closed() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		observe.ReportFault(err)
		return
	}
	select {
	case <-c.done:
	case c.out <- data:
	default:
		c.close()
	}
}

func (c *client) writeLoop(logger *slog.Logger) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("write failed", "error", err)
				c.close()
				return
			}
		}
	}
}

// readLoop discards client messages until the connection fails. It keeps
// control frames flowing.
func (c *client) readLoop(logger *slog.Logger) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				logger.Error("read error", "error", err)
			}
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
