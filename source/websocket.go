package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"drowse/log"
)

const (
	WebsocketPath  = "/landmarks"
	frameQueueSize = 8
	readLimit      = 4 << 20
)

type wsMessage struct {
	frame Frame
	err   error
}

// Websocket accepts a single face-mesh sidecar connection and turns its
// messages into frames. A disconnect ends the stream with an error.
type Websocket struct {
	addr     string
	upgrader websocket.Upgrader

	srv      *http.Server
	ln       net.Listener
	frames   chan wsMessage
	ready    chan struct{}
	readyOne sync.Once
	done     chan struct{}

	mu        sync.Mutex
	fps       float64
	conn      *websocket.Conn
	connected bool
	closed    bool
}

func NewWebsocket(addr string) *Websocket {
	return &Websocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		frames: make(chan wsMessage, frameQueueSize),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (w *Websocket) Name() string { return "ws://" + w.Addr() + WebsocketPath }

// Addr is the bound listen address, useful when addr used port 0.
func (w *Websocket) Addr() string {
	if w.ln != nil {
		return w.ln.Addr().String()
	}
	return w.addr
}

func (w *Websocket) FPS() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fps
}

// Listen binds the server without waiting for a sidecar.
func (w *Websocket) Listen() error {
	if w.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", w.addr, err)
	}
	w.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(WebsocketPath, w.handle)
	w.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := w.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("landmark server: %v", err)
		}
	}()
	return nil
}

// Start listens and blocks until the sidecar has sent its first message.
func (w *Websocket) Start(ctx context.Context) error {
	if err := w.Listen(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ready:
		return nil
	}
}

func (w *Websocket) handle(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	busy := w.connected || w.closed
	if !busy {
		w.connected = true
	}
	w.mu.Unlock()
	if busy {
		http.Error(rw, "landmark source already connected", http.StatusConflict)
		return
	}

	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.mu.Lock()
		w.connected = false
		w.mu.Unlock()
		log.Warnf("landmark upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	conn.SetReadLimit(readLimit)
	log.Info("sidecar_connected: " + r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.markReady()
			w.push(wsMessage{err: fmt.Errorf("landmark sidecar disconnected: %w", err)})
			return
		}
		f, fps, header, err := decode(data)
		if err != nil {
			w.markReady()
			w.push(wsMessage{err: err})
			return
		}
		if fps > 0 {
			w.mu.Lock()
			w.fps = fps
			w.mu.Unlock()
		}
		w.markReady()
		if header {
			continue
		}
		if !w.push(wsMessage{frame: f}) {
			return
		}
	}
}

func (w *Websocket) markReady() {
	w.readyOne.Do(func() { close(w.ready) })
}

// push blocks until the loop takes the message, which throttles the sidecar
// while an alert is playing.
func (w *Websocket) push(m wsMessage) bool {
	select {
	case w.frames <- m:
		return true
	case <-w.done:
		return false
	}
}

func (w *Websocket) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-w.done:
		return Frame{}, ErrClosed
	case m := <-w.frames:
		return m.frame, m.err
	}
}

func (w *Websocket) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	if w.conn != nil {
		w.conn.Close()
	}
	w.mu.Unlock()

	if w.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return w.srv.Shutdown(ctx)
}
