// Package relay serves world snapshots to viewers over websocket text frames.
// Snapshots come from Publish or from a looping replay; each broadcast is
// stamped with the next sequence number.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/shared/world"
	"github.com/coder/websocket"
)

const (
	peerBuffer   = 16
	writeTimeout = 5 * time.Second
)

// peer is one connected viewer. Its writer goroutine drains out.
type peer struct {
	id     string
	out    chan []byte
	cancel context.CancelFunc
}

// Relay fans snapshots out to every connected viewer. A viewer that falls
// more than peerBuffer frames behind, or whose write fails, is dropped.
type Relay struct {
	path     string
	sessions *Registry
	source   network.Source

	mu     sync.Mutex
	peers  map[string]*peer
	latest []byte
	seq    uint64
	server *http.Server

	published atomic.Uint64
}

// New creates a relay serving websocket viewers on path. source may be nil
// when snapshots are pushed with Publish only.
func New(path string, source network.Source) *Relay {
	if path == "" {
		path = "/ws"
	}
	r := &Relay{
		path:     path,
		sessions: NewRegistry(),
		source:   source,
		peers:    make(map[string]*peer),
	}
	if source != nil {
		source.OnWorldState(r.Publish)
	}
	return r
}

// Handler returns the relay's HTTP routes.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+r.path, r.serveWS)
	mux.HandleFunc("GET /health", Health(r))
	mux.HandleFunc("GET /sessions", ListSessions(r.sessions))
	return mux
}

// Start connects the configured source, if any.
func (r *Relay) Start(ctx context.Context) error {
	if r.source == nil {
		return nil
	}
	if err := r.source.Connect(ctx); err != nil {
		return fmt.Errorf("start relay source: %w", err)
	}
	return nil
}

// ListenAndServe starts the source and serves on port until Stop.
func (r *Relay) ListenAndServe(ctx context.Context, port uint) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.mu.Lock()
	r.server = srv
	r.mu.Unlock()

	log.Printf("[relay] serving %s on %s", r.path, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay listen: %w", err)
	}
	return nil
}

// Publish stamps s with the next sequence number and queues it for every
// viewer.
func (r *Relay) Publish(s *world.State) {
	if s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	data, err := world.Encode(s.WithSeq(r.seq))
	if err != nil {
		log.Printf("[relay] %v", err)
		return
	}
	r.latest = data
	r.published.Add(1)

	for id, p := range r.peers {
		select {
		case p.out <- data:
		default:
			log.Printf("[relay] dropping slow viewer %s", id)
			r.removeLocked(id)
		}
	}
}

// Published returns the number of snapshots broadcast.
func (r *Relay) Published() uint64 {
	return r.published.Load()
}

// Sessions returns the connected viewer registry.
func (r *Relay) Sessions() *Registry {
	return r.sessions
}

func (r *Relay) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		log.Printf("[relay] accept: %v", err)
		return
	}
	defer conn.CloseNow()

	// Viewers never send; CloseRead notices when they go away.
	ctx, cancel := context.WithCancel(conn.CloseRead(req.Context()))
	defer cancel()

	p := &peer{
		id:     r.sessions.Add(req.RemoteAddr),
		out:    make(chan []byte, peerBuffer),
		cancel: cancel,
	}

	r.mu.Lock()
	r.peers[p.id] = p
	if r.latest != nil {
		p.out <- r.latest
	}
	r.mu.Unlock()
	log.Printf("[relay] viewer %s connected from %s", p.id, req.RemoteAddr)

	err = r.writeLoop(ctx, conn, p)

	r.mu.Lock()
	r.removeLocked(p.id)
	r.mu.Unlock()

	if err != nil && !network.IsClosed(err) {
		log.Printf("[relay] viewer %s: %v", p.id, err)
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Printf("[relay] viewer %s disconnected", p.id)
}

func (r *Relay) writeLoop(ctx context.Context, conn *websocket.Conn, p *peer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-p.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
			r.sessions.MarkSent(p.id)
		}
	}
}

func (r *Relay) removeLocked(id string) {
	p, ok := r.peers[id]
	if !ok {
		return
	}
	delete(r.peers, id)
	r.sessions.Remove(id)
	p.cancel()
}

// Stop disconnects the source and every viewer and shuts the HTTP server down.
func (r *Relay) Stop(ctx context.Context) error {
	if r.source != nil {
		r.source.Disconnect()
	}

	r.mu.Lock()
	for id := range r.peers {
		r.removeLocked(id)
	}
	srv := r.server
	r.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
