package udping

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrResponderClosed = errors.New("responder is shutting down")
)

// Responder plays the guest side of a ping session. Every peer gets its first Echoes
// datagrams sent back verbatim, then the Sentinel, after which its connection is closed.
// It is meant to be served on a listener from Listen so that each remote address
// arrives as its own net.Conn.
type Responder struct {
	Logger Logger
	// Echoes is the number of datagrams echoed before the sentinel is sent.
	Echoes int

	closing atomic.Bool

	mu sync.Mutex

	listeners     map[net.Listener]struct{}
	listenerGroup sync.WaitGroup

	conns map[net.Conn]struct{}
	peers sync.WaitGroup
}

func (r *Responder) Serve(ctx context.Context, listener net.Listener) error {
	if r.Logger == nil {
		r.Logger = slog.Default()
	}

	if !r.addListener(listener) {
		return ErrResponderClosed
	}
	defer r.removeListener(listener)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if r.closing.Load() {
				return ErrResponderClosed
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Logger.WarnContext(ctx, "error accepting peer", "error", err.Error())
			continue
		}
		if !r.addConn(conn) {
			_ = conn.Close()
			return ErrResponderClosed
		}
		go r.respond(ctx, conn)
	}
}

func (r *Responder) respond(ctx context.Context, conn net.Conn) {
	defer r.removeConn(conn)
	peer := conn.RemoteAddr().String()
	r.Logger.InfoContext(ctx, "peer connected", "addr", peer)

	buf := make([]byte, MaxDatagram)
	for echoed := 0; ; echoed++ {
		n, err := conn.Read(buf)
		if err != nil {
			if !r.closing.Load() {
				r.Logger.WarnContext(ctx, "error reading from peer", "addr", peer, "error", err.Error())
			}
			return
		}
		msg, err := Decode(buf[:n])
		if err != nil {
			r.Logger.WarnContext(ctx, "dropping peer", "addr", peer, "error", err.Error())
			return
		}
		r.Logger.DebugContext(ctx, "received", "addr", peer, "msg", msg)

		out := buf[:n]
		if echoed >= r.Echoes {
			out = []byte(Sentinel)
		}
		if _, err := conn.Write(out); err != nil {
			r.Logger.WarnContext(ctx, "error writing to peer", "addr", peer, "error", err.Error())
			return
		}
		if echoed >= r.Echoes {
			r.Logger.InfoContext(ctx, "sentinel sent", "addr", peer, "echoes", echoed)
			return
		}
	}
}

func (r *Responder) addListener(l net.Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[net.Listener]struct{})
	}
	if r.closing.Load() {
		return false
	}
	r.listeners[l] = struct{}{}
	r.listenerGroup.Add(1)
	return true
}

func (r *Responder) removeListener(l net.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, l)
	r.listenerGroup.Done()
}

func (r *Responder) addConn(c net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing.Load() {
		return false
	}
	if r.conns == nil {
		r.conns = make(map[net.Conn]struct{})
	}
	r.conns[c] = struct{}{}
	r.peers.Add(1)
	return true
}

func (r *Responder) removeConn(c net.Conn) {
	_ = c.Close()
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
	r.peers.Done()
}

func (r *Responder) closeListeners() error {
	r.mu.Lock()
	var err error
	for l := range r.listeners {
		if cErr := l.Close(); cErr != nil {
			err = errors.Join(err, cErr)
		}
	}
	r.mu.Unlock()
	return err
}

func (r *Responder) closeConns() {
	r.mu.Lock()
	for c := range r.conns {
		_ = c.Close()
	}
	r.mu.Unlock()
}

// Close stops the listeners and drops all active peers.
func (r *Responder) Close() error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := r.closeListeners()
	r.listenerGroup.Wait()
	r.closeConns()
	r.peers.Wait()
	return err
}

// Shutdown stops accepting new peers and waits for active ones to finish or for ctx,
// in which case remaining peers are dropped and the context error is returned.
func (r *Responder) Shutdown(ctx context.Context) error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := r.closeListeners()
	r.listenerGroup.Wait()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		r.mu.Lock()
		remaining := len(r.conns)
		r.mu.Unlock()
		if remaining == 0 {
			return err
		}
		select {
		case <-ctx.Done():
			r.closeConns()
			r.peers.Wait()
			return errors.Join(err, ctx.Err())
		case <-ticker.C:
		}
	}
}
