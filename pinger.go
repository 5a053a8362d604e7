/*
Pinger drives a ping session with a single UDP responder, typically an agent inside a
virtual machine guest.

The session opens with PingPayload sent to the target. From then on the pinger waits for
datagrams: the Sentinel ends the session successfully, anything else is reported and
answered with FormatPing(counter) to whoever sent it. There is no receive timeout; the
session only ends on the sentinel, an error, or cancellation of the context.

	p := udping.Pinger{}
	res, err := p.PingPort(ctx, "127.0.0.1", 5555)
*/
package udping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"
)

// State of a ping session.
type State int

const (
	StateWaiting State = iota
	StateDone
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateDone:
		return "done"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Result summarizes a session that ended on the sentinel.
type Result struct {
	// Peer sent the sentinel.
	Peer net.Addr
	// Received counts every datagram read, the sentinel included.
	Received int
	// Sent counts every datagram written, the initial ping included.
	Sent int
}

type Pinger struct {
	// Interval paces the loop before every receive. Defaults to one second.
	Interval time.Duration
	// BufSize bounds a single received datagram. Defaults to MaxDatagram.
	BufSize int
	Logger  Logger
	// Out receives the human readable report. Defaults to os.Stdout.
	Out io.Writer
}

func (p *Pinger) defaults() {
	if p.Interval <= 0 {
		p.Interval = time.Second
	}
	if p.BufSize <= 0 {
		p.BufSize = MaxDatagram
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
}

// PingPort binds an ephemeral UDP socket and runs Ping against host:port.
func (p *Pinger) PingPort(ctx context.Context, host string, port int) (Result, error) {
	target, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return Result{}, fmt.Errorf("resolve target: %w", err)
	}
	conn, err := ListenPacket(ctx, "udp", "")
	if err != nil {
		return Result{}, fmt.Errorf("bind: %w", err)
	}
	defer conn.Close()
	return p.Ping(ctx, conn, target)
}

// Ping runs one session over conn. conn is not closed.
func (p *Pinger) Ping(ctx context.Context, conn net.PacketConn, target net.Addr) (Result, error) {
	p.defaults()

	var res Result
	state := StateWaiting

	// Unblock a pending read once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	fmt.Fprintln(p.Out, FormatAddr(target))
	p.Logger.InfoContext(ctx, "pinging...", "target", target.String(), "local", conn.LocalAddr().String())
	if _, err := conn.WriteTo([]byte(PingPayload), target); err != nil {
		return res, fmt.Errorf("send ping to %s: %w", target, err)
	}
	res.Sent++

	buf := make([]byte, p.BufSize)
	counter := 0
	for state == StateWaiting {
		if err := sleep(ctx, p.Interval); err != nil {
			return res, err
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return res, errors.Join(ctx.Err(), err)
			}
			return res, fmt.Errorf("receive: %w", err)
		}
		res.Received++

		msg, err := Decode(buf[:n])
		if err != nil {
			p.Logger.ErrorContext(ctx, "undecodable datagram", "from", from.String(), "size", n)
			return res, fmt.Errorf("datagram from %s: %w", from, err)
		}

		if IsSentinel(msg) {
			fmt.Fprintf(p.Out, "receive the reply from qemu %s\n", FormatAddr(from))
			fmt.Fprintln(p.Out, "test pass!")
			res.Peer = from
			state = StateDone
			continue
		}

		fmt.Fprintf(p.Out, "receive the reply from qemu %s, reply: %s\n", FormatAddr(from), msg)
		if _, err := conn.WriteTo(FormatPing(counter), from); err != nil {
			return res, fmt.Errorf("send ping %d to %s: %w", counter, from, err)
		}
		p.Logger.DebugContext(ctx, "ping sent", "to", from.String(), "counter", counter)
		res.Sent++
		counter++
	}

	p.Logger.InfoContext(ctx, "ping session finished", "peer", res.Peer.String(), "received", res.Received, "sent", res.Sent)
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
