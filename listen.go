package udping

import (
	"context"
	"net"
	"strings"

	pudp "github.com/pion/transport/v3/udp"
)

type listenCfg struct {
	net.ListenConfig
	packet pudp.ListenConfig
}

type ListenOption func(*listenCfg)

func WithListenConfig(cfg net.ListenConfig) ListenOption {
	return func(lc *listenCfg) {
		lc.ListenConfig = cfg
	}
}

// WithPacketListenConfig configures the per-peer UDP listener returned by Listen.
// An AcceptFilter already set on cfg is kept; Listen only adds its own when none is set.
func WithPacketListenConfig(cfg pudp.ListenConfig) ListenOption {
	return func(lc *listenCfg) {
		lc.packet = cfg
	}
}

// Listen returns a connection oriented listener. For udp networks every remote
// address becomes its own net.Conn, created by its first datagram.
func Listen(ctx context.Context, network, addr string, opts ...ListenOption) (net.Listener, error) {
	cfg := &listenCfg{}
	for _, o := range opts {
		o(cfg)
	}
	switch strings.Split(network, ":")[0] {
	case "udp", "udp4", "udp6":
		uaddr, err := net.ResolveUDPAddr(network, addr)
		if err != nil {
			return nil, err
		}
		if cfg.packet.AcceptFilter == nil {
			cfg.packet.AcceptFilter = acceptText
		}
		return cfg.packet.Listen(network, uaddr)
	default:
		return cfg.Listen(ctx, network, addr)
	}
}

// ListenPacket binds the client side socket. An empty addr binds an ephemeral port.
func ListenPacket(ctx context.Context, network, addr string, opts ...ListenOption) (net.PacketConn, error) {
	cfg := &listenCfg{}
	for _, o := range opts {
		o(cfg)
	}
	if addr == "" {
		addr = ":0"
	}
	return cfg.ListenConfig.ListenPacket(ctx, network, addr)
}

// acceptText drops first datagrams that are not text, so they never open a peer.
func acceptText(b []byte) bool {
	_, err := Decode(b)
	return err == nil
}
