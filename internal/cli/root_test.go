package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	udping "github.com/pedramktb/go-udping"
	"github.com/stretchr/testify/require"
)

func responder(t *testing.T, echoes int) int {
	t.Helper()
	ln, err := udping.Listen(context.Background(), "udp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &udping.Responder{Logger: discard(), Echoes: echoes}
	go func() { _ = r.Serve(context.Background(), ln) }()
	t.Cleanup(func() { _ = r.Close() })
	return ln.Addr().(*net.UDPAddr).Port
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(ctx context.Context, args ...string) (int, string, string) {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	var out, errb bytes.Buffer
	code := Run(ctx, nil, WithArgs(args), WithOut(&out), WithErr(&errb))
	return code, out.String(), errb.String()
}

func TestRun_PingPass(t *testing.T) {
	port := responder(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	code, out, errOut := run(ctx, "--interval", "5ms", strconv.Itoa(port))
	require.Equal(t, 0, code, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "('127.0.0.1', "+strconv.Itoa(port)+")", lines[0])
	require.Equal(t, "receive the reply from qemu ('127.0.0.1', "+strconv.Itoa(port)+"), reply: this is a ping!", lines[1])
	require.Equal(t, "receive the reply from qemu ('127.0.0.1', "+strconv.Itoa(port)+")", lines[2])
	require.Equal(t, "test pass!", lines[3])
	require.Contains(t, errOut, "pinging...")
}

func TestRun_ArgumentErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing port", nil, "accepts 1 arg(s), received 0"},
		{"non numeric port", []string{"abc"}, "invalid port"},
		{"port out of range", []string{"70000"}, "invalid port"},
		{"too many args", []string{"1", "2"}, "accepts 1 arg(s), received 2"},
		{"bad log level", []string{"--log", "loud", "5555"}, `invalid log level "loud"`},
		{"negative echoes", []string{"respond", "--echoes", "-1", "5555"}, "--echoes must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := run(context.Background(), tc.args...)
			require.Equal(t, 1, code)
			require.Contains(t, errOut, tc.want)
		})
	}
}

func TestRun_Respond(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())

	ctx, cancel := context.WithCancel(context.Background())
	codeCh := make(chan int, 1)
	go func() {
		code, _, _ := run(ctx, "respond", "--echoes", "0", strconv.Itoa(port))
		codeCh <- code
	}()

	// the responder may not be bound yet, so retry short sessions
	var res udping.Result
	require.Eventually(t, func() bool {
		attempt, stop := context.WithTimeout(ctx, 300*time.Millisecond)
		defer stop()
		p := udping.Pinger{Interval: time.Millisecond, Logger: discard(), Out: &bytes.Buffer{}}
		res, err = p.PingPort(attempt, "127.0.0.1", port)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, 1, res.Received)

	cancel()
	select {
	case code := <-codeCh:
		require.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("respond did not exit after cancel")
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]string{"": "INFO", "debug": "DEBUG", " WARN ": "WARN", "warning": "WARN", "error": "ERROR"} {
		lvl, err := parseLogLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, lvl.String())
	}
	_, err := parseLogLevel("trace")
	require.Error(t, err)
}
