package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	udping "github.com/pedramktb/go-udping"
	"github.com/spf13/cobra"
)

func respond(cancel context.CancelFunc) *cobra.Command {
	var host string
	var echoes int

	if cancel == nil {
		cancel = func() {}
	}

	cmd := &cobra.Command{
		Use:           "respond <port>",
		Short:         "Answer pings like a guest agent would.",
		Long:          "respond listens on <port>, echoes the first --echoes datagrams of every peer and then sends \"reply\".",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			port, err := udping.Port(args[0])
			if err != nil {
				return errors.Join(err, cmd.Usage())
			}
			return runRespond(ctx, cancel, net.JoinHostPort(host, strconv.Itoa(port)), echoes)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to listen on")
	cmd.Flags().IntVar(&echoes, "echoes", 0, "datagrams to echo before sending the sentinel")

	return cmd
}

func runRespond(ctx context.Context, cancel context.CancelFunc, addr string, echoes int) error {
	if echoes < 0 {
		return fmt.Errorf("--echoes must not be negative, got %d", echoes)
	}

	ln, err := udping.Listen(ctx, "udp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	r := &udping.Responder{Logger: slog.Default(), Echoes: echoes}

	go func() {
		if err := r.Serve(ctx, ln); err != nil && !errors.Is(err, udping.ErrResponderClosed) {
			slog.Error("serve error", "err", err)
			cancel()
		}
	}()

	slog.Info("udping responder started", "listen", ln.Addr().String(), "echoes", echoes)

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
	defer stop()
	_ = r.Shutdown(shutdownCtx)

	return nil
}
