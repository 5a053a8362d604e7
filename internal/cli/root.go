package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	udping "github.com/pedramktb/go-udping"
	"github.com/spf13/cobra"
)

const rootExample = `	udping 5555
	udping --interval 200ms --log debug 5555
	udping respond --echoes 3 5555`

type cfg struct {
	args []string
	out  io.Writer
	err  io.Writer
}

type Option func(*cfg)

func WithArgs(args []string) Option {
	return func(c *cfg) {
		c.args = args
	}
}

func WithOut(w io.Writer) Option {
	return func(c *cfg) {
		c.out = w
	}
}

func WithErr(w io.Writer) Option {
	return func(c *cfg) {
		c.err = w
	}
}

// Run executes the udping command tree and returns the process exit code.
func Run(ctx context.Context, cancel context.CancelFunc, opts ...Option) (exitCode int) {
	cfg := cfg{
		args: os.Args[1:],
		out:  os.Stdout,
		err:  os.Stderr,
	}

	for _, o := range opts {
		o(&cfg)
	}

	var logLevel string
	var host string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:           "udping <port>",
		Short:         "Ping a local UDP responder until it replies",
		Long:          "udping sends a ping datagram to 127.0.0.1:<port> and answers every datagram it gets back until the responder sends \"reply\".",
		Example:       rootExample,
		Version:       "dev",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cfg.err, &slog.HandlerOptions{Level: lvl})))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := udping.Port(args[0])
			if err != nil {
				return errors.Join(err, cmd.Usage())
			}
			p := udping.Pinger{
				Interval: interval,
				Logger:   slog.Default(),
				Out:      cmd.OutOrStdout(),
			}
			_, err = p.PingPort(cmd.Context(), host, port)
			return err
		},
	}

	cmd.SetArgs(cfg.args)
	cmd.SetOut(cfg.out)
	cmd.SetErr(cfg.err)

	cmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level: debug|info|warn|error")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "responder host")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "pause before every receive")

	cmd.AddCommand(respond(cancel))

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cfg.err, err)
		return 1
	}

	return 0
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
