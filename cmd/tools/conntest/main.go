package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/config"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
)

type options struct {
	message string
	userID  string
	timeout time.Duration
}

// backend is the gateway surface the tester drives.
type backend interface {
	Info() gateway.Info
	CheckHealth(ctx context.Context) gateway.Health
	Send(ctx context.Context, text, userID string) (gateway.Result, error)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var client backend

	root := &cobra.Command{
		Use:   "conntest",
		Short: "Check the connection to the PSTI chatbot backend",
		Long:  "Prints the resolved endpoints, probes /health and sends a test message to /chat.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log)
			client = gateway.New(cfg.Backend)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(cmd.Context(), cmd.OutOrStdout(), client, opts)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.message, "message", "m", "test", "message sent to /chat")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "userId sent with the message (default from CHATBOT_USER_ID)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "timeout for each request")

	root.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Print the resolved backend endpoints",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printInfo(cmd.OutOrStdout(), client)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Probe the backend health endpoint",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHealth(cmd.Context(), cmd.OutOrStdout(), client, opts)
			},
		},
		&cobra.Command{
			Use:   "send [message]",
			Short: "Send one message to the chat endpoint",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 1 {
					opts.message = args[0]
				}
				return runSend(cmd.Context(), cmd.OutOrStdout(), client, opts)
			},
		},
	)
	return root
}

func runAll(ctx context.Context, out io.Writer, client backend, opts *options) error {
	if err := printInfo(out, client); err != nil {
		return err
	}
	if err := runHealth(ctx, out, client, opts); err != nil {
		return err
	}
	return runSend(ctx, out, client, opts)
}

func printInfo(out io.Writer, client backend) error {
	fmt.Fprintln(out, "API info:")
	return writeJSON(out, client.Info())
}

func runHealth(ctx context.Context, out io.Writer, client backend, opts *options) error {
	ctx, cancel := withTimeout(ctx, opts.timeout)
	defer cancel()

	health := client.CheckHealth(ctx)
	fmt.Fprintln(out, "Health check:")
	if err := writeJSON(out, health); err != nil {
		return err
	}
	if !health.Available {
		return fmt.Errorf("backend unavailable")
	}
	return nil
}

func runSend(ctx context.Context, out io.Writer, client backend, opts *options) error {
	ctx, cancel := withTimeout(ctx, opts.timeout)
	defer cancel()

	result, err := client.Send(ctx, opts.message, opts.userID)
	if err != nil {
		log.Error().Err(err).Msg("test message failed")
		fmt.Fprintln(out, gateway.HintFor(err))
		return err
	}
	fmt.Fprintln(out, "Test message:")
	return writeJSON(out, result)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
