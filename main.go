package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tdclient/internal/config"
	"tdclient/internal/relay"
	"tdclient/internal/td"
	"tdclient/internal/telegram"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tdclient",
	Short: "Log in to Telegram through TDLib and print incoming messages",
	Long: `tdclient drives a TDLib JSON client: it answers the login handshake,
prompting for phone number, code and password as needed, then prints every
new message. Press Ctrl+C to stop.

API_ID and API_HASH come from the environment, a .env file, or --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		if timeout > 0 {
			cfg.PollTimeout = timeout
		}
		logger, err = newLogger(cfg, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	RunE: runSession,
}

var executeCmd = &cobra.Command{
	Use:     "execute [json]",
	Short:   "Run one synchronous TDLib request and print the answer",
	Example: `  tdclient execute '{"@type":"getTextEntities","text":"@telegram /test_command"}'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runExecute,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "engine receive timeout per tick (overrides TD_WAIT_TIMEOUT)")
	rootCmd.AddCommand(executeCmd)
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if strings.EqualFold(cfg.LogFormat, "json") {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// syncLogger flushes buffered entries. Commands defer it themselves because
// cobra skips post-run hooks when RunE fails.
func syncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func newBinding() (*td.Binding, error) {
	native, err := td.NewNative(td.FatalHandler(logger.Named("tdlib")))
	if err != nil {
		return nil, err
	}
	return td.NewBinding(native, td.WithLogger(logger.Named("engine"))), nil
}

func runSession(cmd *cobra.Command, args []string) error {
	defer syncLogger()
	if err := cfg.Validate(); err != nil {
		return err
	}

	binding, err := newBinding()
	if err != nil {
		return err
	}

	handlers := []telegram.UpdateHandler{printMessages}
	if cfg.Relay.BotToken != "" {
		r, err := relay.New(cfg.Relay.BotToken, cfg.Relay.ChatID, logger.Named("relay"))
		if err != nil {
			binding.Destroy()
			return err
		}
		handlers = append(handlers, r.HandleUpdate)
	}

	session, err := telegram.NewSession(cfg, binding,
		telegram.NewConsoleInput(os.Stdin, os.Stderr),
		telegram.WithLogger(logger.Named("session")),
		telegram.WithUpdateHandler(func(ev *td.Event) {
			for _, h := range handlers {
				h(ev)
			}
		}),
	)
	if err != nil {
		binding.Destroy()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("session starting", zap.String("database_directory", cfg.DatabaseDirectory))
	if err := session.Run(ctx); err != nil {
		if errors.Is(err, telegram.ErrSessionClosed) {
			logger.Error("session closed by tdlib, start a new one")
		}
		return err
	}
	logger.Info("session stopped")
	return nil
}

func printMessages(ev *td.Event) {
	if ev.Type == td.TypeUpdateNewMessage {
		fmt.Println(string(ev.Raw))
	}
}

func runExecute(cmd *cobra.Command, args []string) error {
	defer syncLogger()
	binding, err := newBinding()
	if err != nil {
		return err
	}
	defer binding.Destroy()

	ev, err := td.Decode([]byte(args[0]))
	if err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	res, err := binding.Execute(td.NewRequest(ev.Type, ev.Payload))
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("engine returned no answer")
	}
	fmt.Println(string(res.Raw))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
