// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Sidequest-client runs the Sidequest escape-room game headless and
// keeps it connected to the operator console.
//
// Configuration comes from a YAML file (--config or
// GAMEMASTER_CONFIG), GAMEMASTER_* environment variables, and a .env
// file in the working directory, in increasing precedence, with the
// flags below on top. See lib/config for the keys.
//
// With --monitor the process shows a terminal view of the game: the
// console connection, the screen the players see, the password field
// (type and press enter to submit), the current transfer task (space
// to progress), audio state and recent log lines.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gamemaster/lib/audio"
	"github.com/bureau-foundation/gamemaster/lib/config"
	"github.com/bureau-foundation/gamemaster/lib/logging"
	"github.com/bureau-foundation/gamemaster/lib/process"
	"github.com/bureau-foundation/gamemaster/lib/version"
)

// tailLines is how many log records the monitor keeps.
const tailLines = 200

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	configPath string
	url        string
	codec      string
	logLevel   string
	logOutput  string
	noAudio    bool
	monitor    bool
	version    bool
	help       bool
}

func parseFlags(args []string) (*flags, *pflag.FlagSet, error) {
	parsed := &flags{}
	flagSet := pflag.NewFlagSet("sidequest-client", pflag.ContinueOnError)
	flagSet.StringVar(&parsed.configPath, "config", "", "path to the YAML config file (default: $GAMEMASTER_CONFIG)")
	flagSet.StringVar(&parsed.url, "url", "", "console websocket URL, overriding console.url")
	flagSet.StringVar(&parsed.codec, "codec", "", "frame encoding, json or cbor, overriding console.codec")
	flagSet.BoolVar(&parsed.noAudio, "no-audio", false, "do not open an audio device; audio commands are tracked but silent")
	flagSet.BoolVar(&parsed.monitor, "monitor", false, "show the terminal monitor")
	flagSet.StringVar(&parsed.logLevel, "log-level", "", "debug, info, warn or error, overriding log.level")
	flagSet.StringVar(&parsed.logOutput, "log-output", "", "log file path or stderr, overriding log.output")
	flagSet.BoolVar(&parsed.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&parsed.help, "help", "h", false, "show help")
	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	return parsed, flagSet, nil
}

// apply layers the flags over cfg. Only flags that were set override.
func (f *flags) apply(cfg *config.Config) {
	if f.url != "" {
		cfg.Console.URL = f.url
	}
	if f.codec != "" {
		cfg.Console.Codec = f.codec
	}
	if f.noAudio {
		cfg.Audio.Enabled = false
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logOutput != "" {
		cfg.Log.Output = f.logOutput
	}
}

func run(args []string) error {
	parsed, flagSet, err := parseFlags(args)
	if err != nil {
		return err
	}
	if parsed.help {
		fmt.Fprintf(os.Stdout, "usage: sidequest-client [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if parsed.version {
		version.Print("sidequest-client")
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load(parsed.configPath)
	if err != nil {
		return err
	}
	parsed.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, tail, closeLog, err := newLogger(cfg, parsed.monitor)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend audio.Backend
	if cfg.Audio.Enabled {
		backend, err = newSpeaker(cfg, logger)
		if err != nil {
			return err
		}
	}
	game, err := newGame(cfg, backend, logger)
	if err != nil {
		return err
	}

	logger.Info("sidequest client starting",
		"version", version.Info(),
		"environment", cfg.Environment,
		"url", cfg.Console.URL,
		"codec", cfg.Console.Codec,
		"audio", cfg.Audio.Enabled,
	)

	if !parsed.monitor {
		return game.run(ctx)
	}
	return runMonitor(ctx, game, tail)
}

// newLogger builds the process logger. In monitor mode the log pane
// receives every record, and a log file, if configured, receives a
// copy; standard error is left to the terminal view.
func newLogger(cfg *config.Config, monitor bool) (*slog.Logger, *logging.Tail, func() error, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	output := cfg.Log.Output
	if monitor && (output == "" || output == "stderr" || output == "stdout") {
		tail := logging.NewTail(level, tailLines)
		return slog.New(tail.Mirror(nil)), tail, func() error { return nil }, nil
	}

	writer, closeLog, err := logging.Open(output)
	if err != nil {
		return nil, nil, nil, err
	}
	handler, err := logging.NewHandler(cfg.Log.Level, cfg.Log.Format, writer)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	if !monitor {
		return slog.New(handler), nil, closeLog, nil
	}
	tail := logging.NewTail(level, tailLines)
	return slog.New(tail.Mirror(handler)), tail, closeLog, nil
}

func runMonitor(ctx context.Context, game *game, tail *logging.Tail) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done, err := game.start(ctx)
	if err != nil {
		return err
	}

	program := tea.NewProgram(newMonitor(game, tail), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()
	cancel()
	game.stop()
	clientErr := <-done
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", runErr)
	}
	return clientErr
}
