// Command linkpm-sim runs both link lifecycle controllers against a
// simulated board and drives them from an interactive shell.
//
// Usage:
//
//	linkpm-sim [flags]
//
// Examples:
//
//	# Default configuration, trace to a file
//	linkpm-sim -trace board.lptrace
//
//	# Deployment config, answer endpoint wake requests automatically
//	linkpm-sim -config linkpm.yaml -auto
//
// If the configuration names a GPIO chip for a line, the real line drives
// the simulated one, so a test jig can toggle PERST or WAKE.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linkpm/linkpm-go/cmd/linkpm-sim/shell"
	"github.com/linkpm/linkpm-go/pkg/config"
	"github.com/linkpm/linkpm-go/pkg/gpioline"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/sim"
)

// traceTail is the number of events kept for the shell's trace command.
const traceTail = 1000

var (
	configFile = flag.String("config", "", "Configuration file path (YAML)")
	traceFile  = flag.String("trace", "", "Write lifecycle trace to this file (overrides config)")
	autoConfig = flag.Bool("auto", false, "Configure the device when the endpoint asserts WAKE")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The shell's writer is only known once readline is up, so the logger
	// writes through a switchable sink.
	sink := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	tail := log.NewMemoryLogger(traceTail)
	sinks := []log.Logger{tail}
	if cfg.Trace.File != "" {
		fl, err := log.NewFileLogger(cfg.Trace.File)
		if err != nil {
			return fmt.Errorf("opening trace file: %w", err)
		}
		defer func() {
			if n := fl.WriteErrors(); n > 0 {
				logger.Warn("trace events lost", "count", n)
			}
			_ = fl.Close()
		}()
		sinks = append(sinks, fl)
	}
	if cfg.Trace.Console {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	sys, err := sim.NewSystem(cfg, sim.SystemOptions{
		Logger:        logger,
		Trace:         log.NewMultiLogger(sinks...),
		AutoConfigure: *autoConfig,
	})
	if err != nil {
		return err
	}

	closeLines, err := attachLines(cfg, sys.Board)
	if err != nil {
		return err
	}
	defer closeLines()

	if err := sys.Start(ctx); err != nil {
		return err
	}
	defer sys.Stop()

	sh, err := shell.New(sys, shell.Options{Trace: tail, Layout: cfg.Host.Snapshot})
	if err != nil {
		return err
	}
	sink.set(sh.Stdout())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	sh.Run(ctx, cancel)
	sink.set(os.Stderr)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}
	if *traceFile != "" {
		cfg.Trace.File = *traceFile
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// attachLines requests every configured GPIO line and makes it drive the
// matching simulated line.
func attachLines(cfg *config.Config, b *sim.Board) (func(), error) {
	var lines []*gpioline.Line
	closeAll := func() {
		for _, l := range lines {
			_ = l.Close()
		}
	}

	for _, a := range []struct {
		lc  config.LineConfig
		dst *sim.Line
	}{
		{cfg.Lines.Wake, b.Wake},
		{cfg.Lines.Perst, b.Perst},
	} {
		if a.lc.Chip == "" {
			continue
		}
		l, err := gpioline.Request(a.lc.Chip, a.lc.Offset, gpioline.Options{Consumer: "linkpm-" + a.dst.Name()})
		if err != nil {
			closeAll()
			return nil, err
		}
		lines = append(lines, l)
		if err := a.dst.Follow(l); err != nil {
			closeAll()
			return nil, err
		}
	}
	return closeAll, nil
}

// switchWriter forwards writes to a replaceable writer.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
