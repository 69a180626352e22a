// FILE: lixenwraith/logroll/cmd/logroll/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/lixenwraith/logroll"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func createCommands() []*cli.Command {
	return []*cli.Command{
		createStressCommand(),
		createRollCommand(),
		createConfigCommand(),
	}
}

func createStressCommand() *cli.Command {
	return &cli.Command{
		Name:      "stress",
		Usage:     "write random lines concurrently and report what the engine did",
		ArgsUsage: "<live-file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 8, Usage: "writer goroutines"},
			&cli.IntFlag{Name: "lines", Aliases: []string{"n"}, Value: 10000, Usage: "lines per worker"},
			&cli.IntFlag{Name: "size", Value: 200, Usage: "maximum line length"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runStress(ctx, cmd, cfg, cmd.Int("workers"), cmd.Int("lines"), cmd.Int("size"))
		},
	}
}

func createRollCommand() *cli.Command {
	return &cli.Command{
		Name:      "roll",
		Usage:     "force one roll of the live file",
		ArgsUsage: "<live-file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runRoll(ctx, cmd, cfg)
		},
	}
}

func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:      "config",
		Usage:     "print the resolved configuration",
		ArgsUsage: "<live-file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			spew.Dump(cfg)
			return nil
		},
	}
}

// loadConfig resolves file settings, then --set overrides, then the path argument
func loadConfig(cmd *cli.Command) (*logroll.Config, error) {
	if cmd.Args().Len() != 1 {
		return nil, cli.Exit("exactly one live file path is required", 2)
	}

	cfg := logroll.DefaultConfig()
	if file := cmd.String("config"); file != "" {
		loaded, err := logroll.NewConfigFromFile(file)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := append(cmd.StringSlice("set"), "path="+cmd.Args().First())
	if err := cfg.ApplyOverride(overrides...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newEventLogger returns a console zap logger on stderr
func newEventLogger(verbose bool) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.WarnLevel
	if verbose {
		level = zap.InfoLevel
	}

	config := zap.Config{
		Encoding:         "console",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		Level:            zap.NewAtomicLevelAt(level),
		DisableCaller:    true,
	}
	return zap.Must(config.Build())
}

// watchEvents logs every event until the registry closes its channel.
// onEvent, if set, sees each event after it is logged.
func watchEvents(reg *logroll.Registry, logger *zap.Logger, onEvent func(logroll.Event)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range reg.Events() {
			logEvent(logger, ev)
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}()
	return done
}

func logEvent(logger *zap.Logger, ev logroll.Event) {
	fields := make([]zap.Field, 0, len(ev.Fields)+4)
	fields = append(fields, zap.Int("code", int(ev.Code)), zap.String("path", ev.Path))
	if ev.StreamID != "" {
		fields = append(fields, zap.String("stream", ev.StreamID))
	}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}
	for k, v := range ev.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	msg := ev.Code.String()
	if ev.Note != "" {
		msg += ": " + ev.Note
	}

	switch ev.Code.Severity() {
	case logroll.SeverityError:
		logger.Error(msg, fields...)
	case logroll.SeverityWarn:
		logger.Warn(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

func runStress(ctx context.Context, cmd *cli.Command, cfg *logroll.Config, workers, lines, size int) error {
	if workers < 1 || lines < 1 || size < 1 {
		return cli.Exit("workers, lines and size must be positive", 2)
	}

	logger := newEventLogger(cmd.Bool("verbose"))
	defer logger.Sync()

	var rolls atomic.Int64
	reg := logroll.NewRegistry()
	eventsDone := watchEvents(reg, logger, func(ev logroll.Event) {
		if ev.Code == logroll.EventRollCompleted {
			rolls.Add(1)
		}
	})

	engine, err := reg.Open(cfg)
	if err != nil {
		_ = reg.Close()
		<-eventsDone
		return err
	}

	start := time.Now()
	var written, throttled atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				if ctx.Err() != nil {
					return
				}
				line := fmt.Sprintf("worker=%d seq=%d %s\n", worker, i, randomText(rand.IntN(size)+1))
				if !engine.Write(line) {
					throttled.Add(1)
				}
				written.Add(1)
			}
		}(w)
	}
	wg.Wait()

	timeout := cmd.Duration("timeout")
	flushErr := engine.Flush(timeout)
	stats := engine.Stats()
	closeErr := reg.Close(timeout)
	<-eventsDone

	fmt.Printf("wrote %d lines (%d throttled) in %s, %d rolls observed\n",
		written.Load(), throttled.Load(), time.Since(start).Round(time.Millisecond), rolls.Load())
	if cmd.Bool("verbose") {
		spew.Dump(stats)
	}
	return errors.Join(flushErr, closeErr)
}

func runRoll(ctx context.Context, cmd *cli.Command, cfg *logroll.Config) error {
	logger := newEventLogger(cmd.Bool("verbose"))
	defer logger.Sync()

	if _, err := os.Stat(cfg.Path); err != nil {
		return cli.Exit(fmt.Sprintf("nothing to roll: %v", err), 1)
	}

	outcome := make(chan logroll.Event, 1)
	reg := logroll.NewRegistry()
	eventsDone := watchEvents(reg, logger, func(ev logroll.Event) {
		if ev.Code == logroll.EventRollCompleted || ev.Code == logroll.EventRollFailed {
			select {
			case outcome <- ev:
			default:
			}
		}
	})
	defer func() {
		_ = reg.Close(cmd.Duration("timeout"))
		<-eventsDone
	}()

	engine, err := reg.Open(cfg)
	if err != nil {
		return err
	}
	if !engine.RotationEnabled() {
		return cli.Exit("rotation is disabled for "+engine.Path(), 1)
	}

	engine.Roll()

	timer := time.NewTimer(cmd.Duration("timeout"))
	defer timer.Stop()

	select {
	case ev := <-outcome:
		if ev.Code == logroll.EventRollFailed {
			return ev.Err
		}
		fmt.Println("rolled", engine.Path())
		if cmd.Bool("verbose") {
			spew.Dump(engine.Stats())
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("roll of %s did not complete within %s", engine.Path(), cmd.Duration("timeout"))
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomText(n int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(chars[rand.IntN(len(chars))])
	}
	return sb.String()
}
