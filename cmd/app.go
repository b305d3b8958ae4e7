/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	determ "github.com/allbin/go-determ"
	"github.com/allbin/go-determ/internal/config"
	"github.com/allbin/go-determ/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// flagKeys maps persistent flags to the config keys they override
var flagKeys = map[string]string{
	"baud":      "serial.baud_rate",
	"driver":    "serial.driver",
	"log-level": "log.level",
}

// app is the configured core shared by every command
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	worker *determ.Worker
}

func newApp(cmd *cobra.Command) (*app, error) {
	v := config.New(cfgFile)
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.SerialOptions()
	if err != nil {
		return nil, err
	}
	dtr, rts, err := cfg.FlowScripts()
	if err != nil {
		return nil, err
	}

	registry := determ.NewRegistry(determ.NewOpener(opts...), log)
	assembler := determ.NewLineAssembler(
		determ.WithIdleSleep(cfg.Worker.IdleSleep),
		determ.WithAssemblerLogger(log),
	)
	worker := determ.NewWorker(registry,
		determ.WithLogger(log),
		determ.WithAssembler(assembler),
		determ.WithCommandWait(cfg.Worker.CommandWait),
		determ.WithScripts(dtr, rts),
	)

	log.Info("determ starting",
		zap.Int("baud_rate", cfg.Serial.BaudRate),
		zap.String("driver", cfg.Serial.Driver),
	)
	return &app{cfg: cfg, log: log, worker: worker}, nil
}

// start runs the worker until the returned function is called
func (a *app) start(ctx context.Context) func() error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- a.worker.Run(ctx)
	}()

	return func() error {
		cancel()
		return <-done
	}
}

// finish stops the worker and combines its teardown error with err
func (a *app) finish(stop func() error, err error) error {
	err = multierr.Append(err, stop())
	_ = a.log.Sync()
	return err
}

// open switches the worker to device and waits for the outcome
func (a *app) open(ctx context.Context, device string) error {
	if err := a.worker.Send(determ.ChangePort{Device: device}); err != nil {
		return err
	}
	a.worker.Cancel().Set()

	res, err := a.await(ctx, determ.ResultOpen)
	if err != nil {
		return err
	}
	if !res.OK {
		return res.Err
	}
	return nil
}

// await returns the next result of kind, dropping lines that arrive meanwhile
func (a *app) await(ctx context.Context, kind determ.ResultKind) (determ.Result, error) {
	for {
		select {
		case <-ctx.Done():
			return determ.Result{}, ctx.Err()
		case <-a.worker.Lines():
		case res, ok := <-a.worker.Results():
			if !ok {
				return determ.Result{}, determ.ErrWorkerStopped
			}
			if res.Kind == kind {
				return res, nil
			}
			if res.Kind == determ.ResultRead {
				return res, res.Err
			}
		}
	}
}

// withTimeout bounds ctx when timeout is positive
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
