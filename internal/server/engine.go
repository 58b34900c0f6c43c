package server

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eternalApril/moonkv/internal/config"
	"github.com/eternalApril/moonkv/internal/metrics"
	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

const errNotImplemented = "not implemented"

// maxSweepRounds bounds how many times one GC tick repeats the sweep
const maxSweepRounds = 16

// Engine coordinates the execution of commands and manages the background tasks of the repository
type Engine struct {
	commands registry          // Registry of available commands (the key is the command name in uppercase)
	storage  storage.Storage   // Underlying KV storage
	cfg      *config.Config    // Configuration engine
	metrics  *metrics.Registry // May be nil
	stopGC   chan struct{}     // Channel for the background GC stop signal
	stopOnce sync.Once         // Ensures that the stop happens only once
	logger   *zap.Logger
}

// NewEngine initializes the engine, registers the commands, and
// if enabled in the config, starts background cleanup of outdated keys
func NewEngine(s storage.Storage, cfg *config.Config, logger *zap.Logger, m *metrics.Registry) (*Engine, error) {
	if cfg.GC.Enabled && (cfg.GC.Interval <= 0 || cfg.GC.SamplesPerCheck <= 0) {
		return nil, errors.New("gc interval and samples_per_check must be positive")
	}

	engine := &Engine{
		commands: newRegistry(),
		storage:  s,
		cfg:      cfg,
		metrics:  m,
		stopGC:   make(chan struct{}),
		logger:   logger,
	}

	if cfg.GC.Enabled {
		go engine.startGCLoop()
	}

	return engine, nil
}

// Isolated returns an engine sharing this one's commands and settings but bound to a
// fresh private storage. It runs no background tasks
func (e *Engine) Isolated() *Engine {
	return &Engine{
		commands: e.commands,
		storage:  storage.NewMapStorage(),
		cfg:      e.cfg,
		metrics:  e.metrics,
		stopGC:   make(chan struct{}),
		logger:   e.logger,
	}
}

// startGCLoop triggers the active expiration mechanism
func (e *Engine) startGCLoop() {
	ticker := time.NewTicker(e.cfg.GC.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.sweep()
		case <-e.stopGC:
			e.logger.Info("GC stopped")
			return
		}
	}
}

// sweep runs DeleteExpired, repeating while the expired ratio stays above the threshold
func (e *Engine) sweep() {
	for round := 0; round < maxSweepRounds; round++ {
		expired, ratio := e.storage.DeleteExpired(e.cfg.GC.SamplesPerCheck)

		if expired > 0 {
			e.logger.Debug("GC delete expired",
				zap.Int("expired", expired),
				zap.Float64("expired_ratio", ratio),
			)
			if e.metrics != nil {
				e.metrics.KeysExpired(expired)
			}
		}

		if ratio <= e.cfg.GC.MatchThreshold {
			return
		}
	}
}

// Handle turns a decoded value into a request and executes it.
// Values that are not a command line get an error reply
func (e *Engine) Handle(v resp.Value) resp.Value {
	req, err := NewRequest(v)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return e.Execute(req)
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found or the arity does not match, returns an error in the RESP format
func (e *Engine) Execute(req Request) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", req.Command()),
			zap.Int("args_count", len(req.Arguments())),
		)
	}

	cmd, ok := e.commands.lookup(req.Command())
	if !ok {
		return resp.MakeError(errNotImplemented)
	}

	if !validateArity(cmd.arity, req.Arity()) {
		return resp.MakeErrorWrongNumberOfArguments(cmd.name)
	}

	ctx := &cmdContext{
		req:         req,
		storage:     e.storage,
		setKeepsTTL: e.cfg.Storage.SetKeepsTTL,
	}

	start := time.Now()
	res := cmd.handler(ctx)

	if e.metrics != nil {
		e.metrics.ObserveCommand(cmd.name, res.Failed(), time.Since(start))
	}

	return res.Value()
}

// Shutdown shuts down the engine and its background services correctly
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stopGC)
	})
}
