// Package shutdown drives the two exit paths of a session: the orderly path
// persists state and releases file-bound objects, the fast path flushes the
// visible streams and terminates at once.
package shutdown

import (
	"context"
	"fmt"
	"os"

	"github.com/praatgo/shell/internal/config"
	"github.com/praatgo/shell/internal/core/phase"
	"github.com/praatgo/shell/internal/objects"
	"github.com/praatgo/shell/internal/prefs"
	"go.uber.org/zap"
)

// Deps are the collaborators the sequencer persists and releases.
type Deps struct {
	Registry *objects.Registry
	Store    prefs.Store
	Values   prefs.Values
	Buttons  *prefs.Buttons
	// Flush lists the flush functions of externally visible streams.
	Flush []func() error
	// Close lists the exit-time destructors (script VM, database pool). Only
	// the orderly path without fast shutdown runs them.
	Close []func()
	// Exit terminates the process; os.Exit when nil.
	Exit func(code int)
	Pid  int
}

type Sequencer struct {
	cfg    *config.Config
	deps   Deps
	runner *phase.Runner
	log    *zap.Logger
	exited bool
}

func New(cfg *config.Config, deps Deps, log *zap.Logger) *Sequencer {
	if deps.Exit == nil {
		deps.Exit = os.Exit
	}
	if deps.Pid == 0 {
		deps.Pid = os.Getpid()
	}
	s := &Sequencer{cfg: cfg, deps: deps, runner: phase.NewRunner(), log: log}

	if !cfg.Prefs.IgnoreFiles {
		s.runner.Register(phase.StepFunc{P: phase.PhasePidFile, N: "remove-pid", Fn: s.removePid})
		s.runner.Register(phase.StepFunc{P: phase.PhasePreferences, N: "write-prefs", Fn: s.writePrefs})
		if !cfg.App.Batch {
			s.runner.Register(phase.StepFunc{P: phase.PhaseButtons, N: "write-buttons", Fn: s.writeButtons})
		}
	}
	s.runner.Register(phase.StepFunc{P: phase.PhaseFileObjects, N: "release-file-objects", Fn: s.releaseFileObjects})
	s.runner.Register(phase.StepFunc{P: phase.PhaseFlush, N: "flush", Fn: func(context.Context) error { return s.flush() }})
	return s
}

// Orderly persists preferences and customizations, releases file-bound
// objects back to front and then terminates with code. With fast shutdown
// enabled it ends through Fast; otherwise the remaining objects are torn
// down and the Close destructors run before exiting.
// Only the first call has any effect.
func (s *Sequencer) Orderly(ctx context.Context, code int) {
	if s.exited {
		return
	}
	s.exited = true
	s.log.Info("orderly shutdown", zap.Int("objects", s.deps.Registry.Len()))

	if err := s.runner.Run(ctx); err != nil {
		s.log.Warn("shutdown step failed", zap.Error(err))
	}
	if s.cfg.Shutdown.Fast {
		s.Fast(code)
		return
	}
	s.deps.Registry.Close()
	for i := len(s.deps.Close) - 1; i >= 0; i-- {
		s.deps.Close[i]()
	}
	s.terminate(code)
}

// Fast skips every removal and destructor: it flushes the visible streams
// and terminates.
func (s *Sequencer) Fast(code int) {
	s.exited = true
	s.terminate(code)
}

func (s *Sequencer) terminate(code int) {
	if err := s.flush(); err != nil {
		fmt.Fprintf(os.Stderr, "flush: %v\n", err)
	}
	s.deps.Exit(code)
}

func (s *Sequencer) removePid(context.Context) error {
	return RemovePidFile(s.cfg.Prefs.PidFile(), s.deps.Pid)
}

func (s *Sequencer) writePrefs(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	return s.deps.Store.Write(ctx, s.deps.Values)
}

// Buttons failures never block the exit.
func (s *Sequencer) writeButtons(context.Context) error {
	if s.deps.Buttons == nil {
		return nil
	}
	if err := prefs.WriteButtons(s.cfg.Prefs.ButtonsFile(), s.cfg.App.Title, s.deps.Buttons); err != nil {
		s.log.Warn("buttons file not written", zap.Error(err))
	}
	return nil
}

func (s *Sequencer) releaseFileObjects(context.Context) error {
	n := s.deps.Registry.RemoveFileBound()
	s.log.Debug("file-bound objects released", zap.Int("count", n))
	return nil
}

func (s *Sequencer) flush() error {
	var first error
	for _, f := range s.deps.Flush {
		if err := f(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
