package phase

import "context"

// Phase defines execution ordering within one orderly exit.
type Phase int

const (
	PhasePidFile     Phase = iota // 0: give up the pid file if we own it
	PhasePreferences              // 1: write the preferences store
	PhaseButtons                  // 2: write editable-menu customizations
	PhaseFileObjects              // 3: release file-bound objects back to front
	PhaseFlush                    // 4: flush externally visible streams
)

func (p Phase) String() string {
	switch p {
	case PhasePidFile:
		return "pid-file"
	case PhasePreferences:
		return "preferences"
	case PhaseButtons:
		return "buttons"
	case PhaseFileObjects:
		return "file-objects"
	case PhaseFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// Step is one unit of work the Runner executes.
type Step interface {
	Phase() Phase
	Name() string
	Run(ctx context.Context) error
}

// StepFunc adapts a function to Step.
type StepFunc struct {
	P  Phase
	N  string
	Fn func(ctx context.Context) error
}

func (s StepFunc) Phase() Phase                  { return s.P }
func (s StepFunc) Name() string                  { return s.N }
func (s StepFunc) Run(ctx context.Context) error { return s.Fn(ctx) }
