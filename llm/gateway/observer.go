package gateway

import (
	"context"
	"time"

	"github.com/BaSui01/chatgate/llm"
)

// Phase is the per-call state. Succeeded and Failed are terminal.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseBuilding   Phase = "building"
	PhaseSending    Phase = "sending"
	PhaseDecoding   Phase = "decoding"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Operation identifies what a call does.
type Operation string

const (
	OpChat   Operation = "chat"
	OpModels Operation = "models"
)

// Call describes one gateway invocation. Observers must treat it as read-only.
type Call struct {
	ID        string
	Operation Operation
	Provider  llm.ProviderKind
	Model     string
	Phase     Phase
	// FailedIn is the phase that was active when the call failed.
	FailedIn Phase
	Status   int
	Started  time.Time
}

// Observer receives phase transitions and the final outcome of every call.
// Implementations must be safe for concurrent use.
type Observer interface {
	OnPhase(ctx context.Context, call Call)
	OnFinish(ctx context.Context, call Call, duration time.Duration, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Phase  func(ctx context.Context, call Call)
	Finish func(ctx context.Context, call Call, duration time.Duration, err error)
}

func (o ObserverFuncs) OnPhase(ctx context.Context, call Call) {
	if o.Phase != nil {
		o.Phase(ctx, call)
	}
}

func (o ObserverFuncs) OnFinish(ctx context.Context, call Call, duration time.Duration, err error) {
	if o.Finish != nil {
		o.Finish(ctx, call, duration, err)
	}
}
