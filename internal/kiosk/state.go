package kiosk

import "sync/atomic"

// Phase is the single source of truth for what the kiosk is doing. It
// replaces the original pair of ad hoc booleans: only transitions are
// exposed, so "dispatching and listening at once" is unrepresentable.
type Phase int32

const (
	PhaseStartup Phase = iota
	PhaseListening
	PhaseDispatch
)

func (p Phase) String() string {
	switch p {
	case PhaseStartup:
		return "startup"
	case PhaseListening:
		return "listening"
	case PhaseDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// Gate holds the phase with atomic transitions. The audio producer reads
// it on every frame, so it must be cheap and race-free without a lock.
type Gate struct {
	phase atomic.Int32
}

func NewGate() *Gate {
	g := &Gate{}
	g.phase.Store(int32(PhaseStartup))
	return g
}

func (g *Gate) Phase() Phase {
	return Phase(g.phase.Load())
}

func (g *Gate) Listening() bool {
	return g.Phase() == PhaseListening
}

// BeginDispatch claims the dispatch phase. Exactly one caller wins per
// listening cycle; losers must drop their match.
func (g *Gate) BeginDispatch() bool {
	return g.phase.CompareAndSwap(int32(PhaseListening), int32(PhaseDispatch))
}

// EnterListening moves out of startup or dispatch. Startup is never
// re-entered.
func (g *Gate) EnterListening() bool {
	return g.phase.CompareAndSwap(int32(PhaseStartup), int32(PhaseListening)) ||
		g.phase.CompareAndSwap(int32(PhaseDispatch), int32(PhaseListening))
}
