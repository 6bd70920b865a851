package render

import (
	"sync"

	"github.com/aretw0/reel/pkg/domain"
)

// stateSlot holds the lifecycle state. The terminal outcome is written at most once.
type stateSlot struct {
	mu      sync.Mutex
	state   domain.RenderState
	outcome domain.Outcome
}

func newStateSlot() *stateSlot {
	return &stateSlot{state: domain.StateIdle}
}

func (s *stateSlot) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateIdle {
		return false
	}
	s.state = domain.StateRunning
	return true
}

// finalize moves a running job to the terminal state of o.
// It reports false if another transition already won.
func (s *stateSlot) finalize(o domain.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateRunning {
		return false
	}
	s.state = o.Kind.State()
	s.outcome = o
	return true
}

func (s *stateSlot) load() (domain.RenderState, domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.outcome
}

func (s *stateSlot) terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Terminal()
}
