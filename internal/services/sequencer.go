package services

import (
	"context"
	"sync"
	"time"

	"kiosk-lottery/internal/models"

	"github.com/google/logger"
)

// Pacing holds the durations of the timed phases and the reveal cadence.
type Pacing struct {
	Meteor  time.Duration `json:"meteor"`
	Portal  time.Duration `json:"portal"`
	Landing time.Duration `json:"landing"`
	// FirstReveal is the wait before the first card; RevealInterval the wait
	// between later cards and after the last one.
	FirstReveal    time.Duration `json:"firstReveal"`
	RevealInterval time.Duration `json:"revealInterval"`
}

var (
	StandardPacing = Pacing{
		Meteor:         2000 * time.Millisecond,
		Portal:         1500 * time.Millisecond,
		Landing:        1000 * time.Millisecond,
		FirstReveal:    500 * time.Millisecond,
		RevealInterval: 1500 * time.Millisecond,
	}
	// ReducedMotionPacing skips the intro phases but keeps revealing cards one at a time.
	ReducedMotionPacing = Pacing{
		FirstReveal:    500 * time.Millisecond,
		RevealInterval: 400 * time.Millisecond,
	}
)

// PacingFor returns the profile for the reduced-motion preference.
func PacingFor(reducedMotion bool) Pacing {
	if reducedMotion {
		return ReducedMotionPacing
	}
	return StandardPacing
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. *time.Timer based by default.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules on the runtime timers.
var RealClock Clock = realClock{}

type stepKey struct {
	epoch uint64
	phase models.DrawPhase
	index int
}

// Sequencer advances the controller through the timed phases and the reveal
// cadence. At most one timer is pending; every state change replaces it.
type Sequencer struct {
	ctrl           *DrawController
	clock          Clock
	autoComplete   bool
	persistTimeout time.Duration

	mu          sync.Mutex
	pacing      Pacing
	current     stepKey
	timer       Timer
	gen         uint64
	stopped     bool
	unsubscribe func()
}

// NewSequencer creates a sequencer for ctrl. Call Start to attach it.
// When autoComplete is set the round is persisted as soon as it reaches result.
func NewSequencer(ctrl *DrawController, clock Clock, pacing Pacing, autoComplete bool) *Sequencer {
	if ctrl == nil {
		panic("services: NewSequencer requires a controller")
	}
	if clock == nil {
		clock = RealClock
	}
	return &Sequencer{
		ctrl:           ctrl,
		clock:          clock,
		pacing:         pacing,
		autoComplete:   autoComplete,
		persistTimeout: 10 * time.Second,
		current:        stepKey{phase: models.PhaseIdle, index: -1},
	}
}

// Start subscribes to the controller and schedules for its current state.
func (s *Sequencer) Start() {
	s.mu.Lock()
	if s.unsubscribe != nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.unsubscribe = s.ctrl.Subscribe(func(models.DrawState) { s.sync() })
	s.mu.Unlock()
	s.sync()
}

// Stop cancels the pending timer and detaches from the controller.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancelLocked()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Pacing returns the active profile.
func (s *Sequencer) Pacing() Pacing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pacing
}

// SetPacing switches the profile. A pending timer is rescheduled with the new durations.
func (s *Sequencer) SetPacing(p Pacing) {
	s.mu.Lock()
	s.pacing = p
	s.cancelLocked()
	s.current = stepKey{index: -2}
	s.mu.Unlock()
	s.sync()
}

func (s *Sequencer) sync() {
	if action := s.plan(); action != nil {
		action()
	}
}

// plan schedules the next step for the controller's current state and returns
// work that has to run right away. The returned func must be called without
// s.mu held.
func (s *Sequencer) plan() func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	// Read under s.mu so a slower caller cannot plan over a newer state.
	// Lock order is s.mu then ctrl.mu; the controller never calls back while holding its lock.
	state, epoch := s.ctrl.Snapshot()
	key := stepKey{epoch: epoch, phase: state.Phase, index: state.CurrentRevealIndex}
	if key == s.current {
		return nil
	}
	prev := s.current
	s.current = key
	s.cancelLocked()

	delay, step := s.stepFor(state, epoch)
	if step == nil {
		enteredResult := state.Phase.Final() && (prev.epoch != epoch || !prev.phase.Final())
		if enteredResult && s.autoComplete && !state.Persisted && len(state.Winners) > 0 {
			return s.complete
		}
		return nil
	}
	if delay <= 0 {
		return step
	}

	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen, step) })
	return nil
}

func (s *Sequencer) stepFor(state models.DrawState, epoch uint64) (time.Duration, func()) {
	advance := func() { s.ctrl.AdvanceFrom(epoch, state.Phase) }
	switch state.Phase {
	case models.PhaseMeteor:
		return s.pacing.Meteor, advance
	case models.PhasePortal:
		return s.pacing.Portal, advance
	case models.PhaseLanding:
		return s.pacing.Landing, advance
	case models.PhaseRevealing:
		index := state.CurrentRevealIndex
		reveal := func() { s.ctrl.RevealFrom(epoch, index) }
		if index < 0 {
			return s.pacing.FirstReveal, reveal
		}
		return s.pacing.RevealInterval, reveal
	}
	return 0, nil
}

func (s *Sequencer) fire(gen uint64, step func()) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	step()
}

func (s *Sequencer) complete() {
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if _, err := s.ctrl.CompleteDraw(ctx); err != nil {
		logger.Warningf("auto-complete failed, waiting for operator retry: %v", err)
	}
}

// cancelLocked stops the pending timer. Must be called with s.mu held.
func (s *Sequencer) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
