package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/repositories"

	"github.com/google/logger"
	"github.com/google/uuid"
)

var (
	ErrUnknownPool     = errors.New("指定的奖项不存在")
	ErrInvalidCount    = errors.New("抽取人数必须大于零")
	ErrDrawInFlight    = errors.New("抽奖操作正在进行中")
	ErrDrawNotFinished = errors.New("抽奖尚未结束，无法保存")
	ErrPersistFailed   = errors.New("保存抽奖记录失败")
)

// PoolDirectory resolves the operator-configured pools.
type PoolDirectory interface {
	Pool(id models.PoolID) (models.PrizePool, bool)
	EventDate() string
}

// phaseOrder is the sequence NextPhase walks through.
var phaseOrder = []models.DrawPhase{
	models.PhaseMeteor,
	models.PhasePortal,
	models.PhaseLanding,
	models.PhaseRevealing,
	models.PhaseResult,
}

// transitions lists the phase changes the controller may make. ResetDraw is
// unconditional and is not listed.
var transitions = map[models.DrawPhase][]models.DrawPhase{
	models.PhaseIdle:      {models.PhaseMeteor},
	models.PhaseMeteor:    {models.PhasePortal, models.PhaseResult},
	models.PhasePortal:    {models.PhaseLanding, models.PhaseResult},
	models.PhaseLanding:   {models.PhaseRevealing, models.PhaseResult},
	models.PhaseRevealing: {models.PhaseResult},
}

func canTransition(from, to models.DrawPhase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Observer is called with a snapshot after every state change.
type Observer func(state models.DrawState)

// ControllerOption customises a DrawController.
type ControllerOption func(*DrawController)

// WithRand injects the random source used for selection.
func WithRand(rnd RandSource) ControllerOption {
	return func(c *DrawController) { c.rnd = rnd }
}

// WithNow injects the clock used for wonAt and createdAt stamps.
func WithNow(now func() time.Time) ControllerOption {
	return func(c *DrawController) { c.now = now }
}

// DrawController owns the state machine of the single kiosk draw.
type DrawController struct {
	store repositories.DrawRecordRepository
	pools PoolDirectory
	rnd   RandSource
	now   func() time.Time

	mu    sync.Mutex
	state models.DrawState
	// epoch changes on every StartDraw and ResetDraw so late work can tell
	// whether it still belongs to the current draw.
	epoch     uint64
	busy      bool
	observers map[int]Observer
	nextObsID int

	// pending holds snapshots not yet handed to observers; delivering is set
	// while one commit drains it.
	pending    []models.DrawState
	delivering bool
}

// NewDrawController creates a controller in the idle state.
// It panics if store or pools is nil.
func NewDrawController(store repositories.DrawRecordRepository, pools PoolDirectory, opts ...ControllerOption) *DrawController {
	if store == nil || pools == nil {
		panic("services: NewDrawController requires a store and a pool directory")
	}
	c := &DrawController{
		store:     store,
		pools:     pools,
		rnd:       DefaultRand,
		now:       time.Now,
		state:     models.InitialDrawState(),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for state changes and returns a function removing it.
func (c *DrawController) Subscribe(fn Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// State returns a snapshot of the current draw.
func (c *DrawController) State() models.DrawState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Snapshot returns the current draw together with its epoch.
func (c *DrawController) Snapshot() (models.DrawState, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone(), c.epoch
}

// commit releases the lock and, when changed is true, queues the new state
// for the observers. Snapshots reach observers in commit order: the commit that
// finds no delivery running drains the queue, and changes made from inside an
// observer wait behind the one being delivered. The draining call returns the
// state as it stands after delivery. It must be called with c.mu held.
func (c *DrawController) commit(changed bool) models.DrawState {
	snapshot := c.state.Clone()
	if changed {
		c.pending = append(c.pending, snapshot)
	}
	if !changed || c.delivering {
		c.mu.Unlock()
		return snapshot
	}

	c.delivering = true
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		observers := c.observersLocked()
		c.mu.Unlock()
		for _, fn := range observers {
			fn(next.Clone())
		}
		c.mu.Lock()
	}
	c.delivering = false
	latest := c.state.Clone()
	c.mu.Unlock()
	return latest
}

// observersLocked lists the observers in subscription order.
func (c *DrawController) observersLocked() []Observer {
	observers := make([]Observer, 0, len(c.observers))
	for i := 0; i < c.nextObsID; i++ {
		if fn, ok := c.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	return observers
}

// StartDraw computes the winners of a new round from the persisted history.
// The machine moves to meteor, or stays idle with ShouldConfirm set when fewer
// people are eligible than requested. Calling it while a draw is active is a no-op.
func (c *DrawController) StartDraw(ctx context.Context, poolID models.PoolID, requested int, roster []models.Participant) (models.DrawState, error) {
	if !poolID.Valid() {
		return c.State(), ErrUnknownPool
	}
	if requested <= 0 {
		return c.State(), ErrInvalidCount
	}

	c.mu.Lock()
	if c.busy {
		return c.commit(false), ErrDrawInFlight
	}
	if c.state.Phase != models.PhaseIdle {
		return c.commit(false), nil
	}
	c.busy = true
	epoch := c.epoch
	c.mu.Unlock()

	history, err := c.store.ListRecords(ctx)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		return c.commit(false), fmt.Errorf("load draw history: %w", err)
	}
	if epoch != c.epoch || c.state.Phase != models.PhaseIdle {
		// Reset or another start won the race.
		return c.commit(false), nil
	}

	result := SelectWinners(roster, history, poolID, requested, c.rnd)
	wonAt := c.now()
	winners := make([]models.Winner, 0, len(result.Winners))
	for _, p := range result.Winners {
		winners = append(winners, models.Winner{Participant: p, WonAt: wonAt})
	}

	phase := models.PhaseMeteor
	if result.ShouldConfirm {
		phase = models.PhaseIdle
	}
	c.epoch++
	c.state = models.DrawState{
		Phase:              phase,
		PoolID:             poolID,
		TargetCount:        requested,
		ActualCount:        result.ActualCount,
		Winners:            winners,
		CurrentRevealIndex: -1,
		ShouldConfirm:      result.ShouldConfirm,
		ConfirmReason:      result.Reason,
	}
	logger.Infof("draw started: pool=%s requested=%d actual=%d confirm=%t", poolID, requested, result.ActualCount, result.ShouldConfirm)
	return c.commit(true), nil
}

// ConfirmReducedCount accepts a shortfall and starts the animation.
func (c *DrawController) ConfirmReducedCount() models.DrawState {
	c.mu.Lock()
	if !c.state.ShouldConfirm || !canTransition(c.state.Phase, models.PhaseMeteor) {
		return c.commit(false)
	}
	c.state.ShouldConfirm = false
	c.state.Phase = models.PhaseMeteor
	return c.commit(true)
}

// NextPhase advances one step along meteor, portal, landing, revealing, result.
func (c *DrawController) NextPhase() models.DrawState {
	c.mu.Lock()
	return c.commit(c.advanceLocked())
}

// AdvanceFrom is NextPhase guarded by the epoch and phase a timer was scheduled for.
func (c *DrawController) AdvanceFrom(epoch uint64, phase models.DrawPhase) models.DrawState {
	c.mu.Lock()
	if c.epoch != epoch || c.state.Phase != phase {
		return c.commit(false)
	}
	return c.commit(c.advanceLocked())
}

func (c *DrawController) advanceLocked() bool {
	for i, p := range phaseOrder {
		if p != c.state.Phase {
			continue
		}
		if i == len(phaseOrder)-1 {
			return false
		}
		next := phaseOrder[i+1]
		if !canTransition(p, next) {
			return false
		}
		c.state.Phase = next
		return true
	}
	return false
}

// RevealNextCard shows one more winner, or moves to result once all are shown.
// It only acts in the revealing phase.
func (c *DrawController) RevealNextCard() models.DrawState {
	c.mu.Lock()
	return c.commit(c.revealLocked())
}

// RevealFrom is RevealNextCard guarded by the epoch and reveal index a timer was scheduled for.
func (c *DrawController) RevealFrom(epoch uint64, index int) models.DrawState {
	c.mu.Lock()
	if c.epoch != epoch || c.state.CurrentRevealIndex != index {
		return c.commit(false)
	}
	return c.commit(c.revealLocked())
}

func (c *DrawController) revealLocked() bool {
	if c.state.Phase != models.PhaseRevealing {
		return false
	}
	if c.state.CurrentRevealIndex < len(c.state.Winners)-1 {
		c.state.CurrentRevealIndex++
		return true
	}
	c.state.Phase = models.PhaseResult
	return true
}

// SkipAnimation jumps to result with every card revealed.
// It does nothing when idle or already showing the result.
func (c *DrawController) SkipAnimation() models.DrawState {
	c.mu.Lock()
	if !canTransition(c.state.Phase, models.PhaseResult) {
		return c.commit(false)
	}
	c.state.Phase = models.PhaseResult
	if last := len(c.state.Winners) - 1; last > c.state.CurrentRevealIndex {
		c.state.CurrentRevealIndex = last
	}
	return c.commit(true)
}

// CompleteDraw persists the finished round with the pool's next round number.
// It returns (nil, nil) when there is nothing to persist and the existing record
// when the round was already written. On failure the winners are kept so the
// operator can retry.
func (c *DrawController) CompleteDraw(ctx context.Context) (*models.DrawRecord, error) {
	c.mu.Lock()
	if c.state.PoolID == "" || len(c.state.Winners) == 0 {
		c.commit(false)
		return nil, nil
	}
	if c.state.Persisted {
		snapshot := c.commit(false)
		return snapshot.Record, nil
	}
	if !c.state.Phase.Final() {
		c.commit(false)
		return nil, ErrDrawNotFinished
	}
	if c.busy {
		c.commit(false)
		return nil, ErrDrawInFlight
	}
	c.busy = true
	epoch := c.epoch
	poolID := c.state.PoolID
	winners := append([]models.Winner(nil), c.state.Winners...)
	c.mu.Unlock()

	record, err := c.persist(ctx, poolID, winners)

	c.mu.Lock()
	c.busy = false
	current := epoch == c.epoch
	if err != nil {
		logger.Errorf("persist draw for pool %s: %v", poolID, err)
		if current {
			c.state.PersistError = err.Error()
		}
		c.commit(current)
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	if current {
		c.state.Persisted = true
		c.state.Record = record
		c.state.PersistError = ""
	}
	c.commit(current)
	logger.Infof("draw saved: pool=%s round=%d winners=%d", poolID, record.RoundNumber, len(record.Winners))
	return record, nil
}

func (c *DrawController) persist(ctx context.Context, poolID models.PoolID, winners []models.Winner) (*models.DrawRecord, error) {
	round, err := c.store.NextRoundNumber(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("next round number: %w", err)
	}

	poolName := string(poolID)
	if pool, ok := c.pools.Pool(poolID); ok && pool.Name != "" {
		poolName = pool.Name
	}
	now := c.now()
	eventDate := c.pools.EventDate()
	if eventDate == "" {
		eventDate = now.Format(time.DateOnly)
	}

	record := &models.DrawRecord{
		ID:          uuid.NewString(),
		EventDate:   eventDate,
		PoolID:      poolID,
		PoolName:    poolName,
		RoundNumber: round,
		PrizeName:   poolName,
		Winners:     winners,
		CreatedAt:   now,
	}
	if err := c.store.AppendRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	return record, nil
}

// ResetDraw discards the in-memory draw and returns to idle.
// Records already persisted are not affected.
func (c *DrawController) ResetDraw() models.DrawState {
	c.mu.Lock()
	c.epoch++
	c.state = models.InitialDrawState()
	return c.commit(true)
}
