package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/repositories"
)

// memStore is an in-memory DrawRecordRepository with switchable failures.
type memStore struct {
	mu         sync.Mutex
	records    []models.DrawRecord
	failAppend error
	failList   error
}

func (m *memStore) AppendRecord(_ context.Context, record *models.DrawRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return m.failAppend
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memStore) NextRoundNumber(_ context.Context, poolID models.PoolID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxRound := 0
	for _, r := range m.records {
		if r.PoolID == poolID && r.RoundNumber > maxRound {
			maxRound = r.RoundNumber
		}
	}
	return maxRound + 1, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.DrawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, repositories.ErrRecordNotFound
}

func (m *memStore) ListRecords(context.Context) ([]models.DrawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	return append([]models.DrawRecord(nil), m.records...), nil
}

func (m *memStore) ListRecordsByPool(_ context.Context, poolID models.PoolID) ([]models.DrawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DrawRecord
	for _, r := range m.records {
		if r.PoolID == poolID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (m *memStore) ClearAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type testPools struct{}

func (testPools) Pool(id models.PoolID) (models.PrizePool, bool) {
	names := map[models.PoolID]string{
		models.PoolFirst:  "一等奖",
		models.PoolSecond: "二等奖",
		models.PoolThird:  "三等奖",
		models.PoolFourth: "四等奖",
		models.PoolLucky:  "幸运奖",
	}
	name, ok := names[id]
	return models.PrizePool{ID: id, Name: name, MaxWinners: 5, IsLucky: id.IsLucky()}, ok
}

func (testPools) EventDate() string { return "2026-01-20" }

func makeRoster(n int) []models.Participant {
	roster := make([]models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		roster = append(roster, models.Participant{ID: fmt.Sprintf("%03d", i), Name: fmt.Sprintf("员工%d", i)})
	}
	return roster
}

func recordOf(poolID models.PoolID, round int, ids ...string) models.DrawRecord {
	winners := make([]models.Winner, 0, len(ids))
	for _, id := range ids {
		winners = append(winners, models.Winner{Participant: models.Participant{ID: id}})
	}
	return models.DrawRecord{ID: fmt.Sprintf("%s-%d", poolID, round), PoolID: poolID, RoundNumber: round, Winners: winners}
}

// fakeClock collects timers and fires them only when a test asks.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs t's callback as the runtime would once its duration elapsed.
func (c *fakeClock) fire(t *fakeTimer) {
	c.mu.Lock()
	t.fired = true
	c.mu.Unlock()
	t.f()
}

// blockingStore holds ListRecords and AppendRecord until the test releases them.
type blockingStore struct {
	*memStore
	listEntered   chan struct{}
	appendEntered chan struct{}
	releaseList   chan struct{}
	releaseAppend chan struct{}
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		memStore:      &memStore{},
		listEntered:   make(chan struct{}, 1),
		appendEntered: make(chan struct{}, 1),
		releaseList:   make(chan struct{}),
		releaseAppend: make(chan struct{}),
	}
}

func (b *blockingStore) ListRecords(ctx context.Context) ([]models.DrawRecord, error) {
	select {
	case b.listEntered <- struct{}{}:
	default:
	}
	<-b.releaseList
	return b.memStore.ListRecords(ctx)
}

func (b *blockingStore) AppendRecord(ctx context.Context, record *models.DrawRecord) error {
	select {
	case b.appendEntered <- struct{}{}:
	default:
	}
	<-b.releaseAppend
	return b.memStore.AppendRecord(ctx, record)
}

// stateRecorder keeps every state an observer was given.
type stateRecorder struct {
	mu     sync.Mutex
	states []models.DrawState
}

func (r *stateRecorder) observe(s models.DrawState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) phases() []models.DrawPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.DrawPhase, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Phase)
	}
	return out
}

func (r *stateRecorder) last() (models.DrawState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return models.DrawState{}, false
	}
	return r.states[len(r.states)-1], true
}
