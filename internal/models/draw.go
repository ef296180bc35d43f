package models

// DrawPhase is a state of the kiosk draw sequence.
type DrawPhase string

const (
	PhaseIdle      DrawPhase = "idle"
	PhaseMeteor    DrawPhase = "meteor"
	PhasePortal    DrawPhase = "portal"
	PhaseLanding   DrawPhase = "landing"
	PhaseRevealing DrawPhase = "revealing"
	PhaseResult    DrawPhase = "result"
	// PhaseSkipped is rendered like PhaseResult. The controller itself always
	// lands on PhaseResult when the animation is skipped.
	PhaseSkipped DrawPhase = "skipped"
)

// Final reports whether the phase shows the winner list.
func (p DrawPhase) Final() bool {
	return p == PhaseResult || p == PhaseSkipped
}

// DrawResult is the output of the selection engine.
type DrawResult struct {
	Winners       []Participant `json:"winners"`
	ActualCount   int           `json:"actualCount"`
	ShouldConfirm bool          `json:"shouldConfirm"`
	Reason        string        `json:"reason,omitempty"`
}

// DrawState is the in-memory state of the single kiosk draw.
type DrawState struct {
	Phase              DrawPhase `json:"phase"`
	PoolID             PoolID    `json:"poolId,omitempty"`
	TargetCount        int       `json:"targetCount"`
	ActualCount        int       `json:"actualCount"`
	Winners            []Winner  `json:"winners"`
	CurrentRevealIndex int       `json:"currentRevealIndex"`
	ShouldConfirm      bool      `json:"shouldConfirm"`
	ConfirmReason      string    `json:"confirmReason,omitempty"`

	// Persisted is set once CompleteDraw wrote the record.
	Persisted    bool        `json:"persisted"`
	Record       *DrawRecord `json:"record,omitempty"`
	PersistError string      `json:"persistError,omitempty"`
}

// InitialDrawState returns the state of a kiosk with nothing drawn.
func InitialDrawState() DrawState {
	return DrawState{
		Phase:              PhaseIdle,
		Winners:            []Winner{},
		CurrentRevealIndex: -1,
	}
}

// Clone returns a copy that shares no slices with s.
func (s DrawState) Clone() DrawState {
	cp := s
	cp.Winners = append([]Winner(nil), s.Winners...)
	if cp.Winners == nil {
		cp.Winners = []Winner{}
	}
	if s.Record != nil {
		rec := *s.Record
		rec.Winners = append([]Winner(nil), s.Record.Winners...)
		cp.Record = &rec
	}
	return cp
}
