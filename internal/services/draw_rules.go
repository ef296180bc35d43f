package services

import (
	"fmt"
	"math/rand"

	"kiosk-lottery/internal/models"
)

const (
	// ReasonNoEligible is shown when nobody is left to draw for a pool.
	ReasonNoEligible = "无可抽取人员"
	reasonReducedFmt = "人数不足，从 %d 缩减为 %d"
)

// RandSource supplies the randomness for a draw. *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

// globalRand uses the locked top-level math/rand source.
type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// DefaultRand is the source used when none is injected.
var DefaultRand RandSource = globalRand{}

// EligibleParticipants returns the roster entries that may still win in poolID.
// Regular tiers exclude anyone who has won any regular tier; the lucky tier only
// excludes previous lucky winners.
func EligibleParticipants(roster []models.Participant, history []models.DrawRecord, poolID models.PoolID) []models.Participant {
	regularWinners := make(map[string]bool)
	luckyWinners := make(map[string]bool)
	for _, record := range history {
		for _, w := range record.Winners {
			if record.PoolID.IsLucky() {
				luckyWinners[w.Participant.ID] = true
			} else {
				regularWinners[w.Participant.ID] = true
			}
		}
	}

	excluded := regularWinners
	if poolID.IsLucky() {
		excluded = luckyWinners
	}

	eligible := make([]models.Participant, 0, len(roster))
	for _, p := range roster {
		if !excluded[p.ID] {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// SelectWinners draws up to requested distinct participants for poolID.
// It has no side effects; the only input besides its arguments is rnd.
func SelectWinners(roster []models.Participant, history []models.DrawRecord, poolID models.PoolID, requested int, rnd RandSource) models.DrawResult {
	if rnd == nil {
		rnd = DefaultRand
	}
	eligible := EligibleParticipants(roster, history, poolID)

	if len(eligible) == 0 {
		return models.DrawResult{
			Winners:       []models.Participant{},
			ActualCount:   0,
			ShouldConfirm: true,
			Reason:        ReasonNoEligible,
		}
	}

	actual := min(requested, len(eligible))
	if actual < 0 {
		actual = 0
	}

	// Partial Fisher-Yates: the first actual slots end up uniformly sampled.
	for i := 0; i < actual; i++ {
		j := i + rnd.Intn(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}

	result := models.DrawResult{
		Winners:       eligible[:actual:actual],
		ActualCount:   actual,
		ShouldConfirm: actual < requested,
	}
	if result.ShouldConfirm {
		result.Reason = fmt.Sprintf(reasonReducedFmt, requested, actual)
	}
	return result
}
