package services

import (
	"math/rand"
	"testing"

	"kiosk-lottery/internal/models"
)

func TestSelectWinners(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	t.Run("Test single winner from a fresh roster", func(t *testing.T) {
		result := SelectWinners(makeRoster(12), nil, models.PoolFirst, 1, rnd)
		if len(result.Winners) != 1 || result.ActualCount != 1 {
			t.Fatalf("Expected exactly 1 winner, got %d (actual %d)", len(result.Winners), result.ActualCount)
		}
		if result.ShouldConfirm {
			t.Errorf("Expected no confirmation, got reason %q", result.Reason)
		}
	})

	t.Run("Test no eligible participants", func(t *testing.T) {
		history := []models.DrawRecord{recordOf(models.PoolFirst, 1, "001", "002", "003")}
		result := SelectWinners(makeRoster(3), history, models.PoolFirst, 2, rnd)
		if len(result.Winners) != 0 || result.ActualCount != 0 {
			t.Fatalf("Expected no winners, got %d", len(result.Winners))
		}
		if !result.ShouldConfirm || result.Reason != ReasonNoEligible {
			t.Errorf("Expected confirmation with %q, got %t %q", ReasonNoEligible, result.ShouldConfirm, result.Reason)
		}
	})

	t.Run("Test shortfall reduces the count", func(t *testing.T) {
		result := SelectWinners(makeRoster(5), nil, models.PoolLucky, 10, rnd)
		if result.ActualCount != 5 || len(result.Winners) != 5 {
			t.Fatalf("Expected 5 winners, got %d", len(result.Winners))
		}
		if !result.ShouldConfirm {
			t.Fatal("Expected confirmation for a reduced draw")
		}
		if want := "人数不足，从 10 缩减为 5"; result.Reason != want {
			t.Errorf("Expected reason %q, got %q", want, result.Reason)
		}
	})

	t.Run("Test regular winner stays eligible for lucky", func(t *testing.T) {
		roster := []models.Participant{{ID: "A", Name: "Alice"}}
		history := []models.DrawRecord{recordOf(models.PoolSecond, 1, "A")}
		result := SelectWinners(roster, history, models.PoolLucky, 1, rnd)
		if len(result.Winners) != 1 || result.Winners[0].ID != "A" {
			t.Fatalf("Expected A to win lucky, got %+v", result.Winners)
		}
	})

	t.Run("Test lucky winner stays eligible for regular pools", func(t *testing.T) {
		roster := []models.Participant{{ID: "A", Name: "Alice"}}
		history := []models.DrawRecord{recordOf(models.PoolLucky, 1, "A")}
		for _, pool := range []models.PoolID{models.PoolFirst, models.PoolSecond, models.PoolThird, models.PoolFourth} {
			result := SelectWinners(roster, history, pool, 1, rnd)
			if len(result.Winners) != 1 {
				t.Errorf("Expected A to be eligible for %s", pool)
			}
		}
		if result := SelectWinners(roster, history, models.PoolLucky, 1, rnd); len(result.Winners) != 0 {
			t.Errorf("Expected A to be excluded from lucky, got %+v", result.Winners)
		}
	})
}

func TestEligibleParticipants_RegularPoolsAreExclusive(t *testing.T) {
	roster := makeRoster(6)
	history := []models.DrawRecord{
		recordOf(models.PoolFirst, 1, "001"),
		recordOf(models.PoolThird, 1, "002", "003"),
		recordOf(models.PoolLucky, 1, "004"),
	}

	for _, pool := range []models.PoolID{models.PoolFirst, models.PoolSecond, models.PoolThird, models.PoolFourth} {
		eligible := EligibleParticipants(roster, history, pool)
		ids := make(map[string]bool)
		for _, p := range eligible {
			ids[p.ID] = true
		}
		for _, excluded := range []string{"001", "002", "003"} {
			if ids[excluded] {
				t.Errorf("%s: regular winner %s must not be eligible", pool, excluded)
			}
		}
		if !ids["004"] || len(eligible) != 3 {
			t.Errorf("%s: expected 004, 005, 006 eligible, got %+v", pool, eligible)
		}
	}

	lucky := EligibleParticipants(roster, history, models.PoolLucky)
	if len(lucky) != 5 {
		t.Fatalf("Expected 5 eligible for lucky, got %d", len(lucky))
	}
	for _, p := range lucky {
		if p.ID == "004" {
			t.Error("Expected previous lucky winner 004 to be excluded from lucky")
		}
	}
}

func TestSelectWinners_CountAndUniqueness(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	roster := makeRoster(20)
	history := []models.DrawRecord{recordOf(models.PoolFourth, 1, "001", "002", "003", "004", "005")}

	for requested := 1; requested <= 25; requested++ {
		result := SelectWinners(roster, history, models.PoolSecond, requested, rnd)
		wantActual := min(requested, 15)
		if result.ActualCount != wantActual || len(result.Winners) != wantActual {
			t.Fatalf("requested %d: expected %d winners, got %d (actual %d)", requested, wantActual, len(result.Winners), result.ActualCount)
		}
		if result.ShouldConfirm != (wantActual < requested) {
			t.Errorf("requested %d: unexpected ShouldConfirm %t", requested, result.ShouldConfirm)
		}
		seen := make(map[string]bool)
		for _, w := range result.Winners {
			if seen[w.ID] {
				t.Fatalf("requested %d: duplicate winner %s", requested, w.ID)
			}
			seen[w.ID] = true
		}
	}
}

func TestSelectWinners_DeterministicWithSeed(t *testing.T) {
	roster := makeRoster(30)
	a := SelectWinners(roster, nil, models.PoolLucky, 5, rand.New(rand.NewSource(99)))
	b := SelectWinners(roster, nil, models.PoolLucky, 5, rand.New(rand.NewSource(99)))
	for i := range a.Winners {
		if a.Winners[i].ID != b.Winners[i].ID {
			t.Fatalf("Expected identical draws for the same seed, got %v and %v", a.Winners, b.Winners)
		}
	}
}

func TestSelectWinners_DoesNotFavourRosterOrder(t *testing.T) {
	rnd := rand.New(rand.NewSource(2024))
	roster := makeRoster(5)
	counts := make(map[string]int)
	const trials = 5000
	for i := 0; i < trials; i++ {
		result := SelectWinners(roster, nil, models.PoolFirst, 1, rnd)
		counts[result.Winners[0].ID]++
	}
	for _, p := range roster {
		// Expected 1000 each.
		if counts[p.ID] < 850 || counts[p.ID] > 1150 {
			t.Errorf("participant %s won %d of %d draws, outside the expected range", p.ID, counts[p.ID], trials)
		}
	}
}

func TestSelectWinners_DoesNotMutateRoster(t *testing.T) {
	roster := makeRoster(10)
	before := append([]models.Participant(nil), roster...)
	SelectWinners(roster, nil, models.PoolFirst, 10, rand.New(rand.NewSource(3)))
	for i := range roster {
		if roster[i] != before[i] {
			t.Fatalf("roster was reordered at %d", i)
		}
	}
}
