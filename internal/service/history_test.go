package service

import (
	"testing"
	"time"

	"factmarket/internal/models"
)

func TestReplayHistory_Empty(t *testing.T) {
	points := replayHistory(d("1000"), d("1000"), nil)
	if len(points) != 0 {
		t.Fatalf("points=%d want 0", len(points))
	}
}

func TestReplayHistory_TracksProbabilityAndVolume(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		{MarketID: "m1", UserID: "alice", Outcome: models.OutcomeYes, Cost: d("100"), CreatedAt: base},
		{MarketID: "m1", UserID: "bob", Outcome: models.OutcomeNo, Cost: d("50"), CreatedAt: base.Add(time.Hour)},
	}
	points := replayHistory(d("1000"), d("1000"), trades)
	if len(points) != 2 {
		t.Fatalf("points=%d want 2", len(points))
	}

	// First trade matches the canonical 1000/1000 + buy(yes, 100) example.
	first := points[0]
	if first.YesProbability.Sub(d("0.547511")).Abs().GreaterThan(d("0.000001")) {
		t.Fatalf("first yes prob=%s want ~0.547511", first.YesProbability)
	}
	if !first.Volume.Equal(d("100")) {
		t.Fatalf("first volume=%s want 100", first.Volume)
	}

	second := points[1]
	if !second.Volume.Equal(d("150")) {
		t.Fatalf("second volume=%s want 150", second.Volume)
	}
	// The no-buy pushes yes probability back down.
	if second.YesProbability.GreaterThanOrEqual(first.YesProbability) {
		t.Fatalf("yes prob should fall after a no-buy: %s -> %s", first.YesProbability, second.YesProbability)
	}
	if !second.Timestamp.After(first.Timestamp) {
		t.Fatalf("points must be chronological")
	}
}

func TestReplayHistory_ProbabilitiesSumToOne(t *testing.T) {
	trades := []models.Trade{
		{Outcome: models.OutcomeYes, Cost: d("10")},
		{Outcome: models.OutcomeYes, Cost: d("200")},
		{Outcome: models.OutcomeNo, Cost: d("75")},
	}
	for _, p := range replayHistory(d("1000"), d("1000"), trades) {
		sum := p.YesProbability.Add(p.NoProbability)
		if sum.Sub(d("1")).Abs().GreaterThan(d("0.000001")) {
			t.Fatalf("probabilities sum to %s, want 1", sum)
		}
	}
}
