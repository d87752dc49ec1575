package service

import (
	"testing"

	"factmarket/internal/amm"
	"factmarket/internal/client/assessor"
	"factmarket/internal/config"
	"factmarket/internal/models"
)

func seedingConfig() config.SeedingConfig {
	return config.SeedingConfig{
		MinConfidence:         0.4,
		MaxShift:              0.20,
		ReassessMinConfidence: 0.6,
		ReassessMinGap:        0.15,
		ReassessMaxAmount:     30,
		ReassessSeedFraction:  0.3,
	}
}

func TestDecideSeed_LowConfidence(t *testing.T) {
	a := assessor.Assessment{YesProbability: 0.8, Confidence: 0.3, RecommendedSeedAmount: 100}
	decision := decideSeed(a, d("1000"), d("1000"), seedingConfig())
	if decision.Execute {
		t.Fatalf("confidence 0.3 must not trade")
	}
	if decision.Reason != reasonLowConfidence {
		t.Fatalf("reason=%q want %q", decision.Reason, reasonLowConfidence)
	}
}

func TestDecideSeed_PicksOutcomeFromProbability(t *testing.T) {
	cfg := seedingConfig()

	yes := decideSeed(assessor.Assessment{YesProbability: 0.65, Confidence: 0.9, RecommendedSeedAmount: 50}, d("1000"), d("1000"), cfg)
	if !yes.Execute || yes.Outcome != models.OutcomeYes {
		t.Fatalf("decision=%+v want yes trade", yes)
	}

	no := decideSeed(assessor.Assessment{YesProbability: 0.35, Confidence: 0.9, RecommendedSeedAmount: 50}, d("1000"), d("1000"), cfg)
	if !no.Execute || no.Outcome != models.OutcomeNo {
		t.Fatalf("decision=%+v want no trade", no)
	}
}

func TestDecideSeed_ClampsTargetShift(t *testing.T) {
	// An extreme 95% assessment must not push the market past 70%.
	a := assessor.Assessment{YesProbability: 0.95, Confidence: 0.9, RecommendedSeedAmount: 10000}
	decision := decideSeed(a, d("1000"), d("1000"), seedingConfig())
	if !decision.Execute {
		t.Fatalf("expected trade, got skip %q", decision.Reason)
	}
	res, err := amm.Buy(d("1000"), d("1000"), decision.Outcome, decision.Amount)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.ProbYes.GreaterThan(d("0.7001")) {
		t.Fatalf("seed moved market to %s, clamp is 0.70", res.ProbYes)
	}
}

func TestDecideSeed_SmallRecommendationNotInflated(t *testing.T) {
	// A recommendation below the clamp cap is used as-is.
	a := assessor.Assessment{YesProbability: 0.95, Confidence: 0.9, RecommendedSeedAmount: 25}
	decision := decideSeed(a, d("1000"), d("1000"), seedingConfig())
	if !decision.Execute {
		t.Fatalf("expected trade, got skip %q", decision.Reason)
	}
	if !decision.Amount.Equal(d("25")) {
		t.Fatalf("amount=%s want 25", decision.Amount)
	}
}

func TestDecideReassess_RequiresConfidenceAndGap(t *testing.T) {
	cfg := seedingConfig()

	lowConf := decideReassess(assessor.Assessment{YesProbability: 0.9, Confidence: 0.5, RecommendedSeedAmount: 100}, 0.5, cfg)
	if lowConf.Execute || lowConf.Reason != reasonLowConfidence {
		t.Fatalf("decision=%+v want low_confidence skip", lowConf)
	}

	withinBand := decideReassess(assessor.Assessment{YesProbability: 0.6, Confidence: 0.9, RecommendedSeedAmount: 100}, 0.5, cfg)
	if withinBand.Execute || withinBand.Reason != reasonWithinBand {
		t.Fatalf("decision=%+v want within_band skip", withinBand)
	}
}

func TestDecideReassess_CapsAdjustmentSize(t *testing.T) {
	cfg := seedingConfig()

	// 30% of 200 = 60, capped at 30.
	big := decideReassess(assessor.Assessment{YesProbability: 0.9, Confidence: 0.9, RecommendedSeedAmount: 200}, 0.5, cfg)
	if !big.Execute || !big.Amount.Equal(d("30")) {
		t.Fatalf("decision=%+v want amount 30", big)
	}

	// 30% of 50 = 15, below the cap.
	small := decideReassess(assessor.Assessment{YesProbability: 0.9, Confidence: 0.9, RecommendedSeedAmount: 50}, 0.5, cfg)
	if !small.Execute || !small.Amount.Equal(d("15")) {
		t.Fatalf("decision=%+v want amount 15", small)
	}
}

func TestDecideReassess_TradesTowardAssessment(t *testing.T) {
	cfg := seedingConfig()

	up := decideReassess(assessor.Assessment{YesProbability: 0.8, Confidence: 0.9, RecommendedSeedAmount: 100}, 0.5, cfg)
	if up.Outcome != models.OutcomeYes {
		t.Fatalf("outcome=%q want yes", up.Outcome)
	}

	down := decideReassess(assessor.Assessment{YesProbability: 0.2, Confidence: 0.9, RecommendedSeedAmount: 100}, 0.5, cfg)
	if down.Outcome != models.OutcomeNo {
		t.Fatalf("outcome=%q want no", down.Outcome)
	}
}
