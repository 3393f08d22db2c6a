package risk

import (
	"testing"

	"tradecore/internal/policy"
)

func healthyContext() Context {
	return Context{
		Ticker:           "BTC/USDT",
		Sector:           "layer1",
		ProposedFraction: 0.08,
		PortfolioValue:   100000,
		Cash:             50000,
		Holdings: []HoldingSnapshot{
			{Ticker: "ETH/USDT", Value: 10000, Sector: "layer1", Correlation30D: 0.5, StressCorrelation: 0.6},
		},
		GapRisk:     0.2,
		ModelStdDev: 0.1,
	}
}

func TestRunChecks_AllPass(t *testing.T) {
	result := NewEngine(nil).RunChecks(healthyContext())

	if !result.Passed {
		t.Fatalf("expected overall pass, failed checks: %v", result.FailedChecks)
	}
	if len(result.Checks) != 7 {
		t.Fatalf("expected 7 checks, got %d", len(result.Checks))
	}
	if len(result.FailedChecks) != 0 {
		t.Errorf("expected empty failure list, got %v", result.FailedChecks)
	}
}

func TestRunChecks_FixedOrder(t *testing.T) {
	expected := []string{
		CheckPositionSize,
		CheckCashReserve,
		CheckCorrelation,
		CheckStressCorrelation,
		CheckSectorConcentration,
		CheckGapRisk,
		CheckModelDisagreement,
	}

	result := NewEngine(nil).RunChecks(healthyContext())
	for i, check := range result.Checks {
		if check.Name != expected[i] {
			t.Errorf("check %d: expected %s, got %s", i, expected[i], check.Name)
		}
	}
}

func TestRunChecks_NoShortCircuit(t *testing.T) {
	ctx := healthyContext()
	ctx.ProposedFraction = 0.5 // fails position_size and more

	result := NewEngine(nil).RunChecks(ctx)
	if result.Passed {
		t.Fatal("expected overall failure")
	}
	if len(result.Checks) != 7 {
		t.Fatalf("all 7 checks must run even after a failure, got %d", len(result.Checks))
	}
}

func TestCheckPositionSize_RejectsOversize(t *testing.T) {
	ctx := healthyContext()
	ctx.ProposedFraction = policy.MaxPositionPct + 0.001

	result := NewEngine(nil).RunChecks(ctx)
	if !containsCheck(result.FailedChecks, CheckPositionSize) {
		t.Errorf("expected position_size failure, got %v", result.FailedChecks)
	}
}

func TestCheckCashReserve_RejectsLowReserve(t *testing.T) {
	ctx := healthyContext()
	ctx.Cash = 15000 // after an 8000 cost the reserve drops to 7%

	result := NewEngine(nil).RunChecks(ctx)
	if !containsCheck(result.FailedChecks, CheckCashReserve) {
		t.Errorf("expected cash_reserve failure, got %v", result.FailedChecks)
	}
}

func TestCheckCorrelation_CountsHighlyCorrelated(t *testing.T) {
	ctx := healthyContext()
	ctx.Holdings = []HoldingSnapshot{
		{Ticker: "A", Correlation30D: 0.75},
		{Ticker: "B", Correlation30D: 0.70},
		{Ticker: "C", Correlation30D: 0.90},
		{Ticker: "D", Correlation30D: 0.30},
	}

	result := NewEngine(nil).RunChecks(ctx)
	if !containsCheck(result.FailedChecks, CheckCorrelation) {
		t.Errorf("expected correlation failure with 3 correlated holdings, got %v", result.FailedChecks)
	}

	// Two correlated holdings stay below the limit of three.
	ctx.Holdings = ctx.Holdings[:2]
	result = NewEngine(nil).RunChecks(ctx)
	if containsCheck(result.FailedChecks, CheckCorrelation) {
		t.Errorf("expected correlation pass with 2 correlated holdings, got %v", result.FailedChecks)
	}
}

func TestCheckStressCorrelation_ZeroTolerance(t *testing.T) {
	ctx := healthyContext()
	ctx.Holdings = []HoldingSnapshot{
		{Ticker: "A", StressCorrelation: policy.StressCorrelationThreshold},
	}

	result := NewEngine(nil).RunChecks(ctx)
	if !containsCheck(result.FailedChecks, CheckStressCorrelation) {
		t.Errorf("expected stress_correlation failure, got %v", result.FailedChecks)
	}
}

func TestCheckSectorConcentration_FailsAlone(t *testing.T) {
	ctx := healthyContext()
	ctx.ProposedFraction = 0.10
	ctx.Holdings = []HoldingSnapshot{
		{Ticker: "ETH/USDT", Value: 35000, Sector: "layer1", Correlation30D: 0.3, StressCorrelation: 0.2},
	}

	result := NewEngine(nil).RunChecks(ctx)
	if result.Passed {
		t.Fatal("expected overall failure")
	}
	if len(result.FailedChecks) != 1 || result.FailedChecks[0] != CheckSectorConcentration {
		t.Errorf("expected only sector_concentration to fail, got %v", result.FailedChecks)
	}
}

func TestCheckSectorConcentration_CustomLimit(t *testing.T) {
	ctx := healthyContext()
	ctx.ProposedFraction = 0.10
	ctx.Holdings = nil
	ctx.SectorLimits = map[string]float64{"layer1": 0.05}

	result := NewEngine(nil).RunChecks(ctx)
	if !containsCheck(result.FailedChecks, CheckSectorConcentration) {
		t.Errorf("expected sector_concentration failure under tightened limit, got %v", result.FailedChecks)
	}
}

func TestCheckGapRiskAndDisagreement(t *testing.T) {
	ctx := healthyContext()
	ctx.GapRisk = 0.75
	ctx.ModelStdDev = 0.55

	result := NewEngine(nil).RunChecks(ctx)
	if !containsCheck(result.FailedChecks, CheckGapRisk) {
		t.Errorf("expected gap_risk failure, got %v", result.FailedChecks)
	}
	if !containsCheck(result.FailedChecks, CheckModelDisagreement) {
		t.Errorf("expected model_disagreement failure, got %v", result.FailedChecks)
	}
}

func containsCheck(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
