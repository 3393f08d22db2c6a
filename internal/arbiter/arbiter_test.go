package arbiter

import (
	"math"
	"testing"

	"tradecore/internal/ai"
	"tradecore/internal/jury"
	"tradecore/internal/policy"
	"tradecore/internal/pretrade"
	"tradecore/internal/quant"
	"tradecore/internal/risk"
)

func cleanInputs() Inputs {
	return Inputs{
		Verdict: ai.Verdict{Category: ai.VerdictApprove, Confidence: 0.8, Reasoning: "solid setup"},
		Debate:  ai.Debate{Outcome: ai.DebateAgreement, Rounds: 2},
		Risk:    risk.Result{Passed: true},
		PreTrade: pretrade.Result{Passed: true},
		Scores:  quant.ScoreSet{Composite: 0.7, StdDev: 0.1},
	}
}

func TestResolve_VetoBlocks(t *testing.T) {
	in := cleanInputs()
	in.Verdict.Category = ai.VerdictVeto
	in.Verdict.Confidence = 0.91

	decision := Resolve(in)
	if decision.Action != ActionBlocked {
		t.Fatalf("expected BLOCKED, got %s", decision.Action)
	}
	if decision.SizeFraction != 0 {
		t.Errorf("expected zero size, got %f", decision.SizeFraction)
	}
	if decision.RequiresHuman {
		t.Error("veto block must not require human approval")
	}
}

// 否决优先于陪审团升级：两者同时成立必须给出 BLOCKED，绝不是 ESCALATED。
func TestResolve_VetoBeatsEscalation(t *testing.T) {
	in := cleanInputs()
	in.Verdict.Category = ai.VerdictVeto
	in.Verdict.Confidence = 0.95
	in.Jury = &jury.Result{
		Spawned:          true,
		Decision:         jury.ChoiceEscalated,
		EscalatedToHuman: true,
		Tally:            jury.Tally{Buy: 5, Sell: 5},
	}
	in.Risk = risk.Result{Passed: false, FailedChecks: []string{"gap_risk"}}
	in.PreTrade = pretrade.Result{Passed: false, FailedChecks: []string{"dollar_sanity"}}

	decision := Resolve(in)
	if decision.Action != ActionBlocked {
		t.Fatalf("veto must win over escalation, got %s", decision.Action)
	}
}

func TestResolve_EscalationBeatsRiskFailure(t *testing.T) {
	in := cleanInputs()
	in.Jury = &jury.Result{
		Spawned:          true,
		Decision:         jury.ChoiceEscalated,
		EscalatedToHuman: true,
		Tally:            jury.Tally{Buy: 5, Sell: 5},
	}
	in.Risk = risk.Result{Passed: false, FailedChecks: []string{"cash_reserve"}}

	decision := Resolve(in)
	if decision.Action != ActionEscalated {
		t.Fatalf("expected ESCALATED, got %s", decision.Action)
	}
	if !decision.RequiresHuman {
		t.Error("escalation must require human approval")
	}
	if decision.SizeFraction != 0 {
		t.Errorf("expected zero size, got %f", decision.SizeFraction)
	}
}

func TestResolve_RiskFailureBlocks(t *testing.T) {
	in := cleanInputs()
	in.Risk = risk.Result{Passed: false, FailedChecks: []string{"sector_concentration"}}

	decision := Resolve(in)
	if decision.Action != ActionBlocked {
		t.Fatalf("expected BLOCKED, got %s", decision.Action)
	}
	if len(decision.BlockedSources) != 1 || decision.BlockedSources[0] != "sector_concentration" {
		t.Errorf("expected blocked sources from risk, got %v", decision.BlockedSources)
	}
}

func TestResolve_PreTradeFailureBlocks(t *testing.T) {
	in := cleanInputs()
	in.PreTrade = pretrade.Result{Passed: false, FailedChecks: []string{"duplicate_detection"}}

	decision := Resolve(in)
	if decision.Action != ActionBlocked {
		t.Fatalf("expected BLOCKED, got %s", decision.Action)
	}
}

func TestResolve_JuryDecisionWins(t *testing.T) {
	in := cleanInputs()
	in.Scores.Composite = 0.3 // composite alone would say SELL
	in.Jury = &jury.Result{
		Spawned:  true,
		Decision: jury.ChoiceBuy,
		Tally:    jury.Tally{Buy: 7, Sell: 2, Hold: 1},
	}

	decision := Resolve(in)
	if decision.Action != ActionBuy {
		t.Fatalf("jury decision must override composite, got %s", decision.Action)
	}
	if decision.SizeFraction <= 0 {
		t.Errorf("expected positive size, got %f", decision.SizeFraction)
	}
}

func TestResolve_CompositeThresholds(t *testing.T) {
	cases := []struct {
		composite float64
		want      Action
	}{
		{0.75, ActionBuy},
		{0.61, ActionBuy},
		{0.60, ActionHold},
		{0.50, ActionHold},
		{0.40, ActionHold},
		{0.39, ActionSell},
		{0.10, ActionSell},
	}

	for _, tc := range cases {
		in := cleanInputs()
		in.Scores.Composite = tc.composite

		decision := Resolve(in)
		if decision.Action != tc.want {
			t.Errorf("composite %.2f: expected %s, got %s", tc.composite, tc.want, decision.Action)
		}
	}
}

func TestResolve_HoldHasZeroSize(t *testing.T) {
	in := cleanInputs()
	in.Scores.Composite = 0.5

	decision := Resolve(in)
	if decision.Action != ActionHold {
		t.Fatalf("expected HOLD, got %s", decision.Action)
	}
	if decision.SizeFraction != 0 {
		t.Errorf("expected zero size on hold, got %f", decision.SizeFraction)
	}
}

func TestPositionSize_Formula(t *testing.T) {
	got := PositionSize(0.8, 0.1, false)
	want := policy.MaxPositionPct * 0.8 * 0.9
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestPositionSize_HalvedOnDisagreement(t *testing.T) {
	base := PositionSize(0.8, 0.1, false)
	halved := PositionSize(0.8, 0.1, true)
	if math.Abs(halved-base/2) > 1e-9 {
		t.Errorf("expected %f, got %f", base/2, halved)
	}
}

func TestPositionSize_Capped(t *testing.T) {
	got := PositionSize(1, 0, false)
	if got > policy.MaxPositionPct {
		t.Errorf("size %f exceeds cap %f", got, policy.MaxPositionPct)
	}
}

func TestPositionSize_ClampsInputs(t *testing.T) {
	if got := PositionSize(-0.5, 0.1, false); got != 0 {
		t.Errorf("negative confidence must size zero, got %f", got)
	}
	if got := PositionSize(0.8, 1.5, false); got != 0 {
		t.Errorf("std dev above one must size zero, got %f", got)
	}
	if got := PositionSize(2, 0, false); got > policy.MaxPositionPct {
		t.Errorf("overconfident input %f exceeds cap", got)
	}
}
