package pretrade

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func validOrder() Context {
	return Context{
		Ticker:         "BTC/USDT",
		Side:           SideBuy,
		Quantity:       100,
		Price:          50,
		PortfolioValue: 100000,
		Now:            testNow,
	}
}

func TestValidate_AllPass(t *testing.T) {
	result := NewValidator(nil).Validate(validOrder())

	if !result.Passed {
		t.Fatalf("expected overall pass, failed checks: %v", result.FailedChecks)
	}
	if len(result.Checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(result.Checks))
	}
}

func TestValidate_FixedOrder(t *testing.T) {
	expected := []string{
		CheckQuantitySanity,
		CheckDuplicateOrder,
		CheckPortfolioImpact,
		CheckDollarSanity,
	}

	result := NewValidator(nil).Validate(validOrder())
	for i, check := range result.Checks {
		if check.Name != expected[i] {
			t.Errorf("check %d: expected %s, got %s", i, expected[i], check.Name)
		}
	}
}

func TestQuantitySanity(t *testing.T) {
	cases := []struct {
		name     string
		quantity int64
		pass     bool
	}{
		{"zero quantity", 0, false},
		{"negative quantity", -5, false},
		{"at limit", 100000, true},
		{"above limit", 100001, false},
		{"normal", 500, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := validOrder()
			ctx.Quantity = tc.quantity
			ctx.Price = 0.01 // keep dollar checks out of the way

			result := NewValidator(nil).Validate(ctx)
			failed := containsCheck(result.FailedChecks, CheckQuantitySanity)
			if tc.pass && failed {
				t.Errorf("expected quantity %d to pass", tc.quantity)
			}
			if !tc.pass && !failed {
				t.Errorf("expected quantity %d to fail", tc.quantity)
			}
		})
	}
}

func TestDuplicateDetection(t *testing.T) {
	ctx := validOrder()
	ctx.RecentOrders = []OrderStamp{
		{Ticker: "BTC/USDT", Side: SideBuy, PlacedAt: testNow.Add(-30 * time.Second)},
	}

	result := NewValidator(nil).Validate(ctx)
	if !containsCheck(result.FailedChecks, CheckDuplicateOrder) {
		t.Errorf("expected duplicate within 60s window to fail, got %v", result.FailedChecks)
	}
}

func TestDuplicateDetection_OutsideWindow(t *testing.T) {
	ctx := validOrder()
	ctx.RecentOrders = []OrderStamp{
		{Ticker: "BTC/USDT", Side: SideBuy, PlacedAt: testNow.Add(-61 * time.Second)},
	}

	result := NewValidator(nil).Validate(ctx)
	if containsCheck(result.FailedChecks, CheckDuplicateOrder) {
		t.Errorf("order outside window must not count as duplicate, got %v", result.FailedChecks)
	}
}

func TestDuplicateDetection_DifferentSideAllowed(t *testing.T) {
	ctx := validOrder()
	ctx.RecentOrders = []OrderStamp{
		{Ticker: "BTC/USDT", Side: SideSell, PlacedAt: testNow.Add(-10 * time.Second)},
		{Ticker: "ETH/USDT", Side: SideBuy, PlacedAt: testNow.Add(-10 * time.Second)},
	}

	result := NewValidator(nil).Validate(ctx)
	if containsCheck(result.FailedChecks, CheckDuplicateOrder) {
		t.Errorf("different side or ticker must not count as duplicate, got %v", result.FailedChecks)
	}
}

// 告警级检查同样让聚合结论失败，但级别必须标记为 warn。
func TestPortfolioImpact_WarnSeverityStillFails(t *testing.T) {
	ctx := validOrder()
	ctx.Quantity = 220
	ctx.Price = 50 // 11% of portfolio, above warn threshold but below dollar limit

	result := NewValidator(nil).Validate(ctx)
	if result.Passed {
		t.Fatal("expected overall failure")
	}
	if !containsCheck(result.FailedChecks, CheckPortfolioImpact) {
		t.Fatalf("expected portfolio_impact failure, got %v", result.FailedChecks)
	}

	for _, check := range result.Checks {
		if check.Name == CheckPortfolioImpact && check.Severity != SeverityWarn {
			t.Errorf("expected warn severity, got %s", check.Severity)
		}
	}
}

func TestDollarSanity(t *testing.T) {
	ctx := validOrder()
	ctx.Quantity = 260
	ctx.Price = 50 // 13000 > 12% of 100000

	result := NewValidator(nil).Validate(ctx)
	if !containsCheck(result.FailedChecks, CheckDollarSanity) {
		t.Errorf("expected dollar_sanity failure, got %v", result.FailedChecks)
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
