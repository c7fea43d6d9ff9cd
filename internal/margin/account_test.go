package margin

import (
	"math"
	"testing"
)

func TestUnrealizedPnLBothLegs(t *testing.T) {
	account := NewAccount(100_000, 10, 0.25)
	account.SetLegs(Leg{Qty: -1, EntryPrice: 100}, Leg{Qty: 1, EntryPrice: 102})

	// Perp short gains when the perp falls; future long gains when it rises.
	pnl := account.UnrealizedPnL(98, 104)
	if pnl != 4 {
		t.Fatalf("expected pnl 4, got %g", pnl)
	}
}

func TestMarginRequiredUnderLeverage(t *testing.T) {
	account := NewAccount(100_000, 10, 0.25)
	account.SetLegs(Leg{Qty: -2, EntryPrice: 100}, Leg{Qty: 2, EntryPrice: 100})

	if got := account.MarginRequired(); got != 40 {
		t.Fatalf("expected margin 40, got %g", got)
	}
}

func TestMarginRatioNoPositions(t *testing.T) {
	account := NewAccount(100_000, 10, 0.25)
	if ratio := account.MarginRatio(100, 100); !math.IsInf(ratio, 1) {
		t.Fatalf("expected +Inf ratio with no positions, got %g", ratio)
	}
	if account.CheckLiquidation(100, 100) {
		t.Fatalf("flat account must never liquidate")
	}
}

func TestCheckLiquidation(t *testing.T) {
	account := NewAccount(1_000, 10, 0.25)
	account.SetLegs(Leg{Qty: 100, EntryPrice: 100}, Leg{})

	// Equity 1000 + 100*(p-100); margin required 1000; breach below ratio 0.25.
	if account.CheckLiquidation(100, 0) {
		t.Fatalf("unexpected liquidation at entry price")
	}
	if !account.CheckLiquidation(92, 0) {
		t.Fatalf("expected liquidation after adverse move")
	}
	if !account.Liquidated() {
		t.Fatalf("liquidation flag not latched")
	}
}

func TestFlattenSettlesRealized(t *testing.T) {
	account := NewAccount(100_000, 10, 0.25)
	account.SetLegs(Leg{Qty: 1, EntryPrice: 100}, Leg{Qty: -1, EntryPrice: 101})
	account.Flatten(250)

	if account.Cash() != 100_250 {
		t.Fatalf("expected cash 100250, got %g", account.Cash())
	}
	if pnl := account.UnrealizedPnL(105, 105); pnl != 0 {
		t.Fatalf("expected zero pnl after flatten, got %g", pnl)
	}
}

func TestNewAccountDefaults(t *testing.T) {
	account := NewAccount(0, 0, 0)
	if account.cash != 100_000 || account.leverage != 10 || account.maintenanceRatio != 0.25 {
		t.Fatalf("unexpected defaults: %+v", account)
	}
}
