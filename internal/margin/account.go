// Package margin models the peripheral leveraged-account bookkeeping for the
// fixed two-instrument universe: one perpetual leg, one future leg.
package margin

import "math"

// Leg is the position record for a single instrument.
type Leg struct {
	Qty        float64
	EntryPrice float64
}

// Account tracks cash and the two legs under leverage, with a
// maintenance-margin liquidation check. The instrument set is closed, so the
// legs are named fields rather than a map.
type Account struct {
	cash             float64
	perp             Leg
	future           Leg
	leverage         float64
	maintenanceRatio float64
	liquidated       bool
}

// NewAccount builds an account, defaulting cash to 100000, leverage to 10,
// and the maintenance ratio to 0.25 when non-positive values are given.
func NewAccount(initialCash, leverage, maintenanceRatio float64) *Account {
	if initialCash <= 0 {
		initialCash = 100_000
	}
	if leverage <= 0 {
		leverage = 10
	}
	if maintenanceRatio <= 0 {
		maintenanceRatio = 0.25
	}
	return &Account{cash: initialCash, leverage: leverage, maintenanceRatio: maintenanceRatio}
}

// SetLegs replaces both position records, e.g. when the simulator opens a
// spread position. Quantities are signed (negative = short).
func (a *Account) SetLegs(perp, future Leg) {
	a.perp = perp
	a.future = future
}

// Flatten clears both legs and settles the given realized PnL into cash.
func (a *Account) Flatten(realized float64) {
	a.perp = Leg{}
	a.future = Leg{}
	a.cash += realized
}

// Cash returns the current cash balance.
func (a *Account) Cash() float64 { return a.cash }

// Liquidated reports whether a maintenance-margin breach has been recorded.
func (a *Account) Liquidated() bool { return a.liquidated }

// UnrealizedPnL marks both legs to the given prices.
func (a *Account) UnrealizedPnL(perpPrice, futurePrice float64) float64 {
	perpPnL := a.perp.Qty * (perpPrice - a.perp.EntryPrice)
	futurePnL := a.future.Qty * (futurePrice - a.future.EntryPrice)
	return perpPnL + futurePnL
}

// MarginRequired returns the initial margin for both legs at the configured
// leverage.
func (a *Account) MarginRequired() float64 {
	perpMargin := math.Abs(a.perp.Qty*a.perp.EntryPrice) / a.leverage
	futureMargin := math.Abs(a.future.Qty*a.future.EntryPrice) / a.leverage
	return perpMargin + futureMargin
}

// MarginRatio is equity over required margin, +Inf with no open positions.
func (a *Account) MarginRatio(perpPrice, futurePrice float64) float64 {
	required := a.MarginRequired()
	if required == 0 {
		return math.Inf(1)
	}
	equity := a.cash + a.UnrealizedPnL(perpPrice, futurePrice)
	return equity / required
}

// CheckLiquidation records and reports a maintenance-margin breach at the
// given mark prices.
func (a *Account) CheckLiquidation(perpPrice, futurePrice float64) bool {
	if a.MarginRatio(perpPrice, futurePrice) < a.maintenanceRatio {
		a.liquidated = true
		return true
	}
	return false
}
