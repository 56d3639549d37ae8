// Package risk holds the pure position-sizing, stoploss and commission
// arithmetic. Nothing here owns state or synchronization; callers invoke it
// under their own locks.
package risk

import "math"

// TickSize is the minimum valid price increment for limit orders.
const TickSize = 0.05

// Params are the session risk parameters, loaded once at session start from
// the controls row (compiled defaults otherwise).
type Params struct {
	EntryTriggerPct       float64
	MaxRiskPctPerTrade    float64
	MaxPositionInvestment float64
	MinPositionInvestment float64
	StoplossPct           float64 // per-position stoploss, percent
	TargetPct             float64 // per-position target, percent
	AccountStoplossPct    float64
	AccountTargetSLPct    float64
	AccountTargetPct      float64
}

// StoplossTargetRatio is the divisor used when ratcheting the account
// stoploss floor toward the target.
func (p Params) StoplossTargetRatio() float64 {
	return p.AccountTargetPct / p.AccountStoplossPct
}

// PositionQuantity computes the number of shares to buy for an entry at
// price, or 0 when no trade should be made.
//
// The riskable amount is capped both per-trade and by the distance between
// net value and the stoploss floor after already-reserved risk. The +1 on the
// price buffers against drift between signal and fill.
func (p Params) PositionQuantity(netValue, amountAtRisk, stoplossFloor, fundsAvailable, margin, price float64) int64 {
	riskable := math.Min(
		p.MaxRiskPctPerTrade*netValue/100.0,
		netValue-amountAtRisk-stoplossFloor,
	)
	if riskable <= 0 {
		return 0
	}

	investmentCeiling := riskable * 100.0 / p.StoplossPct
	amountToInvest := math.Min(investmentCeiling, fundsAvailable*margin)
	amountToInvest = math.Min(amountToInvest, p.MaxPositionInvestment)

	qty := math.Floor(amountToInvest / (price + 1))
	if qty*price < p.MinPositionInvestment {
		return 0
	}
	return int64(qty)
}

// TargetPrice grosses the entry price up by the target percentage and rounds
// up to the nearest valid tick increment.
func (p Params) TargetPrice(entryPrice float64) float64 {
	target := (100.0 + p.TargetPct) * entryPrice / 100.0
	ticks := math.Ceil(target/TickSize - 1e-9)
	return math.Round(ticks*TickSize*100) / 100
}

// ReservedRisk is the potential loss reserved against an open position:
// entry value times the position stoploss percentage. Entries add it to the
// account's amount at risk; exits release it using the entry price.
func (p Params) ReservedRisk(price float64, qty int64) float64 {
	return price * float64(qty) * p.StoplossPct / 100.0
}

// RatchetFloor recomputes the account stoploss floor after an exit. The
// floor never decreases for the life of the session.
func (p Params) RatchetFloor(currentFloor, netValue, targetValue, targetStoplossFloor float64) float64 {
	candidate := netValue - math.Max((targetValue-netValue)/p.StoplossTargetRatio(), targetStoplossFloor)
	return math.Max(currentFloor, candidate)
}

// Commission models the full round-trip cost of a trade: per-leg brokerage
// capped at 20, exchange transaction charge, tax on both, sell-side
// transaction tax, regulatory fee and stamp duty.
func Commission(buyValue, sellValue float64) float64 {
	tradeValue := buyValue + sellValue
	brokerageBuy := math.Min(20.0, buyValue*0.03/100.0)
	brokerageSell := math.Min(20.0, sellValue*0.03/100.0)
	transactionCharge := tradeValue * 0.00325 / 100.0
	tax := (brokerageBuy + brokerageSell + transactionCharge) * 18.0 / 100.0
	sellTransactionTax := sellValue * 0.025 / 100.0
	regulatoryFee := tradeValue * 0.0001 / 100.0
	stampDuty := tradeValue * 0.006 / 100.0
	return brokerageBuy + brokerageSell + transactionCharge + tax + sellTransactionTax + regulatoryFee + stampDuty
}
