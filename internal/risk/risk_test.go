package risk

import (
	"math"
	"testing"
)

func testParams() Params {
	return Params{
		EntryTriggerPct:       0.35,
		MaxRiskPctPerTrade:    1.0,
		MaxPositionInvestment: 50000,
		MinPositionInvestment: 5000,
		StoplossPct:           2.0,
		TargetPct:             0.75,
		AccountStoplossPct:    5.0,
		AccountTargetSLPct:    2.0,
		AccountTargetPct:      10.0,
	}
}

func TestPositionQuantity(t *testing.T) {
	p := testParams()

	tests := []struct {
		name          string
		netValue      float64
		amountAtRisk  float64
		stoplossFloor float64
		funds         float64
		margin        float64
		price         float64
		want          int64
	}{
		{
			// riskable = min(1000, 5000) = 1000; ceiling 50000; qty = 50000/101
			name:     "fresh account",
			netValue: 100000, stoplossFloor: 95000, funds: 100000, margin: 1, price: 100,
			want: 495,
		},
		{
			// reserved risk eats into the floor headroom
			name:     "risk already reserved",
			netValue: 100000, amountAtRisk: 4500, stoplossFloor: 95000, funds: 100000, margin: 1, price: 100,
			want: 247, // riskable 500, ceiling 25000, 25000/101
		},
		{
			name:     "no headroom left",
			netValue: 100000, amountAtRisk: 5000, stoplossFloor: 95000, funds: 100000, margin: 1, price: 100,
			want: 0,
		},
		{
			name:     "below stoploss floor",
			netValue: 94000, stoplossFloor: 95000, funds: 94000, margin: 1, price: 100,
			want: 0,
		},
		{
			// funds*margin binds before the risk ceiling
			name:     "funds capped with leverage",
			netValue: 100000, stoplossFloor: 95000, funds: 6000, margin: 5, price: 100,
			want: 297, // min(50000, 30000) / 101
		},
		{
			// investable amount under the position minimum is rejected
			name:     "below minimum investment",
			netValue: 100000, stoplossFloor: 95000, funds: 4000, margin: 1, price: 100,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.PositionQuantity(tt.netValue, tt.amountAtRisk, tt.stoplossFloor, tt.funds, tt.margin, tt.price)
			if got != tt.want {
				t.Fatalf("PositionQuantity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTargetPrice(t *testing.T) {
	p := testParams()

	tests := []struct {
		entry float64
		want  float64
	}{
		{100.00, 100.75},  // exact tick multiple
		{100.01, 100.80},  // rounds up to the next tick
		{57.30, 57.75},    // 57.72975 rounds up
		{200.00, 201.50},
	}
	for _, tt := range tests {
		if got := p.TargetPrice(tt.entry); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("TargetPrice(%v) = %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestReservedRisk(t *testing.T) {
	p := testParams()
	if got := p.ReservedRisk(100, 495); math.Abs(got-990.0) > 1e-9 {
		t.Fatalf("ReservedRisk = %v, want 990", got)
	}
}

func TestRatchetFloorNeverDecreases(t *testing.T) {
	p := testParams()
	target := 110000.0
	targetSL := 2000.0

	floor := 95000.0
	// A winning exit lifts the floor.
	floor2 := p.RatchetFloor(floor, 101000, target, targetSL)
	if floor2 <= floor {
		t.Fatalf("floor did not ratchet up: %v -> %v", floor, floor2)
	}
	// A losing exit afterwards must not pull it back down.
	floor3 := p.RatchetFloor(floor2, 99000, target, targetSL)
	if floor3 < floor2 {
		t.Fatalf("floor decreased: %v -> %v", floor2, floor3)
	}
}

func TestRatchetFloorNearTarget(t *testing.T) {
	p := testParams()
	// At the target the floor locks in netValue minus the target stoploss.
	got := p.RatchetFloor(95000, 110000, 110000, 2000)
	if math.Abs(got-108000) > 1e-9 {
		t.Fatalf("floor at target = %v, want 108000", got)
	}
}

func TestCommission(t *testing.T) {
	// Round trip of 10000 buy and 10000 sell: brokerage 3+3, transaction
	// charge 0.65, tax 1.197, sell transaction tax 2.5, regulatory 0.02,
	// stamp duty 1.2.
	got := Commission(10000, 10000)
	if math.Abs(got-11.567) > 1e-9 {
		t.Fatalf("Commission(10000, 10000) = %v, want 11.567", got)
	}
}

func TestCommissionBrokerageCap(t *testing.T) {
	// Per-leg brokerage caps at 20 above ~66667 trade value.
	small := Commission(50000, 0)
	large := Commission(100000, 0)
	brokerageSmall := math.Min(20, 50000*0.03/100)
	brokerageLarge := math.Min(20, 100000*0.03/100)
	if brokerageSmall != 15 || brokerageLarge != 20 {
		t.Fatalf("cap assumption broken: %v %v", brokerageSmall, brokerageLarge)
	}
	if large <= small {
		t.Fatalf("commission not monotone in trade value: %v <= %v", large, small)
	}
}
