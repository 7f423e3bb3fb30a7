package governor

import (
	"fmt"
	"math"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// gradeRank orders equivalence grades best-first. Unknown grades rank worst.
func gradeRank(g domain.EquivalenceGrade) int {
	switch g {
	case "A":
		return 4
	case "B":
		return 3
	case "C":
		return 2
	case "D":
		return 1
	}
	return 0
}

// runInvariants executes the full rule battery against a normalized request
// and the state-adjusted limits. The result order is fixed so persisted
// failing ids are stable across runs.
func runInvariants(req domain.RiskCheckRequest, state domain.BreakerState, adj domain.RiskLimits, now time.Time) []domain.InvariantResult {
	results := make([]domain.InvariantResult, 0, 17)

	add := func(id, name string, passed bool, actual, threshold float64, sev domain.InvariantSeverity, msg string) {
		results = append(results, domain.InvariantResult{
			ID:        id,
			Name:      name,
			Passed:    passed,
			Actual:    actual,
			Threshold: threshold,
			Severity:  sev,
			Message:   msg,
		})
	}

	notional := req.Notional()
	pv := req.PortfolioValue

	// 1. Trading must not be halted. HALT also zeroes the size-bearing
	// limits, so the breaker is self-enforcing even without this rule.
	halted := state == domain.BreakerHalt
	add("halt_state", "Circuit breaker not halted", !halted,
		float64(state.Rank()), float64(domain.BreakerHalt.Rank()-1), domain.SeverityCritical,
		fmt.Sprintf("circuit breaker state is %s", state))

	// 2. Caller-reported system health.
	add("system_health", "System healthy", req.SystemHealthy,
		boolToFloat(req.SystemHealthy), 1, domain.SeverityCritical,
		fmt.Sprintf("system healthy flag is %t", req.SystemHealthy))

	// 3. Order notional within the adjusted single-order cap.
	add("order_size", "Order size within limit", notional <= adj.MaxOrderSize,
		notional, adj.MaxOrderSize, domain.SeverityCritical,
		fmt.Sprintf("order notional %.2f vs max %.2f", notional, adj.MaxOrderSize))

	// 4. Dust orders are flagged but not blocked.
	add("order_notional_min", "Order above dust floor", notional >= adj.MinOrderNotional,
		notional, adj.MinOrderNotional, domain.SeverityWarning,
		fmt.Sprintf("order notional %.2f vs min %.2f", notional, adj.MinOrderNotional))

	// 5. Post-trade per-market exposure as a fraction of portfolio value.
	positionPct := pctOf(req.MarketExposure(req.MarketID)+notional, pv)
	add("position_pct", "Per-market position within limit", positionPct <= adj.MaxPositionPct,
		positionPct, adj.MaxPositionPct, domain.SeverityCritical,
		fmt.Sprintf("market exposure %.2f%% vs max %.2f%%", positionPct, adj.MaxPositionPct))

	// 6. Post-trade category concentration.
	concPct := pctOf(req.CategoryExposure(req.Category)+notional, pv)
	add("concentration_pct", "Category concentration within limit", concPct <= adj.MaxConcentrationPct,
		concPct, adj.MaxConcentrationPct, domain.SeverityCritical,
		fmt.Sprintf("category %q exposure %.2f%% vs max %.2f%%", req.Category, concPct, adj.MaxConcentrationPct))

	// 7. Daily loss budget.
	dailyLossPct := lossPct(req.DailyPnL, pv)
	add("daily_loss", "Daily loss within budget", dailyLossPct < adj.MaxDailyLossPct,
		dailyLossPct, adj.MaxDailyLossPct, domain.SeverityCritical,
		fmt.Sprintf("daily loss %.2f%% vs budget %.2f%%", dailyLossPct, adj.MaxDailyLossPct))

	// 8. Weekly loss budget (advisory).
	weeklyLossPct := lossPct(req.WeeklyPnL, pv)
	add("weekly_loss", "Weekly loss within budget", weeklyLossPct < adj.MaxWeeklyLossPct,
		weeklyLossPct, adj.MaxWeeklyLossPct, domain.SeverityWarning,
		fmt.Sprintf("weekly loss %.2f%% vs budget %.2f%%", weeklyLossPct, adj.MaxWeeklyLossPct))

	// 9. Drawdown ceiling.
	add("drawdown", "Drawdown within limit", req.MaxDrawdownPct <= adj.MaxDrawdownPct,
		req.MaxDrawdownPct, adj.MaxDrawdownPct, domain.SeverityCritical,
		fmt.Sprintf("max drawdown %.2f%% vs limit %.2f%%", req.MaxDrawdownPct, adj.MaxDrawdownPct))

	// 10. Binary-market price bounds.
	priceOK := req.Price > 0 && req.Price < 1
	add("price_bounds", "Price within (0,1)", priceOK,
		req.Price, 1, domain.SeverityCritical,
		fmt.Sprintf("price %.4f must be strictly between 0 and 1", req.Price))

	// 11. Quoted spread.
	add("spread", "Spread within limit", req.Spread <= adj.MaxSpread,
		req.Spread, adj.MaxSpread, domain.SeverityWarning,
		fmt.Sprintf("spread %.4f vs max %.4f", req.Spread, adj.MaxSpread))

	// 12. 24h volume floor.
	add("volume_floor", "24h volume above floor", req.Volume24h >= adj.MinVolume24h,
		req.Volume24h, adj.MinVolume24h, domain.SeverityWarning,
		fmt.Sprintf("volume24h %.0f vs floor %.0f", req.Volume24h, adj.MinVolume24h))

	// 13. Flow toxicity (VPIN). Passes vacuously when not supplied.
	vpin, vpinSet := deref(req.VPINScore)
	add("toxicity_vpin", "Flow toxicity acceptable", !vpinSet || vpin <= adj.MaxVPIN,
		vpin, adj.MaxVPIN, domain.SeverityCritical,
		vpinMessage(vpinSet, vpin, adj.MaxVPIN))

	// 14. Scoring-model ambiguity. Passes vacuously when not supplied.
	amb, ambSet := deref(req.AmbiguityScore)
	add("ambiguity", "Ambiguity acceptable", !ambSet || amb <= adj.MaxAmbiguity,
		amb, adj.MaxAmbiguity, domain.SeverityWarning,
		fmt.Sprintf("ambiguity %.3f vs max %.3f", amb, adj.MaxAmbiguity))

	// 15. Market/question equivalence grade. Passes vacuously when absent.
	minGrade := gradeRank(domain.EquivalenceGrade(adj.MinEquivalence))
	grade := gradeRank(req.EquivalenceGrade)
	add("equivalence_grade", "Equivalence grade acceptable",
		req.EquivalenceGrade == "" || grade >= minGrade,
		float64(grade), float64(minGrade), domain.SeverityWarning,
		fmt.Sprintf("equivalence grade %q vs minimum %q", req.EquivalenceGrade, adj.MinEquivalence))

	// 16. Combined exposure across correlated markets, weighted by |rho|.
	corrPct := pctOf(correlatedExposure(req)+notional, pv)
	add("correlated_exposure", "Correlated exposure within limit", corrPct <= adj.MaxCorrelatedPct,
		corrPct, adj.MaxCorrelatedPct, domain.SeverityCritical,
		fmt.Sprintf("correlated exposure %.2f%% across %d markets vs max %.2f%%",
			corrPct, len(req.CorrelatedMarkets), adj.MaxCorrelatedPct))

	// 17. Price staleness. Age is reported in whole seconds so repeated
	// evaluations of the same request yield identical results.
	age := math.MaxFloat64
	if !req.LastPriceUpdate.IsZero() {
		age = math.Floor(now.Sub(req.LastPriceUpdate).Seconds())
		if age < 0 {
			age = 0
		}
	}
	add("price_staleness", "Price data fresh", age <= adj.MaxPriceAgeSec,
		age, adj.MaxPriceAgeSec, domain.SeverityWarning,
		fmt.Sprintf("price age %.0fs vs max %.0fs", age, adj.MaxPriceAgeSec))

	return results
}

// correlatedExposure sums existing notional in markets the Event Graph
// reports as correlated, weighted by the absolute correlation coefficient.
func correlatedExposure(req domain.RiskCheckRequest) float64 {
	if len(req.CorrelatedMarkets) == 0 {
		return 0
	}
	weights := make(map[string]float64, len(req.CorrelatedMarkets))
	for _, cm := range req.CorrelatedMarkets {
		weights[cm.MarketID] = math.Abs(cm.Correlation)
	}
	var total float64
	for _, p := range req.ExistingPositions {
		if w, ok := weights[p.MarketID]; ok {
			total += p.Size * p.Price * w
		}
	}
	return total
}

// pctOf expresses part as a percentage of whole. A non-positive whole means
// the caller reported no portfolio value; any exposure then reads as
// unbounded so the size invariants fail closed rather than divide by zero.
func pctOf(part, whole float64) float64 {
	if whole <= 0 {
		if part > 0 {
			return math.MaxFloat64
		}
		return 0
	}
	return part / whole * 100
}

// lossPct converts a PnL figure into a positive loss percentage. Gains read
// as zero loss.
func lossPct(pnl, whole float64) float64 {
	if pnl >= 0 {
		return 0
	}
	return pctOf(-pnl, whole)
}

func deref(f *float64) (float64, bool) {
	if f == nil {
		return 0, false
	}
	return *f, true
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func vpinMessage(set bool, vpin, max float64) string {
	if !set {
		return "vpin score not supplied"
	}
	return fmt.Sprintf("vpin %.3f vs max %.3f", vpin, max)
}
