package governor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// Certification thresholds for candidate scoring-model versions.
const (
	maxDeltaThreshold    = 0.15
	minCorrelation       = 0.85
	minOverallPassRate   = 0.90
	rankStabilityTopN    = 3
	perCaseDeltaCeiling  = 0.15
)

// AssessModelDrift statistically validates a candidate scoring-model/prompt
// version against gold-set results. A blocked deployment raises a critical
// alert, which feeds the breaker's escalation ladder: bad model governance
// degrades live-trading permission.
func (g *Governor) AssessModelDrift(ctx context.Context, promptVersion, promptType string, cases []domain.ModelTestCase, adversarial []domain.AdversarialCase) (domain.ModelDriftAssessment, error) {
	if promptVersion == "" {
		return domain.ModelDriftAssessment{}, fmt.Errorf("%w: promptVersion is required", domain.ErrValidation)
	}
	if len(cases) == 0 {
		return domain.ModelDriftAssessment{}, fmt.Errorf("%w: testResults must not be empty", domain.ErrValidation)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	assessment := certify(promptVersion, promptType, cases, adversarial)

	if err := g.audit.Log(ctx, "drift.model", map[string]any{
		"prompt_version": assessment.PromptVersion,
		"prompt_type":    assessment.PromptType,
		"decision":       string(assessment.Decision),
		"max_delta":      assessment.Metrics.MaxDelta,
		"mean_delta":     assessment.Metrics.MeanDelta,
		"correlation":    assessment.Metrics.Correlation,
		"rank_stable":    assessment.Metrics.RankOrderStable,
		"failures":       assessment.Failures,
	}); err != nil {
		return assessment, fmt.Errorf("governor: audit model drift: %w: %v", domain.ErrDependencyFailed, err)
	}

	g.logger.InfoContext(ctx, "model drift assessed",
		slog.String("prompt_version", promptVersion),
		slog.String("decision", string(assessment.Decision)),
		slog.Float64("max_delta", assessment.Metrics.MaxDelta),
		slog.Float64("correlation", assessment.Metrics.Correlation),
	)
	g.broadcast("drift.model", assessment)

	if !assessment.DeployAllowed {
		if _, err := g.raiseAlertLocked(ctx, "model_drift", domain.AlertCritical,
			fmt.Sprintf("deployment of %s blocked: %s", promptVersion, joinFailures(assessment.Failures))); err != nil {
			return assessment, err
		}
	}
	return assessment, nil
}

// certify computes the aggregate metrics and applies the deployment gate.
func certify(promptVersion, promptType string, cases []domain.ModelTestCase, adversarial []domain.AdversarialCase) domain.ModelDriftAssessment {
	expected := make([]float64, len(cases))
	actual := make([]float64, len(cases))

	var maxDelta, sumDelta float64
	withinDelta := 0
	for i, c := range cases {
		expected[i] = c.Expected
		actual[i] = c.Actual
		delta := math.Abs(c.Actual - c.Expected)
		sumDelta += delta
		if delta > maxDelta {
			maxDelta = delta
		}
		if delta <= perCaseDeltaCeiling {
			withinDelta++
		}
	}

	metrics := domain.ModelDriftMetrics{
		MaxDelta:           maxDelta,
		MeanDelta:          sumDelta / float64(len(cases)),
		Correlation:        pearson(expected, actual),
		RankOrderStable:    rankOrderStable(expected, actual, rankStabilityTopN),
		AdversarialPassPct: adversarialPassRate(adversarial),
		OverallPassPct:     float64(withinDelta) / float64(len(cases)),
		Cases:              len(cases),
	}

	var failures []string
	if metrics.MaxDelta > maxDeltaThreshold {
		failures = append(failures, fmt.Sprintf("Max delta %.3f above %.2f threshold", metrics.MaxDelta, maxDeltaThreshold))
	}
	if metrics.Correlation < minCorrelation {
		failures = append(failures, fmt.Sprintf("Correlation %.3f below %.2f threshold", metrics.Correlation, minCorrelation))
	}
	if !metrics.RankOrderStable {
		failures = append(failures, fmt.Sprintf("Top-%d rank order not stable", rankStabilityTopN))
	}
	if metrics.AdversarialPassPct < 1.0 {
		failures = append(failures, fmt.Sprintf("Adversarial pass rate %.2f below 1.00", metrics.AdversarialPassPct))
	}
	if metrics.OverallPassPct < minOverallPassRate {
		failures = append(failures, fmt.Sprintf("Overall pass rate %.2f below %.2f threshold", metrics.OverallPassPct, minOverallPassRate))
	}

	decision := domain.DeployAllowed
	if len(failures) > 0 {
		decision = domain.BlockDeployment
	} else {
		failures = []string{}
	}

	return domain.ModelDriftAssessment{
		PromptVersion: promptVersion,
		PromptType:    promptType,
		Decision:      decision,
		DeployAllowed: decision == domain.DeployAllowed,
		Metrics:       metrics,
		Failures:      failures,
		AssessedAt:    time.Now().UTC(),
	}
}

// pearson computes the Pearson correlation coefficient between two equal-
// length vectors. Zero-variance inputs yield 1 when the vectors are equal
// and 0 otherwise.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		if equalVectors(x, y) {
			return 1
		}
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// rankOrderStable reports whether the top-n cases by expected score remain
// the top-n, in the same order, by actual score.
func rankOrderStable(expected, actual []float64, n int) bool {
	if len(expected) <= 1 {
		return true
	}
	if n > len(expected) {
		n = len(expected)
	}
	topExpected := topIndices(expected, n)
	topActual := topIndices(actual, n)
	for i := range topExpected {
		if topExpected[i] != topActual[i] {
			return false
		}
	}
	return true
}

// topIndices returns the indices of the n largest values, descending. Ties
// break toward the earlier index so ordering is deterministic.
func topIndices(values []float64, n int) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	return idx[:n]
}

// adversarialPassRate defaults to 1.0 when no probes were supplied.
func adversarialPassRate(cases []domain.AdversarialCase) float64 {
	if len(cases) == 0 {
		return 1.0
	}
	passed := 0
	for _, c := range cases {
		if c.Resisted {
			passed++
		}
	}
	return float64(passed) / float64(len(cases))
}

func equalVectors(x, y []float64) bool {
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func joinFailures(failures []string) string {
	out := ""
	for i, f := range failures {
		if i > 0 {
			out += "; "
		}
		out += f
	}
	return out
}
