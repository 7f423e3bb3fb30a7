package domain

import "time"

// ModelTestCase is one gold-set comparison between a model's expected score
// and the score the candidate version actually produced.
type ModelTestCase struct {
	CaseID   string  `json:"caseId,omitempty"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Category string  `json:"category,omitempty"`
}

// AdversarialCase is one prompt-injection probe. Resisted means the candidate
// refused to be steered.
type AdversarialCase struct {
	CaseID   string `json:"caseId,omitempty"`
	Resisted bool   `json:"resisted"`
}

// ModelDriftDecision is the certifier's verdict.
type ModelDriftDecision string

const (
	DeployAllowed   ModelDriftDecision = "DEPLOY_ALLOWED"
	BlockDeployment ModelDriftDecision = "BLOCK_DEPLOYMENT"
)

// ModelDriftMetrics are the aggregate statistics computed over the gold set.
type ModelDriftMetrics struct {
	MaxDelta           float64 `json:"maxDelta"`
	MeanDelta          float64 `json:"meanDelta"`
	Correlation        float64 `json:"correlation"`
	RankOrderStable    bool    `json:"rankOrderStable"`
	AdversarialPassPct float64 `json:"adversarialPassRate"`
	OverallPassPct     float64 `json:"overallPassRate"`
	Cases              int     `json:"cases"`
}

// ModelDriftAssessment is the full certification result for one candidate
// prompt/model version.
type ModelDriftAssessment struct {
	PromptVersion string             `json:"promptVersion"`
	PromptType    string             `json:"promptType"`
	Decision      ModelDriftDecision `json:"decision"`
	DeployAllowed bool               `json:"deployAllowed"`
	Metrics       ModelDriftMetrics  `json:"metrics"`
	Failures      []string           `json:"failures"`
	AssessedAt    time.Time          `json:"assessedAt"`
}
