package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForThresholds(t *testing.T) {
	tests := []struct {
		name          string
		score         float64
		wantRisk      string
		wantRecommend string
	}{
		{"well below low", 0.05, RiskLow, RecommendApprove},
		{"just below low boundary", 0.29, RiskLow, RecommendApprove},
		{"at low boundary", 0.30, RiskMedium, RecommendReview},
		{"inside medium band", 0.40, RiskMedium, RecommendReview},
		{"at medium boundary", 0.50, RiskHigh, RecommendReview},
		{"inside high/review band", 0.65, RiskHigh, RecommendReview},
		{"at inner decline split", 0.70, RiskHigh, RecommendDecline},
		{"inside high/decline band", 0.75, RiskHigh, RecommendDecline},
		{"at high boundary", 0.80, RiskCritical, RecommendDecline},
		{"well above high", 0.99, RiskCritical, RecommendDecline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := ForThresholds(tt.score, DefaultThresholds)
			assert.Equal(t, tt.wantRisk, outcome.RiskLevel)
			assert.Equal(t, tt.wantRecommend, outcome.Recommendation)
		})
	}
}

func TestFor_UsesDefaultThresholds(t *testing.T) {
	assert.Equal(t, Outcome{RiskLow, RecommendApprove}, For(0.1))
	assert.Equal(t, Outcome{RiskCritical, RecommendDecline}, For(0.95))
}

func TestForThresholds_CustomBoundaries(t *testing.T) {
	custom := Thresholds{Low: 0.10, Medium: 0.20, High: 0.90}

	assert.Equal(t, RiskLow, ForThresholds(0.05, custom).RiskLevel)
	assert.Equal(t, RiskMedium, ForThresholds(0.15, custom).RiskLevel)
	// the 0.70 inner split is fixed regardless of custom thresholds: below
	// it is still HIGH/REVIEW even though Medium has moved.
	assert.Equal(t, Outcome{RiskHigh, RecommendReview}, ForThresholds(0.50, custom))
	assert.Equal(t, Outcome{RiskHigh, RecommendDecline}, ForThresholds(0.80, custom))
	assert.Equal(t, RiskCritical, ForThresholds(0.95, custom).RiskLevel)
}
