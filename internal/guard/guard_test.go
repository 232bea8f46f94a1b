package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baselineInput() Input {
	return Input{
		AccountID:           "acct-1",
		TargetID:            "payee-1",
		IsNewTarget:         false,
		Amount:              40,
		AvgAmount30d:        100,
		RecentOutgoingCount: 1,
		ProjectedBalance:    500,
	}
}

func TestScore_NoRulesTriggered(t *testing.T) {
	s := NewScorer(DefaultWeights())

	result := s.Score(baselineInput())

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, TierLow, result.Tier)
	assert.Equal(t, ConfirmSingle, result.Confirmation)
	assert.Empty(t, result.Reasons)
}

func TestScore_NewTargetWithAbnormalAmountIsHigh(t *testing.T) {
	s := NewScorer(DefaultWeights())

	in := baselineInput()
	in.IsNewTarget = true
	in.Amount = 250 // avg is 100, so > 2x

	result := s.Score(in)

	assert.Equal(t, 70, result.Score)
	assert.Equal(t, TierHigh, result.Tier)
	assert.Equal(t, ConfirmTwoStep, result.Confirmation)
	assert.Equal(t, []string{ReasonNewRelationship, ReasonAbnormalAmount}, result.Reasons)
}

func TestScore_VelocityWithAbnormalAmountIsHigh(t *testing.T) {
	s := NewScorer(DefaultWeights())

	in := baselineInput()
	in.Amount = 300
	in.RecentOutgoingCount = 4

	result := s.Score(in)

	assert.Equal(t, 90, result.Score)
	assert.Equal(t, TierHigh, result.Tier)
	assert.Contains(t, result.Reasons, ReasonVelocityDrain)
}

func TestScore_LowBalanceAloneWithNewTargetIsMedium(t *testing.T) {
	s := NewScorer(DefaultWeights())

	in := baselineInput()
	in.IsNewTarget = true
	in.ProjectedBalance = 20

	result := s.Score(in)

	assert.Equal(t, 50, result.Score)
	assert.Equal(t, TierMedium, result.Tier)
	assert.Equal(t, []string{ReasonNewRelationship, ReasonLiquidityRisk}, result.Reasons)
}

func TestScore_LiquidityRiskOnlyIsLow(t *testing.T) {
	s := NewScorer(DefaultWeights())

	in := baselineInput()
	in.ProjectedBalance = 10

	result := s.Score(in)

	assert.Equal(t, 20, result.Score)
	assert.Equal(t, TierLow, result.Tier)
	assert.Equal(t, []string{ReasonLiquidityRisk}, result.Reasons)
}

func TestScore_CoercionKeywordsCaseInsensitive(t *testing.T) {
	s := NewScorer(DefaultWeights())

	for _, memo := range []string{"IRS payment", "very Urgent", "buy a GIFT CARD", "bail money"} {
		in := baselineInput()
		in.Memo = memo

		result := s.Score(in)

		assert.Equal(t, 35, result.Score, "memo %q", memo)
		assert.Equal(t, []string{ReasonCoercionFlags}, result.Reasons)
	}
}

func TestScore_ZeroAverageSkipsAbnormalAmountRule(t *testing.T) {
	s := NewScorer(DefaultWeights())

	in := baselineInput()
	in.AvgAmount30d = 0
	in.Amount = 10000

	result := s.Score(in)

	assert.NotContains(t, result.Reasons, ReasonAbnormalAmount)
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer(DefaultWeights())

	in := baselineInput()
	in.IsNewTarget = true
	in.Memo = "urgent irs audit"

	first := s.Score(in)
	second := s.Score(in)

	assert.Equal(t, first, second)
}
