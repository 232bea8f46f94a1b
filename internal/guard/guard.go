package guard

import "strings"

// Tier classifies the risk of a proposed money-movement action.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// Confirmation describes how strongly a proposal must be confirmed.
type Confirmation string

const (
	ConfirmSingle  Confirmation = "single"
	ConfirmTwoStep Confirmation = "two_step"
)

// Weights holds the additive score contributed by each rule. The defaults
// are treated as constants in production but are overridable for tests.
type Weights struct {
	NewRelationship int
	AbnormalAmount  int
	VelocityDrain   int
	LiquidityRisk   int
	CoercionFlags   int
}

// DefaultWeights returns the production rule weights.
func DefaultWeights() Weights {
	return Weights{
		NewRelationship: 30,
		AbnormalAmount:  40,
		VelocityDrain:   50,
		LiquidityRisk:   20,
		CoercionFlags:   35,
	}
}

// Tiering and rule thresholds.
const (
	LowMax                   = 29
	MediumMax                = 69
	AbnormalAmountMultiplier = 2
	VelocityThreshold        = 3
	LowBalanceThreshold      = 50
)

// coercionKeywords are memo substrings commonly seen in coercion scams.
var coercionKeywords = []string{"urgent", "irs", "bail", "gift card", "immediate", "audit"}

// Human-readable reasons, in rule evaluation order.
const (
	ReasonNewRelationship = "This is your first time paying this person."
	ReasonAbnormalAmount  = "The amount is significantly higher than your usual payments."
	ReasonVelocityDrain   = "We detected multiple rapid transactions leaving your account."
	ReasonLiquidityRisk   = "This transfer will leave your balance critically low (under $50)."
	ReasonCoercionFlags   = "The payment description contains words often associated with scams."
)

// Input holds the transaction context evaluated by Score.
type Input struct {
	AccountID             string
	TargetID              string
	IsNewTarget           bool
	Amount                float64
	AvgAmount30d          float64
	RecentOutgoingCount   int // outgoing transactions in the last 10 minutes
	ProjectedBalance      float64
	Memo                  string
}

// Assessment is the result of scoring a proposed action. It is derived,
// never persisted, and recomputed per proposal.
type Assessment struct {
	Score        int
	Tier         Tier
	Confirmation Confirmation
	Reasons      []string
}

// Scorer rates proposed actions. It is a pure function over its weights:
// identical input always yields an identical assessment.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given rule weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score evaluates each rule in fixed order, summing weights and collecting
// a reason per triggered rule.
func (s *Scorer) Score(in Input) Assessment {
	score := 0
	reasons := []string{}

	if in.IsNewTarget {
		score += s.weights.NewRelationship
		reasons = append(reasons, ReasonNewRelationship)
	}

	if in.AvgAmount30d > 0 && in.Amount > in.AvgAmount30d*AbnormalAmountMultiplier {
		score += s.weights.AbnormalAmount
		reasons = append(reasons, ReasonAbnormalAmount)
	}

	if in.RecentOutgoingCount >= VelocityThreshold {
		score += s.weights.VelocityDrain
		reasons = append(reasons, ReasonVelocityDrain)
	}

	if in.ProjectedBalance < LowBalanceThreshold {
		score += s.weights.LiquidityRisk
		reasons = append(reasons, ReasonLiquidityRisk)
	}

	if containsCoercionKeyword(in.Memo) {
		score += s.weights.CoercionFlags
		reasons = append(reasons, ReasonCoercionFlags)
	}

	tier := TierLow
	confirmation := ConfirmSingle
	switch {
	case score > MediumMax:
		tier = TierHigh
		confirmation = ConfirmTwoStep
	case score > LowMax:
		tier = TierMedium
		confirmation = ConfirmTwoStep
	}

	return Assessment{
		Score:        score,
		Tier:         tier,
		Confirmation: confirmation,
		Reasons:      reasons,
	}
}

func containsCoercionKeyword(memo string) bool {
	if memo == "" {
		return false
	}
	normalized := strings.ToLower(memo)
	for _, keyword := range coercionKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}
