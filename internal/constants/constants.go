package constants

// Lease bounds for agent claims, in seconds. Values outside this range are
// rejected before any store mutation.
const (
	MinLeaseSeconds     = 1
	MaxLeaseSeconds     = 86400 // 24 hours
	DefaultLeaseSeconds = 3600
)

// Recommendation limit clamping.
const (
	DefaultRecommendLimit = 10
	MaxRecommendLimit     = 100
)

// Scoring weights. These define observable ranking behavior and are part of
// the contract, not tunables.
const (
	ScorePriorityCritical = 100
	ScorePriorityHigh     = 70
	ScorePriorityMedium   = 40
	ScorePriorityLow      = 10

	ScoreOverdueBonus       = 60
	ScoreUrgencyWindow      = 50 // hours of linear due-date decay
	ScoreAssignmentAffinity = 100
)

// Pagination defaults for list endpoints.
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
