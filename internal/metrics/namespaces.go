package metrics

const (
	namespaceStakerank = "stakerank"

	subsystemChain  = "chain"
	subsystemReport = "report"
	subsystemCache  = "cache"
)

const (
	LabelQuery   = "query"
	LabelOutcome = "outcome"
	LabelSection = "section"
	LabelResult  = "result"
)
