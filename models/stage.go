package models

// IssueStage is the display-only sub-state of an open issue.
type IssueStage string

const (
	StageInitial      IssueStage = "initial"
	StageAIAnalysis   IssueStage = "ai-analysis"
	StageVerification IssueStage = "verification"
	StageModeration   IssueStage = "moderation"
	StageResolved     IssueStage = "resolved"
)

type stageInfo struct {
	label   string
	percent int
	order   int
}

var stages = map[IssueStage]stageInfo{
	StageInitial:      {"Initial Review", 25, 1},
	StageAIAnalysis:   {"AI Analysis", 50, 2},
	StageVerification: {"Verification", 75, 3},
	StageModeration:   {"Moderation", 90, 4},
	StageResolved:     {"Resolved", 100, 5},
}

// Progress maps a stage to its dashboard label and percentage. Unknown or
// empty stages report "Pending Review" at 10%.
func Progress(stage IssueStage) (string, int) {
	if info, ok := stages[stage]; ok {
		return info.label, info.percent
	}
	return "Pending Review", 10
}

// Valid reports whether s is a known stage.
func (s IssueStage) Valid() bool {
	_, ok := stages[s]
	return ok
}

// Before reports whether s comes strictly earlier than other in the
// review sequence. Unknown stages sort first.
func (s IssueStage) Before(other IssueStage) bool {
	return stages[s].order < stages[other].order
}
