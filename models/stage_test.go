package models

import "testing"

func TestProgress(t *testing.T) {
	tests := []struct {
		stage   IssueStage
		label   string
		percent int
	}{
		{StageInitial, "Initial Review", 25},
		{StageAIAnalysis, "AI Analysis", 50},
		{StageVerification, "Verification", 75},
		{StageModeration, "Moderation", 90},
		{StageResolved, "Resolved", 100},
		{"", "Pending Review", 10},
		{"archived", "Pending Review", 10},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			label, percent := Progress(tt.stage)
			if label != tt.label || percent != tt.percent {
				t.Errorf("Progress(%q) = (%q, %d), want (%q, %d)", tt.stage, label, percent, tt.label, tt.percent)
			}
			label2, percent2 := Progress(tt.stage)
			if label2 != label || percent2 != percent {
				t.Errorf("Progress(%q) not stable across calls", tt.stage)
			}
		})
	}
}

func TestStageBefore(t *testing.T) {
	if !StageInitial.Before(StageModeration) {
		t.Error("initial should come before moderation")
	}
	if StageResolved.Before(StageVerification) {
		t.Error("resolved should not come before verification")
	}
	if StageAIAnalysis.Before(StageAIAnalysis) {
		t.Error("a stage is not before itself")
	}
}

func TestIssueView(t *testing.T) {
	v := Issue{Stage: StageVerification}.View()
	if v.StageLabel != "Verification" || v.StageProgress != 75 {
		t.Errorf("View() = %q/%d", v.StageLabel, v.StageProgress)
	}
}
