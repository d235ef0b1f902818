package decision

import "testing"

func TestStatusForDecision(t *testing.T) {
	tests := []struct {
		decision Decision
		want     Status
	}{
		{DecisionApproved, StatusGreen},
		{DecisionApprovedWithConditions, StatusYellow},
		{DecisionRejected, StatusRed},
	}

	for _, tt := range tests {
		got, err := StatusForDecision(tt.decision)
		if err != nil {
			t.Fatalf("StatusForDecision(%s): %v", tt.decision, err)
		}
		if got != tt.want {
			t.Errorf("StatusForDecision(%s) = %s, want %s", tt.decision, got, tt.want)
		}
	}
}

func TestStatusForDecision_Unknown(t *testing.T) {
	if _, err := StatusForDecision("escalated"); err == nil {
		t.Error("Expected error for unknown decision")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusGreen, StatusYellow, StatusRed, StatusPending} {
		if !s.Valid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if Status("blue").Valid() {
		t.Error("Expected blue to be invalid")
	}
}

func TestDecisionValid(t *testing.T) {
	for _, d := range []Decision{DecisionApproved, DecisionApprovedWithConditions, DecisionRejected} {
		if !d.Valid() {
			t.Errorf("Expected %s to be valid", d)
		}
	}
	if Decision("maybe").Valid() {
		t.Error("Expected maybe to be invalid")
	}
}
