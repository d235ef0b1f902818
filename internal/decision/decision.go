// Package decision defines the shared compliance vocabulary: traffic-light
// deal statuses, officer decisions, and the mapping between them.
package decision

import "fmt"

// Status is the traffic-light compliance status of a deal.
type Status string

const (
	StatusGreen   Status = "green"   // compliant
	StatusYellow  Status = "yellow"  // compliant with conditions
	StatusRed     Status = "red"     // non-compliant
	StatusPending Status = "pending" // not yet scored
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusGreen, StatusYellow, StatusRed, StatusPending:
		return true
	}
	return false
}

// Decision is a compliance officer's ruling on a deal.
type Decision string

const (
	DecisionApproved               Decision = "approved"
	DecisionApprovedWithConditions Decision = "approved_with_conditions"
	DecisionRejected               Decision = "rejected"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionApprovedWithConditions, DecisionRejected:
		return true
	}
	return false
}

// StatusForDecision maps an officer decision to the deal status it implies.
func StatusForDecision(d Decision) (Status, error) {
	switch d {
	case DecisionApproved:
		return StatusGreen, nil
	case DecisionApprovedWithConditions:
		return StatusYellow, nil
	case DecisionRejected:
		return StatusRed, nil
	}
	return "", fmt.Errorf("unknown decision: %q", d)
}
