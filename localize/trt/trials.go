package trt

import (
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/lattice"
)

// trialTally counts the failing outcomes observed while a probed
// sub-combination is repeatedly re-tested. Each trial is a distinct input.
type trialTally struct {
	exceptions int
	generic    int
}

// Record adds a failing result to the tally. Passing results are ignored.
func (t *trialTally) Record(result *domain.TestResult) {
	if !result.IsFailing() {
		return
	}
	if result.IsExceptional() {
		t.exceptions++
	} else {
		t.generic++
	}
}

// Total returns the number of failing trials recorded.
func (t *trialTally) Total() int {
	return t.exceptions + t.generic
}

// Classify returns the status the tallied trials support.
//
// Exceptions must strictly outnumber generic failures; a tie is classified
// Faulty.
func (t *trialTally) Classify() domain.Status {
	if t.exceptions > t.generic {
		return domain.StatusExceptional
	}
	return domain.StatusFaulty
}

// trial is the repeated-trial state of the node currently under test.
type trial struct {
	node  nodeRef
	input domain.Combination
	tally trialTally
	// tried holds the failing input and every input issued for the node.
	tried map[string]bool
}

// nodeRef pairs a lattice node with its sub-combination of the failing
// input.
type nodeRef struct {
	id  lattice.NodeID
	sub domain.Combination
}
