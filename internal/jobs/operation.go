// Package jobs holds the fixed set of prompt operations the assistant can run.
package jobs

import (
	"fmt"
	"strings"
)

// Operation identifies one prompt template.
type Operation string

// Operations the assistant can run
const (
	// OpClassify summarizes a Slack message into a short task classification
	OpClassify Operation = "classify"

	// OpPlan produces a step-by-step DevOps automation plan
	OpPlan Operation = "plan"

	// OpUpskill suggests online courses for a skill
	OpUpskill Operation = "upskill"
)

// Operations lists every operation in display order.
var Operations = []Operation{OpClassify, OpPlan, OpUpskill}

// String implements fmt.Stringer.
func (o Operation) String() string {
	return string(o)
}

// Valid reports whether o is one of the known operations.
func (o Operation) Valid() bool {
	for _, op := range Operations {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOperation maps a name (case-insensitive, surrounding space ignored)
// to an Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("unknown operation %q (want one of %s)", s, operationNames())
	}
	return op, nil
}

func operationNames() string {
	names := make([]string, len(Operations))
	for i, op := range Operations {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}
