package model

import "fmt"

// ValidationError reports malformed or inconsistent input. It is raised
// before any solve attempt.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// InfeasibleError reports that the solver proved no feasible dispatch
// exists for a scenario. In a batch run it is recorded per scenario and
// does not abort the batch.
type InfeasibleError struct {
	Scenario string
}

func (e *InfeasibleError) Error() string {
	if e.Scenario == "" {
		return "dispatch problem is infeasible"
	}
	return fmt.Sprintf("scenario %q: dispatch problem is infeasible", e.Scenario)
}
