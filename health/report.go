package health

import "context"

// Check is a deferred health check.
type Check struct {
	Name string
	Run  func(ctx context.Context) Status
}

// Named wraps an already computed status as a Check.
func Named(name string, status Status) Check {
	return Check{Name: name, Run: func(context.Context) Status { return status }}
}

// Result is one named check outcome.
type Result struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Report is the outcome of Run.
type Report struct {
	Overall Status   `json:"overall"`
	Checks  []Result `json:"checks"`
}

// Run executes checks in order and combines their results.
func Run(ctx context.Context, checks ...Check) Report {
	report := Report{Checks: make([]Result, 0, len(checks))}
	statuses := make([]Status, 0, len(checks))

	for _, c := range checks {
		status := c.Run(ctx)
		report.Checks = append(report.Checks, Result{Name: c.Name, Status: status})
		statuses = append(statuses, status)
	}

	report.Overall = Combine(statuses...)
	return report
}
