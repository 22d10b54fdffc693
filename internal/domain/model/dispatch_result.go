//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

// DispatchStatus summarizes the outcomes of one dispatched operation.
type DispatchStatus string

const (
	DispatchStatusOK        DispatchStatus = "ok"
	DispatchStatusPartial   DispatchStatus = "partial"
	DispatchStatusFailed    DispatchStatus = "failed"
	DispatchStatusNoTargets DispatchStatus = "no_targets"
)

// Valid returns true if the dispatch status is one of the supported values.
func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchStatusOK, DispatchStatusPartial, DispatchStatusFailed, DispatchStatusNoTargets:
		return true
	default:
		return false
	}
}

// String returns the string representation of the dispatch status.
func (s DispatchStatus) String() string {
	return string(s)
}

// DispatchOperation names the operation a dispatch ran.
type DispatchOperation string

const (
	DispatchOperationPush   DispatchOperation = "push"
	DispatchOperationHealth DispatchOperation = "health"
)

// AggregatedResult is the single result reported for a push or health request.
// Plugins is always in target order and is never nil.
type AggregatedResult struct {
	DispatchID string            `json:"dispatch_id,omitempty"`
	Operation  DispatchOperation `json:"operation,omitempty"`
	Filter     string            `json:"filter"`
	Status     DispatchStatus    `json:"status"`
	Plugins    []PluginOutcome   `json:"plugins"`
}

// Counts returns the number of successful and failed outcomes.
func (r *AggregatedResult) Counts() (succeeded, failed int) {
	for _, o := range r.Plugins {
		if o.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Aggregate reduces per-plugin outcomes to one result. It does not reorder outcomes.
func Aggregate(outcomes []PluginOutcome) AggregatedResult {
	plugins := outcomes
	if plugins == nil {
		plugins = []PluginOutcome{}
	}
	res := AggregatedResult{Plugins: plugins}

	if len(plugins) == 0 {
		res.Status = DispatchStatusNoTargets
		return res
	}

	ok, failed := res.Counts()
	switch {
	case failed == 0:
		res.Status = DispatchStatusOK
	case ok == 0:
		res.Status = DispatchStatusFailed
	default:
		res.Status = DispatchStatusPartial
	}
	return res
}
