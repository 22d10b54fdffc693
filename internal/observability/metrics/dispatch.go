package metrics

import (
	"time"

	obserrors "github.com/target/mmk-alert-router/internal/observability/errors"
	"github.com/target/mmk-alert-router/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// DispatchMetric captures one completed dispatch for metric emission.
type DispatchMetric struct {
	Operation string
	Status    string
	Targets   int
	Failed    int
	Duration  time.Duration
	Err       error
}

// EmitDispatch emits the dispatch counter, its duration and target fan-out.
func EmitDispatch(sink statsd.Sink, in DispatchMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"status":    in.Status,
		"result":    dispatchResult(in),
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("dispatch.total", 1, tags)
	if in.Duration > 0 {
		sink.Timing("dispatch.duration", in.Duration, CloneTags(tags))
	}
	sink.Gauge("dispatch.targets", float64(in.Targets), map[string]string{"operation": in.Operation})
}

func dispatchResult(in DispatchMetric) string {
	switch {
	case in.Err != nil || in.Failed > 0:
		return ResultError
	case in.Targets == 0:
		return ResultNoop
	default:
		return ResultSuccess
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
