package metrics

import (
	"sync"
	"time"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type fakeSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (f *fakeSink) Count(name string, value int64, tags map[string]string) {
	f.add("count", name, float64(value), tags)
}

func (f *fakeSink) Gauge(name string, value float64, tags map[string]string) {
	f.add("gauge", name, value, tags)
}

func (f *fakeSink) Timing(name string, d time.Duration, tags map[string]string) {
	f.add("timing", name, float64(d.Milliseconds()), tags)
}

func (f *fakeSink) add(kind, name string, value float64, tags map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, recordedMetric{kind: kind, name: name, value: value, tags: tags})
}

func (f *fakeSink) byName(name string) []recordedMetric {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedMetric
	for _, m := range f.metrics {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}
