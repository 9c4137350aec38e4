package goPassport

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID uint16

const (
	// MetricCredentialAuthenticated counts successful credential verifications.
	MetricCredentialAuthenticated MetricID = iota
	// MetricCredentialUnknownAccount counts logins for accounts that do not exist.
	MetricCredentialUnknownAccount
	// MetricCredentialInvalidPassword counts logins with a wrong password.
	MetricCredentialInvalidPassword
	// MetricCredentialUnknown counts credential verifications that faulted.
	MetricCredentialUnknown
	// MetricTokenAuthenticated counts accepted bearer tokens, grace acceptances included.
	MetricTokenAuthenticated
	// MetricTokenGraceAccepted counts expired tokens accepted on grace-exempt paths.
	MetricTokenGraceAccepted
	// MetricTokenExpired counts expired tokens on non-exempt paths.
	MetricTokenExpired
	// MetricTokenInvalid counts tokens missing, undecodable, or not in the active set.
	MetricTokenInvalid
	// MetricTokenUnknown counts token validations that faulted.
	MetricTokenUnknown
	// MetricValidateLatency is the latency histogram of TokenValidator.Validate.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and an optional latency histogram. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] configured by cfg. When Enabled is false,
// all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the validation latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only [MetricValidateLatency]
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of the counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. A disabled Metrics yields
// empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func credentialMetric(kind RejectionKind) MetricID {
	switch kind {
	case KindNone:
		return MetricCredentialAuthenticated
	case KindUnknownAccount:
		return MetricCredentialUnknownAccount
	case KindInvalidPassword:
		return MetricCredentialInvalidPassword
	default:
		return MetricCredentialUnknown
	}
}

func tokenMetric(kind RejectionKind) MetricID {
	switch kind {
	case KindNone:
		return MetricTokenAuthenticated
	case KindExpired:
		return MetricTokenExpired
	case KindInvalidToken:
		return MetricTokenInvalid
	default:
		return MetricTokenUnknown
	}
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
