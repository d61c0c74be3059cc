package metrics

import (
	"sync/atomic"
	"time"
)

// Collector is a process-local metrics store exposed on /metrics. It
// tracks the HTTP surface plus the workflow outcomes the operators
// actually watch: refusals, approvals and probation sweeps.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	submissions   uint64
	refusals      uint64
	approvals     uint64
	rejections    uint64
	sweepRuns     uint64
	sweepPromoted uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordSubmission() { atomic.AddUint64(&c.submissions, 1) }
func (c *Collector) RecordRefusal()    { atomic.AddUint64(&c.refusals, 1) }
func (c *Collector) RecordApproval()   { atomic.AddUint64(&c.approvals, 1) }
func (c *Collector) RecordRejection()  { atomic.AddUint64(&c.rejections, 1) }

func (c *Collector) RecordSweep(promoted int) {
	atomic.AddUint64(&c.sweepRuns, 1)
	atomic.AddUint64(&c.sweepPromoted, uint64(promoted))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":      total,
		"errorsTotal":        atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":   atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":      avg,
		"submissionsTotal":   atomic.LoadUint64(&c.submissions),
		"refusalsTotal":      atomic.LoadUint64(&c.refusals),
		"approvalsTotal":     atomic.LoadUint64(&c.approvals),
		"rejectionsTotal":    atomic.LoadUint64(&c.rejections),
		"sweepRunsTotal":     atomic.LoadUint64(&c.sweepRuns),
		"sweepPromotedTotal": atomic.LoadUint64(&c.sweepPromoted),
	}
}
