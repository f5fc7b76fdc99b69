package scheduler

import (
	"log"
	"time"

	"github.com/ptindo/fleet-worker/aggregate"
	"github.com/ptindo/fleet-worker/cronexpr"
)

// snapshotTickInterval is how often the cron checks its minute expression.
// A minute-granularity schedule only needs to be evaluated once a minute,
// but checking more often keeps the watcher's swap-in latency low.
const snapshotTickInterval = time.Second

// snapshotCron fires on the "*/logFreq * * * *" schedule: bulk-writes log
// history for the cycle's latest readings, then force-records a condition
// heartbeat for every aggregated machine.
type snapshotCron struct {
	s        *Scheduler
	expr     *cronexpr.Expr
	stopCh   chan struct{}
	lastFire time.Time
}

func newSnapshotCron(s *Scheduler, logFreq int) *snapshotCron {
	expr, err := cronexpr.Parse(everyNMinutesExpr(logFreq))
	if err != nil {
		log.Printf("ERROR: invalid snapshot cron for log_freq=%d, defaulting to 15m: %v", logFreq, err)
		expr, _ = cronexpr.Parse(everyNMinutesExpr(defaultLogFreq))
	}
	return &snapshotCron{s: s, expr: expr, stopCh: make(chan struct{})}
}

func everyNMinutesExpr(n int) string {
	if n <= 0 {
		n = defaultLogFreq
	}
	return "*/" + formatDecimal(float64(n)) + " * * * *"
}

func (c *snapshotCron) start() {
	c.s.wg.Add(1)
	go c.run()
}

func (c *snapshotCron) stop() {
	close(c.stopCh)
}

func (c *snapshotCron) run() {
	defer c.s.wg.Done()
	ticker := time.NewTicker(snapshotTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case t := <-ticker.C:
			local := t.In(serverLocation())
			if !c.expr.Matches(local.Hour(), local.Minute()) {
				continue
			}
			if local.Truncate(time.Minute).Equal(c.lastFire) {
				continue
			}
			c.lastFire = local.Truncate(time.Minute)
			c.fire()
		}
	}
}

func (c *snapshotCron) fire() {
	readings := c.s.snapshotLatestReadings()
	if len(readings) == 0 {
		log.Printf("INFO: snapshot cron fired with no cached readings, skipping")
		return
	}

	if err := c.s.logs.SaveBatch(readings); err != nil {
		log.Printf("ERROR: snapshot cron log-history batch write failed: %v", err)
	}

	now := time.Now()
	for _, mr := range aggregate.Machines(readings) {
		c.s.classifyAndRecord(mr, now, true, true)
	}
}
