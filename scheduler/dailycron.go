package scheduler

import (
	"log"
	"time"

	"github.com/ptindo/fleet-worker/cronexpr"
)

// dailyCronTickInterval only needs minute resolution, but checks more often
// so a late process start near the boundary still catches it within a
// second rather than waiting up to a minute.
const dailyCronTickInterval = time.Second

// dailyCronExpr is "0 1 * * *": once daily at 01:00 server-local time. The
// daily cron is never reconfigured at runtime, unlike the snapshot cron.
const dailyCronExpr = "0 1 * * *"

// dailyCron fires once a day and rolls up the previous calendar day's
// condition records into a DailySummary per machine.
type dailyCron struct {
	s        *Scheduler
	expr     *cronexpr.Expr
	stopCh   chan struct{}
	lastFire time.Time
}

func newDailyCron(s *Scheduler) *dailyCron {
	expr, err := cronexpr.Parse(dailyCronExpr)
	if err != nil {
		// dailyCronExpr is a compile-time constant; a parse failure here
		// means the expression itself is wrong, not runtime configuration.
		panic(err)
	}
	return &dailyCron{s: s, expr: expr, stopCh: make(chan struct{})}
}

func (c *dailyCron) start() {
	c.s.wg.Add(1)
	go c.run()
}

func (c *dailyCron) stop() {
	close(c.stopCh)
}

func (c *dailyCron) run() {
	defer c.s.wg.Done()
	ticker := time.NewTicker(dailyCronTickInterval)
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
			c.fire(local)
		}
	}
}

func (c *dailyCron) fire(firedAt time.Time) {
	loc := serverLocation()
	previousDay := firedAt.AddDate(0, 0, -1)

	machines, err := c.s.db.ListEnabledMachines()
	if err != nil {
		log.Printf("ERROR: daily cron could not list machines: %v", err)
		return
	}
	if len(machines) == 0 {
		return
	}

	if err := c.s.daily.RunForDay(machines, previousDay, loc); err != nil {
		log.Printf("ERROR: daily roll-up failed for %s: %v", previousDay.Format("2006-01-02"), err)
		return
	}
	log.Printf("INFO: daily roll-up completed for %s", previousDay.Format("2006-01-02"))
}
