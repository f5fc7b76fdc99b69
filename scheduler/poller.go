// Package scheduler drives the per-cycle poll loop, the snapshot cron, and
// the log-freq watcher described for the fleet worker: fan out reads across
// gateways in parallel, sequentially within a gateway, classify and record
// each machine's condition, and keep a rolling snapshot for the cron.
package scheduler

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ptindo/fleet-worker/aggregate"
	"github.com/ptindo/fleet-worker/condition"
	"github.com/ptindo/fleet-worker/conditionstore"
	"github.com/ptindo/fleet-worker/dailycalc"
	"github.com/ptindo/fleet-worker/dwell"
	"github.com/ptindo/fleet-worker/events"
	"github.com/ptindo/fleet-worker/grouper"
	"github.com/ptindo/fleet-worker/loghistory"
	"github.com/ptindo/fleet-worker/modbuspool"
	"github.com/ptindo/fleet-worker/models"
	"github.com/ptindo/fleet-worker/sensorread"
	"github.com/ptindo/fleet-worker/store"
)

const (
	emptyFleetRetry  = 5 * time.Second
	licenseRetry     = 5 * time.Second
	interSensorDelay = 50 * time.Millisecond
	interCycleYield  = 100 * time.Millisecond
	watcherInterval  = 60 * time.Second
	defaultLogFreq   = 15
)

// ValidateLicense checks the currently configured license. A nil error
// means the license is valid for the current enabled-machine count.
type ValidateLicense func() error

// Scheduler owns the cycle loop, the snapshot cron, and the frequency
// watcher. It holds the process-wide shared resources (connection pool,
// dwell tracker, latest-readings snapshot) as explicit fields rather than
// package-level globals.
type Scheduler struct {
	db       store.Store
	pool     *modbuspool.Pool
	dwell    *dwell.Tracker
	cond     *conditionstore.Store
	logs     *loghistory.Store
	daily    *dailycalc.Calculator
	publish  events.Publisher
	validate ValidateLicense

	mu             sync.Mutex
	logFreq        int
	latestReadings []models.SensorReading

	stopLoop    chan struct{}
	snapshotMu  sync.Mutex
	snapshotCtl *snapshotCron
	dailyCtl    *dailyCron
	watcherStop chan struct{}
	wg          sync.WaitGroup
}

func (s *Scheduler) currentSnapshotCron() *snapshotCron {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	return s.snapshotCtl
}

func (s *Scheduler) setSnapshotCron(c *snapshotCron) {
	s.snapshotMu.Lock()
	s.snapshotCtl = c
	s.snapshotMu.Unlock()
}

// New wires a Scheduler from its dependencies. history overrides the
// default Postgres-backed dwell.HistorySource; pass nil to read straight
// from db.
func New(db store.Store, pool *modbuspool.Pool, publish events.Publisher, validate ValidateLicense, history dwell.HistorySource) *Scheduler {
	if history == nil {
		history = storeHistorySource{db: db}
	}
	s := &Scheduler{
		db:       db,
		pool:     pool,
		cond:     conditionstore.New(db),
		logs:     loghistory.New(db),
		daily:    dailycalc.New(db),
		publish:  publish,
		validate: validate,
		logFreq:  defaultLogFreq,
		stopLoop: make(chan struct{}),
	}
	s.dwell = dwell.New(history)
	return s
}

// Run executes the start sequence and then the cycle loop until ctx is
// canceled. It returns once the loop, both crons, and the watcher have
// stopped and the connection pool has been closed.
func (s *Scheduler) Run(ctx context.Context) error {
	cfg, err := s.db.GetGeneralConfig()
	if err != nil {
		log.Printf("WARNING: could not load general config, using default log_freq: %v", err)
	} else if cfg.LogFreqMinutes > 0 {
		s.setLogFreq(cfg.LogFreqMinutes)
	}

	machines, err := s.db.ListEnabledMachines()
	if err != nil {
		log.Printf("ERROR: listing enabled machines at startup: %v", err)
	}
	for _, m := range machines {
		if err := s.dwell.Warm(m.ID, time.Now()); err != nil {
			log.Printf("WARNING: dwell warm-up failed for machine %d: %v", m.ID, err)
		}
	}

	s.setSnapshotCron(newSnapshotCron(s, s.getLogFreq()))
	s.currentSnapshotCron().start()

	s.dailyCtl = newDailyCron(s)
	s.dailyCtl.start()

	s.watcherStop = make(chan struct{})
	s.wg.Add(1)
	go s.runWatcher()

	log.Printf("INFO: scheduler started, log_freq=%dm", s.getLogFreq())

	s.loop(ctx)

	close(s.watcherStop)
	s.currentSnapshotCron().stop()
	s.dailyCtl.stop()
	s.wg.Wait()
	s.pool.CloseAll()
	log.Printf("INFO: scheduler stopped cleanly")
	return nil
}

// Stop requests the cycle loop to halt between iterations.
func (s *Scheduler) Stop() {
	close(s.stopLoop)
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopLoop:
			return
		default:
		}

		if err := s.validate(); err != nil {
			log.Printf("WARNING: license invalid, pausing cycle: %v", err)
			if !sleepOrDone(ctx, s.stopLoop, licenseRetry) {
				return
			}
			continue
		}

		machines, err := s.db.ListEnabledMachines()
		if err != nil {
			log.Printf("ERROR: enumerating enabled machines: %v", err)
			if !sleepOrDone(ctx, s.stopLoop, emptyFleetRetry) {
				return
			}
			continue
		}
		if len(machines) == 0 {
			log.Printf("INFO: no enabled machines, retrying")
			if !sleepOrDone(ctx, s.stopLoop, emptyFleetRetry) {
				return
			}
			continue
		}

		groups := grouper.Group(machines)
		readings := s.runCycle(groups)

		s.mu.Lock()
		s.latestReadings = readings
		s.mu.Unlock()

		now := time.Now()
		for _, mr := range aggregate.Machines(readings) {
			s.classifyAndRecord(mr, now, false, false)
		}

		if !sleepOrDone(ctx, s.stopLoop, interCycleYield) {
			return
		}
	}
}

// runCycle fans reads out across gateway groups in parallel, sequential
// within a group, and joins with all-settled semantics: one gateway's
// failure never cancels the others.
func (s *Scheduler) runCycle(groups []models.GatewayGroup) []models.SensorReading {
	cycleID := uuid.NewString()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var all []models.SensorReading

	for _, group := range groups {
		wg.Add(1)
		go func(group models.GatewayGroup) {
			defer wg.Done()
			readings := s.readGroup(cycleID, group)
			mu.Lock()
			all = append(all, readings...)
			mu.Unlock()
		}(group)
	}
	wg.Wait()
	return all
}

func (s *Scheduler) readGroup(cycleID string, group models.GatewayGroup) []models.SensorReading {
	client, err := s.pool.Acquire(group.Endpoint)
	if err != nil {
		log.Printf("ERROR: cycle=%s gateway %s unreachable: %v", cycleID, group.Endpoint.Key(), err)
		return nil
	}

	readings := make([]models.SensorReading, 0, len(group.Tasks))
	for i, task := range group.Tasks {
		reading := sensorread.ReadSensorWithRetry(client, task, time.Now())
		if !reading.Success {
			log.Printf("WARNING: cycle=%s %s/%s read failed: %v", cycleID, task.MachineName, task.Role, reading.Err)
			s.pool.MarkDisconnected(group.Endpoint)
		}
		readings = append(readings, reading)
		if i < len(group.Tasks)-1 {
			time.Sleep(interSensorDelay)
		}
	}
	return readings
}

// classifyAndRecord runs the dwell predicate, classifies, and records one
// machine's condition for this moment.
func (s *Scheduler) classifyAndRecord(mr models.MachineReading, now time.Time, forceSnapshot, skipLogHistory bool) {
	temperature := 0.0
	if mr.Temperature != nil {
		temperature = *mr.Temperature
	}

	hot, err := s.dwell.Dwell(mr.MachineID, temperature, now)
	if err != nil {
		log.Printf("WARNING: dwell lookup failed for machine %d: %v", mr.MachineID, err)
	}

	cond := condition.Classify(mr, hot)
	kwh := "0"
	if mr.Kwh != nil {
		kwh = formatDecimal(*mr.Kwh)
	}

	var lh *models.LogHistoryRecord
	if !skipLogHistory {
		lh = &models.LogHistoryRecord{
			MachineID:    mr.MachineID,
			Timestamp:    mr.Timestamp,
			Temperature:  optionalDecimal(mr.Temperature),
			Kwh:          optionalDecimal(mr.Kwh),
			CapstanSpeed: optionalDecimal(mr.CapstanSpeed),
			OnContact:    optionalInt(mr.OnContact),
			AlarmContact: optionalInt(mr.AlarmContact),
		}
	}

	if err := s.cond.Record(mr.MachineID, cond, kwh, now, lh, forceSnapshot, skipLogHistory); err != nil {
		log.Printf("ERROR: recording condition for machine %d: %v", mr.MachineID, err)
		return
	}

	if s.publish != nil {
		s.publish.PublishCondition(mr.MachineID, cond, now)
	}
}

func optionalDecimal(v *float64) *string {
	if v == nil {
		return nil
	}
	s := formatDecimal(*v)
	return &s
}

func optionalInt(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}

func (s *Scheduler) getLogFreq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logFreq
}

func (s *Scheduler) setLogFreq(n int) {
	s.mu.Lock()
	s.logFreq = n
	s.mu.Unlock()
}

func (s *Scheduler) snapshotLatestReadings() []models.SensorReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestReadings
}

// sleepOrDone sleeps for d unless ctx is canceled or stop is closed first,
// in which case it returns false immediately.
func sleepOrDone(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	}
}
