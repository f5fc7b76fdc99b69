package scheduler

import (
	"log"
	"time"
)

// serverTimezoneOffset is the fixed UTC+7 offset all cron evaluation and
// daily-boundary arithmetic runs against, regardless of the host's own
// timezone setting.
const serverTimezoneOffset = 7 * 60 * 60

func serverLocation() *time.Location {
	return time.FixedZone("WIB", serverTimezoneOffset)
}

// runWatcher re-reads log_freq every 60s and, when it changes, swaps in a
// freshly parsed snapshot cron. The daily cron is never touched here; only
// the snapshot schedule is reconfigurable at runtime.
func (s *Scheduler) runWatcher() {
	defer s.wg.Done()
	ticker := time.NewTicker(watcherInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.watcherStop:
			return
		case <-ticker.C:
			cfg, err := s.db.GetGeneralConfig()
			if err != nil {
				log.Printf("WARNING: frequency watcher could not read config: %v", err)
				continue
			}
			if cfg.LogFreqMinutes <= 0 || cfg.LogFreqMinutes == s.getLogFreq() {
				continue
			}

			log.Printf("INFO: log_freq changed %d -> %d, rescheduling snapshot cron", s.getLogFreq(), cfg.LogFreqMinutes)
			s.setLogFreq(cfg.LogFreqMinutes)

			old := s.currentSnapshotCron()
			next := newSnapshotCron(s, cfg.LogFreqMinutes)
			next.start()
			s.setSnapshotCron(next)
			old.stop()
		}
	}
}
