package cache

import (
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Janitor periodically purges expired entries from a [Memory] store.
type Janitor struct {
	sched gocron.Scheduler
}

// Janitor starts a scheduler that calls [Memory.Purge] every interval.
// The caller must stop it with [Janitor.Stop].
func (m *Memory) Janitor(interval time.Duration) (*Janitor, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { m.Purge() }),
	); err != nil {
		_ = sched.Shutdown()

		return nil, err
	}

	sched.Start()

	return &Janitor{sched: sched}, nil
}

// Stop shuts the scheduler down, waiting for a running purge to finish.
func (j *Janitor) Stop() error {
	return j.sched.Shutdown()
}
