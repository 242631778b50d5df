// Package scheduler runs periodic server maintenance on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrijs2005/fitsync/internal/logging"
)

type Service struct {
	log logging.Logger

	cron *cron.Cron
	jobs map[string]cron.EntryID
	m    sync.RWMutex
}

func NewService(l logging.Logger) *Service {
	return &Service{
		log: l.With("module", "scheduler"),
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		)),
		jobs: map[string]cron.EntryID{},
	}
}

// AddJobWithSpec schedules job under a cron spec such as "@hourly" or
// "0 3 * * *". Identifiers must be unique.
func (s *Service) AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, exists := s.jobs[identifier]; exists {
		return 0, fmt.Errorf("job with identifier '%s' already exists", identifier)
	}

	entryID, err := s.cron.AddJob(spec, cron.NewChain(
		cron.SkipIfStillRunning(cron.DefaultLogger)).Then(job))
	if err != nil {
		return 0, fmt.Errorf("failed to add job '%s' with spec '%s': %w", identifier, spec, err)
	}

	s.log.Info(context.Background(), "Scheduled job added", "identifier", identifier, "spec", spec)
	s.jobs[identifier] = entryID
	return int(entryID), nil
}

func (s *Service) RemoveJobByIdentifier(id string) {
	s.m.Lock()
	defer s.m.Unlock()

	if v, ok := s.jobs[id]; ok {
		s.cron.Remove(v)
		delete(s.jobs, id)
	}
}

// NextRun returns the next activation of job id, or the zero time when the
// job is unknown or the scheduler is not running.
func (s *Service) NextRun(id string) time.Time {
	s.m.RLock()
	v, ok := s.jobs[id]
	s.m.RUnlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(v).Next
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info(ctx, "Starting scheduler service")
	s.cron.Start()

	<-ctx.Done()

	s.log.Info(ctx, "Stopping scheduler service")
	<-s.cron.Stop().Done()
	return nil
}
