package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/yeremiapane/qrmenu/utils"
)

const (
	staleSessionInterval = 15 * time.Minute
	subscriptionInterval = time.Hour
	jobTimeout           = 2 * time.Minute
)

type SessionCloser interface {
	CloseStaleSessions(ctx context.Context, maxAge time.Duration, now time.Time) (int, error)
}

type SubscriptionExpirer interface {
	MarkLapsed(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs the housekeeping jobs. A failed run is logged and retried
// at the next tick.
type Scheduler struct {
	scheduler     gocron.Scheduler
	tables        SessionCloser
	subscriptions SubscriptionExpirer
	sessionMaxAge time.Duration
	jobs          map[string]gocron.Job
}

func NewScheduler(tables SessionCloser, subscriptions SubscriptionExpirer, sessionMaxAge time.Duration) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler:     scheduler,
		tables:        tables,
		subscriptions: subscriptions,
		sessionMaxAge: sessionMaxAge,
		jobs:          make(map[string]gocron.Job),
	}
	if err := s.register("close-stale-sessions", staleSessionInterval, s.CloseStaleSessions); err != nil {
		return nil, err
	}
	if err := s.register("expire-subscriptions", subscriptionInterval, s.ExpireSubscriptions); err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Registered %d background jobs", len(s.jobs))
	return s, nil
}

func (s *Scheduler) register(name string, every time.Duration, run func(context.Context) error) error {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := run(ctx); err != nil {
				utils.ErrorLogger.Printf("Job %s failed: %v", name, err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

func (s *Scheduler) Start() {
	utils.InfoLogger.Println("Starting background job scheduler")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	utils.InfoLogger.Println("Stopping background job scheduler")
	return s.scheduler.Shutdown()
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) CloseStaleSessions(ctx context.Context) error {
	closed, err := s.tables.CloseStaleSessions(ctx, s.sessionMaxAge, time.Now())
	if err != nil {
		return err
	}
	if closed > 0 {
		utils.InfoLogger.Printf("Closed %d stale table session(s)", closed)
	}
	return nil
}

func (s *Scheduler) ExpireSubscriptions(ctx context.Context) error {
	lapsed, err := s.subscriptions.MarkLapsed(ctx, time.Now())
	if err != nil {
		return err
	}
	if lapsed > 0 {
		utils.InfoLogger.Printf("Marked %d subscription(s) past due", lapsed)
	}
	return nil
}
