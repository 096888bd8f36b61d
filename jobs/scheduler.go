package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepTimeout = 2 * time.Minute

// Sweeper releases abandoned checkouts and finishes paid ones.
type Sweeper interface {
	ExpirePendingOrders(ctx context.Context) (int, error)
	ExpireReservations(ctx context.Context) (int, error)
	ReconcilePaidOrders(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
}

func NewScheduler(spec string, sweeper Sweeper) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
	}
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("scheduling sweep %q: %w", spec, err)
	}
	return s, nil
}

// Sweep finishes paid orders whose tickets were never fully minted, then
// expires pending orders so their holds are released with them, then picks
// up holds left behind by anything else.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	reconciled, err := s.sweeper.ReconcilePaidOrders(ctx)
	if err != nil {
		logrus.WithError(err).Error("CRON JOB: reconciling paid orders")
	}
	orders, err := s.sweeper.ExpirePendingOrders(ctx)
	if err != nil {
		logrus.WithError(err).Error("CRON JOB: expiring pending orders")
	}
	reservations, err := s.sweeper.ExpireReservations(ctx)
	if err != nil {
		logrus.WithError(err).Error("CRON JOB: expiring reservations")
	}

	if reconciled > 0 || orders > 0 || reservations > 0 {
		logrus.WithFields(logrus.Fields{
			"reconciled":   reconciled,
			"orders":       orders,
			"reservations": reservations,
		}).Info("CRON JOB: sweep finished")
	}
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
