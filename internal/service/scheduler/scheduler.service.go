package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/sirupsen/logrus"
)

const defaultInterval = 30 * time.Second

type TickFetcher interface {
	Fetch(ctx context.Context, coinIDs []string, vsCurrency string) ([]entity.PriceTick, error)
}

type TickPublisher interface {
	Publish(ctx context.Context, tick entity.PriceTick) error
}

// CycleResult summarizes one fetch-and-publish cycle.
type CycleResult struct {
	CycleID   string
	Fetched   int
	Published int
	Failed    int
}

type SchedulerService struct {
	fetcher    TickFetcher
	publisher  TickPublisher
	coinIDs    []string
	vsCurrency string
	interval   time.Duration
	after      func(time.Duration) <-chan time.Time
}

func NewSchedulerService(fetcher TickFetcher, publisher TickPublisher, coinIDs []string, vsCurrency string, interval time.Duration) *SchedulerService {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &SchedulerService{
		fetcher:    fetcher,
		publisher:  publisher,
		coinIDs:    coinIDs,
		vsCurrency: vsCurrency,
		interval:   interval,
		after:      time.After,
	}
}

// Run executes cycles until ctx is cancelled. The interval is waited after a
// cycle finishes, and a failed cycle never stops the loop.
func (s *SchedulerService) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"coin_ids": s.coinIDs,
		"interval": s.interval.String(),
	}).Info("starting scheduler loop")

	for {
		result, err := s.RunCycle(ctx)
		if err != nil {
			logrus.WithField("cycle_id", result.CycleID).WithError(err).Error("scheduler cycle failed")
		}

		select {
		case <-ctx.Done():
			logrus.Info("scheduler loop stopped")
			return
		case <-s.after(s.interval):
		}
	}
}

// RunCycle fetches once and publishes every tick in fetch order. A failed
// publish is logged and counted without blocking the remaining ticks. Fetch
// errors and panics are returned.
func (s *SchedulerService) RunCycle(ctx context.Context) (result CycleResult, err error) {
	result.CycleID = uuid.NewString()
	logger := logrus.WithField("cycle_id", result.CycleID)

	err = util.SafeCall(func() error {
		ticks, err := s.fetcher.Fetch(ctx, s.coinIDs, s.vsCurrency)
		if err != nil {
			return err
		}
		result.Fetched = len(ticks)

		for _, tick := range ticks {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if err := s.publisher.Publish(ctx, tick); err != nil {
				result.Failed++
				logger.WithFields(logrus.Fields{
					"coin_id": tick.CoinID(),
					"tick":    tick.String(),
				}).WithError(err).Error("failed to publish tick")
				continue
			}
			result.Published++
		}

		return nil
	})
	if err != nil {
		return result, err
	}

	logger.WithFields(logrus.Fields{
		"fetched":   result.Fetched,
		"published": result.Published,
		"failed":    result.Failed,
	}).Info("scheduler cycle completed")

	return result, nil
}
