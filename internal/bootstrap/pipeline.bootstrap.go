package bootstrap

import (
	"context"

	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/krobus00/coin-tick-pipeline/internal/infrastructure"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// StartPipeline runs the collector loop and the ingestor in one process,
// sharing a single NATS connection.
func StartPipeline(cmd *cobra.Command, args []string) {
	util.ContinueOrFatal(config.Env.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := newWarehouseDB(ctx)
	latestTicks := newLatestTickRepository(ctx)

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	tickScheduler := newScheduler(ctx, js)
	tickIngestor := newIngestor(ctx, js, db, latestTicks)
	util.ContinueOrFatal(tickIngestor.JetstreamEventSubscribe(ctx))

	httpServer := newHTTPServer(latestTicks)

	tasks := &backgroundTasks{}
	tasks.Go("scheduler", func() {
		tickScheduler.Run(ctx)
	})
	startHTTPServer(tasks, httpServer)

	logrus.WithFields(logrus.Fields{
		"coin_ids": config.Env.Collector.CoinIDs,
		"interval": config.Env.Collector.Interval.String(),
		"table_id": config.Env.TableID(),
	}).Info("pipeline started")

	wait := gracefulShutdown(context.Background(), config.Env.GracefulShutdownTimeout,
		shutdownStage{
			"scheduler": func(ctx context.Context) error {
				cancel()
				return nil
			},
			"http server": func(ctx context.Context) error {
				return httpServer.Shutdown(ctx)
			},
		},
		shutdownStage{
			"background tasks": tasks.Wait,
			"subscription": func(ctx context.Context) error {
				return tickIngestor.Close()
			},
		},
		shutdownStage{
			"database": func(ctx context.Context) error {
				return db.Close()
			},
			"latest tick cache": func(ctx context.Context) error {
				if latestTicks == nil {
					return nil
				}
				return latestTicks.Close()
			},
			"nats connection": func(ctx context.Context) error {
				return infrastructure.CloseJetstream(nc)
			},
		},
	)

	<-wait
}
