package bootstrap

import (
	"context"

	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/krobus00/coin-tick-pipeline/internal/infrastructure"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartIngestor(cmd *cobra.Command, args []string) {
	util.ContinueOrFatal(config.Env.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := newWarehouseDB(ctx)
	latestTicks := newLatestTickRepository(ctx)

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	tickIngestor := newIngestor(ctx, js, db, latestTicks)
	util.ContinueOrFatal(tickIngestor.JetstreamEventSubscribe(ctx))

	httpServer := newHTTPServer(latestTicks)
	tasks := &backgroundTasks{}
	startHTTPServer(tasks, httpServer)

	logrus.WithField("table_id", config.Env.TableID()).Info("ingestor started")

	wait := gracefulShutdown(context.Background(), config.Env.GracefulShutdownTimeout,
		shutdownStage{
			"subscription": func(ctx context.Context) error {
				return tickIngestor.Close()
			},
			"http server": func(ctx context.Context) error {
				return httpServer.Shutdown(ctx)
			},
		},
		shutdownStage{
			"background tasks": tasks.Wait,
		},
		shutdownStage{
			"database": func(ctx context.Context) error {
				cancel()
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
