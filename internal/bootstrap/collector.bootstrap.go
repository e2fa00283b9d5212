package bootstrap

import (
	"context"

	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/krobus00/coin-tick-pipeline/internal/infrastructure"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartCollector(cmd *cobra.Command, args []string) {
	util.ContinueOrFatal(config.Env.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	tickScheduler := newScheduler(ctx, js)
	httpServer := newHTTPServer(nil)

	tasks := &backgroundTasks{}
	tasks.Go("scheduler", func() {
		tickScheduler.Run(ctx)
	})
	startHTTPServer(tasks, httpServer)

	logrus.WithFields(logrus.Fields{
		"coin_ids": config.Env.Collector.CoinIDs,
		"interval": config.Env.Collector.Interval.String(),
		"topic":    config.Env.Queue.Topic,
	}).Info("collector started")

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
		},
		shutdownStage{
			"nats connection": func(ctx context.Context) error {
				return infrastructure.CloseJetstream(nc)
			},
		},
	)

	<-wait
}
