package bootstrap

import (
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/krobus00/coin-tick-pipeline/internal/constant"
	pipelineHTTP "github.com/krobus00/coin-tick-pipeline/internal/handler/pipeline/http"
	"github.com/krobus00/coin-tick-pipeline/internal/infrastructure"
	"github.com/krobus00/coin-tick-pipeline/internal/repository"
	"github.com/krobus00/coin-tick-pipeline/internal/service/fetcher"
	"github.com/krobus00/coin-tick-pipeline/internal/service/ingestor"
	"github.com/krobus00/coin-tick-pipeline/internal/service/publisher"
	"github.com/krobus00/coin-tick-pipeline/internal/service/scheduler"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	warehouseDatabase = "warehouse"
	latestTickCache   = "latest_tick"
)

func newScheduler(ctx context.Context, js nats.JetStreamContext) *scheduler.SchedulerService {
	tickPublisher := publisher.NewTickPublisher(js, config.Env.Queue.Topic, config.Env.Queue.StreamMaxAge)
	util.ContinueOrFatal(tickPublisher.JetstreamEventInit(ctx))

	tickFetcher := fetcher.NewCoinGeckoFetcher(fetcher.CoinGeckoFetcherConfig{
		BaseURL:        config.Env.Collector.APIURL,
		RequestTimeout: config.Env.Collector.RequestTimeout,
		Source:         config.Env.Collector.Source,
	})

	return scheduler.NewSchedulerService(
		tickFetcher,
		tickPublisher,
		config.Env.Collector.CoinIDs,
		config.Env.Collector.VsCurrency,
		config.Env.Collector.Interval,
	)
}

func newWarehouseDB(ctx context.Context) *sqlx.DB {
	dbConfig := config.Env.Database[warehouseDatabase]

	db, err := infrastructure.NewPostgresConnection(ctx, dbConfig)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbConfig.PingInterval)

	return db
}

// newLatestTickRepository returns nil when no cache is configured.
func newLatestTickRepository(ctx context.Context) *repository.LatestTickRepository {
	cacheDSN := config.Env.Redis[latestTickCache].CacheDSN
	if cacheDSN == "" {
		logrus.Info("latest tick cache disabled")
		return nil
	}

	client, err := infrastructure.NewRedisClient(ctx, cacheDSN)
	util.ContinueOrFatal(err)

	return repository.NewLatestTickRepository(client)
}

func newIngestor(ctx context.Context, js nats.JetStreamContext, db *sqlx.DB, latestTicks *repository.LatestTickRepository) *ingestor.TickIngestorService {
	// the stream must exist before a durable consumer can bind to it
	tickPublisher := publisher.NewTickPublisher(js, config.Env.Queue.Topic, config.Env.Queue.StreamMaxAge)
	util.ContinueOrFatal(tickPublisher.JetstreamEventInit(ctx))

	sink := repository.NewPriceTickRepository(db, config.Env.Warehouse.Dataset, config.Env.Warehouse.Table)

	var cache ingestor.LatestTickCache
	if latestTicks != nil {
		cache = latestTicks
	}

	return ingestor.NewTickIngestorService(js, sink, cache, ingestor.TickIngestorConfig{
		Topic:          config.Env.Queue.Topic,
		SubscriptionID: config.Env.Queue.SubscriptionID,
		MaxDeliver:     config.Env.Queue.MaxDeliver,
		AckWait:        config.Env.Queue.AckWait,
		HandlerTimeout: config.Env.NatsJetstream.TimeoutHandler[constant.TimeoutHandlerInsertTick],
	})
}

func newHTTPServer(latestTicks *repository.LatestTickRepository) *infrastructure.HTTPServer {
	var reader pipelineHTTP.LatestTickReader
	if latestTicks != nil {
		reader = latestTicks
	}

	mux := http.NewServeMux()
	pipelineHTTP.NewPipelineHTTPHandler(reader).Register(mux)

	httpConfig := infrastructure.DefaultHTTPServerConfig()
	httpConfig.ShutdownTimeout = config.Env.GracefulShutdownTimeout

	return infrastructure.NewHTTPServerWithConfig(httpConfig, mux)
}

func startHTTPServer(tasks *backgroundTasks, server *infrastructure.HTTPServer) {
	tasks.Go("http", func() {
		if err := server.Start(); err != nil {
			logrus.WithError(err).Error("http server stopped")
		}
	})
	logrus.Infof("http server started on %s", server.Addr())
}
