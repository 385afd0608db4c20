package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	httpx "github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http"
	httpH "github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http/handlers"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/medicine"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/ml"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/observability"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/envutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime/bus"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/stats"
)

const serviceName = "pharmatrust-ml-engine"

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Registry *medicine.Registry
	Store    *ml.Store
	Stats    *stats.Aggregator
	Hub      *realtime.Hub
	Engine   *ml.Engine
	Server   *httpx.Server

	metrics      *observability.Metrics
	bus          bus.Bus
	fanout       *fanoutPublisher
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: logMode,
	})

	registry := medicine.NewRegistry(log)
	if cfg.MedicineModelsPath != "" {
		if err := registry.LoadFile(cfg.MedicineModelsPath); err != nil {
			log.Sync()
			return nil, fmt.Errorf("load medicine models: %w", err)
		}
	}

	store := ml.NewStore(cfg.ML, log)
	aggregator := stats.NewAggregator(log)
	hub := realtime.NewHub(log, metrics)

	var (
		eventBus  bus.Bus
		fanout    *fanoutPublisher
		publisher ml.Publisher = hub
	)
	if cfg.RedisAddr != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis event bus: %w", err)
		}
		fanout = newFanoutPublisher(log, metrics, hub, eventBus)
		publisher = fanout
	}

	engine, err := ml.NewEngine(ml.EngineDeps{
		Store:     store,
		Resolver:  registry,
		Recorder:  aggregator,
		Publisher: publisher,
		Metrics:   metrics,
		Log:       log,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init ml engine: %w", err)
	}

	log.Info("Wiring handlers...")
	server := httpx.NewServer(httpx.RouterConfig{
		Log:             log,
		ReadingHandler:  httpH.NewReadingHandler(engine),
		StatsHandler:    httpH.NewStatsHandler(aggregator, registry),
		ModelHandler:    httpH.NewModelHandler(registry),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		Metrics:         metrics,
		AllowOrigins:    cfg.AllowOrigins,
		TracingService:  tracingService(),
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Registry:     registry,
		Store:        store,
		Stats:        aggregator,
		Hub:          hub,
		Engine:       engine,
		Server:       server,
		metrics:      metrics,
		bus:          eventBus,
		fanout:       fanout,
		otelShutdown: otelShutdown,
	}, nil
}

// Run starts the background loops and serves HTTP until ctx is canceled or a
// component fails. All loops share one errgroup so any fatal error tears the
// whole process down cleanly.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.bus != nil {
		if err := a.bus.StartForwarder(gctx, a.Hub.Publish); err != nil {
			return fmt.Errorf("start bus forwarder: %w", err)
		}
		g.Go(func() error { return a.fanout.Run(gctx) })
	}
	g.Go(func() error { return runAlertForwarder(gctx, a.Log, a.Hub) })
	if a.metrics != nil && a.Cfg.RedisAddr != "" {
		a.metrics.StartRedisCollector(gctx, a.Log, a.Cfg.RedisAddr)
	}

	addr := ":" + a.Cfg.Port
	a.Log.Info("ML engine listening", "addr", addr)
	g.Go(func() error { return a.Server.Run(gctx, addr) })

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("closing event bus", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// tracingService returns the otelgin service name, empty when tracing is off
// so the router skips the middleware entirely.
func tracingService() string {
	if envutil.Bool("OTEL_ENABLED", false) {
		return serviceName
	}
	return ""
}
