package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/database"
	stemmiddleware "github.com/Ramsey-B/stem/pkg/middleware"
	"github.com/Ramsey-B/stem/pkg/startup"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/Ramsey-B/stem/pkg/tracing/exporters"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/internal/repositories/brandallowlist"
	"github.com/Ramsey-B/bramble/internal/repositories/brandsplit"
	"github.com/Ramsey-B/bramble/internal/repositories/canonicalproduct"
	"github.com/Ramsey-B/bramble/internal/repositories/publicationrecord"
	"github.com/Ramsey-B/bramble/internal/repositories/stagingrecord"
	"github.com/Ramsey-B/bramble/pkg/admission"
	"github.com/Ramsey-B/bramble/pkg/brandrepair"
	"github.com/Ramsey-B/bramble/pkg/diagnostics"
	"github.com/Ramsey-B/bramble/pkg/events"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/logging"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/merging"
	"github.com/Ramsey-B/bramble/pkg/processor"
	"github.com/Ramsey-B/bramble/pkg/publication"
	allowlistroutes "github.com/Ramsey-B/bramble/pkg/routes/allowlist"
	brandsplitroutes "github.com/Ramsey-B/bramble/pkg/routes/brandsplit"
	diagnosticsroutes "github.com/Ramsey-B/bramble/pkg/routes/diagnostics"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
	mergeroutes "github.com/Ramsey-B/bramble/pkg/routes/merge"
	productroutes "github.com/Ramsey-B/bramble/pkg/routes/products"
	publicationroutes "github.com/Ramsey-B/bramble/pkg/routes/publication"
)

// Version is stamped at build time.
var Version = "dev"

// App holds the assembled service.
type App struct {
	cfg      config.Config
	logger   ectologger.Logger
	echo     *echo.Echo
	db       *sqlx.DB
	consumer *kafka.Consumer
	producer *kafka.Producer
	checker  *health.Checker
	startup  *startup.Startup
	tracer   *sdktrace.TracerProvider
}

// New loads configuration and wires every component together. It connects to
// the database and runs migrations but does not start serving traffic.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracerProvider, err := setupTracing(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	db, err := connectDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(cfg, logger, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbInstance := database.NewDatabaseInstance(db, logger)

	stagingRepo := stagingrecord.NewRepository(dbInstance, logger)
	canonicalRepo := canonicalproduct.NewRepository(dbInstance, logger)
	allowlistRepo := brandallowlist.NewRepository(dbInstance, logger)
	publicationRepo := publicationrecord.NewRepository(dbInstance, logger)
	brandsplitRepo := brandsplit.NewRepository(dbInstance, logger)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	matcher := matching.NewEngine(logger, canonicalRepo, matching.NewTokenSetSimilarity(), matching.Config{
		AutoMergeThreshold: cfg.AutoMergeThreshold,
		ReviewThreshold:    cfg.ReviewThreshold,
		MaxCandidates:      cfg.MaxFuzzyCandidates,
	})

	policy := admission.New(admission.Mode(cfg.AllowlistMode), logger, allowlistRepo)

	repairer, err := brandrepair.Load(ctx, logger, brandsplitRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand split patterns: %w", err)
	}

	merger := merging.NewEngine(logger, stagingRepo, canonicalRepo, publicationRepo, matcher, policy, repairer, emitter, merging.Config{
		MinSampleSize: cfg.MergeMinSampleSize,
		WorkerCount:   cfg.MergeWorkerCount,
	})

	gate := publication.NewGate(logger, publicationRepo, canonicalRepo, emitter)
	diagService := diagnostics.NewService(logger, stagingRepo, matcher, canonicalRepo, repairer)
	proc := processor.NewProcessor(logger, stagingRepo, merger, gate, emitter)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(cfg, logger, proc.HandleMessage)
	}

	if err := registerDependencies(cfg, logger, stagingRepo, canonicalRepo, allowlistRepo, publicationRepo, brandsplitRepo, merger, gate, diagService); err != nil {
		return nil, fmt.Errorf("failed to register dependencies: %w", err)
	}

	checker := health.NewChecker(db, consumerCheck(consumer), Version)
	e := buildEcho(cfg, logger, checker)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		echo:     e,
		db:       db,
		consumer: consumer,
		producer: producer,
		checker:  checker,
		tracer:   tracerProvider,
	}
	app.startup = app.buildStartup()

	return app, nil
}

// Run starts every component and blocks until the context is cancelled, then
// shuts everything down in reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	a.checker.SetReady(true)
	a.logger.WithField("port", a.cfg.Port).Infof("%s is ready", a.cfg.AppName)

	<-ctx.Done()

	a.checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.startup.Stop(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Shutdown did not complete cleanly")
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close Kafka producer")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close database")
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Error("Failed to shut down tracer provider")
		}
	}

	return nil
}

func setupTracing(ctx context.Context, cfg config.Config) (*sdktrace.TracerProvider, error) {
	var provider *sdktrace.TracerProvider
	if cfg.TracingEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingExporterEndpoint,
			Protocol: cfg.TracingExporterProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		provider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	} else {
		provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(&exporters.ConsoleExporter{}))
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider, nil
}

func connectDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)

	db, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	return db, nil
}

func runMigrations(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	migrationService := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})

	return migrationService.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(
	cfg config.Config,
	logger ectologger.Logger,
	stagingRepo *stagingrecord.Repository,
	canonicalRepo *canonicalproduct.Repository,
	allowlistRepo *brandallowlist.Repository,
	publicationRepo *publicationrecord.Repository,
	brandsplitRepo *brandsplit.Repository,
	merger *merging.Engine,
	gate *publication.Gate,
	diagService *diagnostics.Service,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[config.Config](container, cfg); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*stagingrecord.Repository](container, stagingRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*canonicalproduct.Repository](container, canonicalRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*brandallowlist.Repository](container, allowlistRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*publicationrecord.Repository](container, publicationRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*brandsplit.Repository](container, brandsplitRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*merging.Engine](container, merger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*publication.Gate](container, gate); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*diagnostics.Service](container, diagService); err != nil {
		return err
	}

	return nil
}

func buildEcho(cfg config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = stemmiddleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(stemmiddleware.Context())
	e.Use(stemmiddleware.Logger(logger))

	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	runs := api.Group("/runs")
	mergeroutes.Register(runs)
	diagnosticsroutes.Register(runs)
	allowlistroutes.Register(api.Group("/allowlist"))
	brandsplitroutes.Register(api.Group("/brand-splits"))
	publicationroutes.Register(api.Group("/publication"))
	productroutes.Register(api.Group("/products"))

	return e
}

func consumerCheck(consumer *kafka.Consumer) interface{ Health() bool } {
	if consumer == nil {
		return nil
	}
	return consumer
}
