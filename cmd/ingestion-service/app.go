package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"golang-trade-clearinghouse/internal/ingestion/compliance"
	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/internal/ingestion/normalizer"
	"golang-trade-clearinghouse/internal/ingestion/notifier"
	"golang-trade-clearinghouse/internal/ingestion/repository"
	"golang-trade-clearinghouse/internal/ingestion/service"
	"golang-trade-clearinghouse/pkg/logger"
	"golang-trade-clearinghouse/pkg/migration"
	"golang-trade-clearinghouse/pkg/postgres"
	"golang-trade-clearinghouse/pkg/redis"
	"golang-trade-clearinghouse/pkg/remotestore"
)

// application holds the wired service graph shared by serve and run-once.
type application struct {
	db       *postgres.DB
	redis    *redis.Client
	notifier notifier.Notifier
	store    repository.Store
	poller   service.PollerService
	reports  service.ReportService
	health   service.HealthService
}

func newApplication(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, migrate bool) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	app.db, err = postgres.NewDB(postgresCfg)
	if err != nil {
		return nil, err
	}

	interval, err := cfg.ReadyInterval()
	if err != nil {
		return nil, err
	}
	err = app.db.WaitReady(ctx, cfg.Database.ReadyRetries, interval, func(attempt uint64, err error) {
		appLogger.Warn("Database not ready, retrying", logger.Field("attempt", attempt), logger.ErrorField(err))
	})
	if err != nil {
		return nil, fmt.Errorf("database never became ready: %w", err)
	}
	appLogger.Info("Database connected")

	if migrate || cfg.Database.AutoMigrate {
		if err := migration.Run(cfg.Database.MigrationsPath, postgresCfg.URL(), migration.DirectionUp); err != nil {
			return nil, err
		}
		appLogger.Info("Database migrations applied")
	}

	// Kept as an untyped nil interface when Redis is off so consumers can test for it.
	var rdb goredis.UniversalClient
	if cfg.Redis.Enabled {
		app.redis, err = redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		rdb = app.redis.Client
	}

	connector, err := newConnector(cfg)
	if err != nil {
		return nil, err
	}

	rules, err := compliance.NewRulesFromConfig(cfg.Compliance)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		appLogger.Info("Compliance rule enabled", logger.StringField("rule", r.Name()))
	}

	app.notifier, err = notifier.NewFromConfig(cfg, rdb, appLogger)
	if err != nil {
		return nil, err
	}

	app.store = repository.NewStore(app.db.DB)
	engine := compliance.NewEngine(appLogger.Named("compliance"), rules...)
	ingestionSvc := service.NewIngestionService(app.store, engine, appLogger.Named("ingestion"))

	app.poller, err = service.NewPollerService(
		connector,
		normalizer.New(appLogger.Named("normalizer")),
		ingestionSvc,
		app.notifier,
		rdb,
		appLogger.Named("poller"),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	app.reports = service.NewReportService(app.store.Trades(), app.store.Alerts())
	app.health = service.NewHealthService(app.store, rdb)
	return app, nil
}

// Close releases every resource the application opened.
func (a *application) Close() error {
	var errs []error
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func newConnector(cfg *config.Config) (remotestore.Connector, error) {
	switch cfg.RemoteStore.Driver {
	case remotestore.DriverSFTP:
		timeout, err := cfg.DialTimeout()
		if err != nil {
			return nil, err
		}
		s := cfg.RemoteStore.SFTP
		return remotestore.NewSFTPConnector(remotestore.SFTPConfig{
			Host:           s.Host,
			Port:           s.Port,
			Username:       s.Username,
			Password:       s.Password,
			KnownHostsFile: s.KnownHostsFile,
			DialTimeout:    timeout,
		}), nil
	case remotestore.DriverS3:
		s := cfg.RemoteStore.S3
		return remotestore.NewS3Connector(remotestore.S3Config{
			Bucket:          s.Bucket,
			Region:          s.Region,
			Endpoint:        s.Endpoint,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			UsePathStyle:    s.UsePathStyle,
		}), nil
	case remotestore.DriverLocal:
		return remotestore.NewLocalConnector(remotestore.LocalConfig{Root: cfg.RemoteStore.Local.Root}), nil
	default:
		return nil, fmt.Errorf("unsupported remote_store.driver %q", cfg.RemoteStore.Driver)
	}
}
