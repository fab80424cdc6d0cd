// Command apitestd wires the test-execution engine together: Postgres
// repository, Redis-backed pipeline collaborators, scheduler, load driver,
// and the gin-based REST surface, following the wiring shape of
// examples/usersvc-example/main.go.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/apitest-engine/apitestd/batchrunner"
	"github.com/apitest-engine/apitestd/config"
	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/httpdispatch"
	"github.com/apitest-engine/apitestd/loaddriver"
	"github.com/apitest-engine/apitestd/mailer"
	"github.com/apitest-engine/apitestd/metrics"
	"github.com/apitest-engine/apitestd/pipeline"
	"github.com/apitest-engine/apitestd/redisunit"
	gormrepo "github.com/apitest-engine/apitestd/repo/gorm"
	pgrepo "github.com/apitest-engine/apitestd/repo/pg"
	"github.com/apitest-engine/apitestd/restapi"
	apirouter "github.com/apitest-engine/apitestd/router"
	"github.com/apitest-engine/apitestd/scheduler"
	"github.com/apitest-engine/apitestd/service"
	"github.com/apitest-engine/apitestd/varstore"
)

const requestTimeout = 30 * time.Second

// AppConfig is the shape loaded from config.File's JSON document.
type AppConfig struct {
	ServerPort    int    `json:"server_port"`
	PGDsn         string `json:"pg_dsn"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	LoadWorkerBin string `json:"load_worker_bin"`
	LoadWorkspace string `json:"load_workspace"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      int    `json:"smtp_port"`
	SMTPFrom      string `json:"smtp_from"`
	SMTPUsername  string `json:"smtp_username"`
	SMTPPassword  string `json:"smtp_password"`
}

func main() {
	ctx := context.Background()

	configPath := os.Getenv("APITESTD_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	file := &config.File{ConfigFilePath: configPath}
	var appConfig AppConfig
	if err := config.Load(file, &appConfig); err != nil {
		log.Fatalf("apitestd: load config: %v", err)
	}

	fallbackWriter := logharbour.NewFallbackWriter(os.Stdout, os.Stdout)
	lctx := logharbour.NewLoggerContext(logharbour.DefaultPriority)
	logger := logharbour.NewLogger(lctx, "ApiTestEngine", fallbackWriter)
	logger.WithPriority(logharbour.Debug2)

	pool, err := pgxpool.New(ctx, appConfig.PGDsn)
	if err != nil {
		log.Fatalf("apitestd: connect postgres: %v", err)
	}
	defer pool.Close()

	if conn, err := pool.Acquire(ctx); err == nil {
		if err := pgrepo.MigrateDatabase(ctx, conn.Conn()); err != nil {
			log.Printf("apitestd: migrate: %v", err)
		}
		conn.Release()
	} else {
		log.Printf("apitestd: acquire conn for migration: %v", err)
	}

	repo := pgrepo.New(pool)

	reader, err := gormrepo.Open(appConfig.PGDsn)
	if err != nil {
		log.Printf("apitestd: gorm reader unavailable: %v", err)
		reader = nil
	}

	defaultRedis := entity.RedisConfig{Host: appConfig.RedisHost, Port: appConfig.RedisPort}
	if ok, msg := redisunit.TestConnection(ctx, defaultRedis); !ok {
		log.Printf("apitestd: redis health check failed: %s", msg)
	}

	metricsSys := metrics.NewPrometheusMetrics()
	metricsSys.RegisterWithLabels("apitest_batch_results_total", "Counter", "TestResult rows produced, by status.", []string{"status"})
	metricsSys.RegisterWithLabels("apitest_scheduler_firings_total", "Counter", "Scheduler job firings, by outcome.", []string{"outcome"})

	store := varstore.New()
	dispatcher := httpdispatch.NewDispatcher()
	pl := pipeline.New(store, dispatcher, pipeline.Resolvers{
		DatabaseConfig: repo.GetDatabaseConfig,
		RedisConfig:    repo.GetRedisConfig,
	}, logger).WithMetrics(metricsSys)

	runner := &batchrunner.Runner{
		Store:    store,
		Pipeline: pl,
		Repo:     repo,
		Progress: batchrunner.NewProgressRegistry(),
		Logger:   logger,
		Metrics:  metricsSys,
	}

	smtpMailer := mailer.SMTPMailer{Config: entity.EmailConfig{
		Host: appConfig.SMTPHost, Port: appConfig.SMTPPort, From: appConfig.SMTPFrom,
		Username: appConfig.SMTPUsername, Password: appConfig.SMTPPassword,
	}}

	runBatch := func(ctx context.Context, apiIDs []int64, reportName string) (*entity.TestReport, error) {
		return runner.Run(ctx, batchrunner.Options{APIIDs: apiIDs, ReportName: reportName})
	}
	mail := func(report entity.TestReport, to []string) error {
		return smtpMailer.Send(report, to)
	}

	sched := scheduler.New(repo, runBatch, mail, logger)
	sched.Metrics = metricsSys
	if err := sched.Start(ctx); err != nil {
		log.Printf("apitestd: scheduler start: %v", err)
	}
	defer sched.Stop()

	loadDriver := loaddriver.New(appConfig.LoadWorkspace, appConfig.LoadWorkerBin)

	apirouter.SetDefaultErrCode("APITESTD_ERROR")

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(apirouter.TimeoutMiddleware(requestTimeout))
	engine.Use(apirouter.LogRequest(apirouter.NewLogHarbourAdapter(logger)))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	svc := service.NewService(engine).WithLogger(logger).WithDatabase(pool)

	handlers := &restapi.Handlers{
		Store: store, Pipeline: pl, Repo: repo, Runner: runner,
		Scheduler: sched, Load: loadDriver, Reader: reader,
	}
	group := svc.CreateGroup("/api/v1")
	handlers.RegisterRoutes(group)

	addr := fmt.Sprintf(":%d", appConfig.ServerPort)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("apitestd: server: %v", err)
	}
}
