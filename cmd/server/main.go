// Package main is the entry point for the Atlas investor research platform.
// It wires configuration, databases, external data clients, repositories,
// services, background job workers, the cron scheduler and the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atlasresearch/atlas/internal/aggregation"
	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/clients/edgar"
	"github.com/atlasresearch/atlas/internal/clients/newsapi"
	"github.com/atlasresearch/atlas/internal/clients/opencorporates"
	"github.com/atlasresearch/atlas/internal/clients/wikidata"
	"github.com/atlasresearch/atlas/internal/clients/yahoo"
	"github.com/atlasresearch/atlas/internal/config"
	"github.com/atlasresearch/atlas/internal/database"
	"github.com/atlasresearch/atlas/internal/jobs"
	jobshandlers "github.com/atlasresearch/atlas/internal/jobs/handlers"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	companieshandlers "github.com/atlasresearch/atlas/internal/modules/companies/handlers"
	"github.com/atlasresearch/atlas/internal/modules/connections"
	connectionshandlers "github.com/atlasresearch/atlas/internal/modules/connections/handlers"
	"github.com/atlasresearch/atlas/internal/modules/importexport"
	importexporthandlers "github.com/atlasresearch/atlas/internal/modules/importexport/handlers"
	"github.com/atlasresearch/atlas/internal/modules/investments"
	investmentshandlers "github.com/atlasresearch/atlas/internal/modules/investments/handlers"
	"github.com/atlasresearch/atlas/internal/modules/investors"
	investorshandlers "github.com/atlasresearch/atlas/internal/modules/investors/handlers"
	"github.com/atlasresearch/atlas/internal/modules/search"
	searchhandlers "github.com/atlasresearch/atlas/internal/modules/search/handlers"
	"github.com/atlasresearch/atlas/internal/ratelimit"
	"github.com/atlasresearch/atlas/internal/scheduler"
	"github.com/atlasresearch/atlas/internal/scraper"
	"github.com/atlasresearch/atlas/internal/server"
	"github.com/atlasresearch/atlas/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Atlas")

	// Databases
	researchDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "research.db"),
		Profile: database.ProfileStandard,
		Name:    "research",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open research database")
	}
	defer researchDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := researchDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate research database")
	}
	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Cache store: Redis when configured, SQLite otherwise
	var cacheStore cache.Store
	var sqliteCache *cache.SQLiteStore
	if addr := cfg.RedisAddr(); addr != "" {
		redisStore, err := cache.NewRedisStore(addr, cfg.DefaultCacheTTL, log)
		if err != nil {
			log.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to Redis")
		}
		defer redisStore.Close()
		cacheStore = redisStore
		log.Info().Str("addr", addr).Msg("Using Redis cache backend")
	} else {
		sqliteCache = cache.NewSQLiteStore(cacheDB.Conn(), cfg.DefaultCacheTTL, log)
		cacheStore = sqliteCache
		log.Info().Msg("Using SQLite cache backend")
	}

	// Shared rate limiter and external data clients
	limiter := ratelimit.New()
	edgarClient := edgar.New(cfg.SECEdgarUserAgent, cacheStore, limiter, log)
	yahooClient := yahoo.New(cfg.MarketDataTTL, cacheStore, limiter, log)
	ocClient := opencorporates.New(cfg.OpenCorporatesKey, cacheStore, limiter, log)
	wikidataClient := wikidata.New(cfg.SECEdgarUserAgent, cacheStore, limiter, log)
	newsClient := newsapi.New(cfg.NewsAPIKey, cfg.NewsTTL, cacheStore, limiter, log)

	portfolioScraper := scraper.New(log)

	// Repositories
	investorRepo := investors.NewRepository(researchDB.Conn(), log)
	companyRepo := companies.NewRepository(researchDB.Conn(), log)
	investmentRepo := investments.NewRepository(researchDB.Conn(), log)
	connectionRepo := connections.NewRepository(researchDB.Conn(), log)

	// Background job queues
	jobStore := jobs.NewStore(researchDB.Conn(), log)
	scrapeAudit := jobs.NewScrapeAuditStore(researchDB.Conn(), log)
	fetchProcessor := jobs.NewFetchCompanyProcessor(companyRepo, yahooClient, edgarClient, ocClient, wikidataClient, log)
	scrapeProcessor := jobs.NewScrapePortfolioProcessor(portfolioScraper, scrapeAudit, companyRepo, investmentRepo, log)
	jobManager := jobs.NewManager(jobStore, fetchProcessor, scrapeProcessor, log)

	// Services
	investorSvc := investors.NewService(investorRepo, wikidataClient, log)
	companySvc := companies.NewService(companyRepo, jobManager, log)
	investmentSvc := investments.NewService(investmentRepo, log)
	searchSvc := search.NewService(researchDB.Conn(), log)
	connectionSvc := connections.NewService(connectionRepo, log)
	aggregationSvc := aggregation.NewService(companyRepo, edgarClient, yahooClient, ocClient, wikidataClient, newsClient, log)
	importexportSvc := importexport.NewService(investorSvc, companySvc, investmentSvc, investorRepo, companyRepo, log)

	// Start job workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	jobManager.Start(workerCtx)

	// Cron scheduler for recurring maintenance
	sched := scheduler.New(log)
	scheduledJobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{"0 */6 * * *", scheduler.NewStaleRefreshJob(aggregationSvc, jobManager, log)},
		{"30 2 * * *", scheduler.NewConnectionRefreshJob(connectionSvc, log)},
		{"0 4 * * *", scheduler.NewJobPruneJob(jobStore, log)},
	}
	if sqliteCache != nil {
		scheduledJobs = append(scheduledJobs, struct {
			schedule string
			job      scheduler.Job
		}{"@hourly", scheduler.NewCacheSweepJob(sqliteCache, log)})
	}
	for _, sj := range scheduledJobs {
		if err := sched.AddJob(sj.schedule, sj.job); err != nil {
			log.Fatal().Err(err).Str("job", sj.job.Name()).Msg("Failed to schedule job")
		}
	}
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		DataDir:    cfg.DataDir,
		ResearchDB: researchDB,
		CacheDB:    cacheDB,

		Limiter:         limiter,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,

		Investors:    investorshandlers.NewHandler(investorSvc, log),
		Companies:    companieshandlers.NewHandler(companySvc, aggregationSvc, log),
		Investments:  investmentshandlers.NewHandler(investmentSvc, log),
		Search:       searchhandlers.NewHandler(searchSvc, log),
		Connections:  connectionshandlers.NewHandler(connectionSvc, log),
		ImportExport: importexporthandlers.NewHandler(importexportSvc, log),
		Jobs:         jobshandlers.NewHandler(jobManager, scrapeAudit, log),
		JobManager:   jobManager,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()
	stopWorkers()
	jobManager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
