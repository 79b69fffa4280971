package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/songzhibin97/deepdive/internal/ai/openai"
	"github.com/songzhibin97/deepdive/internal/ai/scoring"
	"github.com/songzhibin97/deepdive/internal/cache"
	"github.com/songzhibin97/deepdive/internal/configs"
	"github.com/songzhibin97/deepdive/internal/data/collector"
	"github.com/songzhibin97/deepdive/internal/data/collector/binance"
	"github.com/songzhibin97/deepdive/internal/data/collector/coingecko"
	"github.com/songzhibin97/deepdive/internal/data/collector/defillama"
	"github.com/songzhibin97/deepdive/internal/data/collector/github"
	"github.com/songzhibin97/deepdive/internal/data/collector/news"
	"github.com/songzhibin97/deepdive/internal/data/collector/twitter"
	"github.com/songzhibin97/deepdive/internal/data/storage"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/pipeline"
	"github.com/songzhibin97/deepdive/internal/report"
	"github.com/songzhibin97/deepdive/internal/risk"
	"github.com/songzhibin97/deepdive/internal/scheduler"
	"github.com/songzhibin97/deepdive/internal/server"
	"github.com/songzhibin97/deepdive/internal/showcase"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf config.yaml")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}))
}

// buildSources enables every provider that is switched on; credentials are checked per call.
func buildSources(cfg configs.ProvidersConfig) collector.Sources {
	var sources collector.Sources
	if cfg.CoinGecko.Enabled {
		sources.Market = coingecko.NewCoinGeckoDataSource(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.Timeout)
	}
	if cfg.DefiLlama.Enabled {
		sources.Protocol = defillama.NewDefiLlamaDataSource(cfg.DefiLlama.BaseURL, cfg.Timeout)
	}
	if cfg.GitHub.Enabled {
		sources.Repository = github.NewGitHubDataSource(cfg.GitHub.BaseURL, cfg.GitHub.APIKey, cfg.Timeout)
	}
	if cfg.Twitter.Enabled {
		sources.Social = twitter.NewTwitterDataSource(cfg.Twitter.BaseURL, cfg.Twitter.APIKey, cfg.Timeout)
	}
	if cfg.News.Enabled {
		sources.Mentions = news.NewNewsDataSource(cfg.News.BaseURL, cfg.Timeout)
	}
	if cfg.Binance.Enabled {
		sources.Ticker = binance.NewBinanceDataSource(cfg.Binance.BaseURL, cfg.Timeout)
	}
	return sources
}

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := configs.Load(flagconf)
	if err != nil {
		slog.Error("Error loading config", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Debug("Loaded config", "addr", cfg.Addr(), "model", cfg.AIConfig.Model)

	if cfg.Proxy != "" {
		_ = os.Setenv("HTTP_PROXY", cfg.Proxy)
		_ = os.Setenv("HTTPS_PROXY", cfg.Proxy)
		log.Debug("set proxy ok", "proxy", cfg.Proxy)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	// 初始化各个组件
	multiCollector := collector.NewMultiSourceCollector(buildSources(cfg.Providers), log, m)
	log.Debug("init collector")

	generator := openai.NewOpenAIGenerator(openai.Options{
		Endpoint:    cfg.AIConfig.Endpoint,
		APIKey:      cfg.AIConfig.APIKey,
		Model:       cfg.AIConfig.Model,
		Temperature: cfg.AIConfig.Temperature,
		Timeout:     cfg.AIConfig.Timeout,
		Referer:     cfg.AIConfig.Referer,
		Title:       cfg.AIConfig.Title,
	})
	if cfg.AIConfig.APIKey == "" {
		log.Warn("generation backend not configured, using fallbacks")
	}
	engine := scoring.NewEngine(generator, risk.NewBasicRiskManager(risk.DefaultParameters()), log, m)
	log.Debug("init scoring engine")

	analysisPipeline := pipeline.New(multiCollector, engine, log, m)

	var (
		analyzer pipeline.Analyzer = analysisPipeline
		urls     report.URLRecorder
		renders  server.RenderClaimer
	)
	if cfg.Cache.RedisAddr != "" && cfg.Cache.TTL > 0 {
		client, err := cache.NewClient(cfg.Cache)
		if err != nil {
			log.Warn("analysis cache disabled", "err", err)
		} else {
			defer client.Close()
			cached := cache.NewCachedAnalyzer(analysisPipeline, client, cfg.Cache.TTL, log)
			analyzer, urls, renders = cached, cached, cached
			log.Debug("init analysis cache", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
		}
	}

	reports, err := storage.NewFileStorage(cfg.Reports.Dir)
	if err != nil {
		log.Error("Error creating report storage", "err", err)
		os.Exit(1)
	}
	log.Debug("init report storage", "dir", cfg.Reports.Dir)

	renderer := report.NewPDFRenderer()
	dispatcher := report.NewDispatcher(renderer, reports, urls, log, m)

	sched := scheduler.NewScheduler(ctx, reports, log)
	if err := sched.RegisterRetention(cfg.Reports.RetentionCron, cfg.Reports.MaxAge); err != nil {
		log.Error("Error registering retention", "err", err)
		os.Exit(1)
	}
	sched.Start()

	library := showcase.NewLibrary(afero.NewOsFs(), cfg.Showcase.File, log)

	srv := server.New(cfg.Server, server.Deps{
		Analyzer:   analyzer,
		Comparer:   analysisPipeline,
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Renders:    renders,
		Showcase:   library,
		Storage:    reports,
		Metrics:    m,
		Logger:     log,
	})

	// 运行系统
	runErr := srv.Run(ctx)
	if runErr != nil {
		log.Error("server stopped", "err", runErr)
	}

	sched.Stop()
	dispatcher.Wait()
	log.Info("shutdown complete")

	if runErr != nil {
		os.Exit(1)
	}
}
