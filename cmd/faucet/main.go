package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faucet-gateway/faucet"
	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"
	"faucet-gateway/faucet/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := readConfig(os.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("faucet stopped", zap.Error(err))
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func run(ctx context.Context, cfg config, log *zap.Logger) error {
	ledger, closeLedger, err := openLedger(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeLedger()

	client := infra.NewChainClient(cfg.SignerURL, infra.WithChainLogger(log.Named("chain")))
	sequences := bootstrapSequences(ctx, cfg, client, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := infra.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	stats := infra.FanoutStats{metrics}
	if cfg.StatsRedisEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.StatsRedisAddr,
			Password: cfg.StatsRedisPassword,
			DB:       cfg.StatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.StatsPrefix),
			infra.WithStatsTTL(cfg.StatsTTL),
			infra.WithStatsBucket(cfg.StatsBucket),
			infra.WithStatsTrackKeys(cfg.StatsTrackKeys),
		))
	}

	orch := &application.Orchestrator{
		Gate:             application.QuotaGate{Ledger: ledger},
		Quota:            domain.Quota{Window: cfg.QuotaWindow, MaxGrants: cfg.QuotaMaxGrants},
		Sequences:        sequences,
		Nodes:            cfg.Nodes,
		DefaultNetwork:   cfg.DefaultNetwork,
		Broadcaster:      client,
		Ledger:           ledger,
		Stats:            stats,
		SigningKey:       cfg.SecretKey,
		Amount:           cfg.GrantAmount,
		BroadcastTimeout: cfg.BroadcastTimeout,
		Log:              log.Named("grant"),
	}

	keyFn := faucet.DefaultKeyFunc(cfg.RateKeyHeader, cfg.TrustXFF)
	h := &faucet.Handler{
		Granter: orch,
		Reports: application.Reporter{Ledger: ledger},
		MainCheck: application.MainCheck{
			Reader:  client,
			Network: cfg.DefaultNetwork,
			NodeURL: cfg.Nodes[cfg.DefaultNetwork],
		},
		KeyFn:             keyFn,
		LegacyStatusCodes: cfg.LegacyStatusCodes,
		Log:               log.Named("http"),
	}

	var shieldStore *infra.Store
	shield := faucet.ShieldOptions{
		Stats:               stats,
		KeyFn:               keyFn,
		RetryAfter:          cfg.ShieldRetryAfter,
		AddRateLimitHeaders: cfg.ShieldHeaders,
		Networks:            cfg.networks(),
		DefaultNetwork:      cfg.DefaultNetwork,
	}
	if cfg.ShieldEnabled {
		shieldStore = infra.NewStore(cfg.ShieldRPS, cfg.ShieldBurst, infra.WithIdleTTL(cfg.ShieldIdleTTL))
		shield.Store = shieldStore
	}

	router := faucet.NewRouter(faucet.RouterOptions{
		Handler: h,
		Shield:  shield,
		Concurrency: faucet.ConcurrencyOptions{
			Max:            cfg.ConcurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.ConcurrencyTimeout,
		},
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// o grant pode esperar a fila de sequência e o broadcast.
		WriteTimeout: cfg.SequenceWaitTimeout + 2*cfg.BroadcastTimeout + 5*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	logStartup(log, cfg, sequences)

	g, gctx := errgroup.WithContext(ctx)
	if shieldStore != nil {
		g.Go(func() error { return shieldStore.Run(gctx) })
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openLedger usa SQLite quando DB_PATH está definido; vazio ou ":memory:" fica em memória.
func openLedger(ctx context.Context, path string) (domain.RequestLedger, func(), error) {
	if path == "" || path == ":memory:" {
		return infra.NewMemoryLedger(), func() {}, nil
	}
	l, err := infra.OpenSQLiteLedger(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open request log: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

// bootstrapSequences cria um coordenador por rede. Com SENDER_ADDRESS, o ponto
// de partida é o nonce que o nó reporta; sem ele (ou se o nó não responde)
// começa em 0 e o primeiro conflito corrige.
func bootstrapSequences(ctx context.Context, cfg config, reader domain.AccountReader, log *zap.Logger) *application.SequenceRegistry {
	reg := application.NewSequenceRegistry()
	for _, network := range cfg.networks() {
		start := uint64(0)
		if cfg.SenderAddress != "" {
			nctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			n, err := reader.AccountNonce(nctx, cfg.Nodes[network], cfg.SenderAddress)
			cancel()
			if err != nil {
				log.Warn("could not read sender nonce, starting at 0", zap.String("network", network), zap.Error(err))
			} else {
				start = n
			}
		}
		reg.Register(application.NewSequenceCoordinator(
			network, start, infra.NewChanPool(1), cfg.SequenceWaitTimeout, log.Named("sequence"),
		))
	}
	if cfg.SenderAddress == "" {
		log.Warn("SENDER_ADDRESS not set, sequences start at 0")
	}
	return reg
}

func logStartup(log *zap.Logger, cfg config, seqs *application.SequenceRegistry) {
	log.Info("faucet listening", zap.String("addr", cfg.ListenAddr), zap.String("signer", cfg.SignerURL))
	for _, n := range seqs.Networks() {
		c, _ := seqs.For(n)
		log.Info("network", zap.String("name", n), zap.String("node", cfg.Nodes[n]),
			zap.Uint64("next_nonce", c.Current()), zap.Bool("default", n == cfg.DefaultNetwork))
	}
	log.Info("grant",
		zap.Uint64("amount", cfg.GrantAmount),
		zap.Duration("quota_window", cfg.QuotaWindow),
		zap.Int("quota_max_grants", cfg.QuotaMaxGrants),
		zap.Duration("broadcast_timeout", cfg.BroadcastTimeout),
		zap.Duration("sequence_wait_timeout", cfg.SequenceWaitTimeout),
		zap.String("db_path", cfg.DBPath),
		zap.Bool("legacy_status_codes", cfg.LegacyStatusCodes),
	)
	log.Info("shield",
		zap.Bool("enabled", cfg.ShieldEnabled),
		zap.Float64("rps", cfg.ShieldRPS),
		zap.Int("burst", cfg.ShieldBurst),
		zap.String("key_header", cfg.RateKeyHeader),
		zap.Bool("trust_xff", cfg.TrustXFF),
	)
	log.Info("stats",
		zap.Bool("redis", cfg.StatsRedisEnabled),
		zap.String("redis_addr", cfg.StatsRedisAddr),
		zap.String("bucket", cfg.StatsBucket),
		zap.Duration("ttl", cfg.StatsTTL),
		zap.Bool("track_keys", cfg.StatsTrackKeys),
	)
	log.Info("concurrency", zap.Int("max", cfg.ConcurrencyMax), zap.Duration("acquire_timeout", cfg.ConcurrencyTimeout))
	log.Info("admin", zap.Bool("report_enabled", cfg.AdminToken != ""))
}
