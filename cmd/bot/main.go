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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fadedpez/numberledger/internal/bot"
	"github.com/fadedpez/numberledger/internal/config"
	"github.com/fadedpez/numberledger/internal/discord"
	"github.com/fadedpez/numberledger/internal/logging"
	"github.com/fadedpez/numberledger/pkg/journal"
	"github.com/fadedpez/numberledger/pkg/metrics"
	ledgerRepo "github.com/fadedpez/numberledger/pkg/repositories/ledger"
	"github.com/fadedpez/numberledger/pkg/scheduler"
	"github.com/fadedpez/numberledger/pkg/services/inventory"
	"github.com/fadedpez/numberledger/pkg/services/ledger"
	"github.com/fadedpez/numberledger/pkg/services/statistics"
	"github.com/fadedpez/numberledger/pkg/services/wallet"
	"github.com/fadedpez/numberledger/pkg/sessions"
	"github.com/fadedpez/numberledger/pkg/telegram"
)

const (
	sweepInterval    = time.Minute
	throttleIdle     = 10 * time.Minute
	shutdownDeadline = 5 * time.Second
)

// transport is a chat platform connection driving the router
type transport interface {
	bot.Notifier
	SetHandler(handler bot.Handler)
	Run(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Service:     "numberledger",
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.LogError(err)
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	log := logger.Component("main")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	rules, err := wallet.ParseRules(cfg.WalletRules)
	if err != nil {
		return fmt.Errorf("invalid WALLET_RULES: %w", err)
	}

	repo, err := ledgerRepo.NewSQLiteRepository(ctx, cfg.DBPath, logger.Component("storage"))
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info().Str("db_path", cfg.DBPath).Msg("storage ready")

	tasks := scheduler.NewScheduler(logger.Component("scheduler"))

	store, closeStore, err := sessionStore(ctx, cfg, tasks)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := bot.Services{
		Ledger:     ledger.NewCoordinator(repo, wallet.NewAllocator(rules), logger.Component("ledger"), m),
		Wallets:    wallet.NewService(repo, rules, logger.Component("wallet")),
		Inventory:  inventory.NewService(repo, rules, logger.Component("inventory")),
		Statistics: statistics.NewService(repo),
		Users:      repo,
		Sessions:   store,
	}

	t, gate, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}

	router := bot.NewRouter(svc, t, gate, bot.OptionsFromConfig(cfg, rules), logger.Component("router"), m)
	t.SetHandler(router)

	tasks.AddTask("throttle_prune", sweepInterval, func(ctx context.Context) error {
		if n := router.Throttle().Prune(throttleIdle); n > 0 {
			log.Debug().Int("pruned", n).Msg("pruned idle limiters")
		}
		return nil
	})

	if cfg.ElasticsearchEnabled() {
		exporter, err := journal.NewExporter(repo, journal.Config{
			URL:         cfg.ElasticsearchURL,
			Username:    cfg.ElasticsearchUsername,
			Password:    cfg.ElasticsearchPassword,
			IndexPrefix: cfg.ElasticsearchIndex,
		}, logger.Component("journal"), m)
		if err != nil {
			return err
		}
		tasks.AddTask("journal_export", cfg.JournalExportInterval, exporter.Run)
	}

	server := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	tasks.Start(ctx)
	defer tasks.Stop()

	g.Go(func() error {
		log.Info().Str("transport", cfg.Transport).Msg("bot starting")
		return t.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// sessionStore builds the deposit capture store for SESSION_BACKEND
func sessionStore(ctx context.Context, cfg *config.Config, tasks *scheduler.Scheduler) (sessions.Store, func(), error) {
	if cfg.SessionBackend == config.SessionBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return sessions.NewRedisStore(client, "numberledger", cfg.SessionTTL), func() { client.Close() }, nil
	}

	store := sessions.NewMemoryStore(cfg.SessionTTL)
	tasks.AddTask("session_sweep", sweepInterval, func(ctx context.Context) error {
		_, err := store.Sweep(ctx)
		return err
	})
	return store, func() {}, nil
}

// newTransport connects to the configured chat platform
func newTransport(cfg *config.Config, logger *logging.Logger) (transport, bot.MembershipGate, error) {
	switch cfg.Transport {
	case config.TransportDiscord:
		session, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating Discord session: %w", err)
		}
		return discord.NewTransport(session, cfg.AppID, cfg.GuildID, logger.Component("discord")), nil, nil
	default:
		api, err := telegram.NewBotAPI(cfg.BotToken, cfg.IsDevelopment() && logger.GetLevel() <= zerolog.DebugLevel)
		if err != nil {
			return nil, nil, err
		}
		var gate bot.MembershipGate
		if cfg.ForceJoinChatID != "" {
			gate = telegram.NewGate(api, cfg.ForceJoinChatID)
		}
		return telegram.NewTransport(api, logger.Component("telegram")), gate, nil
	}
}

func metricsMux(m *metrics.Ledger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
