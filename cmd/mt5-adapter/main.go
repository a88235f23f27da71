package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/api"
	"github.com/Checker-Finance/mt5-adapter/internal/brokerops"
	"github.com/Checker-Finance/mt5-adapter/internal/httpclient"
	"github.com/Checker-Finance/mt5-adapter/internal/mt5"
	"github.com/Checker-Finance/mt5-adapter/internal/publisher"
	"github.com/Checker-Finance/mt5-adapter/internal/rate"
	internalsecrets "github.com/Checker-Finance/mt5-adapter/internal/secrets"
	syncer "github.com/Checker-Finance/mt5-adapter/internal/sync"
	"github.com/Checker-Finance/mt5-adapter/internal/tracker"
	"github.com/Checker-Finance/mt5-adapter/pkg/config"
	"github.com/Checker-Finance/mt5-adapter/pkg/logger"
	"github.com/Checker-Finance/mt5-adapter/pkg/secrets"
	"github.com/Checker-Finance/mt5-adapter/pkg/utils"
)

var (
	flagMock  bool
	flagSince time.Duration
	flagEvent []string
)

func main() {
	root := &cobra.Command{
		Use:           "mt5-adapter",
		Short:         "Syncs closed MT5 deals into BrokerOps economics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&flagMock, "mock", false, "use the built-in mock deal source")

	syncCmd := &cobra.Command{
		Use:   "sync-deals",
		Short: "Run one sync pass and print the summary",
		RunE:  runSync,
	}
	syncCmd.Flags().DurationVar(&flagSince, "since", 0, "lookback window (default SYNC_WINDOW)")

	webhookCmd := &cobra.Command{
		Use:   "register-webhook URL",
		Short: "Register a callback URL with the BrokerOps webhooks service",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegisterWebhook,
	}
	webhookCmd.Flags().StringArrayVar(&flagEvent, "event", nil, "event to subscribe (repeatable; defaults to the standard set)")

	root.AddCommand(
		syncCmd,
		webhookCmd,
		&cobra.Command{
			Use:   "health",
			Short: "Probe the MT5 gateway and BrokerOps services",
			RunE:  runHealth,
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the adapter as a daemon with periodic sync and an ops API",
			RunE:  runServe,
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// components is everything a command may need, built from config once.
type components struct {
	cfg       *config.Config
	log       *zap.Logger
	source    mt5.DealSource
	client    *brokerops.Client
	tracker   *tracker.HybridTracker
	pool      *pgxpool.Pool
	rdb       *redis.Client
	credCache *secrets.Cache[internalsecrets.Credentials]
}

func (c *components) close() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
}

func build(ctx context.Context, withTracker bool) (*components, error) {
	cfg := config.Load()
	if flagMock {
		cfg.MockMode = true
	}

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	log := logger.L()

	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})

	// Delivery executor: per-attempt timeout, bounded retries.
	deliverExec := httpclient.New(log, rateMgr,
		&http.Client{Timeout: cfg.DeliveryTimeout},
		httpclient.Policy{
			MaxAttempts: cfg.DeliveryMaxAttempts,
			BackoffBase: cfg.DeliveryBackoffBase,
		})

	credCache := secrets.NewCache[internalsecrets.Credentials](cfg.CacheTTL)

	client := brokerops.NewClient(log, brokerops.Config{
		EconomicsURL: cfg.EconomicsURL,
		WebhooksURL:  cfg.WebhooksURL,
		APIKey:       resolveAPIKey(ctx, cfg, log, credCache),
	}, deliverExec)

	var source mt5.DealSource
	if cfg.MockMode {
		log.Info("using mock deal source")
		source = mt5.NewMockSource()
	} else {
		gatewayExec := httpclient.New(log, rateMgr,
			&http.Client{Timeout: cfg.GatewayTimeout},
			httpclient.Policy{MaxAttempts: 2, BackoffBase: 500 * time.Millisecond})
		source = mt5.NewLiveSource(log, gatewayExec, cfg.GatewayURL)
	}

	c := &components{cfg: cfg, log: log, source: source, client: client, credCache: credCache}

	if withTracker {
		log.Info("connecting delivery ledger",
			zap.String("dsn", utils.MaskDSN(cfg.DatabaseURL)),
			zap.String("redis", cfg.RedisAddr))

		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.PGMaxConns)
		poolCfg.MinConns = int32(cfg.PGMinConns)
		poolCfg.MaxConnLifetime = cfg.PGMaxConnLifetime
		poolCfg.MaxConnIdleTime = cfg.PGMaxConnIdleTime
		poolCfg.HealthCheckPeriod = cfg.PGHealthCheckPeriod

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("create pg pool: %w", err)
		}
		c.pool = pool

		c.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPass,
		})

		c.tracker = tracker.NewHybridTracker(log, pool, c.rdb, cfg.CacheTTL)
	}

	return c, nil
}

// resolveAPIKey fetches BrokerOps credentials from Secrets Manager. Local
// stacks run without auth, so failure here degrades instead of aborting.
func resolveAPIKey(ctx context.Context, cfg *config.Config, log *zap.Logger, cache *secrets.Cache[internalsecrets.Credentials]) string {
	provider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		log.Warn("secrets manager unavailable, proceeding without api key", zap.Error(err))
		return ""
	}
	resolver := internalsecrets.NewResolver(log, provider, cache)
	creds, err := resolver.Resolve(ctx, cfg.Env)
	if err != nil {
		log.Warn("could not resolve brokerops credentials", zap.Error(err))
		return ""
	}
	return creds.APIKey
}

func newSyncer(c *components, pub syncer.DeliveredPublisher) *syncer.Syncer {
	mapper := mt5.NewMapper(c.cfg.Currency, c.cfg.SourceTag)
	return syncer.NewSyncer(c.log, c.source, mapper, c.tracker, c.client, pub)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer c.close()

	report := brokerops.NewHealthChecker(c.source, c.client).Report(ctx)
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.Healthy() {
		return fmt.Errorf("one or more dependencies are unhealthy")
	}
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()

	window := c.cfg.SyncWindow
	if flagSince > 0 {
		window = flagSince
	}

	sum, err := newSyncer(c, nil).Run(ctx, time.Now().UTC().Add(-window))
	if perr := printJSON(sum); perr != nil {
		return perr
	}
	if err != nil {
		return fmt.Errorf("sync aborted: %w", err)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d deal(s) failed to deliver", sum.Failed)
	}
	return nil
}

func runRegisterWebhook(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer c.close()

	reg, err := c.client.RegisterWebhook(ctx, args[0], flagEvent)
	if err != nil {
		return err
	}
	return printJSON(reg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()
	log := c.log

	stopCleaner := make(chan struct{})
	go c.credCache.StartCleaner(c.cfg.CleanupFreq, stopCleaner)
	defer close(stopCleaner)

	pub, err := publisher.New(log, c.cfg.NATSURL, c.cfg.OutboundSubject, c.cfg.SyncSubject, c.cfg.SourceTag)
	if err != nil {
		log.Warn("nats unavailable, delivery notifications disabled", zap.Error(err))
		pub = nil
	} else {
		defer pub.Close()
	}

	var s *syncer.Syncer
	if pub != nil {
		s = newSyncer(c, pub)
	} else {
		s = newSyncer(c, nil)
	}
	job := syncer.NewJob(log, s, c.cfg.SyncInterval, c.cfg.SyncWindow, c.cfg.SyncOverlap)
	if pub != nil {
		job.SetNotifier(pub)
	}
	go job.Run(ctx)

	// Live deal notifications, when the gateway exposes them.
	if c.cfg.GatewayWSURL != "" && !c.cfg.MockMode {
		stream := mt5.NewDealStream(log, c.cfg.GatewayWSURL)
		go stream.Run(ctx)
		go func() {
			for deal := range stream.Deals() {
				if err := s.SyncDeal(ctx, deal); err != nil {
					log.Error("streamed deal sync failed",
						zap.Int64("ticket", deal.Ticket), zap.Error(err))
				}
			}
		}()
	}

	handler := api.NewHandler(log, job, c.tracker, brokerops.NewHealthChecker(c.source, c.client))
	app := api.NewApp(c.cfg, handler)

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info("ops api listening", zap.Int("port", c.cfg.Port))
	if err := app.Listen(fmt.Sprintf(":%d", c.cfg.Port)); err != nil {
		return fmt.Errorf("ops api: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
