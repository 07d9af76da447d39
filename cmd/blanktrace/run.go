package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/certauthority"
	"github.com/mrorigo/blanktrace/internal/cleanup"
	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/policy"
	"github.com/mrorigo/blanktrace/internal/proxyserver"
	"github.com/mrorigo/blanktrace/internal/rewrite"
	"github.com/mrorigo/blanktrace/internal/store"
	"github.com/mrorigo/blanktrace/internal/trackercat"
)

// shutdownGrace bounds how long run waits for in-flight connections to
// drain once a shutdown signal arrives, mirroring the teacher's
// cmd/audit-proxy shutdown timeout.
const shutdownGrace = 10 * time.Second

// whitelistReloadInterval bounds how stale the running proxy's whitelist can
// get relative to a CLI "whitelist add/remove" issued against the same
// database (spec §4.6): a lazy periodic re-read rather than a restart
// requirement.
const whitelistReloadInterval = 5 * time.Second

func newRunCmd(flags *rootFlags) *cobra.Command {
	var validateOnly bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if validateOnly {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration validated successfully")
				return nil
			}
			return runProxy(cmd.Context(), flags, cfg)
		},
	}
	cmd.Flags().BoolVar(&validateOnly, "validate-config", false, "load configuration and exit after validation")
	return cmd
}

func runProxy(ctx context.Context, flags *rootFlags, cfg config.Config) error {
	logger := newLogger(flags)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ca, err := certauthority.LoadOrCreate(cfg.CACertPath, cfg.CAKeyPath)
	if err != nil {
		return fmt.Errorf("load or create CA: %w", err)
	}

	seed, err := loadSeed(ctx, db)
	if err != nil {
		return fmt.Errorf("seed policy state from database: %w", err)
	}
	state := policy.NewState(seed, cfg)

	sink := auditlog.NewSink(db, 1024, logger)
	go sink.Run(context.Background())
	defer func() {
		drained := make(chan struct{})
		go func() { sink.Close(); close(drained) }()
		select {
		case <-drained:
		case <-time.After(shutdownGrace):
			logger.Warn("blanktrace: log sink drain timed out; abandoning queued entries")
		}
	}()

	chain := rewrite.NewChain(
		rewrite.NewBlockRewriter(state, cfg.Blocking, trackercat.Default(), sink),
		rewrite.NewFingerprintRewriter(state.Fingerprint, cfg.Fingerprint, sink),
		rewrite.NewCookieRewriter(state, cfg.Cookies, sink),
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.ListenPort)
	srv, err := proxyserver.NewServer(proxyserver.Options{
		Addr:     addr,
		CA:       ca,
		State:    state,
		Chain:    chain,
		Recorder: sink,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("configure proxy server: %w", err)
	}

	scheduler := cleanup.NewScheduler(db, cfg.Cleanup, logger)
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	go scheduler.Run(schedulerCtx)
	go reloadWhitelistPeriodically(schedulerCtx, db, state, logger)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.ListenAndServe() }()

	logger.Info("blanktrace: listening", "addr", addr)

	select {
	case <-signalCtx.Done():
		logger.Info("blanktrace: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("blanktrace: graceful shutdown failed", "error", err)
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

// reloadWhitelistPeriodically re-reads the whitelist table on a timer so a
// CLI "whitelist add/remove" against the same database takes effect on the
// running proxy without a restart (spec §4.6).
func reloadWhitelistPeriodically(ctx context.Context, db *store.Store, state *policy.State, logger *slog.Logger) {
	ticker := time.NewTicker(whitelistReloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := db.WhitelistEntries(ctx)
			if err != nil {
				logger.Error("blanktrace: whitelist reload failed", "error", err)
				continue
			}
			state.Whitelist.Reload(entries)
		}
	}
}

// loadSeed reads persisted tracking/whitelist state so a restarted proxy
// resumes hit counts and blocks instead of starting from zero (spec §4.6).
func loadSeed(ctx context.Context, db *store.Store) (policy.Seed, error) {
	domains, err := db.TrackingDomainsByHost(ctx)
	if err != nil {
		return policy.Seed{}, err
	}
	tracking := make(map[string]policy.DomainEntry, len(domains))
	for host, d := range domains {
		tracking[host] = policy.DomainEntry{HitCount: d.HitCount, Blocked: d.Blocked, Category: d.Category}
	}

	whitelist, err := db.WhitelistEntries(ctx)
	if err != nil {
		return policy.Seed{}, err
	}

	return policy.Seed{Tracking: tracking, Whitelist: whitelist}, nil
}
