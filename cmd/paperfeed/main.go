package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parizob/Peardox-2.0-sub001/analytics"
	"github.com/parizob/Peardox-2.0-sub001/app"
	"github.com/parizob/Peardox-2.0-sub001/auth"
	"github.com/parizob/Peardox-2.0-sub001/backend"
	"github.com/parizob/Peardox-2.0-sub001/config"
	"github.com/parizob/Peardox-2.0-sub001/deeplink"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/meta"
	"github.com/parizob/Peardox-2.0-sub001/prefs"
	"github.com/parizob/Peardox-2.0-sub001/rewards"
	"github.com/parizob/Peardox-2.0-sub001/scheduler"
	"github.com/parizob/Peardox-2.0-sub001/server"
	"github.com/parizob/Peardox-2.0-sub001/snapshot"
	"github.com/parizob/Peardox-2.0-sub001/store"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := logger.New("paperfeed")

	if err := run(*configPath, log); err != nil {
		log.Error("service exited", err)
		os.Exit(1)
	}
}

func run(configPath string, log *logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeConfig, "failed to load configuration")
	}
	log.SetLevel(logger.LogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stateStore, err := store.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer stateStore.Close()

	timeout := time.Duration(cfg.Backend.TimeoutSecs) * time.Second
	papers := backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey, timeout, log)
	authClient := auth.New(cfg.Backend.BaseURL, log)
	recorder := analytics.NewRecorder(cfg.Backend.BaseURL, log)
	tokens := rewards.NewService(papers, log)

	var snapshots app.SnapshotLoader
	if cfg.Snapshot.Bucket != "" {
		snapStore, err := snapshot.NewStore(cfg.Snapshot.Bucket, cfg.Snapshot.Prefix, cfg.Snapshot.Region, log)
		if err != nil {
			return err
		}
		snapshots = snapStore
	}

	reader := app.NewReader(papers, snapshots, log)

	// Profile settings win over the configured baseline skill level; the
	// locally cached interests bridge a failed profile fetch.
	prefSession := prefs.NewSession(nil)
	loaded := false
	if session, err := authClient.GetSession(ctx); err == nil && session != nil {
		profile, profileErr := authClient.GetProfile(ctx, session.UserID)
		reader.ApplyProfile(profile, profileErr)
		if profileErr == nil && profile != nil {
			prefSession = prefs.NewSession(profile.ResearchInterests)
		} else if cached, cacheErr := stateStore.CachedInterests(session.UserID); cacheErr == nil {
			prefSession = prefs.NewSession(cached)
		}
	} else if level := types.SkillLevel(cfg.SkillLevel); level != reader.SkillLevel() {
		if _, err := reader.SetSkillLevel(ctx, level); err != nil {
			return err
		}
		loaded = true
	}
	if !loaded {
		if _, err := reader.Load(ctx); err != nil {
			return err
		}
	}

	// Sign-out clears the locally persisted state.
	events, unsubscribe := authClient.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			if ev.Type == auth.SignedOut {
				if err := stateStore.ClearUser(""); err != nil {
					log.Warn("clearing local state failed", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}()

	loc, err := time.LoadLocation(cfg.Refresh.Timezone)
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeConfig, "invalid refresh timezone")
	}

	sched, err := scheduler.New(cfg.Refresh.Timezone, log)
	if err != nil {
		return err
	}
	err = sched.ScheduleDaily(cfg.Refresh.Time, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := reader.Load(refreshCtx); err != nil {
			log.Error("scheduled refresh failed", err)
		}
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Deps{
		Reader:    reader,
		Resolver:  deeplink.NewResolver(reader.Collection(), papers, log),
		Metas:     meta.NewBuilder(cfg.Site.Title, cfg.Site.Description, cfg.Site.BaseURL),
		Views:     recorder,
		Tokens:    tokens,
		Stats:     recorder,
		Themes:    stateStore,
		Submitter: papers,
		Prefs:     prefSession,
		Profiles:  authClient,
		Interests: stateStore,
		Location:  loc,
		Log:       log,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
