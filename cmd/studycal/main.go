package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"studycal/internal/capture"
	"studycal/internal/config"
	"studycal/internal/ics"
	appLog "studycal/internal/log"
	"studycal/internal/metrics"
	"studycal/internal/model"
	"studycal/internal/planner"
	"studycal/internal/store"
	"studycal/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
}

func main() {
	flags := parseFlags()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		appLog.Warn("failed to load .env", "err", err.Error())
	}

	if err := run(flags); err != nil {
		appLog.Error("studycal failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("studycal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"store", conf.Store.Driver,
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	settings, err := planner.SettingsFromConfig(conf)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, pool, err := openStore(ctx, conf)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	m := metrics.New()
	engine := planner.NewEngine(src, newFeeds(conf, settings.Location), settings, m)

	snap, _, err := engine.Refresh(ctx, settings.Window(time.Now()))
	if err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	appLog.Info("initial snapshot ready",
		"events", len(snap.Events),
		"conflicts", len(snap.Conflicts),
		"skipped", len(snap.Skipped),
	)

	server := web.NewServer(conf, engine, m)

	if flags.snapshot != "" {
		return snapshotWeek(ctx, conf, server, flags.snapshot)
	}
	if flags.once {
		return nil
	}

	sched, err := startScheduler(ctx, conf, engine)
	if err != nil {
		return err
	}
	defer func() {
		<-sched.Stop().Done()
	}()

	err = server.Serve(ctx)
	appLog.Info("studycal exiting")
	return err
}

// openStore returns the configured record source. The pool is non-nil
// only for the postgres driver and must be closed by the caller.
func openStore(ctx context.Context, conf *config.Config) (store.Source, *pgxpool.Pool, error) {
	switch conf.Store.Driver {
	case "postgres":
		pool, err := store.Connect(ctx, conf.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		if conf.Store.Migrate {
			if err := store.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return store.NewPostgresStore(pool, conf.Store.UserID), pool, nil
	default:
		return store.NewFileStore(conf.Store.Path), nil, nil
	}
}

// newFeeds returns nil when no feeds are configured.
func newFeeds(conf *config.Config, loc *time.Location) planner.FeedLoader {
	if len(conf.ICS) == 0 {
		return nil
	}
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		sources = append(sources, ics.Source{
			ID:       c.ID,
			Name:     c.Name,
			URL:      c.URL,
			Kind:     model.RecordKind(c.Kind),
			CourseID: c.CourseID,
		})
	}
	return &ics.Feeds{
		Fetcher:  ics.NewFetcher(conf.CacheDir),
		Sources:  sources,
		Location: loc,
	}
}

// startScheduler runs a refresh on every tick of conf.RefreshCron.
func startScheduler(ctx context.Context, conf *config.Config, engine *planner.Engine) (*cron.Cron, error) {
	settings := engine.Settings()
	c := cron.New(
		cron.WithLocation(settings.Location),
		cron.WithLogger(cron.PrintfLogger(appLog.Logger())),
	)
	_, err := c.AddFunc(conf.RefreshCron, func() {
		refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, changed, err := engine.Refresh(refreshCtx, settings.Window(time.Now())); err != nil {
			appLog.Error("scheduled refresh failed", err)
		} else {
			appLog.Debug("scheduled refresh done", "changed", changed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	appLog.Info("refresh scheduler started", "spec", conf.RefreshCron)
	return c, nil
}

// snapshotWeek serves the week view long enough to capture it as PNG.
func snapshotWeek(ctx context.Context, conf *config.Config, server *web.Server, out string) error {
	serveCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(serveCtx) }()

	url, err := capture.WeekURL(conf.Listen, time.Now())
	if err != nil {
		cancel()
		return err
	}
	opts := capture.Options{URL: url, OutputPath: out}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}

	// Give the listener a moment to come up.
	time.Sleep(300 * time.Millisecond)
	capErr := capture.CaptureWeekPNG(ctx, opts)

	cancel()
	if err := <-errCh; err != nil && capErr == nil {
		return err
	}
	return capErr
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/studycal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the current week view as PNG to this path and exit")

	flag.Parse()

	return cfg
}
