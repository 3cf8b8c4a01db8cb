// threatmon polls a security content feed, classifies matching posts by
// severity and incident category, and raises threshold-based alerts when a
// category's post rate exceeds its configured limit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/alert"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/api"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/archive"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/config"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/feed"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/metrics"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/poller"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fetch":
			runFetch(os.Args[2:])
			return
		case "query":
			runQuery(os.Args[2:])
			return
		case "stats":
			runStats(os.Args[2:])
			return
		case "version":
			fmt.Println("threatmon", version)
			return
		}
	}

	// Default: run the monitoring daemon.
	runServe(os.Args[1:])
}

func runServe(args []string) {
	fs := flag.NewFlagSet("threatmon", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Println("threatmon", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log.Level)

	slog.Info("threatmon starting",
		"version", version,
		"subreddit", cfg.Feed.Subreddit,
		"interval", cfg.Poll.Interval.Duration,
	)

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Open the alert store. A missing or corrupt document starts empty.
	store, err := alert.Open(cfg.AlertsPath())
	if err != nil {
		return fmt.Errorf("opening alert store: %w", err)
	}
	slog.Info("alert store opened", "path", cfg.AlertsPath(), "alerts", store.Count())

	// Open the post archive if enabled.
	var arch *archive.DB
	if cfg.Archive.Enabled {
		arch, err = archive.Open(cfg.ArchivePath())
		if err != nil {
			return fmt.Errorf("opening post archive: %w", err)
		}
		defer arch.Close()
		slog.Info("post archive opened", "path", cfg.ArchivePath())

		// Run retention purge on startup.
		if cfg.Archive.Retention.Duration > 0 {
			purged, err := arch.Purge(cfg.Archive.Retention.Duration)
			if err != nil {
				slog.Warn("failed to purge old posts", "error", err)
			} else if purged > 0 {
				slog.Info("purged old posts", "count", purged, "retention", cfg.Archive.Retention.Duration)
			}
		}
	}

	// Set up metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Set up the pipeline: feed -> poller (dedup + classify) -> engine -> store.
	cls := classifier.New()
	dedup := poller.NewDeduplicator(cfg.Poll.DedupMaxEntries)
	feedClient := feed.NewRedditClient(cfg.Feed.BaseURL, cfg.Feed.Subreddit, cfg.Feed.UserAgent)
	engine := alert.NewEngine(store, m)

	p := poller.New(feedClient, cls, dedup, poller.Config{
		Interval:   cfg.Poll.Interval.Duration,
		Backoff:    cfg.Poll.Backoff.Duration,
		FetchLimit: cfg.Poll.FetchLimit,
	}, m)

	handleBatch := func(ctx context.Context, posts []classifier.ClassifiedPost) {
		if _, err := engine.Evaluate(posts); err != nil {
			slog.Error("alert evaluation failed", "error", err)
		}
		if arch != nil {
			if err := arch.InsertBatch(posts, time.Now()); err != nil {
				slog.Error("failed to archive posts", "error", err)
			}
		}
	}

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		p.Run(ctx, handleBatch)
	}()

	// Start the query API.
	srv := api.New(p, engine, store, arch, cfg.Poll.OneShotLimit,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTP.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErr <- err
		}
	}()

	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig)
	case err := <-httpErr:
		cancel()
		<-pollerDone
		return fmt.Errorf("http server: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown", "error", err)
	}

	// Let the in-flight cycle finish so the store is never left mid-write.
	<-pollerDone

	slog.Info("shutdown complete")
	return nil
}

// --- fetch subcommand ---

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 100, "max posts to fetch")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error") // quiet for CLI output

	cls := classifier.New()
	feedClient := feed.NewRedditClient(cfg.Feed.BaseURL, cfg.Feed.Subreddit, cfg.Feed.UserAgent)
	p := poller.New(feedClient, cls, poller.NewDeduplicator(0), poller.Config{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	posts, err := p.FetchOnce(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch error: %v\n", err)
		os.Exit(1)
	}

	if len(posts) == 0 {
		fmt.Println("No matching posts found.")
		return
	}

	for i, post := range posts {
		fmt.Printf("%d. [%s/%s] %s\n", i+1, post.Severity, post.IncidentType, post.Title)
		fmt.Printf("   score %d  keywords: %s\n", post.Score, strings.Join(post.MatchedKeywords, ", "))
		fmt.Printf("   %s\n\n", post.URL)
	}
	fmt.Printf("Total: %d matching post(s)\n", len(posts))
}

// --- query subcommand ---

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	last := fs.String("last", "24h", "time window (e.g. 24h, 7d, 30d)")
	severity := fs.String("severity", "", "filter by severity (LOW, MEDIUM, HIGH)")
	incidentType := fs.String("type", "", "filter by incident type")
	limit := fs.Int("limit", 50, "max posts to show")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error")

	arch, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening archive: %v\n", err)
		os.Exit(1)
	}
	defer arch.Close()

	since, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
		os.Exit(1)
	}

	entries, err := arch.Query(archive.QueryFilter{
		Since:        time.Now().Add(-since),
		Severity:     strings.ToUpper(*severity),
		IncidentType: strings.ToLower(*incidentType),
		Limit:        *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No posts found.")
		return
	}

	for _, e := range entries {
		ts := e.FetchedAt.Local().Format("2006-01-02 15:04:05")
		fmt.Printf("%s  [%s] %-13s %s\n", ts, e.Post.Severity, e.Post.IncidentType, e.Post.Title)
	}
	fmt.Printf("Total: %d post(s)\n", len(entries))
}

// --- stats subcommand ---

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error")

	store, err := alert.Open(cfg.AlertsPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening alert store: %v\n", err)
		os.Exit(1)
	}

	stats := store.Stats()
	fmt.Printf("Alerts:   %d total, %d active\n", stats.TotalCount, stats.ActiveCount)
	for _, sev := range []alert.Severity{alert.SevCritical, alert.SevHigh, alert.SevMedium} {
		if n := stats.BySeverity[sev]; n > 0 {
			fmt.Printf("  %-9s %d\n", sev, n)
		}
	}

	recent := store.Recent(5)
	if len(recent) > 0 {
		fmt.Println("\nRecent alerts:")
		for _, a := range recent {
			ts := a.Timestamp.Local().Format("2006-01-02 15:04:05")
			marker := " "
			if a.Status == alert.StatusDismissed {
				marker = "x"
			}
			fmt.Printf("%s  [%s] #%d %s\n", ts, marker, a.ID, a.Message)
		}
	}
}

// parseDuration extends time.ParseDuration with support for "d" (days) suffix.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		s = strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
			return 0, fmt.Errorf("invalid days format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// --- utilities ---

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
