package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shanehull/annwatch/internal/ai"
	"github.com/shanehull/annwatch/internal/config"
	"github.com/shanehull/annwatch/internal/extract"
	"github.com/shanehull/annwatch/internal/fetch"
	"github.com/shanehull/annwatch/internal/filter"
	"github.com/shanehull/annwatch/internal/guard"
	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/notify"
	"github.com/shanehull/annwatch/internal/publish"
	"github.com/shanehull/annwatch/internal/snapshot"
	"github.com/shanehull/annwatch/internal/tracing"
	"github.com/shanehull/annwatch/internal/types"
	"github.com/shanehull/annwatch/internal/watcher"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	keywordStr   = flag.String("keywords", "", "(-k) Comma-separated keywords to alert on (default: alınacaktır)")
	sourceURL    = flag.String("url", "", "(-u) Announcement listing page to watch")
	snapshotPath = flag.String("snapshot", "", "(-o) Snapshot file (default: last_announcements.json)")
	configFile   = flag.String("config", "", "(-c) YAML config file")
	strategy     = flag.String("strategy", "", "Fetch strategy: static, flaresolverr or browser")
	identity     = flag.String("identity", "", "Identity of an announcement: title or link")
	logLevel     = flag.String("log-level", "", "Log level: debug, info, warn or error")
	dryRun       = flag.Bool("dry-run", false, "(-n) Report only; do not notify or save the snapshot")
	releaseBlock = flag.Bool("release-block", false, "Clear a recorded rate-limit block for the source and exit")
	showVersion  = flag.Bool("version", false, "Print the version and exit")
)

func init() {
	flag.StringVar(keywordStr, "k", "", "(-k) Comma-separated keywords to alert on (shorthand)")
	flag.StringVar(sourceURL, "u", "", "(-u) Announcement listing page to watch (shorthand)")
	flag.StringVar(snapshotPath, "o", "", "(-o) Snapshot file (shorthand)")
	flag.StringVar(configFile, "c", "", "(-c) YAML config file (shorthand)")
	flag.BoolVar(dryRun, "n", false, "(-n) Report only (shorthand)")

	flag.Usage = func() {
		flagSet := flag.CommandLine
		fmt.Printf("Usage of %s:\n", os.Args[0])

		order := []string{
			"keywords",
			"url",
			"snapshot",
			"config",
			"strategy",
			"identity",
			"log-level",
			"dry-run",
			"release-block",
			"version",
		}

		for _, name := range order {
			f := flagSet.Lookup(name)
			if f != nil {
				fmt.Printf("  -%s\n", f.Name)
				fmt.Printf("    %s\n", f.Usage)
			}
		}
		fmt.Println("\nEverything else is configured through environment variables or .env; see internal/config.")
	}
}

func main() {
	os.Exit(run())
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "keywords", "k":
			cfg.Keywords = filter.ParseKeywords(*keywordStr)
		case "url", "u":
			cfg.SourceURL = *sourceURL
		case "snapshot", "o":
			cfg.SnapshotPath = *snapshotPath
		case "strategy":
			cfg.Fetch.Strategy = *strategy
		case "identity":
			cfg.IdentityKey = types.IdentityKey(*identity)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "dry-run", "n":
			cfg.DryRun = *dryRun
		}
	})
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	cfg, err := config.LoadFile(*configFile, applyFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Default.Warn().Err(err).Str("file", cfg.LogFile).Msg("Could not open log file, logging to console only")
	}
	defer logger.Close()

	log := logger.For("main")

	if *releaseBlock {
		return releaseRateLimit(cfg, log)
	}

	log.Info().Str("version", version).Strs("keywords", cfg.Keywords).Msg("Announcement check started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, version)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	w, cleanup, err := buildWatcher(ctx, cfg, log)
	if err != nil {
		log.Critical().Err(err).Msg("Setup failed")
		return 1
	}
	defer cleanup()

	if _, err := w.Run(ctx); err != nil {
		log.Critical().Err(err).Msg("Check aborted, no data could be read")
		return 1
	}

	log.Info().Msg("Announcement check finished successfully")
	return 0
}

// releaseRateLimit lifts a block recorded after the source answered 429, so the
// next run fetches without waiting for the block to expire.
func releaseRateLimit(cfg *config.Config, log *logger.Logger) int {
	if cfg.Memcache.Addr == "" {
		log.Error().Msg("MEMCACHE_ADDR is not set, no block to release")
		return 1
	}

	key := fetch.BlockKey(cfg.SourceURL)
	if err := guard.NewMemcacheGuard(cfg.Memcache.Addr).Release(key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to release rate-limit block")
		return 1
	}
	log.Info().Str("key", key).Msg("Rate-limit block released")
	return 0
}

func buildWatcher(ctx context.Context, cfg *config.Config, log *logger.Logger) (*watcher.Watcher, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Cleanup failed")
			}
		}
	}

	var blocker fetch.Blocker
	if cfg.Memcache.Addr != "" {
		blocker = guard.NewMemcacheGuard(cfg.Memcache.Addr)
	}

	fetcher, err := fetch.New(cfg.Fetch, blocker, cfg.Memcache.BlockTime)
	if err != nil {
		return nil, cleanup, err
	}

	senders, err := notify.SendersFromConfig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Some notification channels are unavailable")
	}

	deps := watcher.Deps{
		Fetcher:   fetcher,
		Extractor: extract.New(cfg.Selectors, cfg.BaseURL, cfg.IdentityKey),
		Store:     snapshot.NewStore(cfg.SnapshotPath),
		Matcher:   filter.New(cfg.Keywords, cfg.KeywordLanguage),
		Notifier:  notify.NewDispatcher(senders...),
	}

	if cfg.AI.Enabled() {
		client, err := ai.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Warn().Err(err).Msg("AI summaries disabled")
		} else {
			deps.Summarizer = client
		}
	}

	if cfg.Redis.Addr != "" {
		p := publish.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Stream)
		closers = append(closers, p.Close)
		deps.Publisher = p
	}

	w := watcher.New(watcher.Options{
		SourceURL:     cfg.SourceURL,
		DebugPagePath: cfg.DebugPagePath,
		IdentityKey:   cfg.IdentityKey,
		DryRun:        cfg.DryRun,
	}, deps)

	return w, cleanup, nil
}
