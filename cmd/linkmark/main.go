package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/theognis1002/linkmark/internal/cache"
	"github.com/theognis1002/linkmark/internal/config"
	"github.com/theognis1002/linkmark/internal/highlight"
	"github.com/theognis1002/linkmark/internal/page"
	"github.com/theognis1002/linkmark/internal/robots"
	"github.com/theognis1002/linkmark/internal/settings"
	"github.com/theognis1002/linkmark/internal/storage"
)

const defaultConfigPath = "configs/linkmark.yaml"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "linkmark",
		Short:        "Find and highlight links or text in HTML pages",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newLinksCmd(opts))
	cmd.AddCommand(newSlugCmd())

	return cmd
}

// app holds what every command needs. Redis is nil when not configured.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	rdb    *redis.Client
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// setup loads config, falling back to the environment when the default
// config file is absent, and connects the optional backends.
func setup(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	logger, err := newLogger(logOut, opts.logLevel)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if opts.configPath != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Debug("config file not found, using env vars", "path", opts.configPath)
		cfg = config.LoadFromEnv()
	}

	a := &app{cfg: cfg, logger: logger}
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		logger.Info("connected to redis", "addr", cfg.Redis.Addr(), "db", cfg.Redis.DB)
	}
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
}

func (a *app) highlightDefaults() highlight.Style {
	return highlight.Style{
		BackgroundColor: a.cfg.Highlight.BgColor,
		FontSizePx:      a.cfg.Highlight.FontSizePx,
	}
}

func (a *app) loader() (*page.Loader, error) {
	proxies, err := page.LoadProxyPool(a.cfg.Fetcher.Proxy.File, a.rdb, a.cfg.Fetcher.Proxy.HealthCooldownS, a.logger)
	if err != nil {
		return nil, err
	}
	if proxies != nil {
		a.logger.Info("loaded proxies", "count", proxies.Len())
	}

	// Without Redis, lookups go straight to the resolver.
	dns := cache.NewDNSCache(a.rdb, a.cfg.Fetcher.AllowPrivate)
	fetcher := page.NewFetcher(dns, a.cfg.Fetcher, proxies, a.logger)

	var checker page.RobotsChecker
	if a.cfg.Fetcher.RespectRobots {
		checker = robots.NewChecker(a.rdb, fetcher.Client(), a.logger)
	}
	var limiter page.HostLimiter
	if a.rdb != nil {
		limiter = cache.NewHostLimiter(a.rdb)
	}

	return page.NewLoader(fetcher, checker, limiter, a.cfg.Fetcher.HostDelayMs, a.logger), nil
}

func (a *app) settingsStore() settings.Store {
	if a.rdb != nil {
		return settings.NewRedisStore(a.rdb, a.cfg.Settings.Profile)
	}
	return settings.NewMemoryStore()
}

func (a *app) snapshots(ctx context.Context) (*storage.Snapshots, error) {
	if !a.cfg.MinIO.Enabled() {
		return nil, nil
	}
	snaps, err := storage.NewSnapshots(ctx, a.cfg.MinIO)
	if err != nil {
		return nil, err
	}
	a.logger.Info("snapshot storage ready", "endpoint", a.cfg.MinIO.Endpoint, "bucket", a.cfg.MinIO.Bucket)
	return snaps, nil
}

func readAllTrimmed(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
