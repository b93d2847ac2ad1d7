package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/nav3d/internal/collision"
	"github.com/udisondev/nav3d/internal/config"
	"github.com/udisondev/nav3d/internal/db"
	"github.com/udisondev/nav3d/internal/nav"
	"github.com/udisondev/nav3d/internal/navserver"
	"github.com/udisondev/nav3d/internal/watch"
)

const ConfigPath = "config/navserver.yaml"

var importLayout = flag.Bool("import", false, "write obstacle_file into the database for every volume and exit")

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := config.Path(ConfigPath)
	cfg, err := config.LoadNavServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading navserver config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("nav3d server starting", "log_level", cfg.LogLevel, "config", cfgPath)

	var (
		source navserver.ObstacleSource = navserver.LayoutFile(cfg.ObstacleFile)
		store  navserver.ObstacleStore
	)
	if cfg.UseDatabase {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		version, err := db.SchemaVersion(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		slog.Info("database migrations applied", "schema_version", version)

		repo := db.NewObstacleRepository(database.Pool())
		if *importLayout {
			obstacles, err := collision.LoadLayout(cfg.ObstacleFile)
			if err != nil {
				return fmt.Errorf("importing obstacle layout: %w", err)
			}
			layout := navserver.ObstacleSourceFunc(func(context.Context, string) ([]collision.Obstacle, error) {
				return obstacles, nil
			})
			n, err := navserver.ImportObstacles(ctx, cfg, layout, repo)
			if err != nil {
				return fmt.Errorf("importing obstacle layout: %w", err)
			}
			slog.Info("obstacle layout imported", "file", cfg.ObstacleFile, "obstacles", n)
			return nil
		}
		store = repo
		source = navserver.StoreSource(repo, navserver.LayoutFile(cfg.ObstacleFile))
	} else if *importLayout {
		return fmt.Errorf("-import needs use_database: true")
	}

	// Completion callbacks are delivered on the mailbox goroutine.
	mailbox := nav.NewMailbox()

	volumes, err := navserver.BuildVolumes(ctx, cfg, source, mailbox)
	if err != nil {
		return fmt.Errorf("building volumes: %w", err)
	}
	registry := navserver.NewRegistry(volumes...)
	defer registry.Close()

	for _, st := range registry.Stats() {
		slog.Info("volume ready",
			"volume", st.Name,
			"size", st.Size,
			"cell_size", st.CellSize,
			"blocked", st.Blocked,
			"digest", st.Digest)
	}

	r := &reloader{
		path:     cfgPath,
		current:  cfg,
		source:   source,
		exec:     mailbox,
		registry: registry,
	}

	g, gctx := errgroup.WithContext(ctx)

	server := navserver.NewServer(registry, navserver.Options{
		WriteTimeout:  cfg.WriteTimeout,
		SendQueueSize: cfg.SendQueueSize,
		Store:         store,
		ObstaclesChanged: func(volume string) {
			r.reload(gctx, "obstacles of volume "+volume)
		},
	})
	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port))

	g.Go(func() error {
		return mailbox.Run(gctx)
	})

	g.Go(func() error {
		if err := server.Run(gctx, addr); err != nil {
			return fmt.Errorf("navserver: %w", err)
		}
		return nil
	})

	if cfg.WatchConfig {
		files := []string{cfgPath}
		if !cfg.UseDatabase && cfg.ObstacleFile != "" {
			files = append(files, cfg.ObstacleFile)
		}
		watcher, err := watch.NewWatcher(files...)
		if err != nil {
			return fmt.Errorf("starting config watcher: %w", err)
		}
		g.Go(func() error {
			return watcher.Run(gctx,
				func(path string) { r.reload(gctx, path) },
				func(err error) { slog.Warn("config watcher error", "error", err) })
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("nav3d server stopped")
	return nil
}

// reloader rebuilds every volume when the config or obstacle layout changes.
// A failed reload keeps the running volumes.
type reloader struct {
	mu       sync.Mutex
	path     string
	current  config.NavServer
	source   navserver.ObstacleSource
	exec     nav.Executor
	registry *navserver.Registry
}

func (r *reloader) reload(ctx context.Context, cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slog.Info("rebuilding volumes", "cause", cause)

	cfg, err := config.LoadNavServer(r.path)
	if err != nil {
		slog.Error("reloading config, keeping current volumes", "error", err)
		return
	}
	if cfg.UseDatabase != r.current.UseDatabase || cfg.ObstacleFile != r.current.ObstacleFile {
		slog.Warn("obstacle source changes need a restart; reusing the current source")
	}

	volumes, err := navserver.BuildVolumes(ctx, cfg, r.source, r.exec)
	if err != nil {
		slog.Error("rebuilding volumes, keeping current volumes", "error", err)
		return
	}
	r.registry.Replace(volumes)
	r.current = cfg
	slog.Info("volumes rebuilt", "count", len(volumes))
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
