// Command magnated runs the tycoon world simulation daemon.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vantagegames/magnate/internal/api"
	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/config"
	"github.com/vantagegames/magnate/internal/engine"
	"github.com/vantagegames/magnate/internal/persistence"
	"github.com/vantagegames/magnate/internal/sim"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "magnated",
		Short:        "Magnate economy simulation daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "magnate.toml", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the saved world and start fresh on next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reset(cfgPath)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "json" || !isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	var world *sim.World
	if db.HasWorldState() {
		// The seed that generated the world stays authoritative across
		// restarts; a config seed change only affects fresh worlds.
		if saved, err := db.GetMeta("seed"); err == nil {
			if v, err := strconv.ParseInt(saved, 10, 64); err == nil {
				seed = v
			}
		}
		world, err = db.LoadWorld(cat, seed)
		if err != nil {
			return fmt.Errorf("load world: %w", err)
		}
	} else {
		slog.Info("no saved world, generating", "seed", seed)
		world = bootstrap(cat, cfg, seed)
		if err := db.SaveWorld(world); err != nil {
			return fmt.Errorf("initial save: %w", err)
		}
		if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
			return fmt.Errorf("save seed: %w", err)
		}
	}

	eng := engine.New(world)
	eng.Speed = cfg.Sim.Speed
	eng.Interval = time.Duration(cfg.Sim.TickIntervalMs) * time.Millisecond
	if cfg.DB.SaveEveryDay {
		eng.OnDay = func(tick uint64) {
			eng.WithRead(func(w *sim.World) {
				if err := db.SaveWorld(w); err != nil {
					slog.Error("daily save failed", "error", err)
				}
			})
		}
	}

	if cfg.API.AdminKey == "" {
		slog.Warn("no admin key configured, command endpoints disabled")
	}
	server := api.New(cfg.API, slog.Default(), eng, db)
	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("api listening", "addr", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		httpServer.Close()
		eng.Stop()
	}()

	slog.Info("world ready",
		"tick", world.Tick,
		"date", world.Date().Format("2006-01-02"),
		"cities", len(world.CityList),
		"companies", len(world.CompanyList),
	)
	eng.Run()

	slog.Info("final save")
	if err := db.SaveWorld(world); err != nil {
		slog.Error("final save failed", "error", err)
	}
	return nil
}

func reset(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := cfg.DB.Path + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	slog.Info("saved world deleted", "path", cfg.DB.Path)
	return nil
}
