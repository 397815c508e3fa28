package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/luckydraw/audio"
	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/config"
	"github.com/lixenwraith/luckydraw/core"
	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/metrics"
	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/server"
	"github.com/lixenwraith/luckydraw/service"
	"github.com/lixenwraith/luckydraw/snapshot"
	"github.com/lixenwraith/luckydraw/ticket"
	"github.com/lixenwraith/luckydraw/tui"
)

var (
	configFlag   = flag.String("config", "", "Config file (default: search for luckydraw.toml)")
	envFlag      = flag.String("env", ".env", "Dotenv file loaded before the config")
	headlessFlag = flag.Bool("headless", false, "Run without the terminal display; requires the control server")
	freshFlag    = flag.Bool("fresh", false, "Ignore the saved session and start from the configured draw")
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()
	flag.Parse()

	if err := run(); err != nil {
		core.Shutdown()
		fmt.Fprintf(os.Stderr, "luckydraw: %v\n", err)
		os.Exit(1)
	}
	core.Shutdown()
}

func run() error {
	cfg, err := config.Load(config.Options{File: *configFlag, EnvFile: *envFlag})
	if err != nil {
		return err
	}
	if *headlessFlag && !cfg.Server.Enabled {
		return errors.New("headless mode needs server.enabled = true")
	}

	log, logCloser, err := config.SetupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	core.SetLogger(log)
	log.Info().Str("config", cfg.Source).Str("store", cfg.Store.Driver).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Engine on a real-time scheduler
	s := sched.New(clock.NewReal())
	bus := event.NewBus(log)
	eng := engine.New(
		engine.WithScheduler(s),
		engine.WithBus(bus),
		engine.WithRandom(ticket.NewRandom(cfg.Draw.Seed)),
		engine.WithTiming(cfg.EngineTiming()),
		engine.WithLogger(log.With().Str("component", "engine").Logger()),
	)
	drawCfg, err := cfg.EngineDrawConfig()
	if err != nil {
		return err
	}
	if err := configureDraw(eng, cfg.Draw, drawCfg); err != nil {
		return fmt.Errorf("draw config: %w", err)
	}
	eng.SetPresentation(cfg.PresentationMap())

	// Persistence
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()
	if store != nil && !*freshFlag {
		resume(ctx, eng, store, cfg.Store.Name, log)
	}
	var saver *snapshot.Autosaver
	if store != nil && cfg.Store.Autosave {
		saver = snapshot.NewAutosaver(store, cfg.Store.Name, eng.Snapshot, log.With().Str("component", "autosave").Logger())
		saver.Attach(bus)
	}

	// Observers
	player, closeAudio := audio.Open(cfg.AudioConfig(), log.With().Str("component", "audio").Logger())
	defer closeAudio()
	player.Attach(bus)

	collector := metrics.New(cfg.EngineTiming().Charge.Full)
	collector.Attach(bus)

	// Background services
	hub := service.NewHub()
	if err := hub.Register(service.Background("scheduler", s.Run)); err != nil {
		return err
	}
	if saver != nil {
		autosave := service.Background("autosave", func(ctx context.Context) error {
			saver.Run(ctx)
			return nil
		}, "scheduler")
		if err := hub.Register(autosave); err != nil {
			return err
		}
	}
	var srvTask *service.Task
	if cfg.Server.Enabled {
		srv := server.New(cfg.ServerConfig(), eng, collector, log)
		srv.Attach(bus)
		srvTask = service.Background("server", srv.ListenAndServe, "scheduler")
		if err := hub.Register(srvTask); err != nil {
			return err
		}
	}
	if err := hub.StartAll(ctx); err != nil {
		return err
	}

	var runErr error
	if *headlessFlag {
		select {
		case <-ctx.Done():
		case <-srvTask.Done():
			runErr = srvTask.Err()
		}
	} else {
		runErr = runDisplay(ctx, eng, bus, cfg, log)
	}

	if err := hub.StopAll(); err != nil {
		log.Error().Err(err).Msg("service shutdown")
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	log.Info().Msg("stopped")
	return runErr
}

// resume restores the saved session, keeping the configured one when none is usable
func resume(ctx context.Context, eng *engine.Engine, store snapshot.Store, name string, log zerolog.Logger) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := store.Load(loadCtx, name)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		return
	case err != nil:
		log.Warn().Err(err).Str("name", name).Msg("saved session unreadable, starting fresh")
		return
	}
	if err := eng.Restore(snap); err != nil {
		log.Warn().Err(err).Str("name", name).Msg("saved session rejected, starting fresh")
	}
}

func runDisplay(ctx context.Context, eng *engine.Engine, bus *event.Bus, cfg *config.Config, log zerolog.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	removeCleanup := core.RegisterCleanup(screen.Fini)
	defer func() {
		removeCleanup()
		screen.Fini()
	}()

	app := tui.New(screen, eng, tui.Options{
		Theme:       tui.ThemeByName(cfg.Presentation.Theme),
		Title:       cfg.Presentation.Title,
		Subtitle:    cfg.Presentation.Subtitle,
		HoldTimeout: cfg.Timing.HoldTimeout,
		Log:         log.With().Str("component", "tui").Logger(),
	})
	app.Attach(bus)
	return app.Run(ctx)
}

// configureDraw loads the startup session from the ticket file when one is set
func configureDraw(eng *engine.Engine, dc config.DrawConfig, cfg engine.DrawConfig) error {
	if dc.TicketsFile == "" {
		return eng.Configure(dc.Tickets, cfg)
	}
	f, err := os.Open(dc.TicketsFile)
	if err != nil {
		return err
	}
	defer f.Close()
	tokens, err := ticket.ReadList(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", dc.TicketsFile, err)
	}
	return eng.ConfigureList(tokens, cfg)
}
