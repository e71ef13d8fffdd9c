package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/config"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/event"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
	"github.com/starfall/battlesim/internal/data"
	"github.com/starfall/battlesim/internal/persist"
	"github.com/starfall/battlesim/internal/radar"
	"github.com/starfall/battlesim/internal/scripting"
	"github.com/starfall/battlesim/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(name string, seed int64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            starfall battlesim             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     ECS task graph · space battle demo    \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mscenario:\033[0m %s \033[90m(seed %d)\033[0m\n\n", name, seed)
}

// displayWidth counts terminal columns; wide East Asian runes take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	printValue(label, numbers.Sprintf("%d", count))
}

func printValue(label, value string) {
	dotsLen := max(42-displayWidth(label)-len(value), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), value)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	printBanner(cfg.Simulation.Name, seed)

	// 3. Data tables and scripts
	printSection("data")
	archetypes, err := data.LoadArchetypeTable(cfg.Data.Archetypes)
	if err != nil {
		return fmt.Errorf("load archetypes: %w", err)
	}
	printStat("archetypes", archetypes.Count())

	scenario, err := data.LoadScenario(cfg.Data.Scenario, archetypes)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	printStat("fleets", len(scenario.Fleets))

	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("lua combat rules loaded")
	fmt.Println()

	// 4. Optional telemetry database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runID := uuid.New()
	var (
		repo *persist.TelemetryRepo
		sink system.SampleSink
	)
	if cfg.Database.Enabled {
		printSection("database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(version))

		repo = persist.NewTelemetryRepo(db)
		sink = repo
		if err := repo.StartRun(ctx, &persist.RunRow{
			ID:         runID,
			Name:       scenario.Name,
			Seed:       seed,
			Concurrent: cfg.Simulation.Concurrent,
			Workers:    cfg.Simulation.Workers,
			StartedAt:  time.Now(),
		}); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
		printValue("run", runID.String()[:8])
		fmt.Println()
	}

	// 5. World and scenario
	printSection("world")
	world := ecs.NewWorld()
	component.RegisterAll(world)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
	printStat("ships", system.SpawnScenario(world, scenario, archetypes, rng))
	printStat("component stores", world.Registry().Len())
	fmt.Println()

	// 6. Scheduler and systems
	pool := sched.NewPool(cfg.Simulation.Workers, cfg.Simulation.QueueSize)
	defer pool.Close()
	scheduler := sched.New(
		sched.WithPool(pool),
		sched.WithLogger(log.Named("sched")),
		sched.WithWaitTimeout(cfg.Simulation.WaitTimeout),
		sched.WithMaxIterations(cfg.Simulation.MaxIterations),
	)

	bus := event.NewBus()
	telemetry := system.NewTelemetrySystem(bus, sink, runID, cfg.Database.FlushInterval, log.Named("telemetry"))
	raycast := system.NewRaycastSystem(bus, engine, log.Named("raycast"))
	spawner := system.NewSpawnerSystem(archetypes, bus, rng, log.Named("spawner"))

	runner := coresys.NewRunner(world, scheduler, cfg.Simulation.Concurrent, log)
	runner.Register(system.NewEventsSystem(bus))
	runner.Register(system.NewBoidSystem())
	runner.Register(system.NewMovementSystem())
	runner.Register(system.NewSpaceshipSystem())
	runner.Register(raycast)
	runner.Register(system.NewLifetimeSystem())
	runner.Register(system.NewExplosionSystem())
	runner.Register(spawner)
	runner.Register(telemetry)

	if cfg.Radar.Enabled {
		view, err := radar.Open(cfg.Radar.Scale)
		if err != nil {
			return fmt.Errorf("radar: %w", err)
		}
		defer view.Close()
		runner.Register(system.NewRadarSystem(view, cfg.Radar.Refresh))
	}

	// 7. Main loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	dt := cfg.Simulation.TickRate
	ticker := time.NewTicker(dt)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("%d workers, tick %s, concurrent=%v", pool.Workers(), dt, cfg.Simulation.Concurrent))
	fmt.Println()

	var (
		ticks   uint64
		loopErr error
	)
loop:
	for {
		select {
		case <-ticker.C:
			st, err := runner.Tick(dt)
			if err != nil {
				loopErr = err
				break loop
			}
			ticks = st.Tick
			if err := telemetry.Record(context.Background(), st); err != nil {
				log.Warn("telemetry flush failed", zap.Error(err))
			}
			if ticks%uint64(max(1, time.Second/dt)) == 0 {
				log.Debug("tick",
					zap.Uint64("tick", st.Tick),
					zap.Int("entities", st.Entities),
					zap.Int("tasks", st.Tasks),
					zap.Int("max_parallel", st.MaxParallel),
					zap.Duration("took", st.Duration))
			}
			if cfg.Simulation.MaxTicks > 0 && ticks >= uint64(cfg.Simulation.MaxTicks) {
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			break loop
		}
	}

	// 8. Wrap up
	if err := telemetry.Flush(context.Background()); err != nil {
		log.Warn("final telemetry flush failed", zap.Error(err))
	}
	if repo != nil {
		hash := ""
		if g := scheduler.Graph(); g != nil {
			hash = g.Fingerprint()
		}
		finCtx, finCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := repo.FinishRun(finCtx, runID, int64(ticks), hash); err != nil {
			log.Warn("finish run failed", zap.Error(err))
		}
		finCancel()
	}

	sum := telemetry.Summary()
	hits, kills := raycast.Totals()
	log.Info("battle finished",
		zap.Uint64("ticks", sum.Ticks),
		zap.Int("hits", hits),
		zap.Int("kills", kills),
		zap.Int("red_lost", sum.Kills[component.FactionRed]),
		zap.Int("blue_lost", sum.Kills[component.FactionBlue]),
		zap.Int("spawned", spawner.Spawned()),
		zap.Int("peak_entities", sum.PeakEntities),
		zap.Int("max_parallel", sum.MaxParallel),
		zap.Duration("mean_tick", sum.Mean()))

	if loopErr != nil {
		return fmt.Errorf("simulation: %w", loopErr)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
