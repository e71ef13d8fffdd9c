package system

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/event"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
	"github.com/starfall/battlesim/internal/persist"
)

const flushTimeout = 5 * time.Second

// SampleSink receives batches of tick samples. *persist.TelemetryRepo
// implements it.
type SampleSink interface {
	WriteSamples(ctx context.Context, runID uuid.UUID, samples []persist.TickSample) error
}

// Summary is the aggregate of a whole run.
type Summary struct {
	Ticks        uint64
	Kills        [component.FactionNeutral + 1]int // indexed by the destroyed ship's faction
	PeakEntities int
	MaxParallel  int
	Total        time.Duration
}

// Mean returns the mean tick duration.
func (s Summary) Mean() time.Duration {
	if s.Ticks == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Ticks)
}

// TelemetrySystem counts the fleets at the end of every tick and batches one
// sample per tick to the sink.
type TelemetrySystem struct {
	sink     SampleSink
	runID    uuid.UUID
	interval int
	log      *zap.Logger

	ships       [component.FactionNeutral + 1]int
	projectiles int
	kills       int

	buf     []persist.TickSample
	summary Summary
}

// NewTelemetrySystem creates the telemetry system. sink may be nil, in which
// case only the summary is kept.
func NewTelemetrySystem(bus *event.Bus, sink SampleSink, runID uuid.UUID, interval int, log *zap.Logger) *TelemetrySystem {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 1
	}
	s := &TelemetrySystem{
		sink:     sink,
		runID:    runID,
		interval: interval,
		log:      log,
		buf:      make([]persist.TickSample, 0, interval),
	}
	event.Subscribe(bus, func(e event.ShipDestroyed) {
		s.kills++
		if int(e.Faction) < len(s.summary.Kills) {
			s.summary.Kills[e.Faction]++
		}
	})
	return s
}

func (s *TelemetrySystem) Name() string { return "Telemetry" }

func (s *TelemetrySystem) Schedule(sc *sched.Scheduler, _ time.Duration) {
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderTelemetry, 0).
		AddWorkerTask(sched.Deps(
			sched.Read[component.Spaceship](),
			sched.Read[component.Projectile](),
			sched.Read[component.Faction](),
		), s.count).
		Finish())
}

func (s *TelemetrySystem) count(w *ecs.World) {
	clear(s.ships[:])
	ecs.Each2(w, func(_ ecs.EntityID, _ *component.Spaceship, f *component.Faction) {
		if int(f.Side) < len(s.ships) {
			s.ships[f.Side]++
		}
	})
	s.projectiles = ecs.StoreOf[component.Projectile](w).Len()
}

// Ships returns the number of ships of faction f counted in the last tick.
func (s *TelemetrySystem) Ships(f component.FactionID) int { return s.ships[f] }

// Record adds the sample of a finished tick and flushes once a full batch
// is buffered. It must be called between ticks.
func (s *TelemetrySystem) Record(ctx context.Context, st coresys.TickStats) error {
	s.buf = append(s.buf, persist.TickSample{
		Tick:        st.Tick,
		Entities:    st.Entities,
		RedShips:    s.ships[component.FactionRed],
		BlueShips:   s.ships[component.FactionBlue],
		Projectiles: s.projectiles,
		Kills:       s.kills,
		Tasks:       st.Tasks,
		Edges:       st.Edges,
		MaxParallel: st.MaxParallel,
		Duration:    st.Duration,
	})
	s.kills = 0

	s.summary.Ticks++
	s.summary.Total += st.Duration
	s.summary.PeakEntities = max(s.summary.PeakEntities, st.Entities)
	s.summary.MaxParallel = max(s.summary.MaxParallel, st.MaxParallel)

	if len(s.buf) < s.interval {
		return nil
	}
	return s.Flush(ctx)
}

// Flush writes every buffered sample to the sink.
func (s *TelemetrySystem) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	if s.sink == nil {
		s.buf = s.buf[:0]
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	n := len(s.buf)
	if err := s.sink.WriteSamples(ctx, s.runID, s.buf); err != nil {
		return fmt.Errorf("flush %d samples: %w", n, err)
	}
	s.buf = s.buf[:0]
	s.log.Debug("telemetry flushed", zap.Int("samples", n))
	return nil
}

// Buffered returns the number of samples waiting for the next flush.
func (s *TelemetrySystem) Buffered() int { return len(s.buf) }

func (s *TelemetrySystem) Summary() Summary { return s.summary }
