package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/event"
	"github.com/starfall/battlesim/internal/persist"
	"github.com/starfall/battlesim/internal/radar"
)

type memorySink struct {
	runID   uuid.UUID
	batches [][]persist.TickSample
	err     error
}

func (m *memorySink) WriteSamples(_ context.Context, runID uuid.UUID, samples []persist.TickSample) error {
	if m.err != nil {
		return m.err
	}
	m.runID = runID
	m.batches = append(m.batches, append([]persist.TickSample(nil), samples...))
	return nil
}

func TestTelemetry_BatchesSamples(t *testing.T) {
	w := newBattleWorld()
	bus := event.NewBus()
	addShip(w, mgl64.Vec3{0, 0, 0}, component.FactionRed, mgl64.Vec3{})
	addShip(w, mgl64.Vec3{0, 5000, 0}, component.FactionRed, mgl64.Vec3{})
	addShip(w, mgl64.Vec3{0, -5000, 0}, component.FactionBlue, mgl64.Vec3{})
	addMissile(w, mgl64.Vec3{}, mgl64.Vec3{}, component.FactionRed, 1)

	sink := &memorySink{}
	runID := uuid.New()
	tel := NewTelemetrySystem(bus, sink, runID, 2, nil)
	r := newTestRunner(t, w, true, NewEventsSystem(bus), tel)

	event.Emit(bus, event.ShipDestroyed{Ship: 99, Faction: uint8(component.FactionBlue)})
	ctx := context.Background()

	st := tick(t, r, 16*time.Millisecond, 1)
	if err := tel.Record(ctx, st); err != nil {
		t.Fatalf("record: %v", err)
	}
	if tel.Buffered() != 1 || len(sink.batches) != 0 {
		t.Fatalf("flushed before the batch was full")
	}
	st = tick(t, r, 16*time.Millisecond, 1)
	if err := tel.Record(ctx, st); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 || tel.Buffered() != 0 {
		t.Fatalf("batches = %+v", sink.batches)
	}
	if sink.runID != runID {
		t.Fatalf("run id not passed to the sink")
	}

	first, second := sink.batches[0][0], sink.batches[0][1]
	if first.Tick != 1 || second.Tick != 2 {
		t.Fatalf("ticks = %d,%d", first.Tick, second.Tick)
	}
	if first.RedShips != 2 || first.BlueShips != 1 || first.Projectiles != 1 {
		t.Fatalf("counts = %+v", first)
	}
	if first.Kills != 1 || second.Kills != 0 {
		t.Fatalf("kills = %d,%d", first.Kills, second.Kills)
	}
	if first.Tasks != 2 || first.Entities != 4 {
		t.Fatalf("stats = %+v", first)
	}

	sum := tel.Summary()
	if sum.Ticks != 2 || sum.Kills[component.FactionBlue] != 1 || sum.PeakEntities != 4 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestTelemetry_FlushError(t *testing.T) {
	sink := &memorySink{err: errors.New("connection refused")}
	tel := NewTelemetrySystem(event.NewBus(), sink, uuid.New(), 1, nil)
	err := tel.Record(context.Background(), coresysStats(1))
	if err == nil || !errors.Is(err, sink.err) {
		t.Fatalf("err = %v", err)
	}
	if tel.Buffered() != 1 {
		t.Fatalf("failed samples dropped")
	}

	sink.err = nil
	if err := tel.Flush(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if tel.Buffered() != 0 || len(sink.batches) != 1 {
		t.Fatalf("retry did not write the batch")
	}
}

func TestTelemetry_NilSinkKeepsSummary(t *testing.T) {
	tel := NewTelemetrySystem(event.NewBus(), nil, uuid.Nil, 1, nil)
	for i := uint64(1); i <= 3; i++ {
		if err := tel.Record(context.Background(), coresysStats(i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if s := tel.Summary(); s.Ticks != 3 || s.Mean() != time.Millisecond {
		t.Fatalf("summary = %+v mean %v", s, s.Mean())
	}
}

func TestRadar_RedrawsOnRefresh(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)

	w := newBattleWorld()
	addShip(w, mgl64.Vec3{}, component.FactionBlue, mgl64.Vec3{})
	addMissile(w, mgl64.Vec3{}, mgl64.Vec3{1e9, 0, 0}, component.FactionRed, 1)

	rs := NewRadarSystem(radar.New(screen, 100), 2)
	r := newTestRunner(t, w, true, rs)

	st := tick(t, r, 16*time.Millisecond, 1)
	if st.Chains != 1 || rs.Drawn() != 1 {
		t.Fatalf("first tick: chains %d drawn %d", st.Chains, rs.Drawn())
	}
	if c, _, _, _ := screen.GetContent(40, 12); c != '▲' {
		t.Fatalf("ship glyph = %q", c)
	}
	if st = tick(t, r, 16*time.Millisecond, 1); st.Chains != 0 {
		t.Fatalf("radar scheduled between refreshes")
	}
	if st = tick(t, r, 16*time.Millisecond, 1); st.Chains != 1 {
		t.Fatalf("radar not scheduled on refresh")
	}
}
