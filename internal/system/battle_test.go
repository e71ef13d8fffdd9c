package system

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/event"
	coresys "github.com/starfall/battlesim/internal/core/system"
	"github.com/starfall/battlesim/internal/data"
	"github.com/starfall/battlesim/internal/scripting"
)

// newBattle wires every gameplay system the way the binary does, minus the
// terminal and the database.
func newBattle(t *testing.T, concurrent bool) (*coresys.Runner, *TelemetrySystem, *SpawnerSystem) {
	t.Helper()
	table, err := data.LoadArchetypeTable("../../data/yaml/archetypes.yaml")
	if err != nil {
		t.Fatalf("archetypes: %v", err)
	}
	scenario, err := data.LoadScenario("../../data/yaml/scenario.yaml", table)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	engine, err := scripting.NewEngine("../../scripts", zap.NewNop())
	if err != nil {
		t.Fatalf("scripts: %v", err)
	}
	t.Cleanup(engine.Close)

	w := newBattleWorld()
	rng := rand.New(rand.NewPCG(7, 7))
	if n := SpawnScenario(w, scenario, table, rng); n != scenario.Population() {
		t.Fatalf("spawned %d of %d", n, scenario.Population())
	}

	bus := event.NewBus()
	tel := NewTelemetrySystem(bus, nil, uuid.Nil, 10, nil)
	sp := NewSpawnerSystem(table, bus, rng, nil)
	r := newTestRunner(t, w, concurrent,
		NewEventsSystem(bus),
		NewBoidSystem(),
		NewMovementSystem(),
		NewSpaceshipSystem(),
		NewRaycastSystem(bus, engine, nil),
		NewLifetimeSystem(),
		NewExplosionSystem(),
		sp,
		tel,
	)
	return r, tel, sp
}

func TestBattle_RunsConcurrently(t *testing.T) {
	r, tel, sp := newBattle(t, true)
	var st coresys.TickStats
	for i := 0; i < 60; i++ {
		var err error
		st, err = r.Tick(16 * time.Millisecond)
		if err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
		if err := tel.Record(t.Context(), st); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if st.Chains != 9 {
		t.Fatalf("chains = %d, want 9", st.Chains)
	}
	if st.Dangling != 1 {
		t.Fatalf("dangling = %d, want only the final barrier", st.Dangling)
	}
	if sp.Spawned() == 0 {
		t.Fatalf("no missiles launched in a second of battle")
	}
	if tel.Ships(component.FactionRed) == 0 || tel.Ships(component.FactionBlue) == 0 {
		t.Fatalf("a fleet vanished within a second")
	}
	w := r.World()
	if w.Pending() != 0 {
		t.Fatalf("%d structural changes left queued after the tick", w.Pending())
	}
	ecs.StoreOf[component.Projectile](w).Each(func(id ecs.EntityID, _ *component.Projectile) {
		if !ecs.Has[component.Faction](w, id) {
			t.Errorf("projectile %d without faction", id)
		}
	})
}

func TestBattle_SerialMatchesGraphShape(t *testing.T) {
	rs, _, _ := newBattle(t, false)
	rc, _, _ := newBattle(t, true)
	a, err := rs.Tick(16 * time.Millisecond)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	b, err := rc.Tick(16 * time.Millisecond)
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}
	if a.Tasks != b.Tasks || a.Edges != b.Edges || a.Entities != b.Entities {
		t.Fatalf("serial %+v vs concurrent %+v", a.RunStats, b.RunStats)
	}
}
