package system

import (
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/event"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
	"github.com/starfall/battlesim/internal/data"
)

// SpawnerSystem runs archetype spawners. A worker advances the timers; the
// barrier that follows instantiates everything that came due, so new
// entities never appear under a running query.
type SpawnerSystem struct {
	archetypes *data.ArchetypeTable
	bus        *event.Bus
	rng        *rand.Rand
	log        *zap.Logger

	due     []ecs.EntityID
	spawned int
}

func NewSpawnerSystem(archetypes *data.ArchetypeTable, bus *event.Bus, rng *rand.Rand, log *zap.Logger) *SpawnerSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &SpawnerSystem{archetypes: archetypes, bus: bus, rng: rng, log: log}
}

func (s *SpawnerSystem) Name() string { return "Spawner" }

func (s *SpawnerSystem) Schedule(sc *sched.Scheduler, dt time.Duration) {
	secs := dt.Seconds()
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderSpawner, 0).
		AddWorkerTask(sched.Deps(sched.Write[component.ArchetypeSpawner]()), func(w *ecs.World) {
			ecs.StoreOf[component.ArchetypeSpawner](w).Each(func(_ ecs.EntityID, sp *component.ArchetypeSpawner) {
				sp.TimeUntilSpawn -= secs
			})
		}).
		AddBarrierTask(s.spawnDue).
		Finish())
}

func (s *SpawnerSystem) spawnDue(w *ecs.World) {
	s.due = s.due[:0]
	ecs.StoreOf[component.ArchetypeSpawner](w).Each(func(id ecs.EntityID, sp *component.ArchetypeSpawner) {
		if sp.TimeUntilSpawn <= 0 {
			s.due = append(s.due, id)
		}
	})
	// Map order is random; sort so the rng is consumed deterministically.
	slices.Sort(s.due)
	for _, id := range s.due {
		s.fire(w, id)
	}
	w.Sync()
}

func (s *SpawnerSystem) fire(w *ecs.World, id ecs.EntityID) {
	sp, _ := ecs.Get[component.ArchetypeSpawner](w, id)
	a := s.archetypes.Get(sp.Archetype)
	if a == nil {
		s.log.Warn("unknown spawn archetype, spawner removed",
			zap.String("archetype", sp.Archetype),
			zap.Uint64("entity", uint64(id)))
		ecs.Remove[component.ArchetypeSpawner](w, id)
		return
	}

	p := Placement{Faction: component.FactionNeutral}
	if pos, ok := ecs.Get[component.Position](w, id); ok {
		p.Pos = pos.Pos
	}
	if f, ok := ecs.Get[component.Faction](w, id); ok {
		p.Faction = f.Side
	}
	if arc, ok := ecs.Get[component.RandomArcSpawn](w, id); ok {
		dir := randomCone(s.rng, arc.MinAngle, arc.MaxAngle)
		if rot, ok := ecs.Get[component.Rotation](w, id); ok {
			dir = rot.Rot.Rotate(dir)
		}
		speed := arc.MinVelocity + s.rng.Float64()*(arc.MaxVelocity-arc.MinVelocity)
		p.Vel = dir.Mul(speed)
	}

	e := Instantiate(w, a, p)
	s.spawned++
	event.Emit(s.bus, event.EntitySpawned{Entity: e, Archetype: a.Name})

	if sp.Loop && sp.SpawnRate > 0 {
		sp.TimeUntilSpawn += sp.SpawnRate
		if sp.TimeUntilSpawn <= 0 {
			sp.TimeUntilSpawn = sp.SpawnRate
		}
		return
	}
	ecs.Remove[component.ArchetypeSpawner](w, id)
}

// Spawned returns the number of entities created by spawners so far.
func (s *SpawnerSystem) Spawned() int { return s.spawned }
